package chain

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestPackUnpackMulticallRoundTrip(t *testing.T) {
	calls := []Call{
		{Target: common.HexToAddress("0x1111111111111111111111111111111111111111"), GasLimit: 150_000, Data: []byte{0xaa, 0xbb}},
		{Target: common.HexToAddress("0x2222222222222222222222222222222222222222"), GasLimit: 2_000_000, Data: []byte{0xcc}},
	}

	packed, err := packMulticall(calls)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	mcABI, err := multicallABIInstance()
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	method := mcABI.Methods["multicall"]
	if !bytes.HasPrefix(packed, method.ID) {
		t.Fatalf("packed data missing multicall selector")
	}

	// Simulate the aggregator's response: call 0 succeeds, call 1 reverts.
	raw, err := method.Outputs.Pack(big.NewInt(19_000_000), []multicallResult{
		{Success: true, GasUsed: big.NewInt(30_000), ReturnData: []byte{0x01, 0x02}},
		{Success: false, GasUsed: big.NewInt(150_000), ReturnData: nil},
	})
	if err != nil {
		t.Fatalf("pack outputs: %v", err)
	}

	results, err := unpackMulticall(raw)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if !results[0].Success || !bytes.Equal(results[0].ReturnData, []byte{0x01, 0x02}) {
		t.Fatalf("result 0 mismatch: %+v", results[0])
	}
	if results[1].Success {
		t.Fatalf("result 1 should report the revert, got %+v", results[1])
	}
}

func TestUnpackMulticallGarbage(t *testing.T) {
	if _, err := unpackMulticall([]byte{0x00, 0x01}); err == nil {
		t.Fatalf("expected error for malformed response")
	}
}
