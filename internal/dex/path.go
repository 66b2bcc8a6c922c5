package dex

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"routeScope/internal/model"
)

// EncodePath builds the packed multi-hop path consumed by quoteExactInput
// and exactInput: token (20 bytes) followed by fee (3 bytes, big-endian) for
// each hop, terminated by the final token. len(tokens) must be len(fees)+1.
func EncodePath(tokens []common.Address, fees []model.FeeTier) ([]byte, error) {
	if len(tokens) != len(fees)+1 {
		return nil, fmt.Errorf("path wants %d tokens for %d fees, got %d", len(fees)+1, len(fees), len(tokens))
	}

	path := make([]byte, 0, len(tokens)*common.AddressLength+len(fees)*3)
	for i, fee := range fees {
		path = append(path, tokens[i].Bytes()...)
		path = append(path, byte(fee>>16), byte(fee>>8), byte(fee))
	}
	path = append(path, tokens[len(tokens)-1].Bytes()...)
	return path, nil
}

// PathHex renders an encoded path with the 0x prefix for transmission.
func PathHex(path []byte) string {
	return hexutil.Encode(path)
}
