package chain

import (
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// UniswapInterfaceMulticall shape: one aggregated eth_call, per-call gas cap
// and per-call success flag so a reverting call does not fail the batch.
const multicallABIJSON = `[
  {
    "inputs": [
      {
        "components": [
          {"internalType": "address", "name": "target", "type": "address"},
          {"internalType": "uint256", "name": "gasLimit", "type": "uint256"},
          {"internalType": "bytes", "name": "callData", "type": "bytes"}
        ],
        "internalType": "struct UniswapInterfaceMulticall.Call[]",
        "name": "calls",
        "type": "tuple[]"
      }
    ],
    "name": "multicall",
    "outputs": [
      {"internalType": "uint256", "name": "blockNumber", "type": "uint256"},
      {
        "components": [
          {"internalType": "bool", "name": "success", "type": "bool"},
          {"internalType": "uint256", "name": "gasUsed", "type": "uint256"},
          {"internalType": "bytes", "name": "returnData", "type": "bytes"}
        ],
        "internalType": "struct UniswapInterfaceMulticall.Result[]",
        "name": "returnData",
        "type": "tuple[]"
      }
    ],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

var (
	multicallABI     abi.ABI
	multicallABIOnce sync.Once
	multicallABIErr  error
)

func multicallABIInstance() (abi.ABI, error) {
	multicallABIOnce.Do(func() {
		multicallABI, multicallABIErr = abi.JSON(strings.NewReader(multicallABIJSON))
	})
	return multicallABI, multicallABIErr
}

type multicallInput struct {
	Target   common.Address
	GasLimit *big.Int
	CallData []byte
}

type multicallResult struct {
	Success    bool
	GasUsed    *big.Int
	ReturnData []byte
}

func packMulticall(calls []Call) ([]byte, error) {
	mcABI, err := multicallABIInstance()
	if err != nil {
		return nil, err
	}

	inputs := make([]multicallInput, 0, len(calls))
	for _, call := range calls {
		inputs = append(inputs, multicallInput{
			Target:   call.Target,
			GasLimit: new(big.Int).SetUint64(call.GasLimit),
			CallData: call.Data,
		})
	}
	return mcABI.Pack("multicall", inputs)
}

func unpackMulticall(raw []byte) ([]Result, error) {
	mcABI, err := multicallABIInstance()
	if err != nil {
		return nil, err
	}

	values, err := mcABI.Unpack("multicall", raw)
	if err != nil {
		return nil, err
	}

	decoded := *abi.ConvertType(values[1], new([]multicallResult)).(*[]multicallResult)
	results := make([]Result, 0, len(decoded))
	for _, item := range decoded {
		results = append(results, Result{Success: item.Success, ReturnData: item.ReturnData})
	}
	return results, nil
}
