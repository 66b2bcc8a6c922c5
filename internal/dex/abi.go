package dex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const factoryABIJSON = `[
  {
    "inputs": [
      {"internalType": "address", "name": "tokenA", "type": "address"},
      {"internalType": "address", "name": "tokenB", "type": "address"},
      {"internalType": "uint24", "name": "fee", "type": "uint24"}
    ],
    "name": "getPool",
    "outputs": [{"internalType": "address", "name": "pool", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const quoterABIJSON = `[
  {
    "inputs": [
      {"internalType": "address", "name": "tokenIn", "type": "address"},
      {"internalType": "address", "name": "tokenOut", "type": "address"},
      {"internalType": "uint24", "name": "fee", "type": "uint24"},
      {"internalType": "uint256", "name": "amountIn", "type": "uint256"},
      {"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}
    ],
    "name": "quoteExactInputSingle",
    "outputs": [{"internalType": "uint256", "name": "amountOut", "type": "uint256"}],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "bytes", "name": "path", "type": "bytes"},
      {"internalType": "uint256", "name": "amountIn", "type": "uint256"}
    ],
    "name": "quoteExactInput",
    "outputs": [{"internalType": "uint256", "name": "amountOut", "type": "uint256"}],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

const swapRouterABIJSON = `[
  {
    "inputs": [
      {
        "components": [
          {"internalType": "address", "name": "tokenIn", "type": "address"},
          {"internalType": "address", "name": "tokenOut", "type": "address"},
          {"internalType": "uint24", "name": "fee", "type": "uint24"},
          {"internalType": "address", "name": "recipient", "type": "address"},
          {"internalType": "uint256", "name": "deadline", "type": "uint256"},
          {"internalType": "uint256", "name": "amountIn", "type": "uint256"},
          {"internalType": "uint256", "name": "amountOutMinimum", "type": "uint256"},
          {"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}
        ],
        "internalType": "struct ISwapRouter.ExactInputSingleParams",
        "name": "params",
        "type": "tuple"
      }
    ],
    "name": "exactInputSingle",
    "outputs": [{"internalType": "uint256", "name": "amountOut", "type": "uint256"}],
    "stateMutability": "payable",
    "type": "function"
  },
  {
    "inputs": [
      {
        "components": [
          {"internalType": "bytes", "name": "path", "type": "bytes"},
          {"internalType": "address", "name": "recipient", "type": "address"},
          {"internalType": "uint256", "name": "deadline", "type": "uint256"},
          {"internalType": "uint256", "name": "amountIn", "type": "uint256"},
          {"internalType": "uint256", "name": "amountOutMinimum", "type": "uint256"}
        ],
        "internalType": "struct ISwapRouter.ExactInputParams",
        "name": "params",
        "type": "tuple"
      }
    ],
    "name": "exactInput",
    "outputs": [{"internalType": "uint256", "name": "amountOut", "type": "uint256"}],
    "stateMutability": "payable",
    "type": "function"
  }
]`

const weth9ABIJSON = `[
  {"inputs": [], "name": "deposit", "outputs": [], "stateMutability": "payable", "type": "function"},
  {
    "inputs": [{"internalType": "uint256", "name": "wad", "type": "uint256"}],
    "name": "withdraw",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

var (
	factoryABI     abi.ABI
	factoryABIOnce sync.Once
	factoryABIErr  error

	quoterABI     abi.ABI
	quoterABIOnce sync.Once
	quoterABIErr  error

	swapRouterABI     abi.ABI
	swapRouterABIOnce sync.Once
	swapRouterABIErr  error

	weth9ABI     abi.ABI
	weth9ABIOnce sync.Once
	weth9ABIErr  error
)

// FactoryABI returns the parsed pool factory ABI.
func FactoryABI() (abi.ABI, error) {
	factoryABIOnce.Do(func() {
		factoryABI, factoryABIErr = abi.JSON(strings.NewReader(factoryABIJSON))
	})
	return factoryABI, factoryABIErr
}

// QuoterABI returns the parsed quoter ABI.
func QuoterABI() (abi.ABI, error) {
	quoterABIOnce.Do(func() {
		quoterABI, quoterABIErr = abi.JSON(strings.NewReader(quoterABIJSON))
	})
	return quoterABI, quoterABIErr
}

// SwapRouterABI returns the parsed swap router ABI.
func SwapRouterABI() (abi.ABI, error) {
	swapRouterABIOnce.Do(func() {
		swapRouterABI, swapRouterABIErr = abi.JSON(strings.NewReader(swapRouterABIJSON))
	})
	return swapRouterABI, swapRouterABIErr
}

// WETH9ABI returns the parsed wrapped-native token ABI.
func WETH9ABI() (abi.ABI, error) {
	weth9ABIOnce.Do(func() {
		weth9ABI, weth9ABIErr = abi.JSON(strings.NewReader(weth9ABIJSON))
	})
	return weth9ABI, weth9ABIErr
}
