package model

import "github.com/ethereum/go-ethereum/common"

// NativeTokenAddress is the sentinel address used for the chain's native
// asset, which has no ERC-20 contract of its own.
var NativeTokenAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// Token identifies a tradable asset. Address is either an ERC-20 contract
// or the native-asset sentinel. Decimals must be resolved before the token
// can participate in a quote.
type Token struct {
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
	Symbol   string         `json:"symbol"`
}

// IsNative reports whether the token is the chain's native asset.
func (t Token) IsNative() bool {
	return t.Address == NativeTokenAddress
}

// NativeToken returns the native asset with the conventional 18 decimals.
func NativeToken(symbol string) Token {
	return Token{Address: NativeTokenAddress, Decimals: 18, Symbol: symbol}
}
