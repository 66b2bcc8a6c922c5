package dex

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"routeScope/internal/chain"
	"routeScope/internal/model"
)

const erc20CallGasLimit = 200_000

type batchCaller interface {
	BatchCall(ctx context.Context, calls []chain.Call) ([]chain.Result, error)
}

// TokenMetaCache caches resolved token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.Token
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.Token)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.Token, bool) {
	c.mu.RLock()
	token, ok := c.data[address]
	c.mu.RUnlock()
	return token, ok
}

func (c *TokenMetaCache) Set(token model.Token) {
	c.mu.Lock()
	c.data[token.Address] = token
	c.mu.Unlock()
}

// FetchToken loads decimals and symbol for an ERC-20 token in one batched
// call. A missing symbol is tolerated; missing decimals are not, since an
// unscaled amount is unusable.
func FetchToken(ctx context.Context, caller batchCaller, address common.Address) (model.Token, error) {
	erc20, err := erc20ABIStringInstance()
	if err != nil {
		return model.Token{}, fmt.Errorf("parse erc20 abi: %w", err)
	}

	decimalsData, err := erc20.Pack("decimals")
	if err != nil {
		return model.Token{}, fmt.Errorf("pack decimals: %w", err)
	}
	symbolData, err := erc20.Pack("symbol")
	if err != nil {
		return model.Token{}, fmt.Errorf("pack symbol: %w", err)
	}

	results, err := caller.BatchCall(ctx, []chain.Call{
		{Target: address, GasLimit: erc20CallGasLimit, Data: decimalsData},
		{Target: address, GasLimit: erc20CallGasLimit, Data: symbolData},
	})
	if err != nil {
		return model.Token{}, err
	}

	if !results[0].Success {
		return model.Token{}, fmt.Errorf("token %s: decimals call reverted", address.Hex())
	}
	values, err := erc20.Unpack("decimals", results[0].ReturnData)
	if err != nil {
		return model.Token{}, fmt.Errorf("token %s: unpack decimals: %w", address.Hex(), err)
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return model.Token{}, fmt.Errorf("token %s: decimals is %T, want uint8", address.Hex(), values[0])
	}

	token := model.Token{Address: address, Decimals: decimals}
	if results[1].Success {
		token.Symbol = decodeSymbol(erc20, results[1].ReturnData)
	}
	return token, nil
}

// decodeSymbol tries the string ABI first and falls back to bytes32 for
// legacy tokens. The selector is identical, only the return encoding
// differs, so no extra call is needed.
func decodeSymbol(erc20 abi.ABI, returnData []byte) string {
	if values, err := erc20.Unpack("symbol", returnData); err == nil && len(values) == 1 {
		if symbol, ok := values[0].(string); ok {
			return symbol
		}
	}

	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return ""
	}
	values, err := bytes32ABI.Unpack("symbol", returnData)
	if err != nil || len(values) != 1 {
		return ""
	}
	raw, ok := values[0].([32]byte)
	if !ok {
		return ""
	}
	return strings.TrimRight(string(raw[:]), "\x00")
}
