package router

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"routeScope/internal/chain"
	"routeScope/internal/dex"
	"routeScope/internal/metrics"
	"routeScope/internal/model"
	"routeScope/internal/storage"
)

// getPool is a plain mapping read; a generous cap still keeps a broken
// factory from eating the whole batch.
const factoryCallGasLimit = 150_000

// PoolCache resolves PoolKeys to pool addresses with minimum RPC traffic.
// Entries are write-once for the cache lifetime: a resolved entry, present
// or absent, is never overwritten, so concurrent readers cannot observe a
// regression. Misses are resolved in one batched factory call.
type PoolCache struct {
	mu      sync.RWMutex
	entries map[model.PoolKey]model.PoolEntry

	gateway Caller
	factory common.Address
	logger  *zap.Logger

	store   storage.PoolStore
	chainID uint64
}

// NewPoolCache builds a cache backed by the factory contract.
func NewPoolCache(gateway Caller, factory common.Address, logger *zap.Logger) *PoolCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolCache{
		entries: make(map[model.PoolKey]model.PoolEntry),
		gateway: gateway,
		factory: factory,
		logger:  logger,
	}
}

// AttachStore warms the cache from a persistent pool registry and enables
// write-through for newly discovered pools. Only present pools round-trip
// through the store.
func (c *PoolCache) AttachStore(ctx context.Context, store storage.PoolStore, chainID uint64) error {
	records, err := store.LoadPools(ctx, chainID)
	if err != nil {
		return fmt.Errorf("load pools: %w", err)
	}

	c.mu.Lock()
	for _, record := range records {
		if !common.IsHexAddress(record.Token0) || !common.IsHexAddress(record.Token1) || !common.IsHexAddress(record.Address) {
			continue
		}
		key := model.NewPoolKey(common.HexToAddress(record.Token0), common.HexToAddress(record.Token1), model.FeeTier(record.Fee))
		if _, ok := c.entries[key]; !ok {
			c.entries[key] = model.PoolEntry{Address: common.HexToAddress(record.Address), Exists: true}
		}
	}
	c.store = store
	c.chainID = chainID
	c.mu.Unlock()

	c.logger.Info("pool cache warmed", zap.Int("pools", len(records)), zap.Uint64("chain_id", chainID))
	return nil
}

// Len returns the number of resolved entries.
func (c *PoolCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Resolve returns an entry for every requested key. Keys already cached are
// answered locally; the rest are looked up in one batched getPool call. A
// reverted lookup or the zero address both mean "no pool at this tier" and
// are cached as absent. On transport failure nothing is cached and the
// error propagates.
func (c *PoolCache) Resolve(ctx context.Context, keys []model.PoolKey) (map[model.PoolKey]model.PoolEntry, error) {
	out := make(map[model.PoolKey]model.PoolEntry, len(keys))
	missing := make([]model.PoolKey, 0)

	c.mu.RLock()
	for _, key := range keys {
		if entry, ok := c.entries[key]; ok {
			out[key] = entry
		} else {
			missing = append(missing, key)
		}
	}
	c.mu.RUnlock()

	metrics.PoolCacheHits.Add(float64(len(out)))
	metrics.PoolCacheMisses.Add(float64(len(missing)))

	if len(missing) == 0 {
		return out, nil
	}

	factoryABI, err := dex.FactoryABI()
	if err != nil {
		return nil, fmt.Errorf("parse factory abi: %w", err)
	}

	calls := make([]chain.Call, 0, len(missing))
	for _, key := range missing {
		data, err := factoryABI.Pack("getPool", key.Token0, key.Token1, key.Fee.BigInt())
		if err != nil {
			return nil, fmt.Errorf("pack getPool %s: %w", key, err)
		}
		calls = append(calls, chain.Call{Target: c.factory, GasLimit: factoryCallGasLimit, Data: data})
	}

	results, err := c.gateway.BatchCall(ctx, calls)
	if err != nil {
		return nil, err
	}

	resolved := make(map[model.PoolKey]model.PoolEntry, len(missing))
	for i, key := range missing {
		resolved[key] = decodePoolResult(factoryABI, results[i])
	}

	discovered := make([]storage.PoolRecord, 0)
	c.mu.Lock()
	for key, entry := range resolved {
		existing, ok := c.entries[key]
		if ok {
			// Another query resolved this key first; the cache never
			// downgrades, so keep the existing entry.
			out[key] = existing
			continue
		}
		c.entries[key] = entry
		out[key] = entry
		if entry.Exists {
			discovered = append(discovered, storage.PoolRecord{
				ChainID: c.chainID,
				Token0:  key.Token0.Hex(),
				Token1:  key.Token1.Hex(),
				Fee:     uint32(key.Fee),
				Address: entry.Address.Hex(),
			})
		}
	}
	store := c.store
	c.mu.Unlock()

	if store != nil && len(discovered) > 0 {
		if err := store.SavePools(ctx, discovered); err != nil {
			c.logger.Warn("pool write-through failed", zap.Error(err), zap.Int("pools", len(discovered)))
		}
	}

	return out, nil
}

func decodePoolResult(factoryABI abi.ABI, result chain.Result) model.PoolEntry {
	if !result.Success || len(result.ReturnData) == 0 {
		return model.PoolEntry{}
	}
	values, err := factoryABI.Unpack("getPool", result.ReturnData)
	if err != nil || len(values) != 1 {
		return model.PoolEntry{}
	}
	address, ok := values[0].(common.Address)
	if !ok || address == (common.Address{}) {
		return model.PoolEntry{}
	}
	return model.PoolEntry{Address: address, Exists: true}
}
