package router

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"routeScope/internal/model"
	"routeScope/internal/storage"
)

type memStore struct {
	records []storage.PoolRecord
	saved   []storage.PoolRecord
	loadErr error
	saveErr error
}

func (m *memStore) LoadPools(_ context.Context, chainID uint64) ([]storage.PoolRecord, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]storage.PoolRecord, 0, len(m.records))
	for _, record := range m.records {
		if record.ChainID == chainID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (m *memStore) SavePools(_ context.Context, pools []storage.PoolRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, pools...)
	return nil
}

func TestPoolCacheResolveIdempotent(t *testing.T) {
	gw := newFakeGateway(t)
	gw.addPool(testTokenA, testTokenB, 500, testPoolA)

	cache := NewPoolCache(gw, testFactory, nil)
	keys := []model.PoolKey{
		model.NewPoolKey(testTokenA, testTokenB, 500),
		model.NewPoolKey(testTokenA, testTokenB, 3000),
	}

	first, err := cache.Resolve(context.Background(), keys)
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if len(gw.batches) != 1 || len(gw.batches[0]) != 2 {
		t.Fatalf("expected one batch of 2 lookups, got %+v", gw.batches)
	}

	entry := first[keys[0]]
	if !entry.Exists || entry.Address != testPoolA {
		t.Errorf("expected %s at fee 500, got %+v", testPoolA.Hex(), entry)
	}
	if first[keys[1]].Exists {
		t.Errorf("fee 3000 should be absent, got %+v", first[keys[1]])
	}
	if cache.Len() != 2 {
		t.Errorf("expected 2 cached entries (present and absent), got %d", cache.Len())
	}

	// Everything is cached now, including the absence; no more lookups.
	second, err := cache.Resolve(context.Background(), keys)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if len(gw.batches) != 1 {
		t.Errorf("second Resolve must not hit the chain, saw %d batches", len(gw.batches))
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached result mismatch:\n first: %+v\nsecond: %+v", first, second)
	}
}

func TestPoolCacheNormalizedKeysShareEntries(t *testing.T) {
	gw := newFakeGateway(t)
	gw.addPool(testTokenA, testTokenB, 500, testPoolA)

	cache := NewPoolCache(gw, testFactory, nil)
	if _, err := cache.Resolve(context.Background(), []model.PoolKey{model.NewPoolKey(testTokenA, testTokenB, 500)}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// The reversed pair normalizes to the same key and must not re-query.
	entries, err := cache.Resolve(context.Background(), []model.PoolKey{model.NewPoolKey(testTokenB, testTokenA, 500)})
	if err != nil {
		t.Fatalf("reversed Resolve: %v", err)
	}
	if len(gw.batches) != 1 {
		t.Errorf("reversed pair should be a cache hit, saw %d batches", len(gw.batches))
	}
	if entry := entries[model.NewPoolKey(testTokenB, testTokenA, 500)]; entry.Address != testPoolA {
		t.Errorf("expected %s, got %+v", testPoolA.Hex(), entry)
	}
}

func TestPoolCacheTransportErrorNotCached(t *testing.T) {
	gw := newFakeGateway(t)
	gw.addPool(testTokenA, testTokenB, 500, testPoolA)
	gw.err = errors.New("connection reset")

	cache := NewPoolCache(gw, testFactory, nil)
	keys := []model.PoolKey{model.NewPoolKey(testTokenA, testTokenB, 500)}

	if _, err := cache.Resolve(context.Background(), keys); err == nil {
		t.Fatal("expected transport error")
	}
	if cache.Len() != 0 {
		t.Errorf("failed lookup must not populate the cache, got %d entries", cache.Len())
	}

	gw.err = nil
	entries, err := cache.Resolve(context.Background(), keys)
	if err != nil {
		t.Fatalf("retry Resolve: %v", err)
	}
	if !entries[keys[0]].Exists {
		t.Errorf("retry should resolve the pool, got %+v", entries[keys[0]])
	}
}

func TestPoolCacheWarmAndWriteThrough(t *testing.T) {
	gw := newFakeGateway(t)
	gw.addPool(testTokenA, testBridge, 3000, testPoolB)

	warmKey := model.NewPoolKey(testTokenA, testTokenB, 500)
	store := &memStore{records: []storage.PoolRecord{
		{ChainID: 1, Token0: warmKey.Token0.Hex(), Token1: warmKey.Token1.Hex(), Fee: 500, Address: testPoolA.Hex()},
		{ChainID: 10, Token0: warmKey.Token0.Hex(), Token1: warmKey.Token1.Hex(), Fee: 500, Address: testPoolB.Hex()},
	}}

	cache := NewPoolCache(gw, testFactory, nil)
	if err := cache.AttachStore(context.Background(), store, 1); err != nil {
		t.Fatalf("AttachStore: %v", err)
	}

	// The warmed key answers locally.
	entries, err := cache.Resolve(context.Background(), []model.PoolKey{warmKey})
	if err != nil {
		t.Fatalf("Resolve warmed key: %v", err)
	}
	if len(gw.batches) != 0 {
		t.Errorf("warmed key should not hit the chain, saw %d batches", len(gw.batches))
	}
	if entry := entries[warmKey]; entry.Address != testPoolA {
		t.Errorf("warm entry must come from chain 1 records, got %+v", entry)
	}

	// A fresh discovery writes through to the store.
	newKey := model.NewPoolKey(testTokenA, testBridge, 3000)
	if _, err := cache.Resolve(context.Background(), []model.PoolKey{newKey}); err != nil {
		t.Fatalf("Resolve new key: %v", err)
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected 1 record written through, got %d", len(store.saved))
	}
	record := store.saved[0]
	if record.ChainID != 1 || record.Address != testPoolB.Hex() || record.Fee != 3000 {
		t.Errorf("unexpected write-through record %+v", record)
	}
}

func TestPoolCacheStoreFailureIsNonFatal(t *testing.T) {
	gw := newFakeGateway(t)
	gw.addPool(testTokenA, testTokenB, 500, testPoolA)

	store := &memStore{saveErr: errors.New("disk full")}
	cache := NewPoolCache(gw, testFactory, nil)
	if err := cache.AttachStore(context.Background(), store, 1); err != nil {
		t.Fatalf("AttachStore: %v", err)
	}

	key := model.NewPoolKey(testTokenA, testTokenB, 500)
	entries, err := cache.Resolve(context.Background(), []model.PoolKey{key})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !entries[key].Exists {
		t.Errorf("resolution must survive a store failure, got %+v", entries[key])
	}
}
