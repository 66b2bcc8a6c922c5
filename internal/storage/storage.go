package storage

import "context"

// PoolRecord is one discovered pool as persisted across sessions. Only
// present pools are stored; absence is cheap to re-probe and is not a
// durable fact across deployments.
type PoolRecord struct {
	ChainID uint64 `json:"chain_id"`
	Token0  string `json:"token0"`
	Token1  string `json:"token1"`
	Fee     uint32 `json:"fee"`
	Address string `json:"address"`
}

// PoolStore persists discovered pools so a fresh process can warm its pool
// cache without re-probing the factory.
type PoolStore interface {
	LoadPools(ctx context.Context, chainID uint64) ([]PoolRecord, error)
	SavePools(ctx context.Context, pools []PoolRecord) error
}
