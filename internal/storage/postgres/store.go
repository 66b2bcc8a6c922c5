package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"routeScope/internal/storage"
)

// Store provides Postgres persistence for the discovered-pool registry.
// Pool existence is a public, shared fact, so one store can safely warm the
// caches of many engine instances.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// LoadPools returns every known pool for the chain.
func (s *Store) LoadPools(ctx context.Context, chainID uint64) ([]storage.PoolRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT token0, token1, fee, pool_address
		FROM discovered_pools
		WHERE chain_id = $1
	`, int64(chainID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []storage.PoolRecord
	for rows.Next() {
		record := storage.PoolRecord{ChainID: chainID}
		if err := rows.Scan(&record.Token0, &record.Token1, &record.Fee, &record.Address); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// SavePools upserts discovered pools.
func (s *Store) SavePools(ctx context.Context, pools []storage.PoolRecord) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO discovered_pools (
				chain_id, token0, token1, fee, pool_address, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (chain_id, token0, token1, fee)
			DO UPDATE SET
				pool_address = EXCLUDED.pool_address,
				updated_at = now()
		`,
			int64(pool.ChainID),
			pool.Token0,
			pool.Token1,
			pool.Fee,
			pool.Address,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
