package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JsonlStore persists pool records to a JSONL file. Appends may contain
// duplicates across runs; LoadPools keeps the last record per pool.
type JsonlStore struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStore(path string) *JsonlStore {
	return &JsonlStore{path: path}
}

// LoadPools reads all records for the chain from the file. A missing file is
// an empty store, not an error.
func (s *JsonlStore) LoadPools(_ context.Context, chainID uint64) ([]PoolRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open pool file: %w", err)
	}
	defer file.Close()

	type dedupeKey struct {
		token0, token1 string
		fee            uint32
	}
	latest := make(map[dedupeKey]PoolRecord)
	order := make([]dedupeKey, 0)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record PoolRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("parse pool record: %w", err)
		}
		if record.ChainID != chainID {
			continue
		}
		key := dedupeKey{token0: record.Token0, token1: record.Token1, fee: record.Fee}
		if _, ok := latest[key]; !ok {
			order = append(order, key)
		}
		latest[key] = record
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read pool file: %w", err)
	}

	records := make([]PoolRecord, 0, len(order))
	for _, key := range order {
		records = append(records, latest[key])
	}
	return records, nil
}

// SavePools appends pool records as JSON lines.
func (s *JsonlStore) SavePools(_ context.Context, pools []PoolRecord) error {
	if len(pools) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open pool file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range pools {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal pool record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write pool record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
