package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"usenet-scout/internal/model"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists the catalog snapshot as a single JSON document.
// Reads and writes are whole-document; a SET replaces the snapshot
// atomically so readers never observe a partial refresh.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

const snapshotKey = "usenet:catalog:snapshot"

// SaveSnapshot replaces the stored snapshot wholesale.
func (s *RedisStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("storage: marshal snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, snapshotKey, b, 0).Err(); err != nil {
		return fmt.Errorf("storage: save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the stored snapshot, or nil when none exists.
func (s *RedisStore) LoadSnapshot(ctx context.Context) (*model.Snapshot, error) {
	b, err := s.rdb.Get(ctx, snapshotKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load snapshot: %w", err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		// A corrupt document is surfaced, never silently treated as empty.
		return nil, fmt.Errorf("storage: decode snapshot: %w", err)
	}
	return &snap, nil
}

// ClearSnapshot removes the stored snapshot.
func (s *RedisStore) ClearSnapshot(ctx context.Context) error {
	return s.rdb.Del(ctx, snapshotKey).Err()
}
