package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PumpRadar/internal/domain/models"
	domrepo "PumpRadar/internal/domain/repository"
	"PumpRadar/pkg/cache"
)

// CacheSnapshotStore keeps the snapshot in the primary cache tier (Redis in
// production, in-process memory otherwise). Entries never expire.
type CacheSnapshotStore struct {
	cache cache.Service
}

func NewCacheSnapshotStore(c cache.Service) *CacheSnapshotStore {
	return &CacheSnapshotStore{cache: c}
}

func (s *CacheSnapshotStore) Load(ctx context.Context, key string) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := s.cache.Get(ctx, snapshotKey(key), &snap); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, domrepo.ErrNotFound
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return &snap, nil
}

func (s *CacheSnapshotStore) Save(ctx context.Context, key string, snap *models.Snapshot) error {
	if err := s.cache.Set(ctx, snapshotKey(key), snap, 0); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// TryLock exposes the cache lock for cross-instance replica writes.
func (s *CacheSnapshotStore) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.cache.TryLock(ctx, cache.Key("lock", key), ttl)
}

func snapshotKey(key string) string { return cache.Key("snapshot", key) }

var (
	_ domrepo.SnapshotStore = (*CacheSnapshotStore)(nil)
	_ domrepo.Locker        = (*CacheSnapshotStore)(nil)
)
