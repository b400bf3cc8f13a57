package repository

import (
	"context"
	"sync"
	"time"

	"clubhouse/internal/models"
)

// MemoryStatusCache keeps availability snapshots in-process. Used as the
// failover target when Redis is down and as the sole cache when Redis is
// disabled.
type MemoryStatusCache struct {
	snapshots sync.Map
	ttl       time.Duration
}

type snapshotEntry struct {
	statuses  []models.FacilityStatus
	expiresAt time.Time
}

func NewMemoryStatusCache(ttl time.Duration) *MemoryStatusCache {
	return &MemoryStatusCache{
		ttl: ttl,
	}
}

func (r *MemoryStatusCache) GetSnapshot(ctx context.Context, category models.Category) ([]models.FacilityStatus, error) {
	val, ok := r.snapshots.Load(category)
	if !ok {
		return nil, nil
	}
	entry := val.(*snapshotEntry)
	if time.Now().After(entry.expiresAt) {
		r.snapshots.Delete(category)
		return nil, nil
	}
	return entry.statuses, nil
}

func (r *MemoryStatusCache) SetSnapshot(ctx context.Context, category models.Category, statuses []models.FacilityStatus) error {
	r.snapshots.Store(category, &snapshotEntry{
		statuses:  statuses,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryStatusCache) Invalidate(ctx context.Context) error {
	r.snapshots.Range(func(key, _ interface{}) bool {
		r.snapshots.Delete(key)
		return true
	})
	return nil
}
