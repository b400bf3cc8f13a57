package repository

import (
	"context"
	"sync/atomic"
	"time"

	"clubhouse/internal/domain"
	"clubhouse/internal/models"

	"github.com/rs/zerolog"
)

// FailoverStatusCache reads through the primary cache and drops to the
// fallback when the primary errors. Recovery is retried once a minute.
type FailoverStatusCache struct {
	primary   domain.StatusCache
	fallback  domain.StatusCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverStatusCache(primary, fallback domain.StatusCache, logger *zerolog.Logger) *FailoverStatusCache {
	return &FailoverStatusCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStatusCache) GetSnapshot(ctx context.Context, category models.Category) ([]models.FacilityStatus, error) {
	if !r.isDown.Load() {
		statuses, err := r.primary.GetSnapshot(ctx, category)
		if err == nil {
			return statuses, nil
		}
		r.logger.Error().Err(err).Msg("Primary status cache failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		statuses, err := r.primary.GetSnapshot(ctx, category)
		if err == nil {
			r.isDown.Store(false)
			return statuses, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetSnapshot(ctx, category)
}

func (r *FailoverStatusCache) SetSnapshot(ctx context.Context, category models.Category, statuses []models.FacilityStatus) error {
	if !r.isDown.Load() {
		err := r.primary.SetSnapshot(ctx, category, statuses)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary status cache failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.SetSnapshot(ctx, category, statuses)
}

// Invalidate clears both caches. A snapshot surviving in the idle side
// would serve stale availability after a failover flip.
func (r *FailoverStatusCache) Invalidate(ctx context.Context) error {
	fallbackErr := r.fallback.Invalidate(ctx)

	if !r.isDown.Load() {
		if err := r.primary.Invalidate(ctx); err != nil {
			r.logger.Error().Err(err).Msg("Primary status cache failed, falling back to memory")
			r.isDown.Store(true)
			r.lastCheck = time.Now()
		}
	}

	return fallbackErr
}
