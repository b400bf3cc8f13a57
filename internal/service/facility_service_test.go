package service

import (
	"context"
	"testing"
	"time"

	"clubhouse/internal/clock"
	"clubhouse/internal/database"
	"clubhouse/internal/events"
	"clubhouse/internal/models"
	"clubhouse/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRegistry(t *testing.T) (*FacilityRegistry, *database.Store, *repository.MemoryStatusCache) {
	logger := zerolog.Nop()
	store, err := database.NewStore(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cache := repository.NewMemoryStatusCache(time.Minute)
	clk := clock.NewFake(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC))
	registry := NewFacilityRegistry(store, cache, events.NewEventBus(), clk, &logger)
	return registry, store, cache
}

func TestRegistrySync(t *testing.T) {
	registry, _, _ := setupRegistry(t)
	ctx := context.Background()

	err := registry.Sync(ctx, []models.Facility{
		{Name: "Room 101", Category: models.CategoryRoom, MemberRate: decimal.NewFromInt(1000)},
		{Name: "Main Hall", Category: models.CategoryHall, MemberRate: decimal.NewFromInt(5000)},
	})
	require.NoError(t, err)

	facilities, err := registry.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, facilities, 2)
}

func TestStatuses_CacheMissRefills(t *testing.T) {
	registry, _, cache := setupRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Sync(ctx, []models.Facility{
		{Name: "Room 101", Category: models.CategoryRoom, MemberRate: decimal.NewFromInt(1000)},
	}))
	// Sync invalidates, so the first read is a miss that refills the cache.
	statuses, err := registry.Statuses(ctx, models.CategoryRoom)
	require.NoError(t, err)
	require.Len(t, statuses, 1)

	cached, err := cache.GetSnapshot(ctx, models.CategoryRoom)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, statuses[0].FacilityID, cached[0].FacilityID)
}

func TestStatuses_ServedFromCache(t *testing.T) {
	registry, store, cache := setupRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Sync(ctx, []models.Facility{
		{Name: "Room 101", Category: models.CategoryRoom, MemberRate: decimal.NewFromInt(1000)},
	}))
	_, err := registry.Statuses(ctx, models.CategoryRoom)
	require.NoError(t, err)

	// A store write that skips invalidation is invisible until the cache
	// is dropped, proving reads hit the snapshot.
	f, err := store.GetFacilityByName(ctx, "Room 101")
	require.NoError(t, err)
	member := &models.Member{Name: "Alice"}
	require.NoError(t, store.CreateMember(ctx, member, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	booking := &models.Booking{
		FacilityID:    f.ID,
		MemberID:      member.ID,
		Category:      models.CategoryRoom,
		StartsAt:      time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		EndsAt:        time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC),
		Tier:          models.TierMember,
		PaymentStatus: models.PaymentUnpaid,
	}
	require.NoError(t, store.CreateBooking(ctx, booking, models.LedgerDelta{}, nil, now))

	statuses, err := registry.Statuses(ctx, models.CategoryRoom)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].IsBooked)

	require.NoError(t, cache.Invalidate(ctx))
	statuses, err = registry.Statuses(ctx, models.CategoryRoom)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].IsBooked)
}

func TestSetAndClearOutOfService(t *testing.T) {
	registry, _, _ := setupRegistry(t)
	ctx := context.Background()

	require.NoError(t, registry.Sync(ctx, []models.Facility{
		{Name: "Room 101", Category: models.CategoryRoom, MemberRate: decimal.NewFromInt(1000)},
	}))
	facilities, err := registry.List(ctx, "")
	require.NoError(t, err)
	id := facilities[0].ID

	w, err := registry.SetOutOfService(ctx, id, "leak", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	assert.Equal(t, "leak", w.Reason)
	assert.Nil(t, w.EndsAt)

	f, err := registry.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, f.IsOutOfService)

	require.NoError(t, registry.ClearOutOfService(ctx, id))
	f, err = registry.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, f.IsOutOfService)
}
