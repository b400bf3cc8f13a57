package service

import (
	"context"
	"testing"
	"time"

	"clubhouse/internal/clock"
	"clubhouse/internal/database"
	"clubhouse/internal/events"
	"clubhouse/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupReservationEngine(t *testing.T) (*ReservationEngine, *database.Store, *clock.Fake) {
	logger := zerolog.Nop()
	store, err := database.NewStore(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clk := clock.NewFake(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC))
	engine := NewReservationEngine(store, nil, events.NewEventBus(), clk, &logger)
	return engine, store, clk
}

func TestReserve_ValidatesWindow(t *testing.T) {
	engine, store, _ := setupReservationEngine(t)
	room := seedFacility(t, store, "Room 101", models.CategoryRoom, 500, 750)
	ctx := context.Background()

	t.Run("NoFacilities", func(t *testing.T) {
		_, err := engine.Reserve(ctx, nil, date(10), date(12), 7)
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("ZeroWindow", func(t *testing.T) {
		_, err := engine.Reserve(ctx, []int64{room.ID}, time.Time{}, time.Time{}, 7)
		assert.ErrorIs(t, err, database.ErrInvalidWindow)
	})

	t.Run("Inverted", func(t *testing.T) {
		_, err := engine.Reserve(ctx, []int64{room.ID}, date(12), date(10), 7)
		assert.ErrorIs(t, err, database.ErrInvalidWindow)
	})

	t.Run("PastStart", func(t *testing.T) {
		past := time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC)
		_, err := engine.Reserve(ctx, []int64{room.ID}, past, date(10), 7)
		assert.ErrorIs(t, err, database.ErrInvalidWindow)
	})
}

func TestReserveUnreserve_RoundTrip(t *testing.T) {
	engine, store, _ := setupReservationEngine(t)
	roomA := seedFacility(t, store, "Room A", models.CategoryRoom, 500, 750)
	roomB := seedFacility(t, store, "Room B", models.CategoryRoom, 500, 750)
	ctx := context.Background()

	created, err := engine.Reserve(ctx, []int64{roomA.ID, roomB.ID}, date(10), date(12), 7)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, int64(7), created[0].AdminID)

	removed, err := engine.Unreserve(ctx, []int64{roomA.ID, roomB.ID}, date(10), date(12))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	f, err := store.GetFacility(ctx, roomA.ID)
	require.NoError(t, err)
	assert.False(t, f.IsReserved)
}

func TestUnreserve_MissingWindowRemovesNothing(t *testing.T) {
	engine, store, _ := setupReservationEngine(t)
	room := seedFacility(t, store, "Room A", models.CategoryRoom, 500, 750)
	ctx := context.Background()

	_, err := engine.Reserve(ctx, []int64{room.ID}, date(10), date(12), 7)
	require.NoError(t, err)

	removed, err := engine.Unreserve(ctx, []int64{room.ID}, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)

	reservations, err := store.ListReservations(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, reservations, 1)
}
