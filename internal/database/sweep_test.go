package database

import (
	"context"
	"testing"
	"time"

	"clubhouse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncBookedFlags_LocksWhenWindowArrives(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	room := createTestFacility(t, store, "Room 101", models.CategoryRoom)
	member := createTestMember(t, store, "Alice")

	// Booked while the window is still in the future: flag stays clear.
	b := testBooking(room, member, day(10), day(12))
	require.NoError(t, store.CreateBooking(ctx, b, models.LedgerDelta{}, nil, day(1)))

	locked, unlocked, err := store.SyncBookedFlags(ctx, day(1))
	require.NoError(t, err)
	assert.Zero(t, locked)
	assert.Zero(t, unlocked)

	// The window has started: the sweep raises the flag.
	locked, unlocked, err = store.SyncBookedFlags(ctx, day(10).Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), locked)
	assert.Zero(t, unlocked)

	f, err := store.GetFacility(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, f.IsBooked)
}

func TestSyncBookedFlags_UnlocksWhenWindowEnds(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	room := createTestFacility(t, store, "Room 101", models.CategoryRoom)
	member := createTestMember(t, store, "Alice")

	b := testBooking(room, member, day(10), day(12))
	require.NoError(t, store.CreateBooking(ctx, b, models.LedgerDelta{}, nil, day(10).Add(time.Hour)))

	f, err := store.GetFacility(ctx, room.ID)
	require.NoError(t, err)
	require.True(t, f.IsBooked)

	locked, unlocked, err := store.SyncBookedFlags(ctx, day(12))
	require.NoError(t, err)
	assert.Zero(t, locked)
	assert.Equal(t, int64(1), unlocked)

	f, err = store.GetFacility(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, f.IsBooked)
}

func TestSyncBookedFlags_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	room := createTestFacility(t, store, "Room 101", models.CategoryRoom)
	member := createTestMember(t, store, "Alice")

	b := testBooking(room, member, day(10), day(12))
	require.NoError(t, store.CreateBooking(ctx, b, models.LedgerDelta{}, nil, day(1)))

	now := day(10).Add(time.Hour)
	locked, _, err := store.SyncBookedFlags(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), locked)

	// A second pass with no intervening writes changes nothing.
	locked, unlocked, err := store.SyncBookedFlags(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, locked)
	assert.Zero(t, unlocked)
}

func TestReactivateExpiredServiceWindows(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	room := createTestFacility(t, store, "Room 101", models.CategoryRoom)

	until := day(5)
	_, err := store.SetOutOfService(ctx, room.ID, "repainting", day(2), &until, day(2))
	require.NoError(t, err)

	f, err := store.GetFacility(ctx, room.ID)
	require.NoError(t, err)
	require.True(t, f.IsOutOfService)
	require.False(t, f.IsActive)

	// Before expiry the window holds.
	reactivated, err := store.ReactivateExpiredServiceWindows(ctx, day(4))
	require.NoError(t, err)
	assert.Zero(t, reactivated)

	reactivated, err = store.ReactivateExpiredServiceWindows(ctx, day(5))
	require.NoError(t, err)
	assert.Equal(t, int64(1), reactivated)

	f, err = store.GetFacility(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, f.IsOutOfService)
	assert.True(t, f.IsActive)

	// Idempotent: nothing left to reactivate.
	reactivated, err = store.ReactivateExpiredServiceWindows(ctx, day(6))
	require.NoError(t, err)
	assert.Zero(t, reactivated)
}

func TestReactivateExpiredServiceWindows_IndefiniteStays(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	room := createTestFacility(t, store, "Room 101", models.CategoryRoom)

	_, err := store.SetOutOfService(ctx, room.ID, "structural damage", day(2), nil, day(2))
	require.NoError(t, err)

	reactivated, err := store.ReactivateExpiredServiceWindows(ctx, day(100))
	require.NoError(t, err)
	assert.Zero(t, reactivated)

	f, err := store.GetFacility(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, f.IsOutOfService)
}

func TestDeactivateDueServiceWindows(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	room := createTestFacility(t, store, "Room 101", models.CategoryRoom)

	until := day(7)
	_, err := store.SetOutOfService(ctx, room.ID, "repaint", day(5), &until, day(1))
	require.NoError(t, err)

	// Future-dated window: the flag stays down until the start arrives.
	n, err := store.DeactivateDueServiceWindows(ctx, day(4))
	require.NoError(t, err)
	assert.Zero(t, n)

	f, err := store.GetFacility(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, f.IsOutOfService)
	assert.True(t, f.IsActive)

	n, err = store.DeactivateDueServiceWindows(ctx, day(5).Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	f, err = store.GetFacility(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, f.IsOutOfService)
	assert.False(t, f.IsActive)

	// Already flagged: repeating changes nothing.
	n, err = store.DeactivateDueServiceWindows(ctx, day(6))
	require.NoError(t, err)
	assert.Zero(t, n)
}
