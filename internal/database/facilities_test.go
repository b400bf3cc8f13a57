package database

import (
	"context"
	"testing"
	"time"

	"clubhouse/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncFacilities_UpsertAndDeactivate(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()
	now := day(1)

	initial := []models.Facility{
		{Name: "Room 101", Category: models.CategoryRoom, MemberRate: decimal.NewFromInt(1000)},
		{Name: "Main Hall", Category: models.CategoryHall, MemberRate: decimal.NewFromInt(5000)},
	}
	require.NoError(t, store.SyncFacilities(ctx, initial, now))

	facilities, err := store.ListFacilities(ctx, "")
	require.NoError(t, err)
	require.Len(t, facilities, 2)

	// Second sync: rate change for one, the other dropped from the list.
	updated := []models.Facility{
		{Name: "Room 101", Category: models.CategoryRoom, MemberRate: decimal.NewFromInt(1200)},
	}
	require.NoError(t, store.SyncFacilities(ctx, updated, now.Add(time.Hour)))

	facilities, err = store.ListFacilities(ctx, "")
	require.NoError(t, err)
	require.Len(t, facilities, 1)
	assert.Equal(t, "Room 101", facilities[0].Name)
	assert.True(t, facilities[0].MemberRate.Equal(decimal.NewFromInt(1200)))

	// The dropped facility is deactivated, not deleted.
	hall, err := store.GetFacilityByName(ctx, "Main Hall")
	require.NoError(t, err)
	assert.False(t, hall.IsActive)
}

func TestListFacilities_CategoryFilter(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	createTestFacility(t, store, "Room 101", models.CategoryRoom)
	createTestFacility(t, store, "Main Hall", models.CategoryHall)
	createTestFacility(t, store, "North Lawn", models.CategoryLawn)

	rooms, err := store.ListFacilities(ctx, models.CategoryRoom)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "Room 101", rooms[0].Name)

	all, err := store.ListFacilities(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDeleteFacility_BlockedByLiveBooking(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	room := createTestFacility(t, store, "Room 101", models.CategoryRoom)
	member := createTestMember(t, store, "Alice")

	b := testBooking(room, member, day(10), day(12))
	require.NoError(t, store.CreateBooking(ctx, b, models.LedgerDelta{}, nil, day(1)))

	err := store.DeleteFacility(ctx, room.ID, day(5))
	assert.ErrorIs(t, err, ErrFacilityInUse)

	// Once the window has fully ended the facility can go.
	assert.NoError(t, store.DeleteFacility(ctx, room.ID, day(12)))

	_, err = store.GetFacility(ctx, room.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetOutOfService_RefusesBookedFacility(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	room := createTestFacility(t, store, "Room 101", models.CategoryRoom)
	member := createTestMember(t, store, "Alice")
	now := day(10).Add(time.Hour)

	b := testBooking(room, member, day(10), day(12))
	require.NoError(t, store.CreateBooking(ctx, b, models.LedgerDelta{}, nil, now))

	_, err := store.SetOutOfService(ctx, room.ID, "repairs", now, nil, now)
	assert.ErrorIs(t, err, ErrAlreadyBooked)
}

func TestClearOutOfService(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	room := createTestFacility(t, store, "Room 101", models.CategoryRoom)

	_, err := store.SetOutOfService(ctx, room.ID, "flooding", day(2), nil, day(2))
	require.NoError(t, err)

	require.NoError(t, store.ClearOutOfService(ctx, room.ID, day(3)))

	f, err := store.GetFacility(ctx, room.ID)
	require.NoError(t, err)
	assert.False(t, f.IsOutOfService)
	assert.True(t, f.IsActive)

	windows, err := store.ServiceWindows(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestStatusSnapshot(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	room := createTestFacility(t, store, "Room 101", models.CategoryRoom)
	createTestFacility(t, store, "Main Hall", models.CategoryHall)
	member := createTestMember(t, store, "Alice")
	now := day(10).Add(time.Hour)

	b := testBooking(room, member, day(10), day(12))
	require.NoError(t, store.CreateBooking(ctx, b, models.LedgerDelta{}, nil, now))

	statuses, err := store.StatusSnapshot(ctx, "", now)
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	byName := map[string]models.FacilityStatus{}
	for _, s := range statuses {
		byName[s.Name] = s
	}
	assert.True(t, byName["Room 101"].IsBooked)
	assert.False(t, byName["Main Hall"].IsBooked)
}

func TestDeleteFacility_RemovesSettledHistory(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	room := createTestFacility(t, store, "Room 101", models.CategoryRoom)
	member := createTestMember(t, store, "Alice")

	voucher := &models.Voucher{
		VoucherNo: "V-1",
		Category:  models.CategoryRoom,
		Amount:    decimal.NewFromInt(400),
		Type:      models.VoucherHalfPayment,
	}
	b := testBooking(room, member, day(2), day(4))
	require.NoError(t, store.CreateBooking(ctx, b, models.LedgerDelta{}, voucher, day(1)))

	// Long after the stay ended the facility can go, history and all.
	require.NoError(t, store.DeleteFacility(ctx, room.ID, day(12)))

	_, err := store.GetFacility(ctx, room.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetBooking(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Vouchers stay behind as the payment trail.
	vouchers, err := store.BookingVouchers(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, vouchers, 1)
}
