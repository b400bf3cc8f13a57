package database

import (
	"context"
	"testing"

	"clubhouse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembers_CreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	m := &models.Member{Name: "Alice", Phone: "+15550100"}
	require.NoError(t, store.CreateMember(ctx, m, day(1)))
	require.NotZero(t, m.ID)

	got, err := store.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, "+15550100", got.Phone)
	assert.True(t, got.Balance.IsZero())
	assert.Zero(t, got.TotalBookings)
	assert.Nil(t, got.LastBookingAt)

	_, err = store.GetMember(ctx, m.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMembers_ListOrderedByName(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Carol", "Alice", "Bob"} {
		require.NoError(t, store.CreateMember(ctx, &models.Member{Name: name}, day(1)))
	}

	members, err := store.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "Alice", members[0].Name)
	assert.Equal(t, "Bob", members[1].Name)
	assert.Equal(t, "Carol", members[2].Name)
}

func TestMemberBookings_NewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	facility := createTestFacility(t, store, "Room 101", models.CategoryRoom)
	member := createTestMember(t, store, "Alice")

	early := testBooking(facility, member, day(5), day(6))
	require.NoError(t, store.CreateBooking(ctx, early, models.LedgerDelta{}, nil, day(1)))
	late := testBooking(facility, member, day(20), day(21))
	require.NoError(t, store.CreateBooking(ctx, late, models.LedgerDelta{}, nil, day(1)))

	bookings, err := store.MemberBookings(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, late.ID, bookings[0].ID)
	assert.Equal(t, "Room 101", bookings[0].FacilityName)

	none, err := store.MemberBookings(ctx, member.ID+100)
	require.NoError(t, err)
	assert.Empty(t, none)
}
