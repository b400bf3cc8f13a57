package worker

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"clubhouse/internal/clock"
	"clubhouse/internal/database"
	"clubhouse/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestRetryPolicy_NextDelay(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:    5,
		InitialDelay:  time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2,
	}

	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 4*time.Second, policy.NextDelay(3))
	// Clamped at MaxDelay.
	assert.Equal(t, 10*time.Second, policy.NextDelay(5))
	assert.Equal(t, 10*time.Second, policy.NextDelay(20))
	// Out-of-range attempts fall back to the first delay.
	assert.Equal(t, time.Second, policy.NextDelay(0))
}

func setupExportWorker(t *testing.T) (*ExportWorker, *database.Store, *clock.Fake) {
	logger := zerolog.Nop()
	store, err := database.NewStore(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clk := clock.NewFake(time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC))
	w := NewExportWorker(store, t.TempDir(), RetryPolicy{}, clk, &logger)
	return w, store, clk
}

func TestEnqueue_RejectsUnknownKind(t *testing.T) {
	w, _, _ := setupExportWorker(t)

	err := w.Enqueue(context.Background(), models.ExportTask{Kind: "invoices"})
	assert.Error(t, err)
}

func TestEnqueue_FullQueue(t *testing.T) {
	w, _, _ := setupExportWorker(t)
	ctx := context.Background()

	// The worker is not started, so every task stays queued.
	for i := 0; i < models.ExportQueueSize; i++ {
		require.NoError(t, w.Enqueue(ctx, models.ExportTask{Kind: models.ExportLedger}))
	}

	err := w.Enqueue(ctx, models.ExportTask{Kind: models.ExportLedger})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestWriteBookingsReport(t *testing.T) {
	w, store, clk := setupExportWorker(t)
	ctx := context.Background()

	facility := &models.Facility{Name: "Room 101", Category: models.CategoryRoom, MemberRate: decimal.NewFromInt(1000)}
	require.NoError(t, store.CreateFacility(ctx, facility, clk.Now()))
	member := &models.Member{Name: "Alice", Phone: "+15550100"}
	require.NoError(t, store.CreateMember(ctx, member, clk.Now()))

	booking := &models.Booking{
		FacilityID:    facility.ID,
		MemberID:      member.ID,
		Category:      models.CategoryRoom,
		StartsAt:      time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
		EndsAt:        time.Date(2025, 2, 12, 0, 0, 0, 0, time.UTC),
		Tier:          models.TierMember,
		Total:         decimal.NewFromInt(2000),
		Paid:          decimal.NewFromInt(500),
		Pending:       decimal.NewFromInt(1500),
		PaymentStatus: models.PaymentHalfPaid,
	}
	require.NoError(t, store.CreateBooking(ctx, booking, models.LedgerDelta{}, nil, clk.Now()))

	path, err := w.writeReport(ctx, models.ExportTask{
		Kind: models.ExportBookings,
		From: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	name, err := f.GetCellValue("Bookings", "B3")
	require.NoError(t, err)
	assert.Equal(t, "Room 101", name)
	total, err := f.GetCellValue("Bookings", "I3")
	require.NoError(t, err)
	assert.Equal(t, "2000", total)
}

func TestWriteBookingsReport_DefaultWindow(t *testing.T) {
	w, _, clk := setupExportWorker(t)

	path, err := w.writeReport(context.Background(), models.ExportTask{Kind: models.ExportBookings})
	require.NoError(t, err)

	to := clk.Now().Format("2006-01-02")
	from := clk.Now().AddDate(0, -1, 0).Format("2006-01-02")
	assert.Contains(t, path, fmt.Sprintf("bookings_%s_to_%s.xlsx", from, to))
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestWriteLedgerReport(t *testing.T) {
	w, store, clk := setupExportWorker(t)
	ctx := context.Background()

	member := &models.Member{Name: "Bob", Phone: "+15550101"}
	require.NoError(t, store.CreateMember(ctx, member, clk.Now()))

	path, err := w.writeReport(ctx, models.ExportTask{Kind: models.ExportLedger})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	name, err := f.GetCellValue("Ledger", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Bob", name)
	balance, err := f.GetCellValue("Ledger", "F2")
	require.NoError(t, err)
	assert.Equal(t, "0", balance)
}
