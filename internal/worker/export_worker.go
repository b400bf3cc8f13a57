package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"clubhouse/internal/clock"
	"clubhouse/internal/domain"
	"clubhouse/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// ErrQueueFull rejects an enqueue when the worker is saturated.
var ErrQueueFull = errors.New("export queue is full")

// ExportWorker writes booking and ledger statements to .xlsx files in the
// background. Tasks arrive on a bounded channel; a full queue rejects the
// enqueue rather than blocking the caller.
type ExportWorker struct {
	store       domain.Store
	retryPolicy RetryPolicy
	queue       chan models.ExportTask
	exportPath  string
	clock       clock.Clock
	logger      *zerolog.Logger
}

// NewExportWorker builds a worker with sane retry defaults.
func NewExportWorker(store domain.Store, exportPath string, retry RetryPolicy, clk clock.Clock, logger *zerolog.Logger) *ExportWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 3
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 30 * time.Second
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if clk == nil {
		clk = clock.Real{}
	}

	return &ExportWorker{
		store:       store,
		retryPolicy: retry,
		queue:       make(chan models.ExportTask, models.ExportQueueSize),
		exportPath:  exportPath,
		clock:       clk,
		logger:      logger,
	}
}

// Enqueue schedules an export. Never blocks; a full queue is an error the
// caller can surface.
func (w *ExportWorker) Enqueue(_ context.Context, task models.ExportTask) error {
	switch task.Kind {
	case models.ExportBookings, models.ExportLedger:
	default:
		return fmt.Errorf("unknown export kind: %s", task.Kind)
	}
	if task.RequestedAt.IsZero() {
		task.RequestedAt = w.clock.Now()
	}

	select {
	case w.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the main loop; stops when ctx is done.
func (w *ExportWorker) Start(ctx context.Context) {
	go func() {
		w.logger.Info().Msg("export worker started")
		defer w.logger.Info().Msg("export worker stopped")

		for {
			select {
			case <-ctx.Done():
				return
			case task := <-w.queue:
				w.processTask(ctx, task)
			}
		}
	}()
}

func (w *ExportWorker) processTask(ctx context.Context, task models.ExportTask) {
	var lastErr error
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		path, err := w.writeReport(ctx, task)
		if err == nil {
			w.logger.Info().
				Str("kind", task.Kind).
				Str("file_path", path).
				Msg("export completed")
			return
		}
		lastErr = err

		if attempt < w.retryPolicy.MaxRetries {
			delay := w.retryPolicy.NextDelay(attempt)
			w.logger.Warn().
				Err(err).
				Str("kind", task.Kind).
				Int("attempt", attempt).
				Dur("retry_in", delay).
				Msg("export attempt failed")

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
	}

	// Dead letter: the task is logged with its full parameters so it can
	// be replayed by hand.
	w.logger.Error().
		Err(lastErr).
		Str("kind", task.Kind).
		Time("from", task.From).
		Time("to", task.To).
		Time("requested_at", task.RequestedAt).
		Msg("export failed after all retries")
}

func (w *ExportWorker) writeReport(ctx context.Context, task models.ExportTask) (string, error) {
	if err := os.MkdirAll(w.exportPath, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	switch task.Kind {
	case models.ExportBookings:
		return w.writeBookingsReport(ctx, task)
	case models.ExportLedger:
		return w.writeLedgerReport(ctx)
	default:
		return "", fmt.Errorf("unknown export kind: %s", task.Kind)
	}
}

func (w *ExportWorker) writeBookingsReport(ctx context.Context, task models.ExportTask) (string, error) {
	from, to := task.From, task.To
	if to.IsZero() {
		to = w.clock.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, -1, 0)
	}
	if !from.Before(to) {
		return "", fmt.Errorf("export window [%s, %s) is empty", from, to)
	}

	bookings, err := w.store.ListBookingsByWindow(ctx, models.Window{Start: from, End: to})
	if err != nil {
		return "", fmt.Errorf("error getting bookings: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Bookings"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Period: %s - %s",
		from.Format("02.01.2006"), to.Format("02.01.2006")))

	headers := []string{
		"ID", "Facility", "Category", "Member ID", "Starts", "Ends",
		"Tier", "Guests", "Total", "Paid", "Pending", "Payment Status",
	}
	writeHeaderRow(f, sheetName, headers, 2)

	for i, b := range bookings {
		row := i + 3
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), b.ID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), b.FacilityName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), string(b.Category))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), b.MemberID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), b.StartsAt.Format("02.01.2006 15:04"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), b.EndsAt.Format("02.01.2006 15:04"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), string(b.Tier))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), b.Guests)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), b.Total.String())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), b.Paid.String())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("K%d", row), b.Pending.String())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("L%d", row), string(b.PaymentStatus))
	}

	_ = f.SetColWidth(sheetName, "A", "L", 18)
	lastCell, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.MergeCell(sheetName, "A1", lastCell)

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", style)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_%s_to_%s.xlsx",
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	filePath := filepath.Join(w.exportPath, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return filePath, nil
}

func (w *ExportWorker) writeLedgerReport(ctx context.Context) (string, error) {
	members, err := w.store.ListMembers(ctx)
	if err != nil {
		return "", fmt.Errorf("error getting members: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Ledger"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"ID", "Name", "Phone", "Dr Amount", "Cr Amount", "Balance",
		"Total Bookings", "Last Booking",
	}
	writeHeaderRow(f, sheetName, headers, 1)

	for i, m := range members {
		row := i + 2
		lastBooking := ""
		if m.LastBookingAt != nil {
			lastBooking = m.LastBookingAt.Format("02.01.2006 15:04")
		}
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), m.ID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), m.Name)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), m.Phone)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), m.DrAmount.String())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), m.CrAmount.String())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), m.Balance.String())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), m.TotalBookings)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), lastBooking)
	}

	_ = f.SetColWidth(sheetName, "A", "H", 18)
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("ledger_%s.xlsx", w.clock.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(w.exportPath, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return filePath, nil
}

func writeHeaderRow(f *excelize.File, sheetName string, headers []string, row int) {
	style, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, style)
	}
}
