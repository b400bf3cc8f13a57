package service

import (
	"context"
	"errors"
	"time"

	"clubhouse/internal/clock"
	"clubhouse/internal/database"
	"clubhouse/internal/domain"
	"clubhouse/internal/events"
	"clubhouse/internal/metrics"
	"clubhouse/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// BookingEngine is the single booking engine for all facility categories.
// Category traits (ranged vs single-date windows, pricing) are resolved
// per request instead of duplicating the flow per category.
type BookingEngine struct {
	store  domain.Store
	cache  domain.StatusCache
	bus    domain.EventPublisher
	clock  clock.Clock
	logger *zerolog.Logger
}

func NewBookingEngine(store domain.Store, cache domain.StatusCache, bus domain.EventPublisher, clk clock.Clock, logger *zerolog.Logger) *BookingEngine {
	if clk == nil {
		clk = clock.Real{}
	}
	return &BookingEngine{
		store:  store,
		cache:  cache,
		bus:    bus,
		clock:  clk,
		logger: logger,
	}
}

// normalizeWindow turns a request into the stored half-open window.
// Ranged categories require start < end; single-date categories require a
// date no earlier than today and occupy the full day.
func normalizeWindow(category models.Category, start, end, date, now time.Time) (models.Window, error) {
	if category.Ranged() {
		if start.IsZero() || end.IsZero() || !start.Before(end) {
			return models.Window{}, database.ErrInvalidWindow
		}
		return models.Window{Start: start.UTC(), End: end.UTC()}, nil
	}

	if date.IsZero() {
		return models.Window{}, database.ErrInvalidWindow
	}
	if models.DateOnly(date).Before(models.DateOnly(now)) {
		return models.Window{}, database.ErrInvalidWindow
	}
	return models.DayWindow(date), nil
}

// price computes the booking total: nightly rate times nights for ranged
// categories, flat per-event rate otherwise.
func price(f *models.Facility, tier models.Tier, w models.Window) decimal.Decimal {
	rate := f.Rate(tier)
	if f.Category.Ranged() {
		return rate.Mul(decimal.NewFromInt(w.Nights()))
	}
	return rate
}

// paymentSplit derives paid from the requested status. Owed is always the
// total: the credit side records value created regardless of cash
// collected, so paid and owed track independently.
func paymentSplit(status models.PaymentStatus, requestedPaid, total decimal.Decimal) (paid decimal.Decimal, err error) {
	switch status {
	case models.PaymentPaid:
		return total, nil
	case models.PaymentHalfPaid:
		if requestedPaid.GreaterThan(total) {
			return decimal.Zero, database.ErrOverpayment
		}
		return requestedPaid, nil
	default:
		return decimal.Zero, nil
	}
}

func voucherType(status models.PaymentStatus) models.VoucherType {
	if status == models.PaymentPaid {
		return models.VoucherFullPayment
	}
	return models.VoucherHalfPayment
}

// Create validates the window, prices the stay, checks conflicts and
// persists booking, ledger delta and voucher atomically.
func (e *BookingEngine) Create(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	now := e.clock.Now()

	if !req.Category.Valid() || !req.PaymentStatus.Valid() {
		return nil, database.ErrInvalidWindow
	}
	if req.Tier == "" {
		req.Tier = models.TierMember
	}

	w, err := normalizeWindow(req.Category, req.Start, req.End, req.Date, now)
	if err != nil {
		return nil, err
	}

	facility, err := e.store.GetFacility(ctx, req.FacilityID)
	if err != nil {
		return nil, err
	}
	if facility.Category != req.Category {
		return nil, database.ErrNotFound
	}

	total := price(facility, req.Tier, w)
	paid, err := paymentSplit(req.PaymentStatus, req.PaidAmount, total)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		FacilityID:    facility.ID,
		FacilityName:  facility.Name,
		MemberID:      req.MemberID,
		Category:      req.Category,
		StartsAt:      w.Start,
		EndsAt:        w.End,
		Tier:          req.Tier,
		Guests:        req.Guests,
		Total:         total,
		Paid:          paid,
		Pending:       total.Sub(paid),
		PaymentStatus: req.PaymentStatus,
	}

	delta := models.LedgerDelta{
		MemberID:     req.MemberID,
		Dr:           paid,
		Cr:           total,
		CountBooking: true,
	}

	var voucher *models.Voucher
	if paid.IsPositive() {
		voucher = &models.Voucher{
			VoucherNo:   uuid.NewString(),
			Category:    req.Category,
			Amount:      paid,
			PaymentMode: req.PaymentMode,
			Type:        voucherType(req.PaymentStatus),
		}
	}

	if err := e.store.CreateBooking(ctx, booking, delta, voucher, now); err != nil {
		if errors.Is(err, database.ErrSchedulingConflict) {
			metrics.IncBookingConflict(string(req.Category))
		}
		return nil, err
	}

	metrics.IncBookingCreated(string(req.Category))
	e.invalidateCache(ctx)
	e.publish(events.EventBookingCreated, booking)

	e.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("facility_id", booking.FacilityID).
		Str("category", string(booking.Category)).
		Time("starts_at", booking.StartsAt).
		Time("ends_at", booking.EndsAt).
		Msg("booking created")

	return booking, nil
}

// Update patches a booking in place. The conflict check excludes the
// booking itself; the ledger receives the paid/owed delta, never absolute
// values; the booked flag is re-derived for both the new and old facility.
func (e *BookingEngine) Update(ctx context.Context, id int64, patch models.UpdateBookingRequest) (*models.Booking, error) {
	now := e.clock.Now()

	current, err := e.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	oldFacilityID := current.FacilityID
	oldPaid := current.Paid
	oldOwed := current.Total
	fromVersion := current.Version

	updated := *current
	if patch.FacilityID != nil {
		updated.FacilityID = *patch.FacilityID
	}
	if patch.Tier != nil {
		updated.Tier = *patch.Tier
	}
	if patch.Guests != nil {
		updated.Guests = *patch.Guests
	}
	if patch.PaymentStatus != nil {
		updated.PaymentStatus = *patch.PaymentStatus
	}

	// The "no past dates" rule applies at creation and when the window
	// moves; a payment-only patch on a finished booking stays valid.
	w := current.Window()
	if patch.Start != nil || patch.End != nil || patch.Date != nil {
		start, end, date := updated.StartsAt, updated.EndsAt, updated.StartsAt
		if patch.Start != nil {
			start = *patch.Start
		}
		if patch.End != nil {
			end = *patch.End
		}
		if patch.Date != nil {
			date = *patch.Date
		}
		w, err = normalizeWindow(updated.Category, start, end, date, now)
		if err != nil {
			return nil, err
		}
	}
	updated.StartsAt = w.Start
	updated.EndsAt = w.End

	facility, err := e.store.GetFacility(ctx, updated.FacilityID)
	if err != nil {
		return nil, err
	}
	if facility.Category != updated.Category {
		return nil, database.ErrNotFound
	}
	updated.FacilityName = facility.Name

	total := price(facility, updated.Tier, w)
	requestedPaid := updated.Paid
	if patch.PaidAmount != nil {
		requestedPaid = *patch.PaidAmount
	}
	paid, err := paymentSplit(updated.PaymentStatus, requestedPaid, total)
	if err != nil {
		return nil, err
	}
	updated.Total = total
	updated.Paid = paid
	updated.Pending = total.Sub(paid)

	delta := models.LedgerDelta{
		MemberID: updated.MemberID,
		Dr:       paid.Sub(oldPaid),
		Cr:       total.Sub(oldOwed),
	}

	// Paid increases append a voucher; history is never rewritten.
	var voucher *models.Voucher
	if paid.GreaterThan(oldPaid) {
		voucher = &models.Voucher{
			VoucherNo:   uuid.NewString(),
			Category:    updated.Category,
			Amount:      paid.Sub(oldPaid),
			PaymentMode: patch.PaymentMode,
			Type:        voucherType(updated.PaymentStatus),
		}
	}

	if err := e.store.UpdateBooking(ctx, &updated, fromVersion, oldFacilityID, delta, voucher, now); err != nil {
		if errors.Is(err, database.ErrSchedulingConflict) {
			metrics.IncBookingConflict(string(updated.Category))
		}
		return nil, err
	}

	e.invalidateCache(ctx)
	e.publish(events.EventBookingUpdated, &updated)

	e.logger.Info().
		Int64("booking_id", updated.ID).
		Int64("facility_id", updated.FacilityID).
		Int64("old_facility_id", oldFacilityID).
		Msg("booking updated")

	return &updated, nil
}

// Delete removes the booking and frees its facility.
func (e *BookingEngine) Delete(ctx context.Context, id int64) error {
	now := e.clock.Now()

	deleted, err := e.store.DeleteBooking(ctx, id, now)
	if err != nil {
		return err
	}

	e.invalidateCache(ctx)
	e.publish(events.EventBookingDeleted, deleted)

	e.logger.Info().
		Int64("booking_id", deleted.ID).
		Int64("facility_id", deleted.FacilityID).
		Msg("booking deleted")
	return nil
}

// List returns bookings, optionally filtered by category.
func (e *BookingEngine) List(ctx context.Context, category models.Category) ([]*models.Booking, error) {
	if category != "" && !category.Valid() {
		return nil, database.ErrNotFound
	}
	return e.store.ListBookings(ctx, category)
}

// Vouchers returns the payment audit trail of a booking.
func (e *BookingEngine) Vouchers(ctx context.Context, bookingID int64) ([]*models.Voucher, error) {
	if _, err := e.store.GetBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	return e.store.BookingVouchers(ctx, bookingID)
}

func (e *BookingEngine) invalidateCache(ctx context.Context) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("invalidate status cache")
	}
}

func (e *BookingEngine) publish(eventType string, b *models.Booking) {
	if e.bus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:     b.ID,
		FacilityID:    b.FacilityID,
		FacilityName:  b.FacilityName,
		MemberID:      b.MemberID,
		Category:      string(b.Category),
		StartsAt:      b.StartsAt,
		EndsAt:        b.EndsAt,
		PaymentStatus: string(b.PaymentStatus),
	}
	if err := e.bus.PublishJSON(eventType, payload); err != nil {
		e.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", b.ID).Msg("publish event error")
	}
}
