package service

import (
	"context"
	"time"

	"clubhouse/internal/clock"
	"clubhouse/internal/database"
	"clubhouse/internal/domain"
	"clubhouse/internal/events"
	"clubhouse/internal/metrics"
	"clubhouse/internal/models"

	"github.com/rs/zerolog"
)

// ReservationEngine places and removes admin blackout windows across one
// or more facilities.
type ReservationEngine struct {
	store  domain.Store
	cache  domain.StatusCache
	bus    domain.EventPublisher
	clock  clock.Clock
	logger *zerolog.Logger
}

func NewReservationEngine(store domain.Store, cache domain.StatusCache, bus domain.EventPublisher, clk clock.Clock, logger *zerolog.Logger) *ReservationEngine {
	if clk == nil {
		clk = clock.Real{}
	}
	return &ReservationEngine{
		store:  store,
		cache:  cache,
		bus:    bus,
		clock:  clk,
		logger: logger,
	}
}

// Reserve blocks the facilities for [from, to). Re-reserving the exact
// same window replaces the old record instead of duplicating it.
func (e *ReservationEngine) Reserve(ctx context.Context, facilityIDs []int64, from, to time.Time, adminID int64) ([]*models.Reservation, error) {
	now := e.clock.Now()

	if len(facilityIDs) == 0 {
		return nil, database.ErrNotFound
	}
	if from.IsZero() || to.IsZero() || !from.Before(to) || from.Before(now) {
		return nil, database.ErrInvalidWindow
	}

	w := models.Window{Start: from.UTC(), End: to.UTC()}
	created, err := e.store.ReserveFacilities(ctx, facilityIDs, w, adminID, now)
	if err != nil {
		return nil, err
	}

	metrics.AddReservations(len(created))
	e.invalidateCache(ctx)
	e.publish(events.EventReservationCreated, facilityIDs, w, adminID)

	e.logger.Info().
		Ints64("facility_ids", facilityIDs).
		Time("from", w.Start).
		Time("to", w.End).
		Int64("admin_id", adminID).
		Msg("facilities reserved")
	return created, nil
}

// Unreserve removes only reservations matching the exact window. Calling
// without a window removes nothing: fuzzy unreserve could free unrelated
// blackout periods.
func (e *ReservationEngine) Unreserve(ctx context.Context, facilityIDs []int64, from, to time.Time) (int64, error) {
	now := e.clock.Now()

	if from.IsZero() || to.IsZero() {
		return 0, nil
	}

	w := models.Window{Start: from.UTC(), End: to.UTC()}
	removed, err := e.store.UnreserveFacilities(ctx, facilityIDs, w, now)
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		e.invalidateCache(ctx)
		e.publish(events.EventReservationRemoved, facilityIDs, w, 0)
	}

	e.logger.Info().
		Ints64("facility_ids", facilityIDs).
		Time("from", w.Start).
		Time("to", w.End).
		Int64("removed", removed).
		Msg("facilities unreserved")
	return removed, nil
}

func (e *ReservationEngine) invalidateCache(ctx context.Context) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("invalidate status cache")
	}
}

func (e *ReservationEngine) publish(eventType string, facilityIDs []int64, w models.Window, adminID int64) {
	if e.bus == nil {
		return
	}
	payload := events.ReservationEventPayload{
		FacilityIDs: facilityIDs,
		StartsAt:    w.Start,
		EndsAt:      w.End,
		AdminID:     adminID,
	}
	if err := e.bus.PublishJSON(eventType, payload); err != nil {
		e.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}
