package service

import (
	"context"
	"time"

	"clubhouse/internal/clock"
	"clubhouse/internal/domain"
	"clubhouse/internal/events"
	"clubhouse/internal/models"

	"github.com/rs/zerolog"
)

// FacilityRegistry provisions facilities and serves availability views.
// List queries read the status cache first; the store is the fallback and
// refills the cache.
type FacilityRegistry struct {
	store  domain.Store
	cache  domain.StatusCache
	bus    domain.EventPublisher
	clock  clock.Clock
	logger *zerolog.Logger
}

func NewFacilityRegistry(store domain.Store, cache domain.StatusCache, bus domain.EventPublisher, clk clock.Clock, logger *zerolog.Logger) *FacilityRegistry {
	if clk == nil {
		clk = clock.Real{}
	}
	return &FacilityRegistry{
		store:  store,
		cache:  cache,
		bus:    bus,
		clock:  clk,
		logger: logger,
	}
}

// Sync upserts the provisioned facility list at startup.
func (r *FacilityRegistry) Sync(ctx context.Context, facilities []models.Facility) error {
	if err := r.store.SyncFacilities(ctx, facilities, r.clock.Now()); err != nil {
		return err
	}
	r.invalidateCache(ctx)
	r.logger.Info().Int("count", len(facilities)).Msg("facilities synced")
	return nil
}

func (r *FacilityRegistry) Get(ctx context.Context, id int64) (*models.Facility, error) {
	return r.store.GetFacility(ctx, id)
}

func (r *FacilityRegistry) List(ctx context.Context, category models.Category) ([]*models.Facility, error) {
	return r.store.ListFacilities(ctx, category)
}

// Statuses serves the cached availability snapshot, refilling it from the
// store on a miss.
func (r *FacilityRegistry) Statuses(ctx context.Context, category models.Category) ([]models.FacilityStatus, error) {
	if r.cache != nil {
		statuses, err := r.cache.GetSnapshot(ctx, category)
		if err != nil {
			r.logger.Warn().Err(err).Msg("status cache read failed")
		} else if statuses != nil {
			return statuses, nil
		}
	}

	statuses, err := r.store.StatusSnapshot(ctx, category, r.clock.Now())
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.SetSnapshot(ctx, category, statuses); err != nil {
			r.logger.Warn().Err(err).Msg("status cache write failed")
		}
	}
	return statuses, nil
}

// SetOutOfService opens a maintenance window on the facility.
func (r *FacilityRegistry) SetOutOfService(ctx context.Context, facilityID int64, reason string, from time.Time, to *time.Time) (*models.ServiceWindow, error) {
	w, err := r.store.SetOutOfService(ctx, facilityID, reason, from, to, r.clock.Now())
	if err != nil {
		return nil, err
	}

	r.invalidateCache(ctx)
	r.publishFacility(events.EventFacilityOutOfService, facilityID)

	r.logger.Info().
		Int64("facility_id", facilityID).
		Str("reason", reason).
		Msg("facility taken out of service")
	return w, nil
}

// ClearOutOfService drops the facility's maintenance windows and restores
// it to service.
func (r *FacilityRegistry) ClearOutOfService(ctx context.Context, facilityID int64) error {
	if err := r.store.ClearOutOfService(ctx, facilityID, r.clock.Now()); err != nil {
		return err
	}

	r.invalidateCache(ctx)
	r.publishFacility(events.EventFacilityReactivated, facilityID)

	r.logger.Info().Int64("facility_id", facilityID).Msg("facility returned to service")
	return nil
}

// Delete removes a facility; the store refuses while live bookings still
// reference it.
func (r *FacilityRegistry) Delete(ctx context.Context, id int64) error {
	if err := r.store.DeleteFacility(ctx, id, r.clock.Now()); err != nil {
		return err
	}
	r.invalidateCache(ctx)
	r.logger.Info().Int64("facility_id", id).Msg("facility deleted")
	return nil
}

func (r *FacilityRegistry) invalidateCache(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("invalidate status cache")
	}
}

func (r *FacilityRegistry) publishFacility(eventType string, facilityID int64) {
	if r.bus == nil {
		return
	}
	payload := events.FacilityEventPayload{FacilityID: facilityID}
	if err := r.bus.PublishJSON(eventType, payload); err != nil {
		r.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}
