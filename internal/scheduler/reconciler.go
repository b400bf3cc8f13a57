package scheduler

import (
	"context"
	"time"

	"clubhouse/internal/clock"
	"clubhouse/internal/domain"
	"clubhouse/internal/events"
	"clubhouse/internal/metrics"
	"clubhouse/internal/models"

	"github.com/rs/zerolog"
)

// Reconciler periodically re-derives facility availability flags from the
// time-bounded records. The engines' real-time toggling is best-effort;
// this sweep is the source of truth over any horizon longer than one
// interval, healing missed toggles from crashes, clock skew or manual
// data edits.
type Reconciler struct {
	store    domain.Store
	cache    domain.StatusCache
	bus      domain.EventPublisher
	clock    clock.Clock
	interval time.Duration
	logger   *zerolog.Logger
}

func NewReconciler(store domain.Store, cache domain.StatusCache, bus domain.EventPublisher, clk clock.Clock, interval time.Duration, logger *zerolog.Logger) *Reconciler {
	if clk == nil {
		clk = clock.Real{}
	}
	if interval <= 0 {
		interval = models.DefaultSweepIntervalMinutes * time.Minute
	}
	return &Reconciler{
		store:    store,
		cache:    cache,
		bus:      bus,
		clock:    clk,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the sweep loop until ctx is cancelled. A failed sweep is
// logged and retried at the next tick, never fatal.
func (r *Reconciler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.Sweep(ctx); err != nil {
					r.logger.Error().Err(err).Msg("availability sweep failed")
				}
			}
		}
	}()
}

// Sweep runs the passes once: expired service windows are cleared, due
// windows raise the out-of-service flag, and booked flags are re-derived
// from the bookings active right now. Only wrong flags are flipped, so
// repeating the sweep with no intervening writes changes nothing.
func (r *Reconciler) Sweep(ctx context.Context) (models.SweepReport, error) {
	now := r.clock.Now()
	report := models.SweepReport{StartedAt: now}

	reactivated, err := r.store.ReactivateExpiredServiceWindows(ctx, now)
	if err != nil {
		return report, err
	}
	report.Reactivated = reactivated

	deactivated, err := r.store.DeactivateDueServiceWindows(ctx, now)
	if err != nil {
		return report, err
	}
	report.Deactivated = deactivated

	locked, unlocked, err := r.store.SyncBookedFlags(ctx, now)
	if err != nil {
		return report, err
	}
	report.Locked = locked
	report.Unlocked = unlocked

	metrics.ObserveSweep(report.Deactivated, report.Reactivated, report.Locked, report.Unlocked)

	if report.Changed() {
		if r.cache != nil {
			if err := r.cache.Invalidate(ctx); err != nil {
				r.logger.Warn().Err(err).Msg("invalidate status cache")
			}
		}
		if r.bus != nil {
			payload := events.SweepEventPayload{
				Deactivated: report.Deactivated,
				Reactivated: report.Reactivated,
				Locked:      report.Locked,
				Unlocked:    report.Unlocked,
			}
			if err := r.bus.PublishJSON(events.EventSweepCompleted, payload); err != nil {
				r.logger.Error().Err(err).Msg("publish sweep event")
			}
		}
	}

	r.logger.Info().
		Int64("deactivated", report.Deactivated).
		Int64("reactivated", report.Reactivated).
		Int64("locked", report.Locked).
		Int64("unlocked", report.Unlocked).
		Msg("availability sweep completed")
	return report, nil
}
