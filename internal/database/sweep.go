package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DeactivateDueServiceWindows raises the out-of-service flag for
// facilities whose maintenance window has arrived. SetOutOfService only
// flags windows already covering now, so future-dated windows rely on
// this pass. Returns the number of facilities taken out of service.
func (s *Store) DeactivateDueServiceWindows(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.ExecContext(ctx,
		`UPDATE facilities SET is_out_of_service = 1, is_active = 0, updated_at = ?
		 WHERE is_out_of_service = 0 AND EXISTS(
		    SELECT 1 FROM service_windows
		    WHERE facility_id = facilities.id AND starts_at <= ? AND (ends_at IS NULL OR ends_at > ?)
		 )`,
		now.UTC(), now.UTC(), now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("deactivate facilities: %w", err)
	}
	deactivated, _ := result.RowsAffected()
	return deactivated, nil
}

// ReactivateExpiredServiceWindows clears elapsed maintenance windows and
// restores facilities whose every window has passed. Returns the number of
// facilities brought back into service.
func (s *Store) ReactivateExpiredServiceWindows(ctx context.Context, now time.Time) (int64, error) {
	var reactivated int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM service_windows WHERE ends_at IS NOT NULL AND ends_at <= ?`, now.UTC(),
		); err != nil {
			return fmt.Errorf("clear elapsed service windows: %w", err)
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE facilities SET is_out_of_service = 0, is_active = 1, updated_at = ?
			 WHERE is_out_of_service = 1 AND NOT EXISTS(
			    SELECT 1 FROM service_windows
			    WHERE facility_id = facilities.id AND starts_at <= ? AND (ends_at IS NULL OR ends_at > ?)
			 )`,
			now.UTC(), now.UTC(), now.UTC(),
		)
		if err != nil {
			return fmt.Errorf("reactivate facilities: %w", err)
		}
		reactivated, _ = result.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return reactivated, nil
}

// SyncBookedFlags re-derives is_booked for every facility from the
// bookings active at now. Only wrong flags are flipped, which makes the
// sweep idempotent and safe to interleave with engine writes. Returns how
// many facilities were locked and unlocked.
func (s *Store) SyncBookedFlags(ctx context.Context, now time.Time) (locked, unlocked int64, err error) {
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE facilities SET is_booked = 1, updated_at = ?
			 WHERE is_booked = 0 AND EXISTS(
			    SELECT 1 FROM bookings WHERE facility_id = facilities.id AND starts_at <= ? AND ends_at > ?
			 )`,
			now.UTC(), now.UTC(), now.UTC(),
		)
		if err != nil {
			return fmt.Errorf("lock facilities: %w", err)
		}
		locked, _ = result.RowsAffected()

		result, err = tx.ExecContext(ctx,
			`UPDATE facilities SET is_booked = 0, updated_at = ?
			 WHERE is_booked = 1 AND NOT EXISTS(
			    SELECT 1 FROM bookings WHERE facility_id = facilities.id AND starts_at <= ? AND ends_at > ?
			 )`,
			now.UTC(), now.UTC(), now.UTC(),
		)
		if err != nil {
			return fmt.Errorf("unlock facilities: %w", err)
		}
		unlocked, _ = result.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return locked, unlocked, nil
}
