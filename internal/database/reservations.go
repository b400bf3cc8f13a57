package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clubhouse/internal/models"
)

// ReserveFacilities places one reservation per facility for the window,
// atomically across all of them. Re-reserving the exact same window is
// idempotent: the old record is replaced, not duplicated. Any overlap with
// bookings, other reservations or service windows aborts the whole batch
// with the full conflict list.
func (s *Store) ReserveFacilities(ctx context.Context, facilityIDs []int64, w models.Window, adminID int64, now time.Time) ([]*models.Reservation, error) {
	var created []*models.Reservation
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var conflicts []models.Conflict

		for _, facilityID := range facilityIDs {
			var isBooked bool
			err := tx.QueryRowContext(ctx, `SELECT is_booked FROM facilities WHERE id = ?`, facilityID).Scan(&isBooked)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("load facility %d: %w", facilityID, err)
			}
			if isBooked {
				return ErrAlreadyBooked
			}

			// Idempotent re-reservation: drop the exact-window record
			// before conflict checks so it cannot collide with itself.
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM reservations WHERE facility_id = ? AND starts_at = ? AND ends_at = ?`,
				facilityID, w.Start.UTC(), w.End.UTC(),
			); err != nil {
				return fmt.Errorf("replace reservation: %w", err)
			}

			found, err := collectConflicts(ctx, tx, facilityID, w)
			if err != nil {
				return err
			}
			conflicts = append(conflicts, found...)
		}

		if len(conflicts) > 0 {
			return &ReservationConflictError{Conflicts: conflicts}
		}

		for _, facilityID := range facilityIDs {
			result, err := tx.ExecContext(ctx,
				`INSERT INTO reservations (facility_id, admin_id, starts_at, ends_at, created_at) VALUES (?, ?, ?, ?, ?)`,
				facilityID, adminID, w.Start.UTC(), w.End.UTC(), now.UTC(),
			)
			if err != nil {
				return fmt.Errorf("insert reservation: %w", err)
			}
			id, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("get last insert id: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE facilities SET is_reserved = 1, updated_at = ? WHERE id = ?`,
				now.UTC(), facilityID,
			); err != nil {
				return fmt.Errorf("set reserved flag: %w", err)
			}
			created = append(created, &models.Reservation{
				ID:         id,
				FacilityID: facilityID,
				AdminID:    adminID,
				StartsAt:   w.Start.UTC(),
				EndsAt:     w.End.UTC(),
				CreatedAt:  now.UTC(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func collectConflicts(ctx context.Context, q querier, facilityID int64, w models.Window) ([]models.Conflict, error) {
	var conflicts []models.Conflict

	rows, err := q.QueryContext(ctx,
		`SELECT id, starts_at, ends_at FROM bookings WHERE facility_id = ? AND starts_at < ? AND ends_at > ?`,
		facilityID, w.End.UTC(), w.Start.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("find conflicting bookings: %w", err)
	}
	conflicts, err = appendConflicts(conflicts, rows, "booking", facilityID)
	if err != nil {
		return nil, err
	}

	rows, err = q.QueryContext(ctx,
		`SELECT id, starts_at, ends_at FROM reservations WHERE facility_id = ? AND starts_at < ? AND ends_at > ?`,
		facilityID, w.End.UTC(), w.Start.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("find conflicting reservations: %w", err)
	}
	conflicts, err = appendConflicts(conflicts, rows, "reservation", facilityID)
	if err != nil {
		return nil, err
	}

	rows, err = q.QueryContext(ctx,
		`SELECT id, starts_at, COALESCE(ends_at, ?) FROM service_windows
	     WHERE facility_id = ? AND starts_at < ? AND (ends_at IS NULL OR ends_at > ?)`,
		w.End.UTC(), facilityID, w.End.UTC(), w.Start.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("find conflicting service windows: %w", err)
	}
	return appendConflicts(conflicts, rows, "service_window", facilityID)
}

func appendConflicts(conflicts []models.Conflict, rows *sql.Rows, kind string, facilityID int64) ([]models.Conflict, error) {
	defer rows.Close()
	for rows.Next() {
		var c models.Conflict
		if err := rows.Scan(&c.RecordID, &c.StartsAt, &c.EndsAt); err != nil {
			return nil, fmt.Errorf("scan %s conflict: %w", kind, err)
		}
		c.Kind = kind
		c.FacilityID = facilityID
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}

// UnreserveFacilities removes reservations matching the exact window and
// re-derives each facility's reserved flag from the reservations that
// remain. Returns the number of reservations removed.
func (s *Store) UnreserveFacilities(ctx context.Context, facilityIDs []int64, w models.Window, now time.Time) (int64, error) {
	var removed int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, facilityID := range facilityIDs {
			result, err := tx.ExecContext(ctx,
				`DELETE FROM reservations WHERE facility_id = ? AND starts_at = ? AND ends_at = ?`,
				facilityID, w.Start.UTC(), w.End.UTC(),
			)
			if err != nil {
				return fmt.Errorf("delete reservation: %w", err)
			}
			n, _ := result.RowsAffected()
			removed += n

			if _, err := tx.ExecContext(ctx,
				`UPDATE facilities SET is_reserved = EXISTS(
				    SELECT 1 FROM reservations WHERE facility_id = facilities.id
				 ), updated_at = ? WHERE id = ?`,
				now.UTC(), facilityID,
			); err != nil {
				return fmt.Errorf("refresh reserved flag: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// ListReservations returns a facility's reservations ordered by window.
func (s *Store) ListReservations(ctx context.Context, facilityID int64) ([]*models.Reservation, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT id, facility_id, admin_id, starts_at, ends_at, created_at
	     FROM reservations WHERE facility_id = ? ORDER BY starts_at`,
		facilityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*models.Reservation
	for rows.Next() {
		var r models.Reservation
		if err := rows.Scan(&r.ID, &r.FacilityID, &r.AdminID, &r.StartsAt, &r.EndsAt, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		r.StartsAt = r.StartsAt.UTC()
		r.EndsAt = r.EndsAt.UTC()
		reservations = append(reservations, &r)
	}
	return reservations, rows.Err()
}
