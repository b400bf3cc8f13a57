package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clubhouse/internal/models"
)

const facilityColumns = `id, name, category, room_type, capacity, member_rate, guest_rate,
       sort_order, is_active, is_booked, is_out_of_service, is_reserved, created_at, updated_at`

func scanFacility(row interface{ Scan(...any) error }) (*models.Facility, error) {
	var f models.Facility
	err := row.Scan(
		&f.ID, &f.Name, &f.Category, &f.RoomType, &f.Capacity, &f.MemberRate, &f.GuestRate,
		&f.SortOrder, &f.IsActive, &f.IsBooked, &f.IsOutOfService, &f.IsReserved,
		&f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetFacility returns one facility or ErrNotFound.
func (s *Store) GetFacility(ctx context.Context, id int64) (*models.Facility, error) {
	query := `SELECT ` + facilityColumns + ` FROM facilities WHERE id = ?`
	f, err := scanFacility(s.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get facility: %w", err)
	}
	return f, nil
}

// GetFacilityByName returns one facility by its unique name or ErrNotFound.
func (s *Store) GetFacilityByName(ctx context.Context, name string) (*models.Facility, error) {
	query := `SELECT ` + facilityColumns + ` FROM facilities WHERE name = ?`
	f, err := scanFacility(s.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get facility by name: %w", err)
	}
	return f, nil
}

// ListFacilities returns active facilities, optionally filtered by category.
func (s *Store) ListFacilities(ctx context.Context, category models.Category) ([]*models.Facility, error) {
	query := `SELECT ` + facilityColumns + ` FROM facilities WHERE is_active = 1`
	args := []any{}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY sort_order, id`

	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list facilities: %w", err)
	}
	defer rows.Close()

	var facilities []*models.Facility
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, fmt.Errorf("scan facility: %w", err)
		}
		facilities = append(facilities, f)
	}
	return facilities, rows.Err()
}

// CreateFacility inserts a new facility row.
func (s *Store) CreateFacility(ctx context.Context, f *models.Facility, now time.Time) error {
	query := `INSERT INTO facilities (
	            name, category, room_type, capacity, member_rate, guest_rate,
	            sort_order, is_active, created_at, updated_at
	        ) VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`
	result, err := s.ExecContext(ctx, query,
		f.Name, f.Category, f.RoomType, f.Capacity, f.MemberRate, f.GuestRate,
		f.SortOrder, now.UTC(), now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create facility: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	f.ID = id
	f.IsActive = true
	f.CreatedAt = now.UTC()
	f.UpdatedAt = now.UTC()
	return nil
}

// SyncFacilities upserts the provisioned facility list by name. Rows not
// present in the list are deactivated, never deleted, so historical
// bookings keep their references.
func (s *Store) SyncFacilities(ctx context.Context, facilities []models.Facility, now time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		seen := make([]any, 0, len(facilities))
		for i := range facilities {
			f := &facilities[i]
			query := `INSERT INTO facilities (
			            name, category, room_type, capacity, member_rate, guest_rate,
			            sort_order, is_active, created_at, updated_at
			        ) VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
			        ON CONFLICT(name) DO UPDATE SET
			            category = excluded.category,
			            room_type = excluded.room_type,
			            capacity = excluded.capacity,
			            member_rate = excluded.member_rate,
			            guest_rate = excluded.guest_rate,
			            sort_order = excluded.sort_order,
			            is_active = 1,
			            updated_at = excluded.updated_at`
			if _, err := tx.ExecContext(ctx, query,
				f.Name, f.Category, f.RoomType, f.Capacity, f.MemberRate, f.GuestRate,
				f.SortOrder, now.UTC(), now.UTC(),
			); err != nil {
				return fmt.Errorf("sync facility %q: %w", f.Name, err)
			}
			seen = append(seen, f.Name)
		}

		if len(seen) == 0 {
			return nil
		}

		placeholders := ""
		for i := range seen {
			if i > 0 {
				placeholders += ","
			}
			placeholders += "?"
		}
		args := append([]any{now.UTC()}, seen...)
		query := `UPDATE facilities SET is_active = 0, updated_at = ? WHERE name NOT IN (` + placeholders + `)`
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("deactivate removed facilities: %w", err)
		}
		return nil
	})
}

// DeleteFacility removes a facility after verifying no booking still
// references a window that has not ended. Settled bookings go with the
// facility; vouchers stay behind as the immutable payment trail.
func (s *Store) DeleteFacility(ctx context.Context, id int64, now time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var live int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM bookings WHERE facility_id = ? AND ends_at > ?`,
			id, now.UTC(),
		).Scan(&live)
		if err != nil {
			return fmt.Errorf("count live bookings: %w", err)
		}
		if live > 0 {
			return ErrFacilityInUse
		}

		// Dependent rows first, the bookings FK forbids any other order.
		if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE facility_id = ?`, id); err != nil {
			return fmt.Errorf("delete facility bookings: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE facility_id = ?`, id); err != nil {
			return fmt.Errorf("delete facility reservations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM service_windows WHERE facility_id = ?`, id); err != nil {
			return fmt.Errorf("delete facility service windows: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM facilities WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete facility: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SetOutOfService records a maintenance window. endsAt nil means
// indefinite. A facility with its booked flag set cannot be taken out of
// service; the flag is raised immediately only when the window already
// covers now, otherwise the window blocks future bookings by overlap.
func (s *Store) SetOutOfService(ctx context.Context, facilityID int64, reason string, startsAt time.Time, endsAt *time.Time, now time.Time) (*models.ServiceWindow, error) {
	var w *models.ServiceWindow
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var isBooked bool
		err := tx.QueryRowContext(ctx, `SELECT is_booked FROM facilities WHERE id = ?`, facilityID).Scan(&isBooked)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load facility: %w", err)
		}
		if isBooked {
			return ErrAlreadyBooked
		}

		startsAt = startsAt.UTC()
		if startsAt.IsZero() {
			startsAt = now.UTC()
		}
		var endsUTC *time.Time
		if endsAt != nil {
			u := endsAt.UTC()
			endsUTC = &u
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO service_windows (facility_id, reason, starts_at, ends_at, created_at) VALUES (?, ?, ?, ?, ?)`,
			facilityID, reason, startsAt, endsUTC, now.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert service window: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get last insert id: %w", err)
		}

		current := !startsAt.After(now.UTC()) && (endsUTC == nil || endsUTC.After(now.UTC()))
		if current {
			if _, err := tx.ExecContext(ctx,
				`UPDATE facilities SET is_out_of_service = 1, is_active = 0, updated_at = ? WHERE id = ?`,
				now.UTC(), facilityID,
			); err != nil {
				return fmt.Errorf("flag facility out of service: %w", err)
			}
		}

		w = &models.ServiceWindow{
			ID:         id,
			FacilityID: facilityID,
			Reason:     reason,
			StartsAt:   startsAt,
			EndsAt:     endsUTC,
			CreatedAt:  now.UTC(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ClearOutOfService drops every service window of the facility and
// restores it to active duty.
func (s *Store) ClearOutOfService(ctx context.Context, facilityID int64, now time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM service_windows WHERE facility_id = ?`, facilityID); err != nil {
			return fmt.Errorf("delete service windows: %w", err)
		}
		result, err := tx.ExecContext(ctx,
			`UPDATE facilities SET is_out_of_service = 0, is_active = 1, updated_at = ? WHERE id = ?`,
			now.UTC(), facilityID,
		)
		if err != nil {
			return fmt.Errorf("reactivate facility: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ServiceWindows returns the facility's recorded maintenance windows.
func (s *Store) ServiceWindows(ctx context.Context, facilityID int64) ([]*models.ServiceWindow, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT id, facility_id, reason, starts_at, ends_at, created_at FROM service_windows WHERE facility_id = ? ORDER BY starts_at`,
		facilityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list service windows: %w", err)
	}
	defer rows.Close()

	var windows []*models.ServiceWindow
	for rows.Next() {
		var w models.ServiceWindow
		if err := rows.Scan(&w.ID, &w.FacilityID, &w.Reason, &w.StartsAt, &w.EndsAt, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan service window: %w", err)
		}
		windows = append(windows, &w)
	}
	return windows, rows.Err()
}

// StatusSnapshot returns the cached-flag view of every active facility,
// optionally filtered by category.
func (s *Store) StatusSnapshot(ctx context.Context, category models.Category, now time.Time) ([]models.FacilityStatus, error) {
	facilities, err := s.ListFacilities(ctx, category)
	if err != nil {
		return nil, err
	}

	statuses := make([]models.FacilityStatus, 0, len(facilities))
	for _, f := range facilities {
		statuses = append(statuses, models.FacilityStatus{
			FacilityID:     f.ID,
			Name:           f.Name,
			Category:       f.Category,
			IsBooked:       f.IsBooked,
			IsOutOfService: f.IsOutOfService,
			IsReserved:     f.IsReserved,
			AsOf:           now.UTC(),
		})
	}
	return statuses, nil
}
