package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clubhouse/internal/models"
)

const bookingColumns = `b.id, b.facility_id, f.name, b.member_id, b.category, b.starts_at, b.ends_at,
       b.tier, b.guests, b.total, b.paid, b.pending, b.payment_status, b.version, b.created_at, b.updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.FacilityID, &b.FacilityName, &b.MemberID, &b.Category, &b.StartsAt, &b.EndsAt,
		&b.Tier, &b.Guests, &b.Total, &b.Paid, &b.Pending, &b.PaymentStatus, &b.Version,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.StartsAt = b.StartsAt.UTC()
	b.EndsAt = b.EndsAt.UTC()
	return &b, nil
}

// IsWindowFree is the pure conflict check: true when neither a booking
// nor an admin reservation on the facility collides with the window.
// Ranged categories use the half-open overlap test, single-date
// categories exact-date equality. excludeID lets an in-place update skip
// its own record.
func (s *Store) IsWindowFree(ctx context.Context, facilityID int64, category models.Category, w models.Window, excludeID int64) (bool, error) {
	count, err := countBookingConflicts(ctx, s.DB, facilityID, category, w, excludeID)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	reserved, err := countReservationConflicts(ctx, s.DB, facilityID, w)
	if err != nil {
		return false, err
	}
	return reserved == 0, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func countBookingConflicts(ctx context.Context, q querier, facilityID int64, category models.Category, w models.Window, excludeID int64) (int, error) {
	var (
		query string
		args  []any
	)
	if category.Ranged() {
		query = `SELECT COUNT(*) FROM bookings WHERE facility_id = ? AND id != ? AND starts_at < ? AND ends_at > ?`
		args = []any{facilityID, excludeID, w.End.UTC(), w.Start.UTC()}
	} else {
		query = `SELECT COUNT(*) FROM bookings WHERE facility_id = ? AND id != ? AND date(starts_at) = date(?)`
		args = []any{facilityID, excludeID, w.Start.UTC()}
	}

	var count int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count booking conflicts: %w", err)
	}
	return count, nil
}

// countReservationConflicts applies the half-open overlap test against
// admin reservations. Reservations always span a range, so single-date
// bookings collide via their stored full-day window.
func countReservationConflicts(ctx context.Context, q querier, facilityID int64, w models.Window) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE facility_id = ? AND starts_at < ? AND ends_at > ?`,
		facilityID, w.End.UTC(), w.Start.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count reservation conflicts: %w", err)
	}
	return count, nil
}

// serviceConflict returns the facility-unavailable error when a service
// window overlaps w, preferring the latest end time for the message.
func serviceConflict(ctx context.Context, q querier, facilityID int64, w models.Window) (*FacilityUnavailableError, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT reason, ends_at FROM service_windows
	     WHERE facility_id = ? AND starts_at < ? AND (ends_at IS NULL OR ends_at > ?)
	     ORDER BY ends_at IS NULL DESC, ends_at DESC LIMIT 1`,
		facilityID, w.End.UTC(), w.Start.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("check service windows: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var (
		reason string
		until  *time.Time
	)
	if err := rows.Scan(&reason, &until); err != nil {
		return nil, fmt.Errorf("scan service window: %w", err)
	}
	return &FacilityUnavailableError{FacilityID: facilityID, Reason: reason, Until: until}, nil
}

// refreshBookedFlags recomputes is_booked for the given facilities from
// the bookings active at now. The same predicate drives the lock sweep,
// so engine writes and the sweep can never disagree for long.
func refreshBookedFlags(ctx context.Context, q querier, now time.Time, facilityIDs ...int64) error {
	for _, id := range facilityIDs {
		_, err := q.ExecContext(ctx,
			`UPDATE facilities SET is_booked = EXISTS(
			    SELECT 1 FROM bookings WHERE facility_id = facilities.id AND starts_at <= ? AND ends_at > ?
			 ), updated_at = ? WHERE id = ?`,
			now.UTC(), now.UTC(), now.UTC(), id,
		)
		if err != nil {
			return fmt.Errorf("refresh booked flag for facility %d: %w", id, err)
		}
	}
	return nil
}

func applyLedgerDelta(ctx context.Context, q querier, delta models.LedgerDelta, now time.Time) error {
	if delta.IsZero() {
		return nil
	}

	// Read-modify-write keeps the decimal arithmetic exact; the enclosing
	// transaction serializes concurrent mutations.
	var m models.Member
	err := q.QueryRowContext(ctx,
		`SELECT dr_amount, cr_amount, balance FROM members WHERE id = ?`, delta.MemberID,
	).Scan(&m.DrAmount, &m.CrAmount, &m.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load member ledger: %w", err)
	}

	query := `UPDATE members SET dr_amount = ?, cr_amount = ?, balance = ?, total_bookings = total_bookings + ?, updated_at = ?`
	args := []any{
		m.DrAmount.Add(delta.Dr),
		m.CrAmount.Add(delta.Cr),
		m.Balance.Add(delta.Dr).Sub(delta.Cr),
		0, now.UTC(),
	}
	if delta.CountBooking {
		args[3] = 1
		query += `, last_booking_at = ?`
		args = append(args, now.UTC())
	}
	query += ` WHERE id = ?`
	args = append(args, delta.MemberID)

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("apply ledger delta: %w", err)
	}
	return nil
}

func insertVoucher(ctx context.Context, q querier, v *models.Voucher, now time.Time) error {
	result, err := q.ExecContext(ctx,
		`INSERT INTO vouchers (voucher_no, booking_id, category, amount, payment_mode, voucher_type, created_at)
	     VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.VoucherNo, v.BookingID, v.Category, v.Amount, v.PaymentMode, v.Type, now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert voucher: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	v.ID = id
	v.CreatedAt = now.UTC()
	return nil
}

// CreateBooking re-checks conflicts, inserts the booking, toggles the
// facility's booked flag when the window is active now, applies the ledger
// delta and appends the voucher — all in one transaction, so a concurrent
// create for the same window sees fully-before or fully-after state.
func (s *Store) CreateBooking(ctx context.Context, b *models.Booking, delta models.LedgerDelta, voucher *models.Voucher, now time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		unavailable, err := serviceConflict(ctx, tx, b.FacilityID, b.Window())
		if err != nil {
			return err
		}
		if unavailable != nil {
			return unavailable
		}

		count, err := countBookingConflicts(ctx, tx, b.FacilityID, b.Category, b.Window(), 0)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrSchedulingConflict
		}

		reserved, err := countReservationConflicts(ctx, tx, b.FacilityID, b.Window())
		if err != nil {
			return err
		}
		if reserved > 0 {
			return ErrFacilityReserved
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO bookings (
			    facility_id, member_id, category, starts_at, ends_at, tier, guests,
			    total, paid, pending, payment_status, version, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			b.FacilityID, b.MemberID, b.Category, b.StartsAt.UTC(), b.EndsAt.UTC(), b.Tier, b.Guests,
			b.Total, b.Paid, b.Pending, b.PaymentStatus, now.UTC(), now.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get last insert id: %w", err)
		}
		b.ID = id
		b.Version = 1
		b.CreatedAt = now.UTC()
		b.UpdatedAt = now.UTC()

		// Future bookings do not lock the facility early.
		if b.ActiveAt(now.UTC()) {
			if _, err := tx.ExecContext(ctx,
				`UPDATE facilities SET is_booked = 1, updated_at = ? WHERE id = ?`,
				now.UTC(), b.FacilityID,
			); err != nil {
				return fmt.Errorf("set booked flag: %w", err)
			}
		}

		if err := applyLedgerDelta(ctx, tx, delta, now); err != nil {
			return err
		}

		if voucher != nil {
			voucher.BookingID = b.ID
			if err := insertVoucher(ctx, tx, voucher, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateBooking rewrites the booking in place under optimistic versioning,
// re-checks conflicts against every record except itself, applies the
// ledger delta and re-derives booked flags for the new and old facility.
func (s *Store) UpdateBooking(ctx context.Context, b *models.Booking, fromVersion, oldFacilityID int64, delta models.LedgerDelta, voucher *models.Voucher, now time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		unavailable, err := serviceConflict(ctx, tx, b.FacilityID, b.Window())
		if err != nil {
			return err
		}
		if unavailable != nil {
			return unavailable
		}

		count, err := countBookingConflicts(ctx, tx, b.FacilityID, b.Category, b.Window(), b.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrSchedulingConflict
		}

		reserved, err := countReservationConflicts(ctx, tx, b.FacilityID, b.Window())
		if err != nil {
			return err
		}
		if reserved > 0 {
			return ErrFacilityReserved
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE bookings SET
			    facility_id = ?, starts_at = ?, ends_at = ?, tier = ?, guests = ?,
			    total = ?, paid = ?, pending = ?, payment_status = ?,
			    version = version + 1, updated_at = ?
			 WHERE id = ? AND version = ?`,
			b.FacilityID, b.StartsAt.UTC(), b.EndsAt.UTC(), b.Tier, b.Guests,
			b.Total, b.Paid, b.Pending, b.PaymentStatus,
			now.UTC(), b.ID, fromVersion,
		)
		if err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return ErrConcurrentEdit
		}
		b.Version = fromVersion + 1
		b.UpdatedAt = now.UTC()

		ids := []int64{b.FacilityID}
		if oldFacilityID != 0 && oldFacilityID != b.FacilityID {
			ids = append(ids, oldFacilityID)
		}
		if err := refreshBookedFlags(ctx, tx, now, ids...); err != nil {
			return err
		}

		if err := applyLedgerDelta(ctx, tx, delta, now); err != nil {
			return err
		}

		if voucher != nil {
			voucher.BookingID = b.ID
			if err := insertVoucher(ctx, tx, voucher, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteBooking removes the booking and unconditionally frees the
// facility. The conflict checker guarantees at most one booking per
// facility per overlapping window, so no other booking can still hold it.
func (s *Store) DeleteBooking(ctx context.Context, id int64, now time.Time) (*models.Booking, error) {
	var deleted *models.Booking
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		b, err := scanBooking(tx.QueryRowContext(ctx,
			`SELECT `+bookingColumns+` FROM bookings b JOIN facilities f ON f.id = b.facility_id WHERE b.id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load booking: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete booking: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE facilities SET is_booked = 0, updated_at = ? WHERE id = ?`,
			now.UTC(), b.FacilityID,
		); err != nil {
			return fmt.Errorf("free facility: %w", err)
		}
		deleted = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// GetBooking returns one booking or ErrNotFound.
func (s *Store) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	b, err := scanBooking(s.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings b JOIN facilities f ON f.id = b.facility_id WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// ListBookings returns bookings, optionally filtered by category, newest
// window first.
func (s *Store) ListBookings(ctx context.Context, category models.Category) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings b JOIN facilities f ON f.id = b.facility_id`
	args := []any{}
	if category != "" {
		query += ` WHERE b.category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY b.starts_at DESC, b.id DESC`

	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// ListBookingsByWindow returns bookings whose window overlaps [start, end).
func (s *Store) ListBookingsByWindow(ctx context.Context, w models.Window) ([]*models.Booking, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings b JOIN facilities f ON f.id = b.facility_id
	     WHERE b.starts_at < ? AND b.ends_at > ? ORDER BY b.starts_at`,
		w.End.UTC(), w.Start.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list bookings by window: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
