package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clubhouse/internal/models"
)

const memberColumns = `id, name, phone, dr_amount, cr_amount, balance, total_bookings, last_booking_at, created_at, updated_at`

func scanMember(row interface{ Scan(...any) error }) (*models.Member, error) {
	var m models.Member
	err := row.Scan(
		&m.ID, &m.Name, &m.Phone, &m.DrAmount, &m.CrAmount, &m.Balance,
		&m.TotalBookings, &m.LastBookingAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateMember inserts a member with a zeroed ledger.
func (s *Store) CreateMember(ctx context.Context, m *models.Member, now time.Time) error {
	result, err := s.ExecContext(ctx,
		`INSERT INTO members (name, phone, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		m.Name, m.Phone, now.UTC(), now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	m.ID = id
	m.CreatedAt = now.UTC()
	m.UpdatedAt = now.UTC()
	return nil
}

// GetMember returns one member with ledger totals or ErrNotFound.
func (s *Store) GetMember(ctx context.Context, id int64) (*models.Member, error) {
	m, err := scanMember(s.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// ListMembers returns every member ordered by name.
func (s *Store) ListMembers(ctx context.Context) ([]*models.Member, error) {
	rows, err := s.QueryContext(ctx, `SELECT `+memberColumns+` FROM members ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// MemberBookings returns a member's bookings, newest first.
func (s *Store) MemberBookings(ctx context.Context, memberID int64) ([]*models.Booking, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings b JOIN facilities f ON f.id = b.facility_id
	     WHERE b.member_id = ? ORDER BY b.starts_at DESC`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("list member bookings: %w", err)
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
