package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Facility is a bookable unit of the club: a room, hall, lawn or
// photoshoot slot. The three availability flags are a cache over the
// time-bounded records (bookings, reservations, service windows); the
// reconciliation sweep is the source of truth for them.
type Facility struct {
	ID             int64           `yaml:"id" json:"id"`
	Name           string          `yaml:"name" json:"name"`
	Category       Category        `yaml:"category" json:"category"`
	RoomType       string          `yaml:"room_type,omitempty" json:"room_type,omitempty"`
	Capacity       int64           `yaml:"capacity" json:"capacity"`
	MemberRate     decimal.Decimal `yaml:"-" json:"member_rate"`
	GuestRate      decimal.Decimal `yaml:"-" json:"guest_rate"`
	SortOrder      int64           `yaml:"sort_order" json:"sort_order"`
	IsActive       bool            `yaml:"-" json:"is_active"`
	IsBooked       bool            `yaml:"-" json:"is_booked"`
	IsOutOfService bool            `yaml:"-" json:"is_out_of_service"`
	IsReserved     bool            `yaml:"-" json:"is_reserved"`
	CreatedAt      time.Time       `yaml:"-" json:"created_at"`
	UpdatedAt      time.Time       `yaml:"-" json:"updated_at"`
}

// Rate returns the nightly (rooms) or per-event rate for a pricing tier.
func (f *Facility) Rate(tier Tier) decimal.Decimal {
	if tier == TierGuest {
		return f.GuestRate
	}
	return f.MemberRate
}

// Booking is a member-initiated hold on a facility. Rooms occupy a
// half-open [StartsAt, EndsAt) range; single-date categories occupy one
// calendar day stored as [date, date+24h).
type Booking struct {
	ID            int64           `json:"id"`
	FacilityID    int64           `json:"facility_id"`
	FacilityName  string          `json:"facility_name"`
	MemberID      int64           `json:"member_id"`
	Category      Category        `json:"category"`
	StartsAt      time.Time       `json:"starts_at"`
	EndsAt        time.Time       `json:"ends_at"`
	Tier          Tier            `json:"tier"`
	Guests        int64           `json:"guests,omitempty"`
	Total         decimal.Decimal `json:"total"`
	Paid          decimal.Decimal `json:"paid"`
	Pending       decimal.Decimal `json:"pending"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Version       int64           `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Window returns the booking's occupancy window.
func (b *Booking) Window() Window {
	return Window{Start: b.StartsAt, End: b.EndsAt}
}

// ActiveAt reports whether the booking occupies the facility at t.
func (b *Booking) ActiveAt(t time.Time) bool {
	return b.Window().Contains(t)
}

// Reservation is an admin-initiated blackout that blocks member booking
// without being a paid booking itself.
type Reservation struct {
	ID         int64     `json:"id"`
	FacilityID int64     `json:"facility_id"`
	AdminID    int64     `json:"admin_id"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// ServiceWindow takes a facility out of service for maintenance. A nil
// EndsAt means indefinite; the reconciliation sweep clears elapsed windows.
type ServiceWindow struct {
	ID         int64      `json:"id"`
	FacilityID int64      `json:"facility_id"`
	Reason     string     `json:"reason"`
	StartsAt   time.Time  `json:"starts_at"`
	EndsAt     *time.Time `json:"ends_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Member carries the per-member running ledger. DrAmount is cumulative
// cash received, CrAmount cumulative value owed; Balance stays equal to
// the sum of (paid - owed) over all bookings, maintained via deltas.
type Member struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone,omitempty"`
	DrAmount      decimal.Decimal `json:"dr_amount"`
	CrAmount      decimal.Decimal `json:"cr_amount"`
	Balance       decimal.Decimal `json:"balance"`
	TotalBookings int64           `json:"total_bookings"`
	LastBookingAt *time.Time      `json:"last_booking_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// LedgerDelta is applied to a member's ledger inside the same transaction
// as a booking write. Deltas, never absolutes, so partial edits stay
// consistent.
type LedgerDelta struct {
	MemberID     int64
	Dr           decimal.Decimal
	Cr           decimal.Decimal
	CountBooking bool
}

// IsZero reports whether applying the delta would change nothing.
func (d LedgerDelta) IsZero() bool {
	return d.Dr.IsZero() && d.Cr.IsZero() && !d.CountBooking
}

// Voucher is an append-only receipt of a payment event tied to a booking.
// Edits that increase the paid amount append a new voucher rather than
// rewriting history.
type Voucher struct {
	ID          int64           `json:"id"`
	VoucherNo   string          `json:"voucher_no"`
	BookingID   int64           `json:"booking_id"`
	Category    Category        `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentMode string          `json:"payment_mode"`
	Type        VoucherType     `json:"type"`
	CreatedAt   time.Time       `json:"created_at"`
}

// FacilityStatus is the cacheable availability snapshot served to list
// queries.
type FacilityStatus struct {
	FacilityID     int64     `json:"facility_id"`
	Name           string    `json:"name"`
	Category       Category  `json:"category"`
	IsBooked       bool      `json:"is_booked"`
	IsOutOfService bool      `json:"is_out_of_service"`
	IsReserved     bool      `json:"is_reserved"`
	AsOf           time.Time `json:"as_of"`
}

// Conflict identifies one record blocking a reservation request.
type Conflict struct {
	Kind       string    `json:"kind"` // booking, reservation, service_window
	RecordID   int64     `json:"record_id"`
	FacilityID int64     `json:"facility_id"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
}
