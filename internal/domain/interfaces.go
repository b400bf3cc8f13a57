package domain

import (
	"context"
	"time"

	"clubhouse/internal/models"
)

// Store is the relational persistence surface the engines build on.
type Store interface {
	GetFacility(ctx context.Context, id int64) (*models.Facility, error)
	GetFacilityByName(ctx context.Context, name string) (*models.Facility, error)
	ListFacilities(ctx context.Context, category models.Category) ([]*models.Facility, error)
	CreateFacility(ctx context.Context, f *models.Facility, now time.Time) error
	SyncFacilities(ctx context.Context, facilities []models.Facility, now time.Time) error
	DeleteFacility(ctx context.Context, id int64, now time.Time) error
	SetOutOfService(ctx context.Context, facilityID int64, reason string, startsAt time.Time, endsAt *time.Time, now time.Time) (*models.ServiceWindow, error)
	ClearOutOfService(ctx context.Context, facilityID int64, now time.Time) error
	ServiceWindows(ctx context.Context, facilityID int64) ([]*models.ServiceWindow, error)
	StatusSnapshot(ctx context.Context, category models.Category, now time.Time) ([]models.FacilityStatus, error)

	IsWindowFree(ctx context.Context, facilityID int64, category models.Category, w models.Window, excludeID int64) (bool, error)
	CreateBooking(ctx context.Context, b *models.Booking, delta models.LedgerDelta, voucher *models.Voucher, now time.Time) error
	UpdateBooking(ctx context.Context, b *models.Booking, fromVersion, oldFacilityID int64, delta models.LedgerDelta, voucher *models.Voucher, now time.Time) error
	DeleteBooking(ctx context.Context, id int64, now time.Time) (*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context, category models.Category) ([]*models.Booking, error)
	ListBookingsByWindow(ctx context.Context, w models.Window) ([]*models.Booking, error)

	ReserveFacilities(ctx context.Context, facilityIDs []int64, w models.Window, adminID int64, now time.Time) ([]*models.Reservation, error)
	UnreserveFacilities(ctx context.Context, facilityIDs []int64, w models.Window, now time.Time) (int64, error)
	ListReservations(ctx context.Context, facilityID int64) ([]*models.Reservation, error)

	CreateMember(ctx context.Context, m *models.Member, now time.Time) error
	GetMember(ctx context.Context, id int64) (*models.Member, error)
	ListMembers(ctx context.Context) ([]*models.Member, error)
	MemberBookings(ctx context.Context, memberID int64) ([]*models.Booking, error)
	BookingVouchers(ctx context.Context, bookingID int64) ([]*models.Voucher, error)

	DeactivateDueServiceWindows(ctx context.Context, now time.Time) (int64, error)
	ReactivateExpiredServiceWindows(ctx context.Context, now time.Time) (int64, error)
	SyncBookedFlags(ctx context.Context, now time.Time) (locked, unlocked int64, err error)
}

// StatusCache holds per-category availability snapshots so list queries
// avoid the store. Treated strictly as a cache: the sweep and the engines
// invalidate it, never the other way around.
type StatusCache interface {
	GetSnapshot(ctx context.Context, category models.Category) ([]models.FacilityStatus, error)
	SetSnapshot(ctx context.Context, category models.Category, statuses []models.FacilityStatus) error
	Invalidate(ctx context.Context) error
}

// EventPublisher fans domain events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// BookingService is the booking engine surface the API layer calls.
type BookingService interface {
	Create(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error)
	Update(ctx context.Context, id int64, patch models.UpdateBookingRequest) (*models.Booking, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, category models.Category) ([]*models.Booking, error)
	Vouchers(ctx context.Context, bookingID int64) ([]*models.Voucher, error)
}

// ReservationService is the admin blackout surface.
type ReservationService interface {
	Reserve(ctx context.Context, facilityIDs []int64, from, to time.Time, adminID int64) ([]*models.Reservation, error)
	Unreserve(ctx context.Context, facilityIDs []int64, from, to time.Time) (int64, error)
}

// FacilityService manages provisioning and availability views.
type FacilityService interface {
	Get(ctx context.Context, id int64) (*models.Facility, error)
	List(ctx context.Context, category models.Category) ([]*models.Facility, error)
	Statuses(ctx context.Context, category models.Category) ([]models.FacilityStatus, error)
	SetOutOfService(ctx context.Context, facilityID int64, reason string, from time.Time, to *time.Time) (*models.ServiceWindow, error)
	ClearOutOfService(ctx context.Context, facilityID int64) error
	Delete(ctx context.Context, id int64) error
}

// MemberService is the member registry surface backing the ledger.
type MemberService interface {
	Create(ctx context.Context, req models.CreateMemberRequest) (*models.Member, error)
	Get(ctx context.Context, id int64) (*models.Member, error)
	List(ctx context.Context) ([]*models.Member, error)
	Bookings(ctx context.Context, memberID int64) ([]*models.Booking, error)
}

// Sweeper triggers an availability reconciliation pass.
type Sweeper interface {
	Sweep(ctx context.Context) (models.SweepReport, error)
}

// ExportQueue accepts statement export jobs for background processing.
type ExportQueue interface {
	Enqueue(ctx context.Context, task models.ExportTask) error
}
