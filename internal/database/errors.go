package database

import (
	"errors"
	"fmt"
	"time"

	"clubhouse/internal/models"
)

var (
	// ErrInvalidWindow covers malformed or past-dated booking windows.
	ErrInvalidWindow = errors.New("invalid booking window")

	// ErrNotFound covers unknown facilities, bookings and members.
	ErrNotFound = errors.New("record not found")

	// ErrSchedulingConflict means the requested window overlaps an
	// existing booking on the same facility.
	ErrSchedulingConflict = errors.New("facility already booked for the requested window")

	// ErrOverpayment means the requested paid amount exceeds the total.
	ErrOverpayment = errors.New("paid amount exceeds booking total")

	// ErrAlreadyBooked blocks reserving a facility whose booked flag is set.
	ErrAlreadyBooked = errors.New("facility is currently booked")

	// ErrFacilityReserved blocks member bookings over an admin reservation.
	ErrFacilityReserved = errors.New("facility is reserved for the requested window")

	// ErrInvalidMember covers malformed member submissions.
	ErrInvalidMember = errors.New("invalid member record")

	// ErrConcurrentEdit means the booking changed between read and write.
	ErrConcurrentEdit = errors.New("booking was modified concurrently")

	// ErrFacilityInUse blocks deleting a facility with live bookings.
	ErrFacilityInUse = errors.New("facility has active bookings")
)

// FacilityUnavailableError is returned when a facility is out of service
// for the requested window. Until is nil for indefinite windows.
type FacilityUnavailableError struct {
	FacilityID int64
	Reason     string
	Until      *time.Time
}

func (e *FacilityUnavailableError) Error() string {
	if e.Until == nil {
		return fmt.Sprintf("facility %d is out of service indefinitely", e.FacilityID)
	}
	return fmt.Sprintf("facility %d is out of service until %s", e.FacilityID, e.Until.Format(time.RFC3339))
}

// ReservationConflictError carries every record that blocked a reservation
// request so the caller can report them all at once.
type ReservationConflictError struct {
	Conflicts []models.Conflict
}

func (e *ReservationConflictError) Error() string {
	return fmt.Sprintf("reservation conflicts with %d existing record(s)", len(e.Conflicts))
}
