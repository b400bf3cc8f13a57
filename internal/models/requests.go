package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateBookingRequest carries an already-validated booking submission.
// Ranged categories fill Start/End; single-date categories fill Date.
type CreateBookingRequest struct {
	Category      Category        `json:"category"`
	FacilityID    int64           `json:"facility_id"`
	MemberID      int64           `json:"member_id"`
	Start         time.Time       `json:"start,omitempty"`
	End           time.Time       `json:"end,omitempty"`
	Date          time.Time       `json:"date,omitempty"`
	Tier          Tier            `json:"tier"`
	Guests        int64           `json:"guests,omitempty"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PaymentMode   string          `json:"payment_mode,omitempty"`
}

// CreateMemberRequest registers a member with a zeroed ledger.
type CreateMemberRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// UpdateBookingRequest patches a booking in place. Nil fields keep the
// stored value.
type UpdateBookingRequest struct {
	FacilityID    *int64           `json:"facility_id,omitempty"`
	Start         *time.Time       `json:"start,omitempty"`
	End           *time.Time       `json:"end,omitempty"`
	Date          *time.Time       `json:"date,omitempty"`
	Tier          *Tier            `json:"tier,omitempty"`
	Guests        *int64           `json:"guests,omitempty"`
	PaymentStatus *PaymentStatus   `json:"payment_status,omitempty"`
	PaidAmount    *decimal.Decimal `json:"paid_amount,omitempty"`
	PaymentMode   string           `json:"payment_mode,omitempty"`
}

// SweepReport summarizes one reconciliation pass.
type SweepReport struct {
	StartedAt   time.Time `json:"started_at"`
	Deactivated int64     `json:"deactivated"`
	Reactivated int64     `json:"reactivated"`
	Locked      int64     `json:"locked"`
	Unlocked    int64     `json:"unlocked"`
}

// Changed reports whether the sweep corrected anything.
func (r SweepReport) Changed() bool {
	return r.Deactivated+r.Reactivated+r.Locked+r.Unlocked > 0
}

// Export task kinds understood by the statement worker.
const (
	ExportBookings = "bookings"
	ExportLedger   = "ledger"
)

// ExportTask asks the statement worker to write an .xlsx report.
type ExportTask struct {
	Kind        string    `json:"kind"`
	From        time.Time `json:"from,omitempty"`
	To          time.Time `json:"to,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}
