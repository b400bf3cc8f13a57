package models

// Category names a kind of bookable facility.
type Category string

const (
	CategoryRoom       Category = "room"
	CategoryHall       Category = "hall"
	CategoryLawn       Category = "lawn"
	CategoryPhotoshoot Category = "photoshoot"
)

// Categories lists every known category in display order.
var Categories = []Category{CategoryRoom, CategoryHall, CategoryLawn, CategoryPhotoshoot}

// Ranged reports whether bookings for the category span a [start, end)
// range. Single-date categories occupy one calendar day per booking.
func (c Category) Ranged() bool {
	return c == CategoryRoom
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryRoom, CategoryHall, CategoryLawn, CategoryPhotoshoot:
		return true
	}
	return false
}

// Tier selects which rate applies to a booking.
type Tier string

const (
	TierMember Tier = "member"
	TierGuest  Tier = "guest"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierMember || t == TierGuest
}

// PaymentStatus describes how much of a booking's total has been collected.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentHalfPaid PaymentStatus = "half_paid"
	PaymentPaid     PaymentStatus = "paid"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentUnpaid, PaymentHalfPaid, PaymentPaid:
		return true
	}
	return false
}

// VoucherType tags a payment voucher as full or partial collection.
type VoucherType string

const (
	VoucherFullPayment VoucherType = "full_payment"
	VoucherHalfPayment VoucherType = "half_payment"
)

const (
	// DefaultSweepIntervalMinutes is how often the reconciliation sweep
	// runs when the config does not say otherwise.
	DefaultSweepIntervalMinutes = 60

	// DefaultSnapshotTTL is the availability cache lifetime in seconds.
	DefaultSnapshotTTL = 5 * 60

	// ExportQueueSize bounds the statement export worker queue.
	ExportQueueSize = 64
)
