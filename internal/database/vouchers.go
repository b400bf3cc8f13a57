package database

import (
	"context"
	"fmt"

	"clubhouse/internal/models"
)

// BookingVouchers returns the payment audit trail for a booking, oldest
// first.
func (s *Store) BookingVouchers(ctx context.Context, bookingID int64) ([]*models.Voucher, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT id, voucher_no, booking_id, category, amount, payment_mode, voucher_type, created_at
	     FROM vouchers WHERE booking_id = ? ORDER BY id`,
		bookingID,
	)
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	defer rows.Close()

	var vouchers []*models.Voucher
	for rows.Next() {
		var v models.Voucher
		if err := rows.Scan(&v.ID, &v.VoucherNo, &v.BookingID, &v.Category, &v.Amount, &v.PaymentMode, &v.Type, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan voucher: %w", err)
		}
		vouchers = append(vouchers, &v)
	}
	return vouchers, rows.Err()
}
