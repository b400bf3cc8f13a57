package service

import (
	"context"
	"strings"

	"clubhouse/internal/clock"
	"clubhouse/internal/database"
	"clubhouse/internal/domain"
	"clubhouse/internal/models"

	"github.com/rs/zerolog"
)

// MemberDirectory is the member registry. Members carry the running
// ledger, so every booking FK-references a row created here.
type MemberDirectory struct {
	store  domain.Store
	clock  clock.Clock
	logger *zerolog.Logger
}

func NewMemberDirectory(store domain.Store, clk clock.Clock, logger *zerolog.Logger) *MemberDirectory {
	if clk == nil {
		clk = clock.Real{}
	}
	return &MemberDirectory{store: store, clock: clk, logger: logger}
}

// Create registers a member with a zeroed ledger.
func (d *MemberDirectory) Create(ctx context.Context, req models.CreateMemberRequest) (*models.Member, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, database.ErrInvalidMember
	}

	member := &models.Member{Name: name, Phone: strings.TrimSpace(req.Phone)}
	if err := d.store.CreateMember(ctx, member, d.clock.Now()); err != nil {
		return nil, err
	}

	d.logger.Info().Int64("member_id", member.ID).Msg("member registered")
	return member, nil
}

// Get returns one member with ledger totals.
func (d *MemberDirectory) Get(ctx context.Context, id int64) (*models.Member, error) {
	return d.store.GetMember(ctx, id)
}

// List returns every member ordered by name.
func (d *MemberDirectory) List(ctx context.Context) ([]*models.Member, error) {
	return d.store.ListMembers(ctx)
}

// Bookings returns a member's bookings, newest first.
func (d *MemberDirectory) Bookings(ctx context.Context, memberID int64) ([]*models.Booking, error) {
	if _, err := d.store.GetMember(ctx, memberID); err != nil {
		return nil, err
	}
	return d.store.MemberBookings(ctx, memberID)
}
