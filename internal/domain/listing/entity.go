package listing

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidRate    = errors.New("daily rate must be positive")
	ErrInvalidDeposit = errors.New("security deposit cannot be negative")
)

// Listing is the rentable item. Rates and deposit are minor currency units.
type Listing struct {
	id                   uuid.UUID
	ownerID              uuid.UUID
	dailyRateCents       int64
	weeklyRateCents      *int64
	monthlyRateCents     *int64
	securityDepositCents int64
	instantBook          bool
	payoutAccount        PayoutAccount
	createdAt            time.Time
	updatedAt            time.Time
}

// PayoutAccount mirrors the owner's connected processor account state.
// Both flags must hold before a payment intent may route funds to the owner.
type PayoutAccount struct {
	AccountRef     string
	ChargesEnabled bool
	PayoutsEnabled bool
}

func NewListing(ownerID uuid.UUID, dailyRateCents, securityDepositCents int64, instantBook bool) (*Listing, error) {
	if dailyRateCents <= 0 {
		return nil, ErrInvalidRate
	}
	if securityDepositCents < 0 {
		return nil, ErrInvalidDeposit
	}
	return &Listing{
		id:                   uuid.New(),
		ownerID:              ownerID,
		dailyRateCents:       dailyRateCents,
		securityDepositCents: securityDepositCents,
		instantBook:          instantBook,
	}, nil
}

func ReconstructListing(
	id, ownerID uuid.UUID,
	dailyRateCents int64,
	weeklyRateCents, monthlyRateCents *int64,
	securityDepositCents int64,
	instantBook bool,
	payoutAccount PayoutAccount,
	createdAt, updatedAt time.Time,
) *Listing {
	return &Listing{
		id:                   id,
		ownerID:              ownerID,
		dailyRateCents:       dailyRateCents,
		weeklyRateCents:      weeklyRateCents,
		monthlyRateCents:     monthlyRateCents,
		securityDepositCents: securityDepositCents,
		instantBook:          instantBook,
		payoutAccount:        payoutAccount,
		createdAt:            createdAt,
		updatedAt:            updatedAt,
	}
}

func (l *Listing) CanReceivePayments() bool {
	return l.payoutAccount.ChargesEnabled && l.payoutAccount.PayoutsEnabled
}

func (l *Listing) ID() uuid.UUID               { return l.id }
func (l *Listing) OwnerID() uuid.UUID          { return l.ownerID }
func (l *Listing) DailyRateCents() int64       { return l.dailyRateCents }
func (l *Listing) WeeklyRateCents() *int64     { return l.weeklyRateCents }
func (l *Listing) MonthlyRateCents() *int64    { return l.monthlyRateCents }
func (l *Listing) SecurityDepositCents() int64 { return l.securityDepositCents }
func (l *Listing) InstantBook() bool           { return l.instantBook }
func (l *Listing) PayoutAccount() PayoutAccount { return l.payoutAccount }
func (l *Listing) CreatedAt() time.Time        { return l.createdAt }
func (l *Listing) UpdatedAt() time.Time        { return l.updatedAt }
