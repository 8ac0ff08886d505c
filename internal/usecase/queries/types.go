package queries

import (
	"time"

	"github.com/google/uuid"
)

// Read models (DTO for read side)
type BookingView struct {
	ID                   uuid.UUID  `json:"id"`
	ListingID            uuid.UUID  `json:"listing_id"`
	RenterID             uuid.UUID  `json:"renter_id"`
	OwnerID              uuid.UUID  `json:"owner_id"`
	StartDate            time.Time  `json:"start_date"`
	EndDate              time.Time  `json:"end_date"`
	Status               string     `json:"status"`
	SubtotalCents        int64      `json:"subtotal_cents"`
	ServiceFeeCents      int64      `json:"service_fee_cents"`
	DeliveryFeeCents     int64      `json:"delivery_fee_cents"`
	InsuranceFeeCents    int64      `json:"insurance_fee_cents"`
	TotalCents           int64      `json:"total_cents"`
	SecurityDepositCents int64      `json:"security_deposit_cents"`
	DeliveryMethod       string     `json:"delivery_method"`
	InsuranceTier        string     `json:"insurance_tier"`
	PickupVerified       bool       `json:"pickup_verified"`
	ReturnVerified       bool       `json:"return_verified"`
	CreatedAt            time.Time  `json:"created_at"`
	ConfirmedAt          *time.Time `json:"confirmed_at,omitempty"`
	CheckedOutAt         *time.Time `json:"checked_out_at,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	CancelledAt          *time.Time `json:"cancelled_at,omitempty"`
}

type BookingListItem struct {
	ID         uuid.UUID `json:"id"`
	ListingID  uuid.UUID `json:"listing_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Status     string    `json:"status"`
	TotalCents int64     `json:"total_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

type ConflictView struct {
	BookingID uuid.UUID `json:"booking_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Status    string    `json:"status"`
}

type AvailabilityView struct {
	Available bool           `json:"available"`
	Conflicts []ConflictView `json:"conflicts"`
}

type DisputeView struct {
	ID                uuid.UUID  `json:"id"`
	BookingID         uuid.UUID  `json:"booking_id"`
	ComplainantID     uuid.UUID  `json:"complainant_id"`
	RespondentID      uuid.UUID  `json:"respondent_id"`
	Type              string     `json:"type"`
	Status            string     `json:"status"`
	ResolutionAction  *string    `json:"resolution_action,omitempty"`
	CompensationCents *int64     `json:"compensation_cents,omitempty"`
	ResolverID        *uuid.UUID `json:"resolver_id,omitempty"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type DisputeMessageView struct {
	ID        uuid.UUID `json:"id"`
	DisputeID uuid.UUID `json:"dispute_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type TransactionView struct {
	ID                uuid.UUID `json:"id"`
	BookingID         uuid.UUID `json:"booking_id"`
	PayerID           uuid.UUID `json:"payer_id"`
	PayeeID           uuid.UUID `json:"payee_id"`
	BaseAmountCents   int64     `json:"base_amount_cents"`
	PlatformFeeCents  int64     `json:"platform_fee_cents"`
	ProcessorFeeCents int64     `json:"processor_fee_cents"`
	OwnerPayoutCents  int64     `json:"owner_payout_cents"`
	TotalCents        int64     `json:"total_cents"`
	TransactionDate   time.Time `json:"transaction_date"`
}

type AuthorizedUserView struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	IsActive bool      `json:"is_active"`
}
