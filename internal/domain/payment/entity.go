package payment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrAlreadyFinal  = errors.New("payment intent already finalized")
	ErrRefundExceeds = errors.New("refund exceeds transaction amount")
)

// Intent is the latest payment attempt for a booking, one-to-one at any time.
type Intent struct {
	id                  uuid.UUID
	bookingID           uuid.UUID
	processorRef        string
	amountCents         int64
	status              IntentStatus
	needsReconciliation bool
	createdAt           time.Time
	updatedAt           time.Time
}

func NewIntent(bookingID uuid.UUID, processorRef string, amountCents int64, now time.Time) (*Intent, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	return &Intent{
		id:           uuid.New(),
		bookingID:    bookingID,
		processorRef: processorRef,
		amountCents:  amountCents,
		status:       IntentCreated,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

func ReconstructIntent(
	id, bookingID uuid.UUID,
	processorRef string,
	amountCents int64,
	status IntentStatus,
	needsReconciliation bool,
	createdAt, updatedAt time.Time,
) *Intent {
	return &Intent{
		id:                  id,
		bookingID:           bookingID,
		processorRef:        processorRef,
		amountCents:         amountCents,
		status:              status,
		needsReconciliation: needsReconciliation,
		createdAt:           createdAt,
		updatedAt:           updatedAt,
	}
}

func (i *Intent) MarkSucceeded(now time.Time) {
	i.status = IntentSucceeded
	i.updatedAt = now
}

func (i *Intent) MarkFailed(now time.Time) {
	i.status = IntentFailed
	i.updatedAt = now
}

// FlagForReconciliation marks an intent whose success event arrived after the
// booking left the payable state. A human closes the loop.
func (i *Intent) FlagForReconciliation(now time.Time) {
	i.needsReconciliation = true
	i.updatedAt = now
}

func (i *Intent) ID() uuid.UUID             { return i.id }
func (i *Intent) BookingID() uuid.UUID      { return i.bookingID }
func (i *Intent) ProcessorRef() string      { return i.processorRef }
func (i *Intent) AmountCents() int64        { return i.amountCents }
func (i *Intent) Status() IntentStatus      { return i.status }
func (i *Intent) NeedsReconciliation() bool { return i.needsReconciliation }
func (i *Intent) CreatedAt() time.Time      { return i.createdAt }
func (i *Intent) UpdatedAt() time.Time      { return i.updatedAt }

// TransactionRecord is an immutable ledger entry written once a payment
// succeeds. It is never mutated; refunds append adjustments instead.
type TransactionRecord struct {
	ID                uuid.UUID
	BookingID         uuid.UUID
	PayerID           uuid.UUID
	PayeeID           uuid.UUID
	BaseAmountCents   int64
	PlatformFeeCents  int64
	ProcessorFeeCents int64
	OwnerPayoutCents  int64
	TotalCents        int64
	TransactionDate   time.Time
}

func NewTransactionRecord(
	bookingID, payerID, payeeID uuid.UUID,
	baseAmountCents, platformFeeCents, processorFeeCents, ownerPayoutCents, totalCents int64,
	date time.Time,
) TransactionRecord {
	return TransactionRecord{
		ID:                uuid.New(),
		BookingID:         bookingID,
		PayerID:           payerID,
		PayeeID:           payeeID,
		BaseAmountCents:   baseAmountCents,
		PlatformFeeCents:  platformFeeCents,
		ProcessorFeeCents: processorFeeCents,
		OwnerPayoutCents:  ownerPayoutCents,
		TotalCents:        totalCents,
		TransactionDate:   date,
	}
}

// RefundAdjustment supersedes part of a TransactionRecord without touching it.
type RefundAdjustment struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	AmountCents   int64
	Reason        RefundReason
	TaxImpact     bool
	CreatedAt     time.Time
}

func NewRefundAdjustment(tr TransactionRecord, amountCents int64, reason RefundReason, now time.Time) (RefundAdjustment, error) {
	if amountCents <= 0 {
		return RefundAdjustment{}, ErrInvalidAmount
	}
	if amountCents > tr.TotalCents {
		return RefundAdjustment{}, ErrRefundExceeds
	}
	return RefundAdjustment{
		ID:            uuid.New(),
		TransactionID: tr.ID,
		AmountCents:   amountCents,
		Reason:        reason,
		TaxImpact:     true,
		CreatedAt:     now,
	}, nil
}
