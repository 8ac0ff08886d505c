package commands

import (
	"context"

	"github.com/google/uuid"
)

// ChargeRequest describes a destination charge: the renter pays the full
// total, the platform fee stays on the platform account, and the remainder
// settles to the owner's connected account.
type ChargeRequest struct {
	BookingID        uuid.UUID
	AmountCents      int64
	Currency         string
	DestinationRef   string
	PlatformFeeCents int64
	IdempotencyKey   string
}

// ChargeIntent is the processor-side view of a created payment intent.
type ChargeIntent struct {
	ProcessorRef string
	ClientSecret string
	Status       string
}

type RefundRequest struct {
	ProcessorRef   string
	AmountCents    int64
	Reason         string
	IdempotencyKey string
}

type RefundResult struct {
	RefundRef string
	Status    string
}

// PaymentGateway abstracts the payment processor. Implementations must be
// safe to call twice with the same idempotency key.
type PaymentGateway interface {
	CreateDestinationCharge(ctx context.Context, req ChargeRequest) (*ChargeIntent, error)
	RetrieveIntent(ctx context.Context, processorRef string) (*ChargeIntent, error)
	CreateRefund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}
