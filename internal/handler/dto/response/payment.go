package response

import (
	"rentloop/internal/usecase/commands"

	"github.com/google/uuid"
)

type PaymentIntentResponse struct {
	IntentID     uuid.UUID `json:"intent_id"`
	ProcessorRef string    `json:"processor_ref"`
	ClientSecret string    `json:"client_secret"`
	AmountCents  int64     `json:"amount_cents"`
}

func FromPaymentIntentResult(r *commands.PaymentIntentResult) *PaymentIntentResponse {
	return &PaymentIntentResponse{
		IntentID:     r.IntentID,
		ProcessorRef: r.ProcessorRef,
		ClientSecret: r.ClientSecret,
		AmountCents:  r.AmountCents,
	}
}

type RefundResponse struct {
	RefundRef        string `json:"refund_ref"`
	AmountCents      int64  `json:"amount_cents"`
	BookingCancelled bool   `json:"booking_cancelled"`
}

func FromRefundOutcome(r *commands.RefundOutcome) *RefundResponse {
	return &RefundResponse{
		RefundRef:        r.RefundRef,
		AmountCents:      r.AmountCents,
		BookingCancelled: r.BookingCancelled,
	}
}
