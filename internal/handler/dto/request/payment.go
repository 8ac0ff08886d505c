package request

import (
	"rentloop/internal/domain/payment"
	"rentloop/internal/pkg/errs"
)

type RefundRequest struct {
	// AmountCents nil means a full refund.
	AmountCents *int64 `json:"amount_cents,omitempty"`
	Reason      string `json:"reason" binding:"required"`
}

func (r RefundRequest) RefundReason() (payment.RefundReason, error) {
	switch reason := payment.RefundReason(r.Reason); reason {
	case payment.RefundRequestedByRenter, payment.RefundCancellation:
		return reason, nil
	case payment.RefundDisputeResolution:
		// Dispute refunds go through dispute resolution, not this endpoint.
		return "", errs.Newf("refund reason %s is not accepted here", r.Reason)
	default:
		return "", errs.Newf("invalid refund reason: %s", r.Reason)
	}
}
