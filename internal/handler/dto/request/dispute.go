package request

import (
	"strings"

	"rentloop/internal/domain/dispute"
	"rentloop/internal/pkg/errs"

	"github.com/google/uuid"
)

type OpenDisputeRequest struct {
	BookingID   uuid.UUID `json:"booking_id" binding:"required"`
	Type        string    `json:"type" binding:"required"`
	Description string    `json:"description" binding:"required"`
}

func (r OpenDisputeRequest) DisputeType() (dispute.Type, error) {
	t := dispute.Type(r.Type)
	if !t.IsValid() {
		return "", errs.Newf("invalid dispute type: %s", r.Type)
	}
	return t, nil
}

type AddDisputeMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

func (r AddDisputeMessageRequest) TrimmedBody() string {
	return strings.TrimSpace(r.Body)
}

type ResolveDisputeRequest struct {
	Action            string `json:"action" binding:"required"`
	RefundAmountCents *int64 `json:"refund_amount_cents,omitempty"`
	CompensationCents *int64 `json:"compensation_cents,omitempty"`
}

func (r ResolveDisputeRequest) ResolutionAction() (dispute.ResolutionAction, error) {
	switch a := dispute.ResolutionAction(r.Action); a {
	case dispute.ActionRefund, dispute.ActionNoRefund, dispute.ActionCompensate:
		return a, nil
	default:
		return "", errs.Newf("invalid resolution action: %s", r.Action)
	}
}
