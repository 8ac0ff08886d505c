package payment

type IntentStatus string

const (
	IntentCreated   IntentStatus = "created"
	IntentSucceeded IntentStatus = "succeeded"
	IntentFailed    IntentStatus = "payment_failed"
)

func (s IntentStatus) String() string {
	return string(s)
}

func (s IntentStatus) IsValid() bool {
	switch s {
	case IntentCreated, IntentSucceeded, IntentFailed:
		return true
	default:
		return false
	}
}

type RefundReason string

const (
	RefundRequestedByRenter RefundReason = "requested_by_renter"
	RefundCancellation      RefundReason = "cancellation"
	RefundDisputeResolution RefundReason = "dispute_resolution"
)

func (r RefundReason) String() string {
	return string(r)
}
