package errs

import "errors"

// Domain-specific sentinel errors shared across usecase layers
var (
	// Listing errors
	ErrListingNotFound = errors.New("listing not found")

	// Booking errors
	ErrBookingNotFound     = errors.New("booking not found")
	ErrBookingConflict     = errors.New("booking dates conflict")
	ErrDuplicateBooking    = errors.New("duplicate booking")
	ErrInvalidDateRange    = errors.New("invalid date range")
	ErrForbiddenActor      = errors.New("actor not allowed to perform this action")
	ErrForbiddenTransition = errors.New("forbidden booking transition")

	// Payment errors
	ErrPaymentNotFound    = errors.New("payment intent not found")
	ErrPaymentFailed      = errors.New("payment failed")
	ErrPayoutsNotEnabled  = errors.New("owner payout account not enabled")
	ErrRefundNotPermitted = errors.New("refund not permitted in current booking state")

	// Dispute errors
	ErrDisputeNotFound      = errors.New("dispute not found")
	ErrDuplicateOpenDispute = errors.New("an open dispute already exists for this booking")

	// Idempotency errors
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrIdempotencyInProgress  = errors.New("idempotency in progress")
	ErrIdempotencyCheckFailed = errors.New("idempotency check failed")

	// Validation errors
	ErrDomainValidation = errors.New("domain validation error")

	// Operation errors
	ErrDatabaseOperationFailed = errors.New("database operation failed")
)
