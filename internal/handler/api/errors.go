package api

import (
	"errors"
	"net/http"

	resdto "rentloop/internal/handler/dto/response"
	"rentloop/internal/handler/httperr"
	"rentloop/internal/pkg/errs"
	"rentloop/internal/usecase/commands"
	"rentloop/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

// respondError renders one attributable error code per failure class.
func respondError(c *gin.Context, err error) {
	var conflictErr *commands.ConflictError

	switch {
	case errs.Is(err, errs.ErrListingNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "NOT_FOUND", "Listing not found", nil)
	case errs.Is(err, errs.ErrBookingNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "NOT_FOUND", "Booking not found", nil)
	case errs.Is(err, errs.ErrDisputeNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "NOT_FOUND", "Dispute not found", nil)
	case errs.Is(err, errs.ErrPaymentNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "NOT_FOUND", "Payment not found", nil)

	case errs.Is(err, errs.ErrForbiddenActor):
		httperr.AbortWithError(c, http.StatusForbidden, err, "FORBIDDEN", "You are not allowed to perform this action", nil)

	case errors.As(err, &conflictErr):
		httperr.AbortWithError(c, http.StatusConflict, err, "CONFLICT", "Requested dates conflict with existing bookings",
			resdto.ConflictDetail{Conflicts: conflictRefsToViews(conflictErr)})
	case errs.Is(err, errs.ErrBookingConflict):
		httperr.AbortWithError(c, http.StatusConflict, err, "CONFLICT", "Requested dates conflict with existing bookings", nil)
	case errs.Is(err, errs.ErrDuplicateBooking):
		httperr.AbortWithError(c, http.StatusConflict, err, "CONFLICT", "Duplicate request with different parameters", nil)
	case errs.Is(err, errs.ErrDuplicateOpenDispute):
		httperr.AbortWithError(c, http.StatusConflict, err, "CONFLICT", "An open dispute already exists for this booking", nil)
	case errs.Is(err, errs.ErrIdempotencyInProgress):
		httperr.AbortWithError(c, http.StatusConflict, err, "CONFLICT", "Request is currently being processed", nil)

	case errs.Is(err, errs.ErrForbiddenTransition):
		httperr.AbortWithError(c, http.StatusConflict, err, "ILLEGAL_TRANSITION", "Requested transition is not allowed from the current status", nil)
	case errs.Is(err, errs.ErrRefundNotPermitted):
		httperr.AbortWithError(c, http.StatusConflict, err, "ILLEGAL_TRANSITION", "Refund is not permitted in the current booking status", nil)
	case errs.Is(err, errs.ErrPayoutsNotEnabled):
		httperr.AbortWithError(c, http.StatusConflict, err, "PAYOUTS_NOT_ENABLED", "Owner's payout account is not ready to receive payments", nil)

	case errs.Is(err, errs.ErrPaymentFailed):
		httperr.AbortWithError(c, http.StatusPaymentRequired, err, "PAYMENT_FAILED", "Payment processor reported a failure", nil)

	case errs.Is(err, errs.ErrInvalidDateRange),
		errs.Is(err, errs.ErrDomainValidation),
		errs.Is(err, errs.ErrIdempotencyKeyRequired):
		httperr.AbortWithError(c, http.StatusUnprocessableEntity, err, "VALIDATION_ERROR", "Request failed validation", nil)

	default:
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "INTERNAL", "Internal server error", nil)
	}
}

func conflictRefsToViews(err *commands.ConflictError) []queries.ConflictView {
	views := make([]queries.ConflictView, len(err.Conflicts))
	for i, ref := range err.Conflicts {
		views[i] = queries.ConflictView{
			BookingID: ref.ID,
			StartDate: ref.Start,
			EndDate:   ref.End,
			Status:    ref.Status,
		}
	}
	return views
}
