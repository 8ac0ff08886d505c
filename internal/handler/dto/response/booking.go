package response

import (
	"rentloop/internal/usecase/queries"
)

type CreateBookingResponse struct {
	Booking    *queries.BookingView `json:"booking"`
	IsReplayed bool                 `json:"is_replayed"`
}

type ConflictDetail struct {
	Conflicts []queries.ConflictView `json:"conflicts,omitempty"`
}
