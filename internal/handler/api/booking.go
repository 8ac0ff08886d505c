package api

import (
	"context"
	"errors"
	"net/http"

	"rentloop/internal/domain/booking"
	reqdto "rentloop/internal/handler/dto/request"
	resdto "rentloop/internal/handler/dto/response"
	"rentloop/internal/handler/middleware"
	"rentloop/internal/pkg/errs"
	"rentloop/internal/usecase/commands"
	"rentloop/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BookingHandler struct {
	bookingCommands commands.BookingCommands
	bookingQueries  queries.BookingQueries
}

func NewBookingHandler(bookingCommands commands.BookingCommands, bookingQueries queries.BookingQueries) *BookingHandler {
	return &BookingHandler{
		bookingCommands: bookingCommands,
		bookingQueries:  bookingQueries,
	}
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	idempotencyKey, err := getIdempotencyKey(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req reqdto.CreateBookingRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result, err := h.bookingCommands.CreateBooking(c.Request.Context(), req, actor.ID, idempotencyKey)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.IsReplayed {
		status = http.StatusOK
	}
	c.JSON(status, resdto.CreateBookingResponse{
		Booking:    result.Booking,
		IsReplayed: result.IsReplayed,
	})
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID format"})
		return
	}

	view, err := h.bookingQueries.GetByID(c.Request.Context(), id, actor.ID, actor.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *BookingHandler) GetUserBookings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	items, err := h.bookingQueries.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// CheckAvailability is an advisory read. Booking creation re-checks inside
// its own transaction.
func (h *BookingHandler) CheckAvailability(c *gin.Context) {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	var req reqdto.CheckAvailabilityRequest
	if bindErr := c.ShouldBindQuery(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date and end_date are required"})
		return
	}

	view, err := h.bookingQueries.CheckAvailability(c.Request.Context(), listingID, req.StartDate, req.EndDate, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *BookingHandler) ApproveBooking(c *gin.Context) {
	h.applyTransition(c, h.bookingCommands.ApproveBooking)
}

func (h *BookingHandler) RejectBooking(c *gin.Context) {
	h.applyTransition(c, h.bookingCommands.RejectBooking)
}

func (h *BookingHandler) CancelBooking(c *gin.Context) {
	h.applyTransition(c, h.bookingCommands.CancelBooking)
}

func (h *BookingHandler) CheckOutBooking(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req reqdto.CheckOutBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.bookingCommands.CheckOutBooking(c.Request.Context(), id, actor, req.PickupVerified); err != nil {
		respondError(c, err)
		return
	}
	h.respondWithBooking(c, id)
}

func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req reqdto.CompleteBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.bookingCommands.CompleteBooking(c.Request.Context(), id, actor, req.ReturnVerified); err != nil {
		respondError(c, err)
		return
	}
	h.respondWithBooking(c, id)
}

func (h *BookingHandler) applyTransition(c *gin.Context, apply func(ctx context.Context, id uuid.UUID, actor booking.Actor) error) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	if err := apply(c.Request.Context(), id, actor); err != nil {
		respondError(c, err)
		return
	}
	h.respondWithBooking(c, id)
}

func (h *BookingHandler) actorAndID(c *gin.Context) (booking.Actor, uuid.UUID, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return booking.Actor{}, uuid.Nil, false
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID format"})
		return booking.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}

func (h *BookingHandler) respondWithBooking(c *gin.Context, id uuid.UUID) {
	view, err := h.bookingQueries.GetByIDSystem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func getIdempotencyKey(c *gin.Context) (uuid.UUID, error) {
	keyStr := c.GetHeader("Idempotency-Key")
	if keyStr == "" {
		return uuid.Nil, errs.ErrIdempotencyKeyRequired
	}

	key, err := uuid.Parse(keyStr)
	if err != nil {
		return uuid.Nil, errors.Join(errs.ErrIdempotencyKeyRequired, err)
	}

	return key, nil
}
