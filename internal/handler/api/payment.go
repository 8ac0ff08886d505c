package api

import (
	"net/http"

	reqdto "rentloop/internal/handler/dto/request"
	resdto "rentloop/internal/handler/dto/response"
	"rentloop/internal/handler/middleware"
	"rentloop/internal/usecase/commands"
	"rentloop/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PaymentHandler struct {
	paymentCommands commands.PaymentCommands
	paymentQueries  queries.PaymentQueries
}

func NewPaymentHandler(paymentCommands commands.PaymentCommands, paymentQueries queries.PaymentQueries) *PaymentHandler {
	return &PaymentHandler{
		paymentCommands: paymentCommands,
		paymentQueries:  paymentQueries,
	}
}

func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID format"})
		return
	}

	result, err := h.paymentCommands.CreatePaymentIntent(c.Request.Context(), bookingID, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resdto.FromPaymentIntentResult(result))
}

func (h *PaymentHandler) RefundBooking(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID format"})
		return
	}

	var req reqdto.RefundRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	reason, err := req.RefundReason()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.paymentCommands.ProcessRefund(c.Request.Context(), bookingID, req.AmountCents, reason, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromRefundOutcome(outcome))
}

func (h *PaymentHandler) GetBookingTransaction(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID format"})
		return
	}

	view, err := h.paymentQueries.GetTransactionForBooking(c.Request.Context(), bookingID, actor.ID, actor.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
