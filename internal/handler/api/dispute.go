package api

import (
	"net/http"

	"rentloop/internal/domain/booking"
	reqdto "rentloop/internal/handler/dto/request"
	resdto "rentloop/internal/handler/dto/response"
	"rentloop/internal/handler/middleware"
	"rentloop/internal/usecase/commands"
	"rentloop/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DisputeHandler struct {
	disputeCommands commands.DisputeCommands
	disputeQueries  queries.DisputeQueries
}

func NewDisputeHandler(disputeCommands commands.DisputeCommands, disputeQueries queries.DisputeQueries) *DisputeHandler {
	return &DisputeHandler{
		disputeCommands: disputeCommands,
		disputeQueries:  disputeQueries,
	}
}

func (h *DisputeHandler) OpenDispute(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var req reqdto.OpenDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	id, err := h.disputeCommands.OpenDispute(c.Request.Context(), req, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resdto.CreatedResponse{ID: id})
}

func (h *DisputeHandler) GetDispute(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	view, err := h.disputeQueries.GetByID(c.Request.Context(), id, actor.ID, actor.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *DisputeHandler) AddMessage(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req reqdto.AddDisputeMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	msgID, err := h.disputeCommands.AddDisputeMessage(c.Request.Context(), id, req.TrimmedBody(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resdto.CreatedResponse{ID: msgID})
}

func (h *DisputeHandler) ListMessages(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	messages, err := h.disputeQueries.ListMessages(c.Request.Context(), id, actor.ID, actor.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

func (h *DisputeHandler) StartReview(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	if err := h.disputeCommands.StartDisputeReview(c.Request.Context(), id, actor); err != nil {
		respondError(c, err)
		return
	}
	h.respondWithDispute(c, id, actor)
}

func (h *DisputeHandler) Escalate(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	if err := h.disputeCommands.EscalateDispute(c.Request.Context(), id, actor); err != nil {
		respondError(c, err)
		return
	}
	h.respondWithDispute(c, id, actor)
}

func (h *DisputeHandler) Resolve(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req reqdto.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.disputeCommands.ResolveDispute(c.Request.Context(), id, req, actor); err != nil {
		respondError(c, err)
		return
	}
	h.respondWithDispute(c, id, actor)
}

func (h *DisputeHandler) actorAndID(c *gin.Context) (actor booking.Actor, id uuid.UUID, ok bool) {
	a, found := middleware.GetActor(c)
	if !found {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return a, uuid.Nil, false
	}

	parsed, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dispute ID format"})
		return a, uuid.Nil, false
	}
	return a, parsed, true
}

func (h *DisputeHandler) respondWithDispute(c *gin.Context, id uuid.UUID, actor booking.Actor) {
	view, err := h.disputeQueries.GetByID(c.Request.Context(), id, actor.ID, actor.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
