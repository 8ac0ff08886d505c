package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"rentloop/internal/pkg/config"
	"rentloop/internal/usecase/commands"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// WebhookHandler receives processor events. Signature verification happens
// before anything touches the database; a verified but unprocessable event
// still returns 200 so the processor does not retry forever.
type WebhookHandler struct {
	paymentCommands commands.PaymentCommands
	webhookSecret   string
}

func NewWebhookHandler(paymentCommands commands.PaymentCommands, cfg config.StripeConfig) *WebhookHandler {
	return &WebhookHandler{
		paymentCommands: paymentCommands,
		webhookSecret:   cfg.WebhookSecret,
	}
}

func (h *WebhookHandler) HandleStripeEvent(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		slog.Warn("webhook signature verification failed", "error", err.Error())
		c.Status(http.StatusBadRequest)
		return
	}

	ev, ok := h.translateEvent(event)
	if !ok {
		// Unhandled event types are acknowledged, not retried.
		c.Status(http.StatusOK)
		return
	}

	if err := h.paymentCommands.HandleWebhookEvent(c.Request.Context(), ev); err != nil {
		slog.Error("webhook processing failed", "event_id", event.ID, "type", event.Type, "error", err.Error())
		// Non-2xx makes the processor redeliver; the event-id dedup keeps
		// the retry safe.
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Status(http.StatusOK)
}

func (h *WebhookHandler) translateEvent(event stripe.Event) (commands.WebhookEvent, bool) {
	ev := commands.WebhookEvent{
		EventID: event.ID,
		Type:    string(event.Type),
	}

	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			slog.Warn("failed to parse payment intent payload", "event_id", event.ID, "error", err.Error())
			return commands.WebhookEvent{}, false
		}
		ev.ProcessorRef = pi.ID
		return ev, true

	case "account.updated":
		var acc stripe.Account
		if err := json.Unmarshal(event.Data.Raw, &acc); err != nil {
			slog.Warn("failed to parse account payload", "event_id", event.ID, "error", err.Error())
			return commands.WebhookEvent{}, false
		}
		ev.AccountRef = acc.ID
		ev.ChargesEnabled = acc.ChargesEnabled
		ev.PayoutsEnabled = acc.PayoutsEnabled
		return ev, true

	default:
		return commands.WebhookEvent{}, false
	}
}
