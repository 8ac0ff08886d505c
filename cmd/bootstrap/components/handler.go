package components

import (
	"rentloop/internal/handler"
	"rentloop/internal/handler/api"
	"rentloop/internal/handler/middleware"
	"rentloop/internal/pkg/config"
	"rentloop/internal/usecase/commands"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewAuthHandler,
		api.NewBookingHandler,
		api.NewPaymentHandler,
		api.NewDisputeHandler,
		NewWebhookHandler,
		middleware.NewAuthMiddleware,
	),
	fx.Invoke(handler.NewRouter),
)

func NewWebhookHandler(paymentCommands commands.PaymentCommands, cfg config.Config) *api.WebhookHandler {
	return api.NewWebhookHandler(paymentCommands, cfg.Stripe)
}
