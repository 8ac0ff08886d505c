package bootstrap

import (
	"rentloop/internal/infra/stripegw"
	"rentloop/internal/pkg/config"
	"rentloop/internal/usecase/commands"

	"github.com/stripe/stripe-go/v82"
	"go.uber.org/fx"
)

var StripeModule = fx.Module("stripe",
	fx.Provide(
		NewStripeClient,
		fx.Annotate(
			stripegw.NewGateway,
			fx.As(new(commands.PaymentGateway)),
		),
	),
)

func NewStripeClient(cfg config.Config) *stripe.Client {
	return stripe.NewClient(cfg.Stripe.SecretKey)
}
