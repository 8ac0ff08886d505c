package components

import (
	"rentloop/internal/domain/pricing"
	"rentloop/internal/pkg/clock"
	"rentloop/internal/pkg/config"
	"rentloop/internal/usecase"
	"rentloop/internal/usecase/commands"
	"rentloop/internal/usecase/queries"
	"rentloop/internal/usecase/shared"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseQueriesModule,
	usecaseValidatorsModule,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	NewPricingCalculator,
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		usecase.NewAuthUseCase,
		commands.NewBookingUseCase,
		NewPaymentCommands,
		commands.NewDisputeUseCase,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewBookingQueries,
		queries.NewDisputeQueries,
		queries.NewPaymentQueries,
	),
)

var usecaseValidatorsModule = fx.Module("usecase/validators",
	fx.Provide(
		usecase.NewTokenValidator,
	),
)

func NewPricingCalculator(cfg config.Config) *pricing.Calculator {
	return pricing.NewCalculator(pricing.ConfigFromTierFees(
		cfg.Pricing.ServiceFeeRate,
		cfg.Pricing.PlatformFeePercent,
		cfg.Pricing.ProcessorFeePercent,
		cfg.Pricing.ProcessorFixedFeeCents,
		cfg.Pricing.DeliveryFeeCents,
		cfg.Pricing.InsuranceBasicCents,
		cfg.Pricing.InsurancePremiumCents,
	))
}

// NewPaymentCommands threads the settlement currency from config into the
// payment use case.
func NewPaymentCommands(
	uow shared.UnitOfWork,
	gateway commands.PaymentGateway,
	calculator *pricing.Calculator,
	cfg config.Config,
	clk clock.Clock,
) commands.PaymentCommands {
	return commands.NewPaymentUseCase(uow, gateway, calculator, cfg.Stripe.Currency, clk)
}
