package bootstrap

import (
	"rentloop/cmd/bootstrap/components"

	"go.uber.org/fx"
)

var Module = fx.Options(
	ConfigModule,
	DBModule,
	JWTModule,
	StripeModule,
	components.RepositoryModule,
	components.UseCaseModule,
	components.HandlerModule,
)
