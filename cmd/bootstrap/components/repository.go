package components

import (
	"rentloop/internal/infra/db"
	"rentloop/internal/infra/readstore"
	repo_impl "rentloop/internal/infra/repository"
	"rentloop/internal/infra/uow"
	"rentloop/internal/usecase"
	"rentloop/internal/usecase/queries"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var RepositoryModule = fx.Module("repository",
	fx.Provide(
		NewDBTX,
		uow.NewPostgresUoW,
		fx.Annotate(
			repo_impl.NewUserRepository,
			fx.As(new(usecase.UserRepository)),
		),
		// Read-side stores for queries
		fx.Annotate(
			readstore.NewBookingReadStore,
			fx.As(new(queries.BookingReadStore)),
		),
		fx.Annotate(
			readstore.NewDisputeReadStore,
			fx.As(new(queries.DisputeReadStore)),
		),
		fx.Annotate(
			readstore.NewPaymentReadStore,
			fx.As(new(queries.PaymentReadStore)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}
