package queries

import (
	"context"

	"rentloop/internal/infra"
	"rentloop/internal/pkg/errs"

	"github.com/google/uuid"
)

type PaymentReadStore interface {
	FindTransactionByBookingID(ctx context.Context, bookingID uuid.UUID) (*TransactionView, error)
}

type PaymentQueries interface {
	// GetTransactionForBooking returns the ledger entry for a paid booking.
	// Only the payer, the payee, or an admin may read it.
	GetTransactionForBooking(ctx context.Context, bookingID, actorID uuid.UUID, isAdmin bool) (*TransactionView, error)
}

type paymentQueriesImpl struct {
	store PaymentReadStore
}

func NewPaymentQueries(store PaymentReadStore) PaymentQueries {
	return &paymentQueriesImpl{store: store}
}

func (q *paymentQueriesImpl) GetTransactionForBooking(ctx context.Context, bookingID, actorID uuid.UUID, isAdmin bool) (*TransactionView, error) {
	view, err := q.store.FindTransactionByBookingID(ctx, bookingID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrPaymentNotFound)
		}
		return nil, err
	}
	if !isAdmin && view.PayerID != actorID && view.PayeeID != actorID {
		return nil, errs.ErrForbiddenActor
	}
	return view, nil
}
