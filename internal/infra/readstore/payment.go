package readstore

import (
	"context"

	"rentloop/internal/infra"
	"rentloop/internal/infra/db"
	"rentloop/internal/pkg/pgconv"
	"rentloop/internal/usecase/queries"

	"github.com/google/uuid"
)

type PaymentReadStore struct {
	db db.DBTX
}

func NewPaymentReadStore(dbtx db.DBTX) *PaymentReadStore {
	return &PaymentReadStore{db: dbtx}
}

const getTransactionViewSQL = `
SELECT id, booking_id, payer_id, payee_id, base_amount_cents, platform_fee_cents,
	processor_fee_cents, owner_payout_cents, total_cents, transaction_date
FROM transaction_records
WHERE booking_id = $1`

func (r *PaymentReadStore) FindTransactionByBookingID(ctx context.Context, bookingID uuid.UUID) (*queries.TransactionView, error) {
	var v queries.TransactionView
	err := r.db.QueryRow(ctx, getTransactionViewSQL, bookingID).Scan(
		&v.ID, &v.BookingID, &v.PayerID, &v.PayeeID, &v.BaseAmountCents,
		&v.PlatformFeeCents, &v.ProcessorFeeCents, &v.OwnerPayoutCents,
		&v.TotalCents, &v.TransactionDate,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("transaction not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find transaction view", err)
	}
	return &v, nil
}
