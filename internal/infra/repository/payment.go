package repository

import (
	"context"
	"time"

	"rentloop/internal/domain/payment"
	"rentloop/internal/infra"
	"rentloop/internal/infra/db"
	"rentloop/internal/pkg/pgconv"

	"github.com/google/uuid"
)

type PaymentRepository struct {
	db db.DBTX
}

func NewPaymentRepository(dbtx db.DBTX) *PaymentRepository {
	return &PaymentRepository{db: dbtx}
}

const createIntentSQL = `
INSERT INTO payment_intents (id, booking_id, processor_ref, amount_cents, status, needs_reconciliation, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

func (r *PaymentRepository) CreateIntent(ctx context.Context, in *payment.Intent) error {
	_, err := r.db.Exec(ctx, createIntentSQL,
		in.ID(), in.BookingID(), in.ProcessorRef(), in.AmountCents(),
		in.Status().String(), in.NeedsReconciliation(), in.CreatedAt(), in.UpdatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create payment intent", err, kindForPgError(err))
	}
	return nil
}

const deleteStaleIntentsSQL = `
DELETE FROM payment_intents WHERE booking_id = $1 AND status = 'created'`

func (r *PaymentRepository) DeleteStaleIntents(ctx context.Context, bookingID uuid.UUID) error {
	_, err := r.db.Exec(ctx, deleteStaleIntentsSQL, bookingID)
	if err != nil {
		return infra.WrapRepoErr("failed to delete stale payment intents", err)
	}
	return nil
}

const findIntentSQL = `
SELECT id, booking_id, processor_ref, amount_cents, status, needs_reconciliation, created_at, updated_at
FROM payment_intents`

func (r *PaymentRepository) FindIntentByProcessorRef(ctx context.Context, ref string) (*payment.Intent, error) {
	return r.scanIntent(ctx, findIntentSQL+" WHERE processor_ref = $1", ref)
}

func (r *PaymentRepository) FindIntentByBookingID(ctx context.Context, bookingID uuid.UUID) (*payment.Intent, error) {
	return r.scanIntent(ctx, findIntentSQL+" WHERE booking_id = $1 ORDER BY created_at DESC LIMIT 1", bookingID)
}

func (r *PaymentRepository) scanIntent(ctx context.Context, sql string, arg any) (*payment.Intent, error) {
	var (
		id, bookingID        uuid.UUID
		processorRef         string
		amountCents          int64
		status               string
		needsReconciliation  bool
		createdAt, updatedAt time.Time
	)

	err := r.db.QueryRow(ctx, sql, arg).Scan(
		&id, &bookingID, &processorRef, &amountCents, &status,
		&needsReconciliation, &createdAt, &updatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("payment intent not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find payment intent", err)
	}

	return payment.ReconstructIntent(
		id, bookingID, processorRef, amountCents,
		payment.IntentStatus(status), needsReconciliation, createdAt, updatedAt,
	), nil
}

// Conditional write so redelivered webhooks cannot regress a succeeded intent.
const updateIntentStatusSQL = `
UPDATE payment_intents SET status = $2, updated_at = $3
WHERE id = $1 AND status <> 'succeeded'`

func (r *PaymentRepository) UpdateIntentStatusIfNotSucceeded(ctx context.Context, id uuid.UUID, status payment.IntentStatus, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, updateIntentStatusSQL, id, status.String(), at)
	if err != nil {
		return false, infra.WrapRepoErr("failed to update payment intent status", err)
	}
	return tag.RowsAffected() > 0, nil
}

const flagIntentSQL = `
UPDATE payment_intents SET needs_reconciliation = TRUE, updated_at = $2 WHERE id = $1`

func (r *PaymentRepository) FlagIntentForReconciliation(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(ctx, flagIntentSQL, id, at)
	if err != nil {
		return infra.WrapRepoErr("failed to flag payment intent for reconciliation", err)
	}
	return nil
}

const createTransactionSQL = `
INSERT INTO transaction_records (
	id, booking_id, payer_id, payee_id, base_amount_cents, platform_fee_cents,
	processor_fee_cents, owner_payout_cents, total_cents, transaction_date
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

func (r *PaymentRepository) CreateTransaction(ctx context.Context, tr payment.TransactionRecord) error {
	_, err := r.db.Exec(ctx, createTransactionSQL,
		tr.ID, tr.BookingID, tr.PayerID, tr.PayeeID,
		tr.BaseAmountCents, tr.PlatformFeeCents, tr.ProcessorFeeCents,
		tr.OwnerPayoutCents, tr.TotalCents, tr.TransactionDate,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create transaction record", err, kindForPgError(err))
	}
	return nil
}

const findTransactionSQL = `
SELECT id, booking_id, payer_id, payee_id, base_amount_cents, platform_fee_cents,
	processor_fee_cents, owner_payout_cents, total_cents, transaction_date
FROM transaction_records
WHERE booking_id = $1`

func (r *PaymentRepository) FindTransactionByBookingID(ctx context.Context, bookingID uuid.UUID) (payment.TransactionRecord, error) {
	var tr payment.TransactionRecord
	err := r.db.QueryRow(ctx, findTransactionSQL, bookingID).Scan(
		&tr.ID, &tr.BookingID, &tr.PayerID, &tr.PayeeID,
		&tr.BaseAmountCents, &tr.PlatformFeeCents, &tr.ProcessorFeeCents,
		&tr.OwnerPayoutCents, &tr.TotalCents, &tr.TransactionDate,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return payment.TransactionRecord{}, infra.WrapRepoErr("transaction record not found", err, infra.KindNotFound)
		}
		return payment.TransactionRecord{}, infra.WrapRepoErr("failed to find transaction record", err)
	}
	return tr, nil
}

const createRefundAdjustmentSQL = `
INSERT INTO refund_adjustments (id, transaction_id, amount_cents, reason, tax_impact, created_at)
VALUES ($1,$2,$3,$4,$5,$6)`

func (r *PaymentRepository) CreateRefundAdjustment(ctx context.Context, adj payment.RefundAdjustment) error {
	_, err := r.db.Exec(ctx, createRefundAdjustmentSQL,
		adj.ID, adj.TransactionID, adj.AmountCents, adj.Reason.String(), adj.TaxImpact, adj.CreatedAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create refund adjustment", err, kindForPgError(err))
	}
	return nil
}

// Dedup by processor event id: the first insert wins, replays report false.
const insertWebhookEventSQL = `
INSERT INTO webhook_events (event_id, event_type, received_at)
VALUES ($1,$2,$3)
ON CONFLICT (event_id) DO NOTHING`

func (r *PaymentRepository) InsertWebhookEvent(ctx context.Context, eventID, eventType string, receivedAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, insertWebhookEventSQL, eventID, eventType, receivedAt)
	if err != nil {
		return false, infra.WrapRepoErr("failed to record webhook event", err)
	}
	return tag.RowsAffected() > 0, nil
}
