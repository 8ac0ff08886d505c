package repository

import (
	"context"
	"time"

	"rentloop/internal/infra"
	"rentloop/internal/infra/db"
	"rentloop/internal/pkg/pgconv"
	"rentloop/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type IdempotencyRepository struct {
	db db.DBTX
}

func NewIdempotencyRepository(dbtx db.DBTX) *IdempotencyRepository {
	return &IdempotencyRepository{db: dbtx}
}

const tryInsertIdempotencySQL = `
INSERT INTO idempotency_keys (key, user_id, endpoint, request_hash, status, expires_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,'processing',$5, now(), now())
ON CONFLICT (key, user_id) DO NOTHING`

func (r *IdempotencyRepository) TryInsert(ctx context.Context, key, userID uuid.UUID, endpoint, requestHash string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx, tryInsertIdempotencySQL, key, userID, endpoint, requestHash, expiresAt)
	if err != nil {
		return infra.WrapRepoErr("failed to insert idempotency key", err, kindForPgError(err))
	}
	return nil
}

const getIdempotencySQL = `
SELECT key, user_id, status, request_hash, result_booking_id, expires_at
FROM idempotency_keys
WHERE key = $1 AND user_id = $2`

func (r *IdempotencyRepository) Get(ctx context.Context, key, userID uuid.UUID) (*shared.IdempotencyRecord, error) {
	var (
		rec             shared.IdempotencyRecord
		resultBookingID pgtype.UUID
	)
	err := r.db.QueryRow(ctx, getIdempotencySQL, key, userID).Scan(
		&rec.Key, &rec.UserID, &rec.Status, &rec.RequestHash, &resultBookingID, &rec.ExpiresAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("idempotency key not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get idempotency key", err)
	}
	rec.ResultBookingID = pgconv.UUIDPtrFromPgtype(resultBookingID)
	return &rec, nil
}

const completeIdempotencySQL = `
UPDATE idempotency_keys
SET status = 'completed', result_hash = $3, result_booking_id = $4, updated_at = now()
WHERE key = $1 AND user_id = $2`

func (r *IdempotencyRepository) UpdateStatusCompleted(ctx context.Context, key, userID uuid.UUID, resultHash string, bookingID uuid.UUID) error {
	_, err := r.db.Exec(ctx, completeIdempotencySQL, key, userID, resultHash, bookingID)
	if err != nil {
		return infra.WrapRepoErr("failed to complete idempotency key", err)
	}
	return nil
}
