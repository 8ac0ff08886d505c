package repository

import (
	"context"
	"time"

	"rentloop/internal/domain/dispute"
	"rentloop/internal/infra"
	"rentloop/internal/infra/db"
	"rentloop/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type DisputeRepository struct {
	db db.DBTX
}

func NewDisputeRepository(dbtx db.DBTX) *DisputeRepository {
	return &DisputeRepository{db: dbtx}
}

const createDisputeSQL = `
INSERT INTO disputes (id, booking_id, complainant_id, respondent_id, type, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

func (r *DisputeRepository) Create(ctx context.Context, d *dispute.Dispute) error {
	_, err := r.db.Exec(ctx, createDisputeSQL,
		d.ID(), d.BookingID(), d.ComplainantID(), d.RespondentID(),
		d.Kind().String(), d.Status().String(), d.CreatedAt(), d.UpdatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create dispute", err, kindForPgError(err))
	}
	return nil
}

const updateDisputeSQL = `
UPDATE disputes SET
	status = $2, resolution_action = $3, resolution_compensation_cents = $4,
	resolution_resolver_id = $5, resolution_resolved_at = $6, updated_at = $7
WHERE id = $1`

func (r *DisputeRepository) Update(ctx context.Context, d *dispute.Dispute) error {
	var (
		action       pgtype.Text
		compensation pgtype.Int8
		resolverID   pgtype.UUID
		resolvedAt   pgtype.Timestamptz
	)
	if res := d.Resolution(); res != nil {
		action = pgconv.StringToPgtype(res.Action.String())
		compensation = pgconv.Int64PtrToPgtype(res.CompensationCents)
		resolverID = pgconv.UUIDToPgtype(res.ResolverID)
		resolvedAt = pgconv.TimeToPgtype(res.ResolvedAt)
	}

	tag, err := r.db.Exec(ctx, updateDisputeSQL,
		d.ID(), d.Status().String(), action, compensation, resolverID, resolvedAt, d.UpdatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update dispute", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("dispute not found on update", nil, infra.KindNotFound)
	}
	return nil
}

const findDisputeSQL = `
SELECT id, booking_id, complainant_id, respondent_id, type, status,
	resolution_action, resolution_compensation_cents, resolution_resolver_id,
	resolution_resolved_at, created_at, updated_at
FROM disputes
WHERE id = $1
FOR UPDATE`

func (r *DisputeRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*dispute.Dispute, error) {
	var (
		dID, bookingID, complainantID, respondentID uuid.UUID
		kind, status                                string
		action                                      pgtype.Text
		compensation                                pgtype.Int8
		resolverID                                  pgtype.UUID
		resolvedAt                                  pgtype.Timestamptz
		createdAt, updatedAt                        time.Time
	)

	err := r.db.QueryRow(ctx, findDisputeSQL, id).Scan(
		&dID, &bookingID, &complainantID, &respondentID, &kind, &status,
		&action, &compensation, &resolverID, &resolvedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("dispute not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find dispute", err)
	}

	var resolution *dispute.Resolution
	if action.Valid {
		resolution = &dispute.Resolution{
			Action:            dispute.ResolutionAction(action.String),
			CompensationCents: pgconv.Int64PtrFromPgtype(compensation),
			ResolvedAt:        resolvedAt.Time,
		}
		if rid := pgconv.UUIDPtrFromPgtype(resolverID); rid != nil {
			resolution.ResolverID = *rid
		}
	}

	return dispute.ReconstructDispute(
		dID, bookingID, complainantID, respondentID,
		dispute.Type(kind), dispute.Status(status), resolution,
		createdAt, updatedAt,
	), nil
}

const hasOpenDisputeSQL = `
SELECT EXISTS (
	SELECT 1 FROM disputes WHERE booking_id = $1 AND status <> 'resolved'
)`

func (r *DisputeRepository) HasOpenDispute(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, hasOpenDisputeSQL, bookingID).Scan(&exists); err != nil {
		return false, infra.WrapRepoErr("failed to check for open dispute", err)
	}
	return exists, nil
}

const addMessageSQL = `
INSERT INTO dispute_messages (id, dispute_id, author_id, body, created_at)
VALUES ($1,$2,$3,$4,$5)`

func (r *DisputeRepository) AddMessage(ctx context.Context, m dispute.Message) error {
	_, err := r.db.Exec(ctx, addMessageSQL, m.ID, m.DisputeID, m.AuthorID, m.Body, m.CreatedAt)
	if err != nil {
		return infra.WrapRepoErr("failed to add dispute message", err, kindForPgError(err))
	}
	return nil
}
