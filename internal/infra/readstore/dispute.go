package readstore

import (
	"context"

	"rentloop/internal/infra"
	"rentloop/internal/infra/db"
	"rentloop/internal/pkg/pgconv"
	"rentloop/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type DisputeReadStore struct {
	db db.DBTX
}

func NewDisputeReadStore(dbtx db.DBTX) *DisputeReadStore {
	return &DisputeReadStore{db: dbtx}
}

const getDisputeViewSQL = `
SELECT id, booking_id, complainant_id, respondent_id, type, status,
	resolution_action, resolution_compensation_cents, resolution_resolver_id,
	resolution_resolved_at, created_at
FROM disputes
WHERE id = $1`

func (r *DisputeReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.DisputeView, error) {
	var (
		v            queries.DisputeView
		action       pgtype.Text
		compensation pgtype.Int8
		resolverID   pgtype.UUID
		resolvedAt   pgtype.Timestamptz
	)

	err := r.db.QueryRow(ctx, getDisputeViewSQL, id).Scan(
		&v.ID, &v.BookingID, &v.ComplainantID, &v.RespondentID, &v.Type, &v.Status,
		&action, &compensation, &resolverID, &resolvedAt, &v.CreatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("dispute not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find dispute view", err)
	}

	v.ResolutionAction = pgconv.StringPtrFromPgtype(action)
	v.CompensationCents = pgconv.Int64PtrFromPgtype(compensation)
	v.ResolverID = pgconv.UUIDPtrFromPgtype(resolverID)
	v.ResolvedAt = pgconv.TimePtrFromPgtype(resolvedAt)
	return &v, nil
}

const listDisputeMessagesSQL = `
SELECT id, dispute_id, author_id, body, created_at
FROM dispute_messages
WHERE dispute_id = $1
ORDER BY created_at, id`

func (r *DisputeReadStore) ListMessages(ctx context.Context, disputeID uuid.UUID) ([]queries.DisputeMessageView, error) {
	rows, err := r.db.Query(ctx, listDisputeMessagesSQL, disputeID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list dispute messages", err)
	}
	defer rows.Close()

	var messages []queries.DisputeMessageView
	for rows.Next() {
		var m queries.DisputeMessageView
		if err := rows.Scan(&m.ID, &m.DisputeID, &m.AuthorID, &m.Body, &m.CreatedAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan dispute message", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read dispute messages", err)
	}

	return messages, nil
}
