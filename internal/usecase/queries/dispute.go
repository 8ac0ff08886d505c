package queries

import (
	"context"

	"rentloop/internal/infra"
	"rentloop/internal/pkg/errs"

	"github.com/google/uuid"
)

type DisputeReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*DisputeView, error)
	ListMessages(ctx context.Context, disputeID uuid.UUID) ([]DisputeMessageView, error)
}

type DisputeQueries interface {
	GetByID(ctx context.Context, id, actorID uuid.UUID, isAdmin bool) (*DisputeView, error)
	ListMessages(ctx context.Context, disputeID, actorID uuid.UUID, isAdmin bool) ([]DisputeMessageView, error)
}

type disputeQueriesImpl struct {
	store DisputeReadStore
}

func NewDisputeQueries(store DisputeReadStore) DisputeQueries {
	return &disputeQueriesImpl{store: store}
}

func (q *disputeQueriesImpl) GetByID(ctx context.Context, id, actorID uuid.UUID, isAdmin bool) (*DisputeView, error) {
	view, err := q.store.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrDisputeNotFound)
		}
		return nil, err
	}
	if !isAdmin && view.ComplainantID != actorID && view.RespondentID != actorID {
		return nil, errs.ErrForbiddenActor
	}
	return view, nil
}

func (q *disputeQueriesImpl) ListMessages(ctx context.Context, disputeID, actorID uuid.UUID, isAdmin bool) ([]DisputeMessageView, error) {
	if _, err := q.GetByID(ctx, disputeID, actorID, isAdmin); err != nil {
		return nil, err
	}
	return q.store.ListMessages(ctx, disputeID)
}
