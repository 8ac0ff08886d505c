package queries

import (
	"context"
	"time"

	"rentloop/internal/infra"
	"rentloop/internal/pkg/errs"

	"github.com/google/uuid"
)

type BookingReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*BookingView, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*BookingListItem, error)
	FindConflicts(ctx context.Context, listingID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]ConflictView, error)
}

type BookingQueries interface {
	GetByID(ctx context.Context, id, actorID uuid.UUID, isAdmin bool) (*BookingView, error)
	// GetByIDSystem skips the party check, for idempotency replays and
	// internal reads.
	GetByIDSystem(ctx context.Context, id uuid.UUID) (*BookingView, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*BookingListItem, error)
	// CheckAvailability answers whether the half-open range is free for the
	// listing. Advisory only: the booking command re-checks in its own
	// transaction.
	CheckAvailability(ctx context.Context, listingID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*AvailabilityView, error)
}

type bookingQueriesImpl struct {
	store BookingReadStore
}

func NewBookingQueries(store BookingReadStore) BookingQueries {
	return &bookingQueriesImpl{store: store}
}

func (q *bookingQueriesImpl) GetByID(ctx context.Context, id, actorID uuid.UUID, isAdmin bool) (*BookingView, error) {
	view, err := q.store.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrBookingNotFound)
		}
		return nil, err
	}
	// Bookings are readable by both parties and admins only.
	if !isAdmin && view.RenterID != actorID && view.OwnerID != actorID {
		return nil, errs.ErrForbiddenActor
	}
	return view, nil
}

func (q *bookingQueriesImpl) GetByIDSystem(ctx context.Context, id uuid.UUID) (*BookingView, error) {
	view, err := q.store.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, errs.ErrBookingNotFound)
		}
		return nil, err
	}
	return view, nil
}

func (q *bookingQueriesImpl) ListForUser(ctx context.Context, userID uuid.UUID) ([]*BookingListItem, error) {
	return q.store.FindByUserID(ctx, userID)
}

func (q *bookingQueriesImpl) CheckAvailability(ctx context.Context, listingID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*AvailabilityView, error) {
	if !start.Before(end) {
		return nil, errs.ErrInvalidDateRange
	}
	conflicts, err := q.store.FindConflicts(ctx, listingID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	return &AvailabilityView{
		Available: len(conflicts) == 0,
		Conflicts: conflicts,
	}, nil
}
