package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rentloop/internal/domain/booking"
	"rentloop/internal/domain/pricing"
	reqdto "rentloop/internal/handler/dto/request"
	"rentloop/internal/infra"
	"rentloop/internal/pkg/clock"
	"rentloop/internal/pkg/errs"
	"rentloop/internal/usecase/queries"
	"rentloop/internal/usecase/shared"

	"github.com/google/uuid"
)

type CreateBookingResult struct {
	Booking    *queries.BookingView
	IsReplayed bool
}

// ConflictError carries the calendar entries that blocked a booking attempt
// so the boundary can report them alongside the rejection.
type ConflictError struct {
	Conflicts []shared.BookingRef
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("booking dates conflict with %d existing booking(s)", len(e.Conflicts))
}

func (e *ConflictError) Unwrap() error {
	return errs.ErrBookingConflict
}

type BookingCommands interface {
	CreateBooking(ctx context.Context, req reqdto.CreateBookingRequest, renterID uuid.UUID, idempotencyKey uuid.UUID) (*CreateBookingResult, error)
	ApproveBooking(ctx context.Context, bookingID uuid.UUID, actor booking.Actor) error
	RejectBooking(ctx context.Context, bookingID uuid.UUID, actor booking.Actor) error
	CancelBooking(ctx context.Context, bookingID uuid.UUID, actor booking.Actor) error
	CheckOutBooking(ctx context.Context, bookingID uuid.UUID, actor booking.Actor, pickupVerified bool) error
	CompleteBooking(ctx context.Context, bookingID uuid.UUID, actor booking.Actor, returnVerified bool) error
}

type bookingUseCaseImpl struct {
	uow            shared.UnitOfWork
	calculator     *pricing.Calculator
	bookingQueries queries.BookingQueries
	clock          clock.Clock
}

func NewBookingUseCase(
	uow shared.UnitOfWork,
	calculator *pricing.Calculator,
	bookingQueries queries.BookingQueries,
	clk clock.Clock,
) BookingCommands {
	return &bookingUseCaseImpl{
		uow:            uow,
		calculator:     calculator,
		bookingQueries: bookingQueries,
		clock:          clk,
	}
}

func (u *bookingUseCaseImpl) CreateBooking(
	ctx context.Context,
	req reqdto.CreateBookingRequest,
	renterID uuid.UUID,
	idempotencyKey uuid.UUID,
) (*CreateBookingResult, error) {
	requestHash := calculateRequestHash(req)
	expiresAt := u.clock.Now().Add(24 * time.Hour)

	replayed, err := u.handleIdempotency(ctx, idempotencyKey, renterID, requestHash, expiresAt)
	if err != nil {
		return nil, err
	}
	if replayed != nil {
		return &CreateBookingResult{Booking: replayed, IsReplayed: true}, nil
	}

	terms, err := req.ToDomain()
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDomainValidation)
	}

	bookingID, err := u.insertBooking(ctx, req.ListingID, renterID, idempotencyKey, terms)
	if err != nil {
		return nil, err
	}

	view, err := u.bookingQueries.GetByIDSystem(ctx, bookingID)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return &CreateBookingResult{Booking: view, IsReplayed: false}, nil
}

func (u *bookingUseCaseImpl) handleIdempotency(
	ctx context.Context,
	idempotencyKey, userID uuid.UUID,
	requestHash string,
	expiresAt time.Time,
) (*queries.BookingView, error) {
	var existing *shared.IdempotencyRecord
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Idempotency().TryInsert(ctx, idempotencyKey, userID, "POST /bookings", requestHash, expiresAt); err != nil {
			return err
		}
		rec, err := tx.Idempotency().Get(ctx, idempotencyKey, userID)
		if err != nil {
			return err
		}
		existing = rec
		return nil
	})
	if err != nil {
		return nil, errs.Mark(err, errs.ErrIdempotencyCheckFailed)
	}

	switch existing.Status {
	case "completed":
		if existing.ResultBookingID != nil {
			// System-level read so the replay does not re-run the party check
			return u.bookingQueries.GetByIDSystem(ctx, *existing.ResultBookingID)
		}
		return nil, errs.New("completed request missing result booking ID")

	case "processing":
		if existing.RequestHash != requestHash {
			return nil, errs.ErrDuplicateBooking
		}
		return nil, nil

	default:
		return nil, errs.New("invalid idempotency key status")
	}
}

func (u *bookingUseCaseImpl) insertBooking(
	ctx context.Context,
	listingID, renterID, idempotencyKey uuid.UUID,
	terms *reqdto.BookingTerms,
) (uuid.UUID, error) {
	var bookingID uuid.UUID

	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		// Row lock on the listing serializes concurrent attempts on the same
		// calendar, making the overlap check and the insert atomic.
		lst, err := tx.Listings().LockByID(ctx, listingID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrListingNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		if lst.OwnerID() == renterID {
			return errs.ErrForbiddenActor
		}

		conflicts, err := tx.Bookings().FindOverlapping(ctx, listingID, terms.DateRange, nil)
		if err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}

		breakdown, err := u.calculator.ComputeQuote(
			lst.DailyRateCents(),
			terms.DateRange.Days(),
			terms.Delivery,
			terms.Insurance,
			lst.SecurityDepositCents(),
		)
		if err != nil {
			return errs.Mark(err, errs.ErrDomainValidation)
		}

		now := u.clock.Now()
		b := booking.NewBooking(
			listingID, renterID, lst.OwnerID(),
			terms.DateRange, breakdown,
			terms.Delivery, terms.Insurance,
			lst.InstantBook(), now,
		)

		if err := tx.Bookings().Create(ctx, b); err != nil {
			if infra.IsKind(err, infra.KindConflict) {
				return errs.Mark(err, errs.ErrBookingConflict)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		if err := tx.Bookings().AppendEvent(ctx, b.ID(), "", b.Status(), &renterID, now); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		if err := createBookingNotification(ctx, tx, b.ID(), "booking_created", now); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		if err := tx.Idempotency().UpdateStatusCompleted(ctx, idempotencyKey, renterID, calculateIDHash(b.ID()), b.ID()); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		bookingID = b.ID()
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return bookingID, nil
}

func (u *bookingUseCaseImpl) ApproveBooking(ctx context.Context, bookingID uuid.UUID, actor booking.Actor) error {
	return u.transition(ctx, bookingID, actor, func(b *booking.Booking, now time.Time) error {
		return b.Approve(actor, now)
	})
}

func (u *bookingUseCaseImpl) RejectBooking(ctx context.Context, bookingID uuid.UUID, actor booking.Actor) error {
	return u.transition(ctx, bookingID, actor, func(b *booking.Booking, now time.Time) error {
		return b.Reject(actor, now)
	})
}

func (u *bookingUseCaseImpl) CancelBooking(ctx context.Context, bookingID uuid.UUID, actor booking.Actor) error {
	return u.transition(ctx, bookingID, actor, func(b *booking.Booking, now time.Time) error {
		return b.Cancel(actor, now)
	})
}

func (u *bookingUseCaseImpl) CheckOutBooking(ctx context.Context, bookingID uuid.UUID, actor booking.Actor, pickupVerified bool) error {
	return u.transition(ctx, bookingID, actor, func(b *booking.Booking, now time.Time) error {
		return b.CheckOut(actor, pickupVerified, now)
	})
}

func (u *bookingUseCaseImpl) CompleteBooking(ctx context.Context, bookingID uuid.UUID, actor booking.Actor, returnVerified bool) error {
	return u.transition(ctx, bookingID, actor, func(b *booking.Booking, now time.Time) error {
		return b.Complete(actor, returnVerified, now)
	})
}

// transition loads the booking under a row lock, applies one domain
// transition, and persists the result with an audit event.
func (u *bookingUseCaseImpl) transition(
	ctx context.Context,
	bookingID uuid.UUID,
	actor booking.Actor,
	apply func(b *booking.Booking, now time.Time) error,
) error {
	return u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := tx.Bookings().FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrBookingNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		from := b.Status()
		now := u.clock.Now()
		if err := apply(b, now); err != nil {
			return mapDomainErr(err)
		}

		if err := tx.Bookings().Update(ctx, b); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		var actorID *uuid.UUID
		if !actor.System {
			id := actor.ID
			actorID = &id
		}
		if err := tx.Bookings().AppendEvent(ctx, b.ID(), from, b.Status(), actorID, now); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		topic := "booking_" + b.Status().String()
		if err := createBookingNotification(ctx, tx, b.ID(), topic, now); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		return nil
	})
}

func mapDomainErr(err error) error {
	switch {
	case errors.Is(err, booking.ErrForbiddenActor):
		return errs.Mark(err, errs.ErrForbiddenActor)
	case errors.Is(err, booking.ErrForbiddenTransition):
		return errs.Mark(err, errs.ErrForbiddenTransition)
	default:
		return errs.Mark(err, errs.ErrDomainValidation)
	}
}

func createBookingNotification(ctx context.Context, tx shared.Tx, bookingID uuid.UUID, topic string, now time.Time) error {
	payload, err := json.Marshal(map[string]any{
		"booking_id": bookingID,
		"type":       topic,
	})
	if err != nil {
		return err
	}
	return tx.Notifications().CreateJob(ctx, "email", topic, payload, now)
}

func calculateRequestHash(req any) string {
	data, _ := json.Marshal(req)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func calculateIDHash(id uuid.UUID) string {
	hash := sha256.Sum256([]byte(id.String()))
	return hex.EncodeToString(hash[:])
}
