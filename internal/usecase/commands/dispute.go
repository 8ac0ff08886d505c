package commands

import (
	"context"
	"errors"
	"time"

	"rentloop/internal/domain/booking"
	"rentloop/internal/domain/dispute"
	"rentloop/internal/domain/payment"
	reqdto "rentloop/internal/handler/dto/request"
	"rentloop/internal/infra"
	"rentloop/internal/pkg/clock"
	"rentloop/internal/pkg/errs"
	"rentloop/internal/usecase/shared"

	"github.com/google/uuid"
)

type DisputeCommands interface {
	OpenDispute(ctx context.Context, req reqdto.OpenDisputeRequest, actor booking.Actor) (uuid.UUID, error)
	AddDisputeMessage(ctx context.Context, disputeID uuid.UUID, body string, actor booking.Actor) (uuid.UUID, error)
	StartDisputeReview(ctx context.Context, disputeID uuid.UUID, actor booking.Actor) error
	EscalateDispute(ctx context.Context, disputeID uuid.UUID, actor booking.Actor) error
	ResolveDispute(ctx context.Context, disputeID uuid.UUID, req reqdto.ResolveDisputeRequest, actor booking.Actor) error
}

type disputeUseCaseImpl struct {
	uow     shared.UnitOfWork
	refunds PaymentCommands
	clock   clock.Clock
}

func NewDisputeUseCase(uow shared.UnitOfWork, refunds PaymentCommands, clk clock.Clock) DisputeCommands {
	return &disputeUseCaseImpl{uow: uow, refunds: refunds, clock: clk}
}

func (u *disputeUseCaseImpl) OpenDispute(
	ctx context.Context,
	req reqdto.OpenDisputeRequest,
	actor booking.Actor,
) (uuid.UUID, error) {
	kind, err := req.DisputeType()
	if err != nil {
		return uuid.Nil, errs.Mark(err, errs.ErrDomainValidation)
	}

	var disputeID uuid.UUID
	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := tx.Bookings().FindByIDForUpdate(ctx, req.BookingID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrBookingNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		if actor.ID != b.RenterID() && actor.ID != b.OwnerID() {
			return errs.ErrForbiddenActor
		}

		now := u.clock.Now()
		if !b.CanOpenDispute() && !b.IsOverdue(now) {
			return errs.Mark(errs.Newf("booking %s is %s", b.ID(), b.Status()), errs.ErrForbiddenTransition)
		}

		open, err := tx.Disputes().HasOpenDispute(ctx, b.ID())
		if err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if open {
			return errs.ErrDuplicateOpenDispute
		}

		respondentID := b.OwnerID()
		if actor.ID == b.OwnerID() {
			respondentID = b.RenterID()
		}

		d, err := dispute.NewDispute(b.ID(), actor.ID, respondentID, kind, now)
		if err != nil {
			return errs.Mark(err, errs.ErrDomainValidation)
		}
		if err := tx.Disputes().Create(ctx, d); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		// The description opens the message thread.
		msg, err := d.NewMessage(actor.ID, actor.IsAdmin(), req.Description, now)
		if err != nil {
			return errs.Mark(err, errs.ErrDomainValidation)
		}
		if err := tx.Disputes().AddMessage(ctx, msg); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		from := b.Status()
		if err := b.MarkDisputed(now); err != nil {
			return mapDomainErr(err)
		}
		if err := tx.Bookings().Update(ctx, b); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		id := actor.ID
		if err := tx.Bookings().AppendEvent(ctx, b.ID(), from, b.Status(), &id, now); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		if err := createBookingNotification(ctx, tx, b.ID(), "dispute_opened", now); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		disputeID = d.ID()
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return disputeID, nil
}

func (u *disputeUseCaseImpl) AddDisputeMessage(
	ctx context.Context,
	disputeID uuid.UUID,
	body string,
	actor booking.Actor,
) (uuid.UUID, error) {
	var messageID uuid.UUID
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		d, err := tx.Disputes().FindByIDForUpdate(ctx, disputeID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrDisputeNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		msg, err := d.NewMessage(actor.ID, actor.IsAdmin(), body, u.clock.Now())
		if err != nil {
			return mapDisputeErr(err)
		}
		if err := tx.Disputes().AddMessage(ctx, msg); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		messageID = msg.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return messageID, nil
}

func (u *disputeUseCaseImpl) StartDisputeReview(ctx context.Context, disputeID uuid.UUID, actor booking.Actor) error {
	return u.adminTransition(ctx, disputeID, actor, func(d *dispute.Dispute, now time.Time) error {
		return d.StartReview(now)
	})
}

func (u *disputeUseCaseImpl) EscalateDispute(ctx context.Context, disputeID uuid.UUID, actor booking.Actor) error {
	return u.adminTransition(ctx, disputeID, actor, func(d *dispute.Dispute, now time.Time) error {
		return d.Escalate(now)
	})
}

func (u *disputeUseCaseImpl) adminTransition(
	ctx context.Context,
	disputeID uuid.UUID,
	actor booking.Actor,
	apply func(d *dispute.Dispute, now time.Time) error,
) error {
	if !actor.IsAdmin() {
		return errs.ErrForbiddenActor
	}
	return u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		d, err := tx.Disputes().FindByIDForUpdate(ctx, disputeID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrDisputeNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if err := apply(d, u.clock.Now()); err != nil {
			return mapDisputeErr(err)
		}
		if err := tx.Disputes().Update(ctx, d); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		return nil
	})
}

// ResolveDispute closes a dispute and its booking in one decision. When the
// resolution includes a refund, the processor call happens before any local
// write: a failed refund leaves dispute and booking untouched, and the
// deterministic idempotency key makes the retried call safe.
func (u *disputeUseCaseImpl) ResolveDispute(
	ctx context.Context,
	disputeID uuid.UUID,
	req reqdto.ResolveDisputeRequest,
	actor booking.Actor,
) error {
	if !actor.IsAdmin() {
		return errs.ErrForbiddenActor
	}

	action, err := req.ResolutionAction()
	if err != nil {
		return errs.Mark(err, errs.ErrDomainValidation)
	}
	if action == dispute.ActionRefund && req.RefundAmountCents == nil {
		return errs.Mark(errs.New("refund resolution requires refund_amount_cents"), errs.ErrDomainValidation)
	}

	var (
		bookingID  uuid.UUID
		fullRefund bool
	)

	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		d, err := tx.Disputes().FindByIDForUpdate(ctx, disputeID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrDisputeNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if !d.IsOpen() {
			return errs.Mark(dispute.ErrAlreadyResolved, errs.ErrForbiddenTransition)
		}
		bookingID = d.BookingID()

		if action == dispute.ActionRefund {
			tr, err := tx.Payments().FindTransactionByBookingID(ctx, bookingID)
			if err != nil {
				if infra.IsKind(err, infra.KindNotFound) {
					return errs.Mark(err, errs.ErrPaymentNotFound)
				}
				return errs.Mark(err, errs.ErrDatabaseOperationFailed)
			}
			if *req.RefundAmountCents <= 0 || *req.RefundAmountCents > tr.TotalCents {
				return errs.Mark(errs.Newf("refund amount %d out of range", *req.RefundAmountCents), errs.ErrDomainValidation)
			}
			fullRefund = *req.RefundAmountCents == tr.TotalCents
		}
		return nil
	})
	if err != nil {
		return err
	}

	if action == dispute.ActionRefund {
		if _, err := u.refunds.ProcessRefund(ctx, bookingID, req.RefundAmountCents, payment.RefundDisputeResolution, actor); err != nil {
			return err
		}
	}

	return u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := u.clock.Now()

		d, err := tx.Disputes().FindByIDForUpdate(ctx, disputeID)
		if err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if !d.IsOpen() {
			// A concurrent or retried resolution already landed.
			return nil
		}
		if err := d.Resolve(actor.ID, action, req.CompensationCents, now); err != nil {
			return mapDisputeErr(err)
		}
		if err := tx.Disputes().Update(ctx, d); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		b, err := tx.Bookings().FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		outcome := booking.StatusCompleted
		if fullRefund {
			outcome = booking.StatusCancelled
		}
		from := b.Status()
		if err := b.ResolveDispute(actor, outcome, now); err != nil {
			return mapDomainErr(err)
		}
		if err := tx.Bookings().Update(ctx, b); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		id := actor.ID
		if err := tx.Bookings().AppendEvent(ctx, b.ID(), from, b.Status(), &id, now); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		return createBookingNotification(ctx, tx, bookingID, "dispute_resolved", now)
	})
}

func mapDisputeErr(err error) error {
	var fte *dispute.ForbiddenTransitionError
	switch {
	case errors.Is(err, dispute.ErrForbiddenAuthor):
		return errs.Mark(err, errs.ErrForbiddenActor)
	case errors.Is(err, dispute.ErrAlreadyResolved), errors.As(err, &fte):
		return errs.Mark(err, errs.ErrForbiddenTransition)
	default:
		return errs.Mark(err, errs.ErrDomainValidation)
	}
}
