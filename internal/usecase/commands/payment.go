package commands

import (
	"context"
	"log/slog"
	"time"

	"rentloop/internal/domain/booking"
	"rentloop/internal/domain/payment"
	"rentloop/internal/domain/pricing"
	"rentloop/internal/infra"
	"rentloop/internal/pkg/clock"
	"rentloop/internal/pkg/errs"
	"rentloop/internal/usecase/shared"

	"github.com/google/uuid"
)

const (
	eventPaymentSucceeded = "payment_intent.succeeded"
	eventPaymentFailed    = "payment_intent.payment_failed"
	eventAccountUpdated   = "account.updated"
)

type PaymentIntentResult struct {
	IntentID     uuid.UUID
	ProcessorRef string
	ClientSecret string
	AmountCents  int64
}

// WebhookEvent is the boundary-validated shape of a processor event. The
// handler verifies the signature before anything here runs.
type WebhookEvent struct {
	EventID      string
	Type         string
	ProcessorRef string

	AccountRef     string
	ChargesEnabled bool
	PayoutsEnabled bool
}

type RefundOutcome struct {
	RefundRef        string
	AmountCents      int64
	BookingCancelled bool
}

type PaymentCommands interface {
	CreatePaymentIntent(ctx context.Context, bookingID uuid.UUID, actor booking.Actor) (*PaymentIntentResult, error)
	HandleWebhookEvent(ctx context.Context, ev WebhookEvent) error
	// ProcessRefund refunds part or all of a captured payment. A full refund
	// of a not-yet-started rental cancels the booking.
	ProcessRefund(ctx context.Context, bookingID uuid.UUID, amountCents *int64, reason payment.RefundReason, actor booking.Actor) (*RefundOutcome, error)
}

type paymentUseCaseImpl struct {
	uow        shared.UnitOfWork
	gateway    PaymentGateway
	calculator *pricing.Calculator
	currency   string
	clock      clock.Clock
}

func NewPaymentUseCase(
	uow shared.UnitOfWork,
	gateway PaymentGateway,
	calculator *pricing.Calculator,
	currency string,
	clk clock.Clock,
) PaymentCommands {
	return &paymentUseCaseImpl{
		uow:        uow,
		gateway:    gateway,
		calculator: calculator,
		currency:   currency,
		clock:      clk,
	}
}

func (u *paymentUseCaseImpl) CreatePaymentIntent(
	ctx context.Context,
	bookingID uuid.UUID,
	actor booking.Actor,
) (*PaymentIntentResult, error) {
	var (
		totalCents     int64
		destinationRef string
		platformFee    int64
	)

	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := tx.Bookings().FindByID(ctx, bookingID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrBookingNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if actor.ID != b.RenterID() {
			return errs.ErrForbiddenActor
		}
		if b.Status() != booking.StatusPending {
			return errs.Mark(errs.Newf("booking %s is %s, payment requires pending", b.ID(), b.Status()), errs.ErrForbiddenTransition)
		}

		lst, err := tx.Listings().FindByID(ctx, b.ListingID())
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrListingNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if !lst.CanReceivePayments() {
			return errs.ErrPayoutsNotEnabled
		}

		totalCents = b.Breakdown().TotalCents
		destinationRef = lst.PayoutAccount().AccountRef
		platformFee = u.calculator.ComputeSplit(totalCents).PlatformFeeCents
		return nil
	})
	if err != nil {
		return nil, err
	}

	// External call runs outside the DB transaction. The deterministic key
	// makes a retried request return the same processor intent.
	intent, err := u.gateway.CreateDestinationCharge(ctx, ChargeRequest{
		BookingID:        bookingID,
		AmountCents:      totalCents,
		Currency:         u.currency,
		DestinationRef:   destinationRef,
		PlatformFeeCents: platformFee,
		IdempotencyKey:   "booking-intent-" + bookingID.String(),
	})
	if err != nil {
		return nil, err
	}

	now := u.clock.Now()
	entity, err := payment.NewIntent(bookingID, intent.ProcessorRef, totalCents, now)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDomainValidation)
	}

	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		// A retried create supersedes earlier unfinalized attempts.
		if err := tx.Payments().DeleteStaleIntents(ctx, bookingID); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if err := tx.Payments().CreateIntent(ctx, entity); err != nil {
			if infra.IsKind(err, infra.KindDuplicateKey) {
				return nil
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &PaymentIntentResult{
		IntentID:     entity.ID(),
		ProcessorRef: intent.ProcessorRef,
		ClientSecret: intent.ClientSecret,
		AmountCents:  totalCents,
	}, nil
}

// HandleWebhookEvent applies one processor event. Redelivered events are
// detected twice over: by the event-id dedup insert and by the conditional
// status update.
func (u *paymentUseCaseImpl) HandleWebhookEvent(ctx context.Context, ev WebhookEvent) error {
	return u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := u.clock.Now()

		fresh, err := tx.Payments().InsertWebhookEvent(ctx, ev.EventID, ev.Type, now)
		if err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if !fresh {
			slog.Info("skipping already processed webhook event", "event_id", ev.EventID, "type", ev.Type)
			return nil
		}

		switch ev.Type {
		case eventPaymentSucceeded:
			return u.applyPaymentSucceeded(ctx, tx, ev.ProcessorRef, now)
		case eventPaymentFailed:
			return u.applyPaymentFailed(ctx, tx, ev.ProcessorRef, now)
		case eventAccountUpdated:
			if err := tx.Listings().UpdatePayoutAccount(ctx, ev.AccountRef, ev.ChargesEnabled, ev.PayoutsEnabled); err != nil {
				return errs.Mark(err, errs.ErrDatabaseOperationFailed)
			}
			return nil
		default:
			slog.Debug("ignoring webhook event type", "type", ev.Type)
			return nil
		}
	})
}

func (u *paymentUseCaseImpl) applyPaymentSucceeded(ctx context.Context, tx shared.Tx, processorRef string, now time.Time) error {
	intent, err := tx.Payments().FindIntentByProcessorRef(ctx, processorRef)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			slog.Warn("success webhook for unknown payment intent", "processor_ref", processorRef)
			return nil
		}
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	changed, err := tx.Payments().UpdateIntentStatusIfNotSucceeded(ctx, intent.ID(), payment.IntentSucceeded, now)
	if err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if !changed {
		return nil
	}

	b, err := tx.Bookings().FindByIDForUpdate(ctx, intent.BookingID())
	if err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	// A payment landing after the booking left the payable states must not
	// drive a state transition. Cancelled, rejected and disputed bookings get
	// the money flagged for a human to reconcile; a booking that already
	// started gets its ledger entry and nothing else.
	switch b.Status() {
	case booking.StatusCancelled, booking.StatusRejected, booking.StatusDisputed:
		slog.Warn("payment succeeded for non-payable booking, flagging for reconciliation",
			"booking_id", b.ID(), "status", b.Status(), "processor_ref", processorRef)
		if err := tx.Payments().FlagIntentForReconciliation(ctx, intent.ID(), now); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		return nil
	case booking.StatusActive, booking.StatusCompleted:
		return u.recordTransaction(ctx, tx, b, intent, now)
	}

	from := b.Status()
	if err := b.ConfirmPayment(now); err != nil {
		return mapDomainErr(err)
	}
	if b.Status() != from {
		if err := tx.Bookings().Update(ctx, b); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if err := tx.Bookings().AppendEvent(ctx, b.ID(), from, b.Status(), nil, now); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
	}

	if err := u.recordTransaction(ctx, tx, b, intent, now); err != nil {
		return err
	}

	return createBookingNotification(ctx, tx, b.ID(), "booking_confirmed", now)
}

func (u *paymentUseCaseImpl) recordTransaction(ctx context.Context, tx shared.Tx, b *booking.Booking, intent *payment.Intent, now time.Time) error {
	split := u.calculator.ComputeSplit(intent.AmountCents())
	tr := payment.NewTransactionRecord(
		b.ID(), b.RenterID(), b.OwnerID(),
		b.Breakdown().SubtotalCents,
		split.PlatformFeeCents,
		split.ProcessorFeeCents,
		split.OwnerPayoutCents,
		intent.AmountCents(),
		now,
	)
	if err := tx.Payments().CreateTransaction(ctx, tr); err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return nil
}

func (u *paymentUseCaseImpl) applyPaymentFailed(ctx context.Context, tx shared.Tx, processorRef string, now time.Time) error {
	intent, err := tx.Payments().FindIntentByProcessorRef(ctx, processorRef)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			slog.Warn("failure webhook for unknown payment intent", "processor_ref", processorRef)
			return nil
		}
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	// Conditional write keeps an out-of-order failure from clobbering a
	// success that already landed. The booking stays pending for a retry.
	if _, err := tx.Payments().UpdateIntentStatusIfNotSucceeded(ctx, intent.ID(), payment.IntentFailed, now); err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return nil
}

func (u *paymentUseCaseImpl) ProcessRefund(
	ctx context.Context,
	bookingID uuid.UUID,
	amountCents *int64,
	reason payment.RefundReason,
	actor booking.Actor,
) (*RefundOutcome, error) {
	var (
		tr           payment.TransactionRecord
		processorRef string
		amount       int64
		cancels      bool
	)

	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := tx.Bookings().FindByID(ctx, bookingID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrBookingNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if !actor.IsAdmin() && actor.ID != b.RenterID() && actor.ID != b.OwnerID() {
			return errs.ErrForbiddenActor
		}
		switch b.Status() {
		case booking.StatusConfirmed, booking.StatusActive, booking.StatusCompleted:
		case booking.StatusDisputed:
			// Only the dispute workflow may refund a disputed booking.
			if reason != payment.RefundDisputeResolution {
				return errs.Mark(errs.Newf("booking %s is %s", b.ID(), b.Status()), errs.ErrRefundNotPermitted)
			}
		default:
			return errs.Mark(errs.Newf("booking %s is %s", b.ID(), b.Status()), errs.ErrRefundNotPermitted)
		}

		tr, err = tx.Payments().FindTransactionByBookingID(ctx, bookingID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrPaymentNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		intent, err := tx.Payments().FindIntentByBookingID(ctx, bookingID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, errs.ErrPaymentNotFound)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		processorRef = intent.ProcessorRef()

		amount = tr.TotalCents
		if amountCents != nil {
			amount = *amountCents
		}
		// A full refund before the rental starts also cancels the booking.
		cancels = amount == tr.TotalCents && b.Status() == booking.StatusConfirmed
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Refund first, local writes after. If the local transaction fails the
	// idempotency key makes a retried refund call a no-op at the processor.
	refund, err := u.gateway.CreateRefund(ctx, RefundRequest{
		ProcessorRef:   processorRef,
		AmountCents:    amount,
		Reason:         reason.String(),
		IdempotencyKey: "refund-" + reason.String() + "-" + bookingID.String(),
	})
	if err != nil {
		return nil, err
	}

	outcome := &RefundOutcome{RefundRef: refund.RefundRef, AmountCents: amount}

	err = u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := u.clock.Now()

		adj, err := payment.NewRefundAdjustment(tr, amount, reason, now)
		if err != nil {
			return errs.Mark(err, errs.ErrDomainValidation)
		}
		if err := tx.Payments().CreateRefundAdjustment(ctx, adj); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		if cancels {
			b, err := tx.Bookings().FindByIDForUpdate(ctx, bookingID)
			if err != nil {
				return errs.Mark(err, errs.ErrDatabaseOperationFailed)
			}
			from := b.Status()
			if err := b.Cancel(booking.SystemActor(), now); err != nil {
				return mapDomainErr(err)
			}
			if err := tx.Bookings().Update(ctx, b); err != nil {
				return errs.Mark(err, errs.ErrDatabaseOperationFailed)
			}
			if err := tx.Bookings().AppendEvent(ctx, b.ID(), from, b.Status(), nil, now); err != nil {
				return errs.Mark(err, errs.ErrDatabaseOperationFailed)
			}
			outcome.BookingCancelled = true
		}

		return createBookingNotification(ctx, tx, bookingID, "refund_issued", now)
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}
