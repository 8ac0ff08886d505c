//go:build unit

package commands_test

import (
	"context"
	"testing"

	"rentloop/internal/domain/booking"
	"rentloop/internal/domain/payment"
	"rentloop/internal/pkg/errs"
	"rentloop/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *env) seedIntent(t *testing.T, bookingID uuid.UUID, amountCents int64) *payment.Intent {
	t.Helper()
	in, err := payment.NewIntent(bookingID, "pi_seeded_"+bookingID.String()[:8], amountCents, e.clk.Now())
	require.NoError(t, err)
	e.store.intents[in.ID()] = in
	return in
}

func (e *env) seedTransaction(t *testing.T, b *booking.Booking, totalCents int64) payment.TransactionRecord {
	t.Helper()
	tr := payment.NewTransactionRecord(
		b.ID(), b.RenterID(), b.OwnerID(),
		b.Breakdown().SubtotalCents,
		1650, 509, totalCents-1650-509, totalCents,
		e.clk.Now(),
	)
	e.store.transactions[b.ID()] = tr
	return tr
}

func TestCreatePaymentIntent(t *testing.T) {
	ctx := context.Background()

	t.Run("charges the total to the owner's connected account", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusPending)

		result, err := e.payments.CreatePaymentIntent(ctx, b.ID(), e.renter)
		require.NoError(t, err)

		assert.Equal(t, int64(16500), result.AmountCents)
		assert.NotEmpty(t, result.ProcessorRef)
		assert.NotEmpty(t, result.ClientSecret)

		require.Len(t, e.gateway.charges, 1)
		charge := e.gateway.charges[0]
		assert.Equal(t, int64(16500), charge.AmountCents)
		assert.Equal(t, "usd", charge.Currency)
		assert.Equal(t, "acct_test", charge.DestinationRef)
		assert.Equal(t, int64(1650), charge.PlatformFeeCents)
		assert.Equal(t, "booking-intent-"+b.ID().String(), charge.IdempotencyKey)

		require.Len(t, e.store.intents, 1)
		for _, in := range e.store.intents {
			assert.Equal(t, b.ID(), in.BookingID())
			assert.Equal(t, payment.IntentCreated, in.Status())
		}
	})

	t.Run("only the renter may pay", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusPending)

		_, err := e.payments.CreatePaymentIntent(ctx, b.ID(), e.owner)
		assert.True(t, errs.Is(err, errs.ErrForbiddenActor))
		assert.Empty(t, e.gateway.charges)
	})

	t.Run("requires a pending booking", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusConfirmed)

		_, err := e.payments.CreatePaymentIntent(ctx, b.ID(), e.renter)
		assert.True(t, errs.Is(err, errs.ErrForbiddenTransition))
	})

	t.Run("requires an enabled payout account", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, false)
		b := e.addBooking(t, lst, booking.StatusPending)

		_, err := e.payments.CreatePaymentIntent(ctx, b.ID(), e.renter)
		assert.True(t, errs.Is(err, errs.ErrPayoutsNotEnabled))
		assert.Empty(t, e.gateway.charges)
	})

	t.Run("a retried create supersedes the stale intent", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusPending)
		stale := e.seedIntent(t, b.ID(), 16500)

		_, err := e.payments.CreatePaymentIntent(ctx, b.ID(), e.renter)
		require.NoError(t, err)

		assert.Len(t, e.store.intents, 1)
		_, exists := e.store.intents[stale.ID()]
		assert.False(t, exists)
	})
}

func TestHandleWebhookEvent(t *testing.T) {
	ctx := context.Background()

	succeededEvent := func(in *payment.Intent) commands.WebhookEvent {
		return commands.WebhookEvent{
			EventID:      "evt_" + uuid.NewString()[:8],
			Type:         "payment_intent.succeeded",
			ProcessorRef: in.ProcessorRef(),
		}
	}

	t.Run("payment success confirms the booking and writes the ledger entry", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusPending)
		in := e.seedIntent(t, b.ID(), 16500)

		require.NoError(t, e.payments.HandleWebhookEvent(ctx, succeededEvent(in)))

		assert.Equal(t, booking.StatusConfirmed, e.store.bookings[b.ID()].Status())
		assert.Equal(t, payment.IntentSucceeded, in.Status())

		tr, ok := e.store.transactions[b.ID()]
		require.True(t, ok)
		assert.Equal(t, int64(16500), tr.TotalCents)
		assert.Equal(t, int64(1650), tr.PlatformFeeCents)
		assert.Equal(t, int64(509), tr.ProcessorFeeCents)
		assert.Equal(t, int64(14341), tr.OwnerPayoutCents)
		assert.Equal(t, e.renter.ID, tr.PayerID)
		assert.Equal(t, e.owner.ID, tr.PayeeID)

		assert.Equal(t, []string{"booking_confirmed"}, e.store.notifications)
	})

	t.Run("redelivered event id is skipped", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusPending)
		in := e.seedIntent(t, b.ID(), 16500)

		ev := succeededEvent(in)
		require.NoError(t, e.payments.HandleWebhookEvent(ctx, ev))
		require.NoError(t, e.payments.HandleWebhookEvent(ctx, ev))

		assert.Len(t, e.store.transactions, 1)
		assert.Len(t, e.store.notifications, 1)
	})

	t.Run("fresh event id for an already succeeded intent changes nothing", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusPending)
		in := e.seedIntent(t, b.ID(), 16500)

		require.NoError(t, e.payments.HandleWebhookEvent(ctx, succeededEvent(in)))
		require.NoError(t, e.payments.HandleWebhookEvent(ctx, succeededEvent(in)))

		assert.Len(t, e.store.transactions, 1)
		assert.Len(t, e.store.notifications, 1)
	})

	t.Run("success for a cancelled booking is flagged, not resurrected", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusCancelled)
		in := e.seedIntent(t, b.ID(), 16500)

		require.NoError(t, e.payments.HandleWebhookEvent(ctx, succeededEvent(in)))

		assert.Equal(t, booking.StatusCancelled, e.store.bookings[b.ID()].Status())
		assert.True(t, in.NeedsReconciliation())
		assert.Empty(t, e.store.transactions)
		assert.Empty(t, e.store.notifications)
	})

	t.Run("success for a rejected booking is flagged, not resurrected", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusRejected)
		in := e.seedIntent(t, b.ID(), 16500)

		require.NoError(t, e.payments.HandleWebhookEvent(ctx, succeededEvent(in)))

		assert.Equal(t, booking.StatusRejected, e.store.bookings[b.ID()].Status())
		assert.True(t, in.NeedsReconciliation())
		assert.Empty(t, e.store.transactions)
		assert.Empty(t, e.store.notifications)
	})

	t.Run("late success for an active booking only writes the ledger entry", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusActive)
		in := e.seedIntent(t, b.ID(), 16500)

		require.NoError(t, e.payments.HandleWebhookEvent(ctx, succeededEvent(in)))

		assert.Equal(t, booking.StatusActive, e.store.bookings[b.ID()].Status())
		assert.Equal(t, payment.IntentSucceeded, in.Status())
		assert.False(t, in.NeedsReconciliation())

		tr, ok := e.store.transactions[b.ID()]
		require.True(t, ok)
		assert.Equal(t, int64(16500), tr.TotalCents)
		assert.Empty(t, e.store.events)
		assert.Empty(t, e.store.notifications)
	})

	t.Run("payment failure leaves the booking pending for a retry", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusPending)
		in := e.seedIntent(t, b.ID(), 16500)

		ev := commands.WebhookEvent{
			EventID:      "evt_fail_1",
			Type:         "payment_intent.payment_failed",
			ProcessorRef: in.ProcessorRef(),
		}
		require.NoError(t, e.payments.HandleWebhookEvent(ctx, ev))

		assert.Equal(t, booking.StatusPending, e.store.bookings[b.ID()].Status())
		assert.Equal(t, payment.IntentFailed, in.Status())
	})

	t.Run("success for an unknown intent is acknowledged", func(t *testing.T) {
		e := newEnv()
		ev := commands.WebhookEvent{
			EventID:      "evt_unknown",
			Type:         "payment_intent.succeeded",
			ProcessorRef: "pi_unknown",
		}
		require.NoError(t, e.payments.HandleWebhookEvent(ctx, ev))
	})

	t.Run("account update mirrors the payout flags", func(t *testing.T) {
		e := newEnv()
		ev := commands.WebhookEvent{
			EventID:        "evt_acct_1",
			Type:           "account.updated",
			AccountRef:     "acct_test",
			ChargesEnabled: true,
			PayoutsEnabled: true,
		}
		require.NoError(t, e.payments.HandleWebhookEvent(ctx, ev))

		require.Len(t, e.store.payoutUpdates, 1)
		assert.Equal(t, payoutUpdate{"acct_test", true, true}, e.store.payoutUpdates[0])
	})

	t.Run("unrelated event types are ignored", func(t *testing.T) {
		e := newEnv()
		ev := commands.WebhookEvent{EventID: "evt_other", Type: "charge.updated"}
		require.NoError(t, e.payments.HandleWebhookEvent(ctx, ev))
	})
}

func TestProcessRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("full refund of a confirmed booking also cancels it", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusConfirmed)
		e.seedTransaction(t, b, 16500)
		in := e.seedIntent(t, b.ID(), 16500)

		outcome, err := e.payments.ProcessRefund(ctx, b.ID(), nil, payment.RefundRequestedByRenter, e.renter)
		require.NoError(t, err)

		assert.Equal(t, int64(16500), outcome.AmountCents)
		assert.True(t, outcome.BookingCancelled)
		assert.Equal(t, booking.StatusCancelled, e.store.bookings[b.ID()].Status())

		require.Len(t, e.gateway.refunds, 1)
		refund := e.gateway.refunds[0]
		assert.Equal(t, in.ProcessorRef(), refund.ProcessorRef)
		assert.Equal(t, "refund-requested_by_renter-"+b.ID().String(), refund.IdempotencyKey)

		require.Len(t, e.store.adjustments, 1)
		assert.Equal(t, int64(16500), e.store.adjustments[0].AmountCents)
		assert.Contains(t, e.store.notifications, "refund_issued")
	})

	t.Run("partial refund leaves the booking alone", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusCompleted)
		e.seedTransaction(t, b, 16500)
		e.seedIntent(t, b.ID(), 16500)

		amount := int64(4000)
		outcome, err := e.payments.ProcessRefund(ctx, b.ID(), &amount, payment.RefundRequestedByRenter, e.renter)
		require.NoError(t, err)

		assert.Equal(t, int64(4000), outcome.AmountCents)
		assert.False(t, outcome.BookingCancelled)
		assert.Equal(t, booking.StatusCompleted, e.store.bookings[b.ID()].Status())
	})

	t.Run("outsiders may not request refunds", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusConfirmed)
		e.seedTransaction(t, b, 16500)
		e.seedIntent(t, b.ID(), 16500)

		outsider := booking.Actor{ID: uuid.New()}
		_, err := e.payments.ProcessRefund(ctx, b.ID(), nil, payment.RefundRequestedByRenter, outsider)
		assert.True(t, errs.Is(err, errs.ErrForbiddenActor))
		assert.Empty(t, e.gateway.refunds)
	})

	t.Run("pending bookings have nothing to refund", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusPending)

		_, err := e.payments.ProcessRefund(ctx, b.ID(), nil, payment.RefundRequestedByRenter, e.renter)
		assert.True(t, errs.Is(err, errs.ErrRefundNotPermitted))
	})

	t.Run("disputed bookings only refund through dispute resolution", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusDisputed)
		e.seedTransaction(t, b, 16500)
		e.seedIntent(t, b.ID(), 16500)

		_, err := e.payments.ProcessRefund(ctx, b.ID(), nil, payment.RefundRequestedByRenter, e.renter)
		assert.True(t, errs.Is(err, errs.ErrRefundNotPermitted))

		amount := int64(4000)
		_, err = e.payments.ProcessRefund(ctx, b.ID(), &amount, payment.RefundDisputeResolution, e.admin)
		require.NoError(t, err)
	})

	t.Run("missing transaction", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusConfirmed)

		_, err := e.payments.ProcessRefund(ctx, b.ID(), nil, payment.RefundRequestedByRenter, e.renter)
		assert.True(t, errs.Is(err, errs.ErrPaymentNotFound))
	})
}
