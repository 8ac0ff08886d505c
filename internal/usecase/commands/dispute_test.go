//go:build unit

package commands_test

import (
	"context"
	"testing"
	"time"

	"rentloop/internal/domain/booking"
	"rentloop/internal/domain/dispute"
	reqdto "rentloop/internal/handler/dto/request"
	"rentloop/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDisputeRequest(bookingID uuid.UUID) reqdto.OpenDisputeRequest {
	return reqdto.OpenDisputeRequest{
		BookingID:   bookingID,
		Type:        "damage",
		Description: "The drill came back with a cracked casing.",
	}
}

func TestOpenDispute(t *testing.T) {
	ctx := context.Background()

	t.Run("renter opens a dispute on an active booking", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusActive)

		disputeID, err := e.disputes.OpenDispute(ctx, openDisputeRequest(b.ID()), e.renter)
		require.NoError(t, err)

		d := e.store.disputes[disputeID]
		require.NotNil(t, d)
		assert.Equal(t, dispute.StatusOpen, d.Status())
		assert.Equal(t, e.renter.ID, d.ComplainantID())
		assert.Equal(t, e.owner.ID, d.RespondentID())
		assert.Equal(t, dispute.TypeDamage, d.Kind())

		assert.Equal(t, booking.StatusDisputed, e.store.bookings[b.ID()].Status())

		// The description seeds the message thread.
		require.Len(t, e.store.messages, 1)
		assert.Equal(t, e.renter.ID, e.store.messages[0].AuthorID)

		assert.Contains(t, e.store.notifications, "dispute_opened")
	})

	t.Run("owner opening flips the respondent", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusCompleted)

		disputeID, err := e.disputes.OpenDispute(ctx, openDisputeRequest(b.ID()), e.owner)
		require.NoError(t, err)

		d := e.store.disputes[disputeID]
		assert.Equal(t, e.owner.ID, d.ComplainantID())
		assert.Equal(t, e.renter.ID, d.RespondentID())
	})

	t.Run("outsiders may not open disputes", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusActive)

		_, err := e.disputes.OpenDispute(ctx, openDisputeRequest(b.ID()), booking.Actor{ID: uuid.New()})
		assert.True(t, errs.Is(err, errs.ErrForbiddenActor))
	})

	t.Run("pending bookings cannot be disputed", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusPending)

		_, err := e.disputes.OpenDispute(ctx, openDisputeRequest(b.ID()), e.renter)
		assert.True(t, errs.Is(err, errs.ErrForbiddenTransition))
	})

	t.Run("one open dispute per booking", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusActive)

		_, err := e.disputes.OpenDispute(ctx, openDisputeRequest(b.ID()), e.renter)
		require.NoError(t, err)

		_, err = e.disputes.OpenDispute(ctx, openDisputeRequest(b.ID()), e.owner)
		assert.True(t, errs.Is(err, errs.ErrDuplicateOpenDispute))
	})

	t.Run("invalid dispute type", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusActive)

		req := openDisputeRequest(b.ID())
		req.Type = "vibes"
		_, err := e.disputes.OpenDispute(ctx, req, e.renter)
		assert.True(t, errs.Is(err, errs.ErrDomainValidation))
	})
}

func TestAddDisputeMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("parties append to the thread", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusActive)
		disputeID, err := e.disputes.OpenDispute(ctx, openDisputeRequest(b.ID()), e.renter)
		require.NoError(t, err)

		msgID, err := e.disputes.AddDisputeMessage(ctx, disputeID, "I have photos from pickup.", e.owner)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, msgID)
		assert.Len(t, e.store.messages, 2)
	})

	t.Run("outsider messages are rejected", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusActive)
		disputeID, err := e.disputes.OpenDispute(ctx, openDisputeRequest(b.ID()), e.renter)
		require.NoError(t, err)

		_, err = e.disputes.AddDisputeMessage(ctx, disputeID, "hi", booking.Actor{ID: uuid.New()})
		assert.True(t, errs.Is(err, errs.ErrForbiddenActor))
	})

	t.Run("unknown dispute", func(t *testing.T) {
		e := newEnv()
		_, err := e.disputes.AddDisputeMessage(ctx, uuid.New(), "hello", e.renter)
		assert.True(t, errs.Is(err, errs.ErrDisputeNotFound))
	})
}

func TestDisputeReviewAndEscalate(t *testing.T) {
	ctx := context.Background()

	t.Run("admin walks the review ladder", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusActive)
		disputeID, err := e.disputes.OpenDispute(ctx, openDisputeRequest(b.ID()), e.renter)
		require.NoError(t, err)

		require.NoError(t, e.disputes.StartDisputeReview(ctx, disputeID, e.admin))
		assert.Equal(t, dispute.StatusUnderReview, e.store.disputes[disputeID].Status())

		require.NoError(t, e.disputes.EscalateDispute(ctx, disputeID, e.admin))
		assert.Equal(t, dispute.StatusEscalated, e.store.disputes[disputeID].Status())
	})

	t.Run("parties may not drive review", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusActive)
		disputeID, err := e.disputes.OpenDispute(ctx, openDisputeRequest(b.ID()), e.renter)
		require.NoError(t, err)

		assert.True(t, errs.Is(e.disputes.StartDisputeReview(ctx, disputeID, e.renter), errs.ErrForbiddenActor))
		assert.True(t, errs.Is(e.disputes.EscalateDispute(ctx, disputeID, e.owner), errs.ErrForbiddenActor))
	})
}

func TestResolveDispute(t *testing.T) {
	ctx := context.Background()

	openOn := func(t *testing.T, e *env, status booking.Status) (uuid.UUID, *booking.Booking) {
		t.Helper()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, status)
		e.seedTransaction(t, b, 16500)
		e.seedIntent(t, b.ID(), 16500)
		disputeID, err := e.disputes.OpenDispute(ctx, openDisputeRequest(b.ID()), e.renter)
		require.NoError(t, err)
		return disputeID, b
	}

	t.Run("partial refund resolution completes the booking", func(t *testing.T) {
		e := newEnv()
		disputeID, b := openOn(t, e, booking.StatusActive)

		amount := int64(4000)
		req := reqdto.ResolveDisputeRequest{Action: "refund", RefundAmountCents: &amount}
		require.NoError(t, e.disputes.ResolveDispute(ctx, disputeID, req, e.admin))

		d := e.store.disputes[disputeID]
		assert.Equal(t, dispute.StatusResolved, d.Status())
		require.NotNil(t, d.Resolution())
		assert.Equal(t, dispute.ActionRefund, d.Resolution().Action)
		assert.Equal(t, e.admin.ID, d.Resolution().ResolverID)

		assert.Equal(t, booking.StatusCompleted, e.store.bookings[b.ID()].Status())

		require.Len(t, e.gateway.refunds, 1)
		assert.Equal(t, int64(4000), e.gateway.refunds[0].AmountCents)
		assert.Equal(t, "dispute_resolution", e.gateway.refunds[0].Reason)
		require.Len(t, e.store.adjustments, 1)
		assert.Equal(t, int64(4000), e.store.adjustments[0].AmountCents)

		assert.Contains(t, e.store.notifications, "dispute_resolved")
	})

	t.Run("full refund resolution cancels the booking", func(t *testing.T) {
		e := newEnv()
		disputeID, b := openOn(t, e, booking.StatusActive)

		amount := int64(16500)
		req := reqdto.ResolveDisputeRequest{Action: "refund", RefundAmountCents: &amount}
		require.NoError(t, e.disputes.ResolveDispute(ctx, disputeID, req, e.admin))

		assert.Equal(t, booking.StatusCancelled, e.store.bookings[b.ID()].Status())
	})

	t.Run("a failed refund leaves the dispute and booking untouched", func(t *testing.T) {
		e := newEnv()
		disputeID, b := openOn(t, e, booking.StatusActive)
		e.gateway.refundErr = errs.New("processor unavailable")

		amount := int64(4000)
		req := reqdto.ResolveDisputeRequest{Action: "refund", RefundAmountCents: &amount}
		require.Error(t, e.disputes.ResolveDispute(ctx, disputeID, req, e.admin))

		d := e.store.disputes[disputeID]
		assert.Equal(t, dispute.StatusOpen, d.Status())
		assert.Nil(t, d.Resolution())
		assert.Equal(t, booking.StatusDisputed, e.store.bookings[b.ID()].Status())
		assert.Empty(t, e.store.adjustments)
		assert.NotContains(t, e.store.notifications, "dispute_resolved")
	})

	t.Run("no refund resolution touches no money", func(t *testing.T) {
		e := newEnv()
		disputeID, b := openOn(t, e, booking.StatusActive)

		req := reqdto.ResolveDisputeRequest{Action: "no_refund"}
		require.NoError(t, e.disputes.ResolveDispute(ctx, disputeID, req, e.admin))

		assert.Empty(t, e.gateway.refunds)
		assert.Empty(t, e.store.adjustments)
		assert.Equal(t, booking.StatusCompleted, e.store.bookings[b.ID()].Status())
	})

	t.Run("compensation is recorded on the resolution", func(t *testing.T) {
		e := newEnv()
		disputeID, _ := openOn(t, e, booking.StatusActive)

		compensation := int64(2500)
		req := reqdto.ResolveDisputeRequest{Action: "compensate_owner", CompensationCents: &compensation}
		require.NoError(t, e.disputes.ResolveDispute(ctx, disputeID, req, e.admin))

		res := e.store.disputes[disputeID].Resolution()
		require.NotNil(t, res)
		require.NotNil(t, res.CompensationCents)
		assert.Equal(t, int64(2500), *res.CompensationCents)
	})

	t.Run("admin only", func(t *testing.T) {
		e := newEnv()
		disputeID, _ := openOn(t, e, booking.StatusActive)

		req := reqdto.ResolveDisputeRequest{Action: "no_refund"}
		assert.True(t, errs.Is(e.disputes.ResolveDispute(ctx, disputeID, req, e.renter), errs.ErrForbiddenActor))
	})

	t.Run("refund resolution requires an amount", func(t *testing.T) {
		e := newEnv()
		disputeID, _ := openOn(t, e, booking.StatusActive)

		req := reqdto.ResolveDisputeRequest{Action: "refund"}
		assert.True(t, errs.Is(e.disputes.ResolveDispute(ctx, disputeID, req, e.admin), errs.ErrDomainValidation))
	})

	t.Run("refund amount must fit the transaction", func(t *testing.T) {
		e := newEnv()
		disputeID, _ := openOn(t, e, booking.StatusActive)

		amount := int64(99999)
		req := reqdto.ResolveDisputeRequest{Action: "refund", RefundAmountCents: &amount}
		assert.True(t, errs.Is(e.disputes.ResolveDispute(ctx, disputeID, req, e.admin), errs.ErrDomainValidation))
	})

	t.Run("double resolution is rejected", func(t *testing.T) {
		e := newEnv()
		disputeID, _ := openOn(t, e, booking.StatusActive)

		req := reqdto.ResolveDisputeRequest{Action: "no_refund"}
		require.NoError(t, e.disputes.ResolveDispute(ctx, disputeID, req, e.admin))
		assert.True(t, errs.Is(e.disputes.ResolveDispute(ctx, disputeID, req, e.admin), errs.ErrForbiddenTransition))
	})
}

func TestOverdueBookingDispute(t *testing.T) {
	ctx := context.Background()

	t.Run("overdue active booking stays disputable", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusActive)

		// Move the clock past the rental end date.
		e.clk.Set(b.DateRange().End().Add(48 * time.Hour))

		_, err := e.disputes.OpenDispute(ctx, openDisputeRequest(b.ID()), e.owner)
		require.NoError(t, err)
	})
}
