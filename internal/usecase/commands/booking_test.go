//go:build unit

package commands_test

import (
	"context"
	"testing"
	"time"

	"rentloop/internal/domain/booking"
	"rentloop/internal/domain/listing"
	"rentloop/internal/domain/pricing"
	"rentloop/internal/domain/user"
	reqdto "rentloop/internal/handler/dto/request"
	"rentloop/internal/pkg/clock"
	"rentloop/internal/pkg/errs"
	"rentloop/internal/usecase/commands"
	"rentloop/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	store   *fakeStore
	gateway *fakeGateway
	clk     *clock.MockClock

	renter booking.Actor
	owner  booking.Actor
	admin  booking.Actor

	bookings commands.BookingCommands
	payments commands.PaymentCommands
	disputes commands.DisputeCommands
}

func newEnv() *env {
	store := newFakeStore()
	gateway := &fakeGateway{}
	clk := clock.NewMockClock(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	uow := &fakeUoW{store: store}
	calc := pricing.NewCalculator(pricing.ConfigFromTierFees(0.10, 0.10, 0.029, 30, 1500, 500, 1200))

	payments := commands.NewPaymentUseCase(uow, gateway, calc, "usd", clk)
	return &env{
		store:    store,
		gateway:  gateway,
		clk:      clk,
		renter:   booking.Actor{ID: uuid.New(), Role: user.RoleRenter},
		owner:    booking.Actor{ID: uuid.New(), Role: user.RoleOwner},
		admin:    booking.Actor{ID: uuid.New(), Role: user.RoleAdmin},
		bookings: commands.NewBookingUseCase(uow, calc, &fakeBookingQueries{s: store}, clk),
		payments: payments,
		disputes: commands.NewDisputeUseCase(uow, payments, clk),
	}
}

func (e *env) addListing(t *testing.T, instantBook, payoutsEnabled bool) *listing.Listing {
	t.Helper()
	lst := listing.ReconstructListing(
		uuid.New(), e.owner.ID,
		5000, nil, nil, 0,
		instantBook,
		listing.PayoutAccount{AccountRef: "acct_test", ChargesEnabled: payoutsEnabled, PayoutsEnabled: payoutsEnabled},
		e.clk.Now(), e.clk.Now(),
	)
	e.store.listings[lst.ID()] = lst
	return lst
}

func (e *env) addBooking(t *testing.T, lst *listing.Listing, status booking.Status) *booking.Booking {
	t.Helper()
	dr, err := booking.NewDateRange(
		time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 13, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	b := booking.NewBooking(
		lst.ID(), e.renter.ID, e.owner.ID, dr,
		pricing.Breakdown{SubtotalCents: 15000, ServiceFeeCents: 1500, TotalCents: 16500},
		pricing.DeliveryPickup, pricing.InsuranceNone,
		false, e.clk.Now(),
	)
	now := e.clk.Now()
	switch status {
	case booking.StatusPending:
	case booking.StatusConfirmed:
		require.NoError(t, b.Approve(e.owner, now))
	case booking.StatusActive:
		require.NoError(t, b.Approve(e.owner, now))
		require.NoError(t, b.CheckOut(e.renter, true, now))
	case booking.StatusCompleted:
		require.NoError(t, b.Approve(e.owner, now))
		require.NoError(t, b.CheckOut(e.renter, true, now))
		require.NoError(t, b.Complete(e.renter, true, now))
	case booking.StatusDisputed:
		require.NoError(t, b.Approve(e.owner, now))
		require.NoError(t, b.CheckOut(e.renter, true, now))
		require.NoError(t, b.MarkDisputed(now))
	case booking.StatusRejected:
		require.NoError(t, b.Reject(e.owner, now))
	case booking.StatusCancelled:
		require.NoError(t, b.Cancel(e.renter, now))
	default:
		t.Fatalf("unsupported seed status %q", status)
	}
	e.store.bookings[b.ID()] = b
	return b
}

func createRequest(listingID uuid.UUID) reqdto.CreateBookingRequest {
	return reqdto.CreateBookingRequest{
		ListingID:      listingID,
		StartDate:      time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 5, 13, 0, 0, 0, 0, time.UTC),
		DeliveryMethod: "pickup",
		InsuranceTier:  "none",
	}
}

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a priced pending booking", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)

		result, err := e.bookings.CreateBooking(ctx, createRequest(lst.ID()), e.renter.ID, uuid.New())
		require.NoError(t, err)
		require.NotNil(t, result.Booking)

		assert.False(t, result.IsReplayed)
		assert.Equal(t, "pending", result.Booking.Status)
		assert.Equal(t, int64(15000), result.Booking.SubtotalCents)
		assert.Equal(t, int64(16500), result.Booking.TotalCents)
		assert.Equal(t, []string{"booking_created"}, e.store.notifications)

		require.Len(t, e.store.events, 1)
		assert.Equal(t, booking.StatusPending, e.store.events[0].To)
	})

	t.Run("instant book listings confirm immediately", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, true, true)

		result, err := e.bookings.CreateBooking(ctx, createRequest(lst.ID()), e.renter.ID, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, "confirmed", result.Booking.Status)
	})

	t.Run("owner cannot book own listing", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)

		_, err := e.bookings.CreateBooking(ctx, createRequest(lst.ID()), e.owner.ID, uuid.New())
		assert.True(t, errs.Is(err, errs.ErrForbiddenActor))
	})

	t.Run("overlapping dates are rejected with the conflicts", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		existing := e.addBooking(t, lst, booking.StatusConfirmed)

		secondRenter := uuid.New()
		req := createRequest(lst.ID())
		req.StartDate = time.Date(2026, 5, 12, 0, 0, 0, 0, time.UTC)
		req.EndDate = time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC)

		_, err := e.bookings.CreateBooking(ctx, req, secondRenter, uuid.New())
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.ErrBookingConflict))

		var conflictErr *commands.ConflictError
		require.ErrorAs(t, err, &conflictErr)
		require.Len(t, conflictErr.Conflicts, 1)
		assert.Equal(t, existing.ID(), conflictErr.Conflicts[0].ID)
	})

	t.Run("back to back dates do not conflict", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		e.addBooking(t, lst, booking.StatusConfirmed)

		req := createRequest(lst.ID())
		req.StartDate = time.Date(2026, 5, 13, 0, 0, 0, 0, time.UTC)
		req.EndDate = time.Date(2026, 5, 16, 0, 0, 0, 0, time.UTC)

		_, err := e.bookings.CreateBooking(ctx, req, uuid.New(), uuid.New())
		require.NoError(t, err)
	})

	t.Run("cancelled bookings free the calendar", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		e.addBooking(t, lst, booking.StatusCancelled)

		_, err := e.bookings.CreateBooking(ctx, createRequest(lst.ID()), uuid.New(), uuid.New())
		require.NoError(t, err)
	})

	t.Run("unknown listing", func(t *testing.T) {
		e := newEnv()
		_, err := e.bookings.CreateBooking(ctx, createRequest(uuid.New()), e.renter.ID, uuid.New())
		assert.True(t, errs.Is(err, errs.ErrListingNotFound))
	})
}

func TestCreateBookingIdempotency(t *testing.T) {
	ctx := context.Background()

	t.Run("retry with the same key replays the stored result", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		key := uuid.New()
		req := createRequest(lst.ID())

		first, err := e.bookings.CreateBooking(ctx, req, e.renter.ID, key)
		require.NoError(t, err)
		require.False(t, first.IsReplayed)

		second, err := e.bookings.CreateBooking(ctx, req, e.renter.ID, key)
		require.NoError(t, err)
		assert.True(t, second.IsReplayed)
		assert.Equal(t, first.Booking.ID, second.Booking.ID)

		// No second booking, event, or notification was written.
		assert.Len(t, e.store.bookings, 1)
		assert.Len(t, e.store.events, 1)
		assert.Len(t, e.store.notifications, 1)
	})

	t.Run("same key with a different body is rejected", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		key := uuid.New()

		// Simulate a concurrent first request still in flight.
		e.store.idempotency[key] = &shared.IdempotencyRecord{
			Key:         key,
			UserID:      e.renter.ID,
			Status:      "processing",
			RequestHash: "different-hash",
		}

		_, err := e.bookings.CreateBooking(ctx, createRequest(lst.ID()), e.renter.ID, key)
		assert.True(t, errs.Is(err, errs.ErrDuplicateBooking))
	})
}

func TestBookingTransitionCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("approve persists status, audit event, and notification", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusPending)

		require.NoError(t, e.bookings.ApproveBooking(ctx, b.ID(), e.owner))
		assert.Equal(t, booking.StatusConfirmed, e.store.bookings[b.ID()].Status())

		require.Len(t, e.store.events, 1)
		assert.Equal(t, booking.StatusPending, e.store.events[0].From)
		assert.Equal(t, booking.StatusConfirmed, e.store.events[0].To)
		require.NotNil(t, e.store.events[0].ActorID)
		assert.Equal(t, e.owner.ID, *e.store.events[0].ActorID)

		assert.Equal(t, []string{"booking_confirmed"}, e.store.notifications)
	})

	t.Run("renter cannot approve", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusPending)

		err := e.bookings.ApproveBooking(ctx, b.ID(), e.renter)
		assert.True(t, errs.Is(err, errs.ErrForbiddenActor))
		assert.Equal(t, booking.StatusPending, e.store.bookings[b.ID()].Status())
	})

	t.Run("checkout and complete carry verification flags", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusConfirmed)

		require.NoError(t, e.bookings.CheckOutBooking(ctx, b.ID(), e.renter, true))
		assert.Equal(t, booking.StatusActive, e.store.bookings[b.ID()].Status())
		assert.True(t, e.store.bookings[b.ID()].PickupVerified())

		require.NoError(t, e.bookings.CompleteBooking(ctx, b.ID(), e.owner, false))
		assert.Equal(t, booking.StatusCompleted, e.store.bookings[b.ID()].Status())
		assert.False(t, e.store.bookings[b.ID()].ReturnVerified())
	})

	t.Run("illegal transition surfaces as such", func(t *testing.T) {
		e := newEnv()
		lst := e.addListing(t, false, true)
		b := e.addBooking(t, lst, booking.StatusPending)

		err := e.bookings.CheckOutBooking(ctx, b.ID(), e.renter, true)
		assert.True(t, errs.Is(err, errs.ErrForbiddenTransition))
	})

	t.Run("unknown booking", func(t *testing.T) {
		e := newEnv()
		err := e.bookings.CancelBooking(ctx, uuid.New(), e.renter)
		assert.True(t, errs.Is(err, errs.ErrBookingNotFound))
	})
}
