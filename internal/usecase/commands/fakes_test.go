//go:build unit

package commands_test

import (
	"context"
	"time"

	"rentloop/internal/domain/booking"
	"rentloop/internal/domain/dispute"
	"rentloop/internal/domain/listing"
	"rentloop/internal/domain/payment"
	"rentloop/internal/infra"
	"rentloop/internal/infra/db"
	"rentloop/internal/usecase/commands"
	"rentloop/internal/usecase/queries"
	"rentloop/internal/usecase/shared"

	"github.com/google/uuid"
)

func notFoundErr(msg string) error {
	return infra.WrapRepoErr(msg, nil, infra.KindNotFound)
}

type bookingEvent struct {
	BookingID uuid.UUID
	From      booking.Status
	To        booking.Status
	ActorID   *uuid.UUID
}

type payoutUpdate struct {
	AccountRef     string
	ChargesEnabled bool
	PayoutsEnabled bool
}

// fakeStore is the shared in-memory state behind every fake repository.
type fakeStore struct {
	bookings      map[uuid.UUID]*booking.Booking
	listings      map[uuid.UUID]*listing.Listing
	events        []bookingEvent
	notifications []string

	intents       map[uuid.UUID]*payment.Intent
	transactions  map[uuid.UUID]payment.TransactionRecord
	adjustments   []payment.RefundAdjustment
	webhookEvents map[string]bool
	reconciled    []uuid.UUID
	payoutUpdates []payoutUpdate

	disputes map[uuid.UUID]*dispute.Dispute
	messages []dispute.Message

	idempotency map[uuid.UUID]*shared.IdempotencyRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bookings:      map[uuid.UUID]*booking.Booking{},
		listings:      map[uuid.UUID]*listing.Listing{},
		intents:       map[uuid.UUID]*payment.Intent{},
		transactions:  map[uuid.UUID]payment.TransactionRecord{},
		webhookEvents: map[string]bool{},
		disputes:      map[uuid.UUID]*dispute.Dispute{},
		idempotency:   map[uuid.UUID]*shared.IdempotencyRecord{},
	}
}

type fakeUoW struct {
	store *fakeStore
}

func (u *fakeUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return fn(ctx, &fakeTx{store: u.store})
}

func (u *fakeUoW) WithDB(ctx context.Context, fn func(ctx context.Context, dbtx db.DBTX) error) error {
	return fn(ctx, nil)
}

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) Bookings() shared.BookingRepository           { return &fakeBookingRepo{t.store} }
func (t *fakeTx) Listings() shared.ListingRepository           { return &fakeListingRepo{t.store} }
func (t *fakeTx) Payments() shared.PaymentRepository           { return &fakePaymentRepo{t.store} }
func (t *fakeTx) Disputes() shared.DisputeRepository           { return &fakeDisputeRepo{t.store} }
func (t *fakeTx) Idempotency() shared.IdempotencyRepository    { return &fakeIdempotencyRepo{t.store} }
func (t *fakeTx) Notifications() shared.NotificationRepository { return &fakeNotificationRepo{t.store} }
func (t *fakeTx) DB() db.DBTX                                  { return nil }

type fakeBookingRepo struct {
	s *fakeStore
}

func (r *fakeBookingRepo) Create(_ context.Context, b *booking.Booking) error {
	r.s.bookings[b.ID()] = b
	return nil
}

func (r *fakeBookingRepo) Update(_ context.Context, b *booking.Booking) error {
	r.s.bookings[b.ID()] = b
	return nil
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, notFoundErr("booking not found")
	}
	return b, nil
}

func (r *fakeBookingRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeBookingRepo) FindOverlapping(_ context.Context, listingID uuid.UUID, dr booking.DateRange, excludeID *uuid.UUID) ([]shared.BookingRef, error) {
	var refs []shared.BookingRef
	for _, b := range r.s.bookings {
		if b.ListingID() != listingID || !b.OccupiesCalendar() {
			continue
		}
		if excludeID != nil && b.ID() == *excludeID {
			continue
		}
		if dr.Overlaps(b.DateRange()) {
			refs = append(refs, shared.BookingRef{
				ID:     b.ID(),
				Start:  b.DateRange().Start(),
				End:    b.DateRange().End(),
				Status: b.Status().String(),
			})
		}
	}
	return refs, nil
}

func (r *fakeBookingRepo) AppendEvent(_ context.Context, bookingID uuid.UUID, from, to booking.Status, actorID *uuid.UUID, _ time.Time) error {
	r.s.events = append(r.s.events, bookingEvent{BookingID: bookingID, From: from, To: to, ActorID: actorID})
	return nil
}

type fakeListingRepo struct {
	s *fakeStore
}

func (r *fakeListingRepo) FindByID(_ context.Context, id uuid.UUID) (*listing.Listing, error) {
	l, ok := r.s.listings[id]
	if !ok {
		return nil, notFoundErr("listing not found")
	}
	return l, nil
}

func (r *fakeListingRepo) LockByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeListingRepo) UpdatePayoutAccount(_ context.Context, accountRef string, chargesEnabled, payoutsEnabled bool) error {
	r.s.payoutUpdates = append(r.s.payoutUpdates, payoutUpdate{accountRef, chargesEnabled, payoutsEnabled})
	return nil
}

type fakePaymentRepo struct {
	s *fakeStore
}

func (r *fakePaymentRepo) CreateIntent(_ context.Context, in *payment.Intent) error {
	r.s.intents[in.ID()] = in
	return nil
}

func (r *fakePaymentRepo) DeleteStaleIntents(_ context.Context, bookingID uuid.UUID) error {
	for id, in := range r.s.intents {
		if in.BookingID() == bookingID && in.Status() == payment.IntentCreated {
			delete(r.s.intents, id)
		}
	}
	return nil
}

func (r *fakePaymentRepo) FindIntentByProcessorRef(_ context.Context, ref string) (*payment.Intent, error) {
	for _, in := range r.s.intents {
		if in.ProcessorRef() == ref {
			return in, nil
		}
	}
	return nil, notFoundErr("intent not found")
}

func (r *fakePaymentRepo) FindIntentByBookingID(_ context.Context, bookingID uuid.UUID) (*payment.Intent, error) {
	for _, in := range r.s.intents {
		if in.BookingID() == bookingID {
			return in, nil
		}
	}
	return nil, notFoundErr("intent not found")
}

func (r *fakePaymentRepo) UpdateIntentStatusIfNotSucceeded(_ context.Context, id uuid.UUID, status payment.IntentStatus, at time.Time) (bool, error) {
	in, ok := r.s.intents[id]
	if !ok {
		return false, notFoundErr("intent not found")
	}
	if in.Status() == payment.IntentSucceeded {
		return false, nil
	}
	if status == payment.IntentSucceeded {
		in.MarkSucceeded(at)
	} else {
		in.MarkFailed(at)
	}
	return true, nil
}

func (r *fakePaymentRepo) FlagIntentForReconciliation(_ context.Context, id uuid.UUID, at time.Time) error {
	if in, ok := r.s.intents[id]; ok {
		in.FlagForReconciliation(at)
	}
	r.s.reconciled = append(r.s.reconciled, id)
	return nil
}

func (r *fakePaymentRepo) CreateTransaction(_ context.Context, tr payment.TransactionRecord) error {
	r.s.transactions[tr.BookingID] = tr
	return nil
}

func (r *fakePaymentRepo) FindTransactionByBookingID(_ context.Context, bookingID uuid.UUID) (payment.TransactionRecord, error) {
	tr, ok := r.s.transactions[bookingID]
	if !ok {
		return payment.TransactionRecord{}, notFoundErr("transaction not found")
	}
	return tr, nil
}

func (r *fakePaymentRepo) CreateRefundAdjustment(_ context.Context, adj payment.RefundAdjustment) error {
	r.s.adjustments = append(r.s.adjustments, adj)
	return nil
}

func (r *fakePaymentRepo) InsertWebhookEvent(_ context.Context, eventID, _ string, _ time.Time) (bool, error) {
	if r.s.webhookEvents[eventID] {
		return false, nil
	}
	r.s.webhookEvents[eventID] = true
	return true, nil
}

type fakeDisputeRepo struct {
	s *fakeStore
}

func (r *fakeDisputeRepo) Create(_ context.Context, d *dispute.Dispute) error {
	r.s.disputes[d.ID()] = d
	return nil
}

func (r *fakeDisputeRepo) Update(_ context.Context, d *dispute.Dispute) error {
	r.s.disputes[d.ID()] = d
	return nil
}

func (r *fakeDisputeRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*dispute.Dispute, error) {
	d, ok := r.s.disputes[id]
	if !ok {
		return nil, notFoundErr("dispute not found")
	}
	return d, nil
}

func (r *fakeDisputeRepo) HasOpenDispute(_ context.Context, bookingID uuid.UUID) (bool, error) {
	for _, d := range r.s.disputes {
		if d.BookingID() == bookingID && d.IsOpen() {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeDisputeRepo) AddMessage(_ context.Context, m dispute.Message) error {
	r.s.messages = append(r.s.messages, m)
	return nil
}

type fakeIdempotencyRepo struct {
	s *fakeStore
}

func (r *fakeIdempotencyRepo) TryInsert(_ context.Context, key, userID uuid.UUID, _, requestHash string, expiresAt time.Time) error {
	if _, ok := r.s.idempotency[key]; ok {
		return nil
	}
	r.s.idempotency[key] = &shared.IdempotencyRecord{
		Key:         key,
		UserID:      userID,
		Status:      "processing",
		RequestHash: requestHash,
		ExpiresAt:   expiresAt,
	}
	return nil
}

func (r *fakeIdempotencyRepo) Get(_ context.Context, key, _ uuid.UUID) (*shared.IdempotencyRecord, error) {
	rec, ok := r.s.idempotency[key]
	if !ok {
		return nil, notFoundErr("idempotency key not found")
	}
	return rec, nil
}

func (r *fakeIdempotencyRepo) UpdateStatusCompleted(_ context.Context, key, _ uuid.UUID, _ string, bookingID uuid.UUID) error {
	rec := r.s.idempotency[key]
	rec.Status = "completed"
	id := bookingID
	rec.ResultBookingID = &id
	return nil
}

type fakeNotificationRepo struct {
	s *fakeStore
}

func (r *fakeNotificationRepo) CreateJob(_ context.Context, _, topic string, _ []byte, _ time.Time) error {
	r.s.notifications = append(r.s.notifications, topic)
	return nil
}

// fakeBookingQueries serves reads straight from the in-memory bookings.
type fakeBookingQueries struct {
	s *fakeStore
}

func (q *fakeBookingQueries) GetByID(ctx context.Context, id, _ uuid.UUID, _ bool) (*queries.BookingView, error) {
	return q.GetByIDSystem(ctx, id)
}

func (q *fakeBookingQueries) GetByIDSystem(_ context.Context, id uuid.UUID) (*queries.BookingView, error) {
	b, ok := q.s.bookings[id]
	if !ok {
		return nil, notFoundErr("booking not found")
	}
	return &queries.BookingView{
		ID:             b.ID(),
		ListingID:      b.ListingID(),
		RenterID:       b.RenterID(),
		OwnerID:        b.OwnerID(),
		StartDate:      b.DateRange().Start(),
		EndDate:        b.DateRange().End(),
		Status:         b.Status().String(),
		SubtotalCents:  b.Breakdown().SubtotalCents,
		TotalCents:     b.Breakdown().TotalCents,
		DeliveryMethod: b.Delivery().String(),
		InsuranceTier:  b.Insurance().String(),
	}, nil
}

func (q *fakeBookingQueries) ListForUser(_ context.Context, _ uuid.UUID) ([]*queries.BookingListItem, error) {
	return nil, nil
}

func (q *fakeBookingQueries) CheckAvailability(_ context.Context, _ uuid.UUID, _, _ time.Time, _ *uuid.UUID) (*queries.AvailabilityView, error) {
	return &queries.AvailabilityView{Available: true}, nil
}

type fakeGateway struct {
	charges []commands.ChargeRequest
	refunds []commands.RefundRequest

	chargeErr error
	refundErr error
}

func (g *fakeGateway) CreateDestinationCharge(_ context.Context, req commands.ChargeRequest) (*commands.ChargeIntent, error) {
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	g.charges = append(g.charges, req)
	return &commands.ChargeIntent{
		ProcessorRef: "pi_" + req.BookingID.String()[:8],
		ClientSecret: "pi_secret_test",
		Status:       "requires_payment_method",
	}, nil
}

func (g *fakeGateway) RetrieveIntent(_ context.Context, ref string) (*commands.ChargeIntent, error) {
	return &commands.ChargeIntent{ProcessorRef: ref, Status: "requires_payment_method"}, nil
}

func (g *fakeGateway) CreateRefund(_ context.Context, req commands.RefundRequest) (*commands.RefundResult, error) {
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refunds = append(g.refunds, req)
	return &commands.RefundResult{RefundRef: "re_test", Status: "succeeded"}, nil
}
