package shared

import (
	"context"
	"time"

	"rentloop/internal/domain/booking"
	"rentloop/internal/domain/dispute"
	"rentloop/internal/domain/listing"
	"rentloop/internal/domain/payment"
	"rentloop/internal/infra/db"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: Full transaction for write operations with retry on
	// serialization failures. The availability check and the booking write
	// always share one Within call.
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithDB: Single query operations using implicit transactions
	WithDB(ctx context.Context, fn func(ctx context.Context, dbtx db.DBTX) error) error
}

type Tx interface {
	Bookings() BookingRepository
	Listings() ListingRepository
	Payments() PaymentRepository
	Disputes() DisputeRepository
	Idempotency() IdempotencyRepository
	Notifications() NotificationRepository
	DB() db.DBTX
}

// BookingRef identifies a conflicting booking in an availability answer.
type BookingRef struct {
	ID     uuid.UUID
	Start  time.Time
	End    time.Time
	Status string
}

type BookingRepository interface {
	Create(ctx context.Context, b *booking.Booking) error
	// Update persists status, transition timestamps and verification flags.
	Update(ctx context.Context, b *booking.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	// FindByIDForUpdate row-locks the booking for transition writes.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	// FindOverlapping returns calendar-occupying bookings intersecting the
	// half-open range, optionally ignoring one booking id.
	FindOverlapping(ctx context.Context, listingID uuid.UUID, r booking.DateRange, excludeID *uuid.UUID) ([]BookingRef, error)
	// AppendEvent writes one audit row per status transition.
	AppendEvent(ctx context.Context, bookingID uuid.UUID, from, to booking.Status, actorID *uuid.UUID, at time.Time) error
}

type ListingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error)
	// LockByID serializes concurrent booking attempts on one listing.
	LockByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error)
	UpdatePayoutAccount(ctx context.Context, accountRef string, chargesEnabled, payoutsEnabled bool) error
}

type PaymentRepository interface {
	CreateIntent(ctx context.Context, in *payment.Intent) error
	// DeleteStaleIntents drops unfinalized attempts so the latest wins.
	DeleteStaleIntents(ctx context.Context, bookingID uuid.UUID) error
	FindIntentByProcessorRef(ctx context.Context, ref string) (*payment.Intent, error)
	FindIntentByBookingID(ctx context.Context, bookingID uuid.UUID) (*payment.Intent, error)
	// UpdateIntentStatusIfNotSucceeded conditionally writes the status and
	// reports whether a row changed, keeping webhook replays idempotent.
	UpdateIntentStatusIfNotSucceeded(ctx context.Context, id uuid.UUID, status payment.IntentStatus, at time.Time) (bool, error)
	FlagIntentForReconciliation(ctx context.Context, id uuid.UUID, at time.Time) error
	CreateTransaction(ctx context.Context, tr payment.TransactionRecord) error
	FindTransactionByBookingID(ctx context.Context, bookingID uuid.UUID) (payment.TransactionRecord, error)
	CreateRefundAdjustment(ctx context.Context, adj payment.RefundAdjustment) error
	// InsertWebhookEvent records a processor event id, reporting false when
	// the event was already processed.
	InsertWebhookEvent(ctx context.Context, eventID, eventType string, receivedAt time.Time) (bool, error)
}

type DisputeRepository interface {
	Create(ctx context.Context, d *dispute.Dispute) error
	Update(ctx context.Context, d *dispute.Dispute) error
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*dispute.Dispute, error)
	// HasOpenDispute enforces the one-non-terminal-dispute-per-booking invariant.
	HasOpenDispute(ctx context.Context, bookingID uuid.UUID) (bool, error)
	AddMessage(ctx context.Context, m dispute.Message) error
}

type IdempotencyRepository interface {
	TryInsert(ctx context.Context, key, userID uuid.UUID, endpoint, requestHash string, expiresAt time.Time) error
	Get(ctx context.Context, key, userID uuid.UUID) (*IdempotencyRecord, error)
	UpdateStatusCompleted(ctx context.Context, key, userID uuid.UUID, resultHash string, bookingID uuid.UUID) error
}

type IdempotencyRecord struct {
	Key             uuid.UUID
	UserID          uuid.UUID
	Status          string
	RequestHash     string
	ResultBookingID *uuid.UUID
	ExpiresAt       time.Time
}

type NotificationRepository interface {
	// CreateJob enqueues a fire-and-forget notification in the same
	// transaction as the state change it announces.
	CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error
}
