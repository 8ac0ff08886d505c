package repository

import (
	"context"
	"time"

	"rentloop/internal/domain/booking"
	"rentloop/internal/domain/pricing"
	"rentloop/internal/infra"
	"rentloop/internal/infra/db"
	"rentloop/internal/pkg/pgconv"
	"rentloop/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type BookingRepository struct {
	db db.DBTX
}

func NewBookingRepository(dbtx db.DBTX) *BookingRepository {
	return &BookingRepository{db: dbtx}
}

const createBookingSQL = `
INSERT INTO bookings (
	id, listing_id, renter_id, owner_id, start_date, end_date, status,
	subtotal_cents, service_fee_cents, delivery_fee_cents, insurance_fee_cents,
	total_cents, security_deposit_cents, delivery_method, insurance_tier,
	pickup_verified, return_verified, created_at, confirmed_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`

func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	bd := b.Breakdown()
	_, err := r.db.Exec(ctx, createBookingSQL,
		b.ID(), b.ListingID(), b.RenterID(), b.OwnerID(),
		pgconv.DateToPgtype(b.DateRange().Start()), pgconv.DateToPgtype(b.DateRange().End()),
		b.Status().String(),
		bd.SubtotalCents, bd.ServiceFeeCents, bd.DeliveryFeeCents, bd.InsuranceFeeCents,
		bd.TotalCents, bd.SecurityDepositCents,
		b.Delivery().String(), b.Insurance().String(),
		b.PickupVerified(), b.ReturnVerified(),
		b.CreatedAt(), pgconv.TimePtrToPgtype(b.ConfirmedAt()), b.UpdatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create booking", err, kindForPgError(err))
	}
	return nil
}

const updateBookingSQL = `
UPDATE bookings SET
	status = $2, pickup_verified = $3, return_verified = $4,
	confirmed_at = $5, checked_out_at = $6, completed_at = $7, cancelled_at = $8,
	updated_at = $9
WHERE id = $1`

func (r *BookingRepository) Update(ctx context.Context, b *booking.Booking) error {
	tag, err := r.db.Exec(ctx, updateBookingSQL,
		b.ID(), b.Status().String(), b.PickupVerified(), b.ReturnVerified(),
		pgconv.TimePtrToPgtype(b.ConfirmedAt()), pgconv.TimePtrToPgtype(b.CheckedOutAt()),
		pgconv.TimePtrToPgtype(b.CompletedAt()), pgconv.TimePtrToPgtype(b.CancelledAt()),
		b.UpdatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update booking", err, kindForPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("booking not found on update", nil, infra.KindNotFound)
	}
	return nil
}

const findBookingSQL = `
SELECT id, listing_id, renter_id, owner_id, start_date, end_date, status,
	subtotal_cents, service_fee_cents, delivery_fee_cents, insurance_fee_cents,
	total_cents, security_deposit_cents, delivery_method, insurance_tier,
	pickup_verified, return_verified, created_at, confirmed_at, checked_out_at,
	completed_at, cancelled_at, updated_at
FROM bookings
WHERE id = $1`

func (r *BookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return r.scanBooking(ctx, findBookingSQL, id)
}

func (r *BookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return r.scanBooking(ctx, findBookingSQL+" FOR UPDATE", id)
}

func (r *BookingRepository) scanBooking(ctx context.Context, sql string, id uuid.UUID) (*booking.Booking, error) {
	var (
		bID, listingID, renterID, ownerID                   uuid.UUID
		startDate, endDate                                  pgtype.Date
		status, deliveryMethod, insuranceTier               string
		bd                                                  pricing.Breakdown
		pickupVerified, returnVerified                      bool
		createdAt, updatedAt                                time.Time
		confirmedAt, checkedOutAt, completedAt, cancelledAt pgtype.Timestamptz
	)

	err := r.db.QueryRow(ctx, sql, id).Scan(
		&bID, &listingID, &renterID, &ownerID, &startDate, &endDate, &status,
		&bd.SubtotalCents, &bd.ServiceFeeCents, &bd.DeliveryFeeCents, &bd.InsuranceFeeCents,
		&bd.TotalCents, &bd.SecurityDepositCents, &deliveryMethod, &insuranceTier,
		&pickupVerified, &returnVerified, &createdAt, &confirmedAt, &checkedOutAt,
		&completedAt, &cancelledAt, &updatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("booking not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find booking", err)
	}

	dateRange, err := booking.NewDateRange(startDate.Time, endDate.Time)
	if err != nil {
		return nil, infra.WrapRepoErr("stored booking has invalid date range", err)
	}

	return booking.ReconstructBooking(
		bID, listingID, renterID, ownerID,
		dateRange,
		booking.Status(status),
		bd,
		pricing.DeliveryMethod(deliveryMethod),
		pricing.InsuranceTier(insuranceTier),
		pickupVerified, returnVerified,
		createdAt,
		pgconv.TimePtrFromPgtype(confirmedAt),
		pgconv.TimePtrFromPgtype(checkedOutAt),
		pgconv.TimePtrFromPgtype(completedAt),
		pgconv.TimePtrFromPgtype(cancelledAt),
		updatedAt,
	), nil
}

// Overlap test on the half-open interval: [s1,e1) and [s2,e2) conflict iff
// s1 < e2 AND s2 < e1. Only calendar-occupying statuses count.
const findOverlappingSQL = `
SELECT id, start_date, end_date, status
FROM bookings
WHERE listing_id = $1
  AND status = ANY($2)
  AND start_date < $4
  AND $3 < end_date
  AND ($5::uuid IS NULL OR id <> $5)
ORDER BY start_date`

func (r *BookingRepository) FindOverlapping(ctx context.Context, listingID uuid.UUID, dr booking.DateRange, excludeID *uuid.UUID) ([]shared.BookingRef, error) {
	statuses := make([]string, 0, len(booking.ActiveStatuses()))
	for _, s := range booking.ActiveStatuses() {
		statuses = append(statuses, s.String())
	}

	rows, err := r.db.Query(ctx, findOverlappingSQL,
		listingID, statuses,
		pgconv.DateToPgtype(dr.Start()), pgconv.DateToPgtype(dr.End()),
		pgconv.UUIDPtrToPgtype(excludeID),
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query overlapping bookings", err)
	}
	defer rows.Close()

	var refs []shared.BookingRef
	for rows.Next() {
		var (
			ref        shared.BookingRef
			start, end pgtype.Date
		)
		if err := rows.Scan(&ref.ID, &start, &end, &ref.Status); err != nil {
			return nil, infra.WrapRepoErr("failed to scan overlapping booking", err)
		}
		ref.Start = start.Time
		ref.End = end.Time
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read overlapping bookings", err)
	}

	return refs, nil
}

const appendEventSQL = `
INSERT INTO booking_events (id, booking_id, from_status, to_status, actor_id, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6)`

func (r *BookingRepository) AppendEvent(ctx context.Context, bookingID uuid.UUID, from, to booking.Status, actorID *uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(ctx, appendEventSQL,
		uuid.New(), bookingID, from.String(), to.String(),
		pgconv.UUIDPtrToPgtype(actorID), at,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to append booking event", err, kindForPgError(err))
	}
	return nil
}
