package readstore

import (
	"context"
	"time"

	"rentloop/internal/infra"
	"rentloop/internal/infra/db"
	"rentloop/internal/pkg/pgconv"
	"rentloop/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type BookingReadStore struct {
	db db.DBTX
}

func NewBookingReadStore(dbtx db.DBTX) *BookingReadStore {
	return &BookingReadStore{db: dbtx}
}

const getBookingViewSQL = `
SELECT id, listing_id, renter_id, owner_id, start_date, end_date, status,
	subtotal_cents, service_fee_cents, delivery_fee_cents, insurance_fee_cents,
	total_cents, security_deposit_cents, delivery_method, insurance_tier,
	pickup_verified, return_verified, created_at, confirmed_at, checked_out_at,
	completed_at, cancelled_at
FROM bookings
WHERE id = $1`

func (r *BookingReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.BookingView, error) {
	var (
		v                                                   queries.BookingView
		startDate, endDate                                  pgtype.Date
		confirmedAt, checkedOutAt, completedAt, cancelledAt pgtype.Timestamptz
	)

	err := r.db.QueryRow(ctx, getBookingViewSQL, id).Scan(
		&v.ID, &v.ListingID, &v.RenterID, &v.OwnerID, &startDate, &endDate, &v.Status,
		&v.SubtotalCents, &v.ServiceFeeCents, &v.DeliveryFeeCents, &v.InsuranceFeeCents,
		&v.TotalCents, &v.SecurityDepositCents, &v.DeliveryMethod, &v.InsuranceTier,
		&v.PickupVerified, &v.ReturnVerified, &v.CreatedAt, &confirmedAt, &checkedOutAt,
		&completedAt, &cancelledAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("booking not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find booking view", err)
	}

	v.StartDate = startDate.Time
	v.EndDate = endDate.Time
	v.ConfirmedAt = pgconv.TimePtrFromPgtype(confirmedAt)
	v.CheckedOutAt = pgconv.TimePtrFromPgtype(checkedOutAt)
	v.CompletedAt = pgconv.TimePtrFromPgtype(completedAt)
	v.CancelledAt = pgconv.TimePtrFromPgtype(cancelledAt)
	return &v, nil
}

const listBookingsByUserSQL = `
SELECT id, listing_id, start_date, end_date, status, total_cents, created_at
FROM bookings
WHERE renter_id = $1 OR owner_id = $1
ORDER BY created_at DESC, id DESC`

func (r *BookingReadStore) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*queries.BookingListItem, error) {
	rows, err := r.db.Query(ctx, listBookingsByUserSQL, userID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list bookings for user", err)
	}
	defer rows.Close()

	var items []*queries.BookingListItem
	for rows.Next() {
		var (
			item               queries.BookingListItem
			startDate, endDate pgtype.Date
		)
		if err := rows.Scan(&item.ID, &item.ListingID, &startDate, &endDate, &item.Status, &item.TotalCents, &item.CreatedAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan booking list item", err)
		}
		item.StartDate = startDate.Time
		item.EndDate = endDate.Time
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read booking list", err)
	}

	return items, nil
}

const findConflictsSQL = `
SELECT id, start_date, end_date, status
FROM bookings
WHERE listing_id = $1
  AND status IN ('pending','confirmed','active')
  AND start_date < $3
  AND $2 < end_date
  AND ($4::uuid IS NULL OR id <> $4)
ORDER BY start_date`

// FindConflicts answers the read-only availability question. The writing path
// repeats the same check inside its transaction; this one serves lookups.
func (r *BookingReadStore) FindConflicts(ctx context.Context, listingID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]queries.ConflictView, error) {
	rows, err := r.db.Query(ctx, findConflictsSQL,
		listingID, pgconv.DateToPgtype(start), pgconv.DateToPgtype(end),
		pgconv.UUIDPtrToPgtype(excludeID),
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to query conflicts", err)
	}
	defer rows.Close()

	var conflicts []queries.ConflictView
	for rows.Next() {
		var (
			c          queries.ConflictView
			start, end pgtype.Date
		)
		if err := rows.Scan(&c.BookingID, &start, &end, &c.Status); err != nil {
			return nil, infra.WrapRepoErr("failed to scan conflict", err)
		}
		c.StartDate = start.Time
		c.EndDate = end.Time
		conflicts = append(conflicts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read conflicts", err)
	}

	return conflicts, nil
}
