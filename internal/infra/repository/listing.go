package repository

import (
	"context"

	"rentloop/internal/domain/listing"
	"rentloop/internal/infra"
	"rentloop/internal/infra/db"
	"rentloop/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type ListingRepository struct {
	db db.DBTX
}

func NewListingRepository(dbtx db.DBTX) *ListingRepository {
	return &ListingRepository{db: dbtx}
}

const findListingSQL = `
SELECT id, owner_id, daily_rate_cents, weekly_rate_cents, monthly_rate_cents,
	security_deposit_cents, instant_book, payout_account_ref,
	charges_enabled, payouts_enabled, created_at, updated_at
FROM listings
WHERE id = $1`

func (r *ListingRepository) FindByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	return r.scanListing(ctx, findListingSQL, id)
}

// LockByID takes a row lock on the listing so concurrent booking attempts for
// the same listing serialize; the overlap check that follows then sees any
// committed neighbor.
func (r *ListingRepository) LockByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	return r.scanListing(ctx, findListingSQL+" FOR UPDATE", id)
}

func (r *ListingRepository) scanListing(ctx context.Context, sql string, id uuid.UUID) (*listing.Listing, error) {
	var (
		lID, ownerID                   uuid.UUID
		dailyRate, depositCents        int64
		weeklyRate, monthlyRate        pgtype.Int8
		instantBook                    bool
		accountRef                     pgtype.Text
		chargesEnabled, payoutsEnabled bool
		createdAt, updatedAt           pgtype.Timestamptz
	)

	err := r.db.QueryRow(ctx, sql, id).Scan(
		&lID, &ownerID, &dailyRate, &weeklyRate, &monthlyRate,
		&depositCents, &instantBook, &accountRef,
		&chargesEnabled, &payoutsEnabled, &createdAt, &updatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("listing not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find listing", err)
	}

	ref := ""
	if accountRef.Valid {
		ref = accountRef.String
	}

	return listing.ReconstructListing(
		lID, ownerID, dailyRate,
		pgconv.Int64PtrFromPgtype(weeklyRate), pgconv.Int64PtrFromPgtype(monthlyRate),
		depositCents, instantBook,
		listing.PayoutAccount{
			AccountRef:     ref,
			ChargesEnabled: chargesEnabled,
			PayoutsEnabled: payoutsEnabled,
		},
		pgconv.TimeFromPgtype(createdAt), pgconv.TimeFromPgtype(updatedAt),
	), nil
}

const updatePayoutAccountSQL = `
UPDATE listings SET charges_enabled = $2, payouts_enabled = $3, updated_at = now()
WHERE payout_account_ref = $1`

func (r *ListingRepository) UpdatePayoutAccount(ctx context.Context, accountRef string, chargesEnabled, payoutsEnabled bool) error {
	_, err := r.db.Exec(ctx, updatePayoutAccountSQL, accountRef, chargesEnabled, payoutsEnabled)
	if err != nil {
		return infra.WrapRepoErr("failed to update payout account flags", err)
	}
	return nil
}
