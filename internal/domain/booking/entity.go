package booking

import (
	"errors"
	"fmt"
	"time"

	"rentloop/internal/domain/pricing"

	"github.com/google/uuid"
)

var (
	ErrForbiddenTransition = errors.New("forbidden booking transition")
	ErrForbiddenActor      = errors.New("actor may not perform this transition")
)

// ForbiddenTransitionError names the illegal edge so the boundary can report it.
type ForbiddenTransitionError struct {
	From Status
	To   Status
}

func (e *ForbiddenTransitionError) Error() string {
	return fmt.Sprintf("forbidden booking transition from %q to %q", e.From, e.To)
}

func (e *ForbiddenTransitionError) Unwrap() error {
	return ErrForbiddenTransition
}

type Booking struct {
	id             uuid.UUID
	listingID      uuid.UUID
	renterID       uuid.UUID
	ownerID        uuid.UUID
	dateRange      DateRange
	status         Status
	breakdown      pricing.Breakdown
	delivery       pricing.DeliveryMethod
	insurance      pricing.InsuranceTier
	pickupVerified bool
	returnVerified bool
	createdAt      time.Time
	confirmedAt    *time.Time
	checkedOutAt   *time.Time
	completedAt    *time.Time
	cancelledAt    *time.Time
	updatedAt      time.Time
}

// NewBooking starts a booking in pending, or confirmed immediately when the
// listing allows instant booking.
func NewBooking(
	listingID, renterID, ownerID uuid.UUID,
	dateRange DateRange,
	breakdown pricing.Breakdown,
	delivery pricing.DeliveryMethod,
	insurance pricing.InsuranceTier,
	instantBook bool,
	now time.Time,
) *Booking {
	b := &Booking{
		id:        uuid.New(),
		listingID: listingID,
		renterID:  renterID,
		ownerID:   ownerID,
		dateRange: dateRange,
		status:    StatusPending,
		breakdown: breakdown,
		delivery:  delivery,
		insurance: insurance,
		createdAt: now,
		updatedAt: now,
	}
	if instantBook {
		b.status = StatusConfirmed
		t := now
		b.confirmedAt = &t
	}
	return b
}

func ReconstructBooking(
	id, listingID, renterID, ownerID uuid.UUID,
	dateRange DateRange,
	status Status,
	breakdown pricing.Breakdown,
	delivery pricing.DeliveryMethod,
	insurance pricing.InsuranceTier,
	pickupVerified, returnVerified bool,
	createdAt time.Time,
	confirmedAt, checkedOutAt, completedAt, cancelledAt *time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:             id,
		listingID:      listingID,
		renterID:       renterID,
		ownerID:        ownerID,
		dateRange:      dateRange,
		status:         status,
		breakdown:      breakdown,
		delivery:       delivery,
		insurance:      insurance,
		pickupVerified: pickupVerified,
		returnVerified: returnVerified,
		createdAt:      createdAt,
		confirmedAt:    confirmedAt,
		checkedOutAt:   checkedOutAt,
		completedAt:    completedAt,
		cancelledAt:    cancelledAt,
		updatedAt:      updatedAt,
	}
}

func (b *Booking) transition(to Status, now time.Time) error {
	if !CanTransition(b.status, to) {
		return &ForbiddenTransitionError{From: b.status, To: to}
	}
	b.status = to
	b.updatedAt = now
	return nil
}

func (b *Booking) isParty(actor Actor) bool {
	return actor.ID == b.renterID || actor.ID == b.ownerID
}

// Approve moves pending to confirmed. Only the listing owner may approve.
func (b *Booking) Approve(actor Actor, now time.Time) error {
	if actor.ID != b.ownerID {
		return ErrForbiddenActor
	}
	if err := b.transition(StatusConfirmed, now); err != nil {
		return err
	}
	b.confirmedAt = &now
	return nil
}

// Reject moves pending to rejected. Only the listing owner may reject.
func (b *Booking) Reject(actor Actor, now time.Time) error {
	if actor.ID != b.ownerID {
		return ErrForbiddenActor
	}
	return b.transition(StatusRejected, now)
}

// Cancel is allowed to either party while the booking is pending or confirmed.
func (b *Booking) Cancel(actor Actor, now time.Time) error {
	if !b.isParty(actor) && !actor.IsAdmin() && !actor.System {
		return ErrForbiddenActor
	}
	if b.status != StatusPending && b.status != StatusConfirmed {
		return &ForbiddenTransitionError{From: b.status, To: StatusCancelled}
	}
	if err := b.transition(StatusCancelled, now); err != nil {
		return err
	}
	b.cancelledAt = &now
	return nil
}

// CheckOut records the pickup and moves confirmed to active.
func (b *Booking) CheckOut(actor Actor, verified bool, now time.Time) error {
	if !b.isParty(actor) {
		return ErrForbiddenActor
	}
	if err := b.transition(StatusActive, now); err != nil {
		return err
	}
	b.checkedOutAt = &now
	b.pickupVerified = verified
	return nil
}

// Complete records the return and moves active to completed.
func (b *Booking) Complete(actor Actor, verified bool, now time.Time) error {
	if !b.isParty(actor) {
		return ErrForbiddenActor
	}
	if err := b.transition(StatusCompleted, now); err != nil {
		return err
	}
	b.completedAt = &now
	b.returnVerified = verified
	return nil
}

// ConfirmPayment advances pending to confirmed on payment success. A booking
// already confirmed is left untouched so webhook redelivery is harmless.
func (b *Booking) ConfirmPayment(now time.Time) error {
	if b.status == StatusConfirmed {
		return nil
	}
	if err := b.transition(StatusConfirmed, now); err != nil {
		return err
	}
	b.confirmedAt = &now
	return nil
}

// MarkDisputed is driven by dispute creation, from active or completed.
func (b *Booking) MarkDisputed(now time.Time) error {
	return b.transition(StatusDisputed, now)
}

// ResolveDispute closes a disputed booking as completed or cancelled.
// Only an admin actor may resolve.
func (b *Booking) ResolveDispute(actor Actor, outcome Status, now time.Time) error {
	if !actor.IsAdmin() {
		return ErrForbiddenActor
	}
	if outcome != StatusCompleted && outcome != StatusCancelled {
		return &ForbiddenTransitionError{From: b.status, To: outcome}
	}
	if err := b.transition(outcome, now); err != nil {
		return err
	}
	switch outcome {
	case StatusCompleted:
		b.completedAt = &now
	case StatusCancelled:
		b.cancelledAt = &now
	}
	return nil
}

// IsOverdue reports an active booking past its end date without a return.
func (b *Booking) IsOverdue(now time.Time) bool {
	return b.status == StatusActive && now.After(b.dateRange.End())
}

// CanOpenDispute requires an active, overdue, or completed booking.
func (b *Booking) CanOpenDispute() bool {
	return b.status == StatusActive || b.status == StatusCompleted
}

// OccupiesCalendar reports whether this booking blocks overlapping dates.
func (b *Booking) OccupiesCalendar() bool {
	for _, s := range ActiveStatuses() {
		if b.status == s {
			return true
		}
	}
	return false
}

func (b *Booking) ID() uuid.UUID                      { return b.id }
func (b *Booking) ListingID() uuid.UUID               { return b.listingID }
func (b *Booking) RenterID() uuid.UUID                { return b.renterID }
func (b *Booking) OwnerID() uuid.UUID                 { return b.ownerID }
func (b *Booking) DateRange() DateRange               { return b.dateRange }
func (b *Booking) Status() Status                     { return b.status }
func (b *Booking) Breakdown() pricing.Breakdown       { return b.breakdown }
func (b *Booking) Delivery() pricing.DeliveryMethod   { return b.delivery }
func (b *Booking) Insurance() pricing.InsuranceTier   { return b.insurance }
func (b *Booking) PickupVerified() bool               { return b.pickupVerified }
func (b *Booking) ReturnVerified() bool               { return b.returnVerified }
func (b *Booking) CreatedAt() time.Time               { return b.createdAt }
func (b *Booking) ConfirmedAt() *time.Time            { return b.confirmedAt }
func (b *Booking) CheckedOutAt() *time.Time           { return b.checkedOutAt }
func (b *Booking) CompletedAt() *time.Time            { return b.completedAt }
func (b *Booking) CancelledAt() *time.Time            { return b.cancelledAt }
func (b *Booking) UpdatedAt() time.Time               { return b.updatedAt }
