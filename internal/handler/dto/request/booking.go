package request

import (
	"time"

	"rentloop/internal/domain/booking"
	"rentloop/internal/domain/pricing"
	"rentloop/internal/pkg/errs"

	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	ListingID      uuid.UUID `json:"listing_id" binding:"required"`
	StartDate      time.Time `json:"start_date" binding:"required"`
	EndDate        time.Time `json:"end_date" binding:"required"`
	DeliveryMethod string    `json:"delivery_method" binding:"required"`
	InsuranceTier  string    `json:"insurance_tier" binding:"required"`
}

type BookingTerms struct {
	DateRange booking.DateRange
	Delivery  pricing.DeliveryMethod
	Insurance pricing.InsuranceTier
}

func (r CreateBookingRequest) ToDomain() (*BookingTerms, error) {
	dateRange, err := booking.NewDateRange(r.StartDate, r.EndDate)
	if err != nil {
		return nil, err
	}

	delivery := pricing.DeliveryMethod(r.DeliveryMethod)
	if !delivery.IsValid() {
		return nil, errs.Newf("invalid delivery method: %s", r.DeliveryMethod)
	}

	insurance := pricing.InsuranceTier(r.InsuranceTier)
	if !insurance.IsValid() {
		return nil, errs.Newf("invalid insurance tier: %s", r.InsuranceTier)
	}

	return &BookingTerms{
		DateRange: dateRange,
		Delivery:  delivery,
		Insurance: insurance,
	}, nil
}

type CheckOutBookingRequest struct {
	PickupVerified bool `json:"pickup_verified"`
}

type CompleteBookingRequest struct {
	ReturnVerified bool `json:"return_verified"`
}

type CheckAvailabilityRequest struct {
	StartDate time.Time `form:"start_date" binding:"required" time_format:"2006-01-02"`
	EndDate   time.Time `form:"end_date" binding:"required" time_format:"2006-01-02"`
}
