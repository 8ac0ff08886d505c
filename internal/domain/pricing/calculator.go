package pricing

import (
	"errors"
	"math"
)

var (
	ErrInvalidDays = errors.New("rental days must be positive")
	ErrInvalidRate = errors.New("daily rate must be positive")
)

// Config carries every fee knob the engine needs. It is passed in explicitly
// rather than read from globals so identical inputs always price identically.
type Config struct {
	ServiceFeeRate         float64
	PlatformFeePercent     float64
	ProcessorFeePercent    float64
	ProcessorFixedFeeCents int64
	DeliveryFeeCents       int64
	InsuranceTierFees      map[InsuranceTier]int64
}

// Breakdown is the full quote for a booking. All amounts are minor currency
// units. Total excludes the security deposit, which is held separately.
type Breakdown struct {
	SubtotalCents        int64 `json:"subtotal_cents"`
	ServiceFeeCents      int64 `json:"service_fee_cents"`
	DeliveryFeeCents     int64 `json:"delivery_fee_cents"`
	InsuranceFeeCents    int64 `json:"insurance_fee_cents"`
	TotalCents           int64 `json:"total_cents"`
	SecurityDepositCents int64 `json:"security_deposit_cents"`
}

// Split divides a captured total between platform, processor, and owner.
// The owner bears the processor fee: payout = total - platformFee - processorFee.
type Split struct {
	PlatformFeeCents  int64 `json:"platform_fee_cents"`
	ProcessorFeeCents int64 `json:"processor_fee_cents"`
	OwnerPayoutCents  int64 `json:"owner_payout_cents"`
}

type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// ComputeQuote prices a rental. The computation order is fixed: subtotal,
// service fee, delivery fee, insurance fee, total. Each fee rounds half away
// from zero on its own so the breakdown matches processor arithmetic.
func (c *Calculator) ComputeQuote(dailyRateCents int64, days int, delivery DeliveryMethod, tier InsuranceTier, depositCents int64) (Breakdown, error) {
	if days <= 0 {
		return Breakdown{}, ErrInvalidDays
	}
	if dailyRateCents <= 0 {
		return Breakdown{}, ErrInvalidRate
	}

	subtotal := dailyRateCents * int64(days)
	serviceFee := roundHalfAway(float64(subtotal) * c.cfg.ServiceFeeRate)

	var deliveryFee int64
	if delivery != DeliveryPickup {
		deliveryFee = c.cfg.DeliveryFeeCents
	}

	insuranceFee := c.cfg.InsuranceTierFees[tier]

	return Breakdown{
		SubtotalCents:        subtotal,
		ServiceFeeCents:      serviceFee,
		DeliveryFeeCents:     deliveryFee,
		InsuranceFeeCents:    insuranceFee,
		TotalCents:           subtotal + serviceFee + deliveryFee + insuranceFee,
		SecurityDepositCents: depositCents,
	}, nil
}

// ComputeSplit derives the destination-charge amounts for a captured total.
func (c *Calculator) ComputeSplit(totalCents int64) Split {
	platformFee := roundHalfAway(float64(totalCents) * c.cfg.PlatformFeePercent)
	processorFee := roundHalfAway(float64(totalCents)*c.cfg.ProcessorFeePercent) + c.cfg.ProcessorFixedFeeCents
	return Split{
		PlatformFeeCents:  platformFee,
		ProcessorFeeCents: processorFee,
		OwnerPayoutCents:  totalCents - platformFee - processorFee,
	}
}

// roundHalfAway rounds to the nearest integer, ties away from zero.
func roundHalfAway(v float64) int64 {
	return int64(math.Round(v))
}

func ConfigFromTierFees(serviceFeeRate, platformFeePercent, processorFeePercent float64, processorFixedFeeCents, deliveryFeeCents, basicCents, premiumCents int64) Config {
	return Config{
		ServiceFeeRate:         serviceFeeRate,
		PlatformFeePercent:     platformFeePercent,
		ProcessorFeePercent:    processorFeePercent,
		ProcessorFixedFeeCents: processorFixedFeeCents,
		DeliveryFeeCents:       deliveryFeeCents,
		InsuranceTierFees: map[InsuranceTier]int64{
			InsuranceNone:    0,
			InsuranceBasic:   basicCents,
			InsurancePremium: premiumCents,
		},
	}
}
