package pricing

type DeliveryMethod string

const (
	DeliveryPickup  DeliveryMethod = "pickup"
	DeliveryDropoff DeliveryMethod = "dropoff"
)

func (d DeliveryMethod) String() string {
	return string(d)
}

func (d DeliveryMethod) IsValid() bool {
	switch d {
	case DeliveryPickup, DeliveryDropoff:
		return true
	default:
		return false
	}
}

type InsuranceTier string

const (
	InsuranceNone    InsuranceTier = "none"
	InsuranceBasic   InsuranceTier = "basic"
	InsurancePremium InsuranceTier = "premium"
)

func (t InsuranceTier) String() string {
	return string(t)
}

func (t InsuranceTier) IsValid() bool {
	switch t {
	case InsuranceNone, InsuranceBasic, InsurancePremium:
		return true
	default:
		return false
	}
}
