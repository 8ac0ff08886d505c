package dispute

type Status string

const (
	StatusOpen        Status = "open"
	StatusUnderReview Status = "under_review"
	StatusEscalated   Status = "escalated"
	StatusResolved    Status = "resolved"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusUnderReview, StatusEscalated, StatusResolved:
		return true
	default:
		return false
	}
}

func (s Status) IsTerminal() bool {
	return s == StatusResolved
}

type Type string

const (
	TypeDamage     Type = "damage"
	TypeLateReturn Type = "late_return"
	TypeNoShow     Type = "no_show"
	TypePayment    Type = "payment"
	TypeOther      Type = "other"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case TypeDamage, TypeLateReturn, TypeNoShow, TypePayment, TypeOther:
		return true
	default:
		return false
	}
}

type ResolutionAction string

const (
	ActionRefund     ResolutionAction = "refund"
	ActionNoRefund   ResolutionAction = "no_refund"
	ActionCompensate ResolutionAction = "compensate_owner"
)

func (a ResolutionAction) String() string {
	return string(a)
}
