package booking

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
	StatusDisputed  Status = "disputed"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusActive, StatusCompleted,
		StatusCancelled, StatusRejected, StatusDisputed:
		return true
	default:
		return false
	}
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRejected:
		return true
	default:
		return false
	}
}

// ActiveStatuses are the statuses that occupy a listing's calendar. Only these
// participate in the overlap check.
func ActiveStatuses() []Status {
	return []Status{StatusPending, StatusConfirmed, StatusActive}
}

// transitions is the full legal edge set. Anything absent is forbidden.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed: {StatusActive, StatusCancelled},
	StatusActive:    {StatusCompleted, StatusDisputed},
	StatusCompleted: {StatusDisputed},
	StatusDisputed:  {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
