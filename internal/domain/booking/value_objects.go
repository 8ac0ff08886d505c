package booking

import (
	"errors"
	"fmt"
	"time"

	"rentloop/internal/domain/user"

	"github.com/google/uuid"
)

var ErrInvalidDateRange = errors.New("start date must be before end date")

// DateRange is a half-open interval [start, end) of calendar days in UTC.
type DateRange struct {
	start time.Time
	end   time.Time
}

func NewDateRange(start, end time.Time) (DateRange, error) {
	s := truncateToDay(start)
	e := truncateToDay(end)
	if !s.Before(e) {
		return DateRange{}, ErrInvalidDateRange
	}
	return DateRange{start: s, end: e}, nil
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func (r DateRange) Start() time.Time {
	return r.start
}

func (r DateRange) End() time.Time {
	return r.end
}

func (r DateRange) Days() int {
	return int(r.end.Sub(r.start).Hours() / 24)
}

// Overlaps reports whether two half-open ranges intersect:
// [s1,e1) and [s2,e2) conflict iff s1 < e2 && s2 < e1.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.start.Before(other.end) && other.start.Before(r.end)
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s,%s)", r.start.Format("2006-01-02"), r.end.Format("2006-01-02"))
}

// Actor is the authenticated identity performing a transition. The core
// trusts the id and role handed in by the auth boundary.
type Actor struct {
	ID     uuid.UUID
	Role   user.Role
	System bool
}

// SystemActor represents transitions driven by processor webhooks or other
// internal machinery rather than a user.
func SystemActor() Actor {
	return Actor{System: true}
}

func (a Actor) IsAdmin() bool {
	return a.Role == user.RoleAdmin
}
