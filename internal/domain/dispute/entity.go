package dispute

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidType     = errors.New("invalid dispute type")
	ErrEmptyMessage    = errors.New("dispute message cannot be empty")
	ErrAlreadyResolved = errors.New("dispute already resolved")
	ErrForbiddenAuthor = errors.New("author is not a party to this dispute")
	ErrNotResolvable   = errors.New("dispute cannot be resolved from current status")
)

// ForbiddenTransitionError names the illegal edge in the dispute machine.
type ForbiddenTransitionError struct {
	From Status
	To   Status
}

func (e *ForbiddenTransitionError) Error() string {
	return fmt.Sprintf("forbidden dispute transition from %q to %q", e.From, e.To)
}

// Resolution records how and by whom a dispute was closed.
type Resolution struct {
	Action            ResolutionAction
	CompensationCents *int64
	ResolverID        uuid.UUID
	ResolvedAt        time.Time
}

type Message struct {
	ID        uuid.UUID
	DisputeID uuid.UUID
	AuthorID  uuid.UUID
	Body      string
	CreatedAt time.Time
}

type Dispute struct {
	id            uuid.UUID
	bookingID     uuid.UUID
	complainantID uuid.UUID
	respondentID  uuid.UUID
	kind          Type
	status        Status
	resolution    *Resolution
	createdAt     time.Time
	updatedAt     time.Time
}

func NewDispute(bookingID, complainantID, respondentID uuid.UUID, kind Type, now time.Time) (*Dispute, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidType
	}
	return &Dispute{
		id:            uuid.New(),
		bookingID:     bookingID,
		complainantID: complainantID,
		respondentID:  respondentID,
		kind:          kind,
		status:        StatusOpen,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

func ReconstructDispute(
	id, bookingID, complainantID, respondentID uuid.UUID,
	kind Type,
	status Status,
	resolution *Resolution,
	createdAt, updatedAt time.Time,
) *Dispute {
	return &Dispute{
		id:            id,
		bookingID:     bookingID,
		complainantID: complainantID,
		respondentID:  respondentID,
		kind:          kind,
		status:        status,
		resolution:    resolution,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// StartReview moves an open dispute under admin review.
func (d *Dispute) StartReview(now time.Time) error {
	if d.status != StatusOpen {
		return &ForbiddenTransitionError{From: d.status, To: StatusUnderReview}
	}
	d.status = StatusUnderReview
	d.updatedAt = now
	return nil
}

// Escalate branches from open or under_review.
func (d *Dispute) Escalate(now time.Time) error {
	if d.status != StatusOpen && d.status != StatusUnderReview {
		return &ForbiddenTransitionError{From: d.status, To: StatusEscalated}
	}
	d.status = StatusEscalated
	d.updatedAt = now
	return nil
}

// Resolve closes the dispute. Allowed from any non-terminal status.
func (d *Dispute) Resolve(resolverID uuid.UUID, action ResolutionAction, compensationCents *int64, now time.Time) error {
	if d.status == StatusResolved {
		return ErrAlreadyResolved
	}
	d.status = StatusResolved
	d.resolution = &Resolution{
		Action:            action,
		CompensationCents: compensationCents,
		ResolverID:        resolverID,
		ResolvedAt:        now,
	}
	d.updatedAt = now
	return nil
}

// NewMessage appends to the dispute thread. Only the complainant, the
// respondent, or an admin acting for either may write.
func (d *Dispute) NewMessage(authorID uuid.UUID, isAdmin bool, body string, now time.Time) (Message, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return Message{}, ErrEmptyMessage
	}
	if authorID != d.complainantID && authorID != d.respondentID && !isAdmin {
		return Message{}, ErrForbiddenAuthor
	}
	if d.status.IsTerminal() {
		return Message{}, ErrAlreadyResolved
	}
	return Message{
		ID:        uuid.New(),
		DisputeID: d.id,
		AuthorID:  authorID,
		Body:      trimmed,
		CreatedAt: now,
	}, nil
}

func (d *Dispute) IsOpen() bool {
	return !d.status.IsTerminal()
}

func (d *Dispute) ID() uuid.UUID            { return d.id }
func (d *Dispute) BookingID() uuid.UUID     { return d.bookingID }
func (d *Dispute) ComplainantID() uuid.UUID { return d.complainantID }
func (d *Dispute) RespondentID() uuid.UUID  { return d.respondentID }
func (d *Dispute) Kind() Type               { return d.kind }
func (d *Dispute) Status() Status           { return d.status }
func (d *Dispute) Resolution() *Resolution  { return d.resolution }
func (d *Dispute) CreatedAt() time.Time     { return d.createdAt }
func (d *Dispute) UpdatedAt() time.Time     { return d.updatedAt }
