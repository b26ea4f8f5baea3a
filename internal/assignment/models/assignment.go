// Package models defines the assignment row and its status machine: the
// record of one catalog item delivered to one person.
package models

import (
	"time"

	id "certrail/pkg/domain"
)

// Status is the assignment lifecycle state.
type Status string

const (
	StatusSent         Status = "sent"
	StatusReceived     Status = "received"
	StatusRead         Status = "read"
	StatusAcknowledged Status = "acknowledged"
	// StatusInProgress and StatusCompleted apply only to training content.
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	// StatusExpired is a derived presentation label, never stored: an
	// assignment past its due date without completion reads as expired.
	StatusExpired Status = "expired"
)

// statusOrder defines the forward partial order of stored statuses. Reset is
// the only backward move and bypasses this order.
var statusOrder = map[Status]int{
	StatusSent:         0,
	StatusReceived:     1,
	StatusRead:         2,
	StatusAcknowledged: 3,
	StatusInProgress:   4,
	StatusCompleted:    5,
}

// AtLeast reports whether s is at or past other in the lifecycle order.
func (s Status) AtLeast(other Status) bool {
	a, okA := statusOrder[s]
	b, okB := statusOrder[other]
	return okA && okB && a >= b
}

func (s Status) String() string { return string(s) }

// Assignment tracks delivery of one content item to one subject and the
// subject's interaction with it. Mutations go through the service's
// transition operations; Version is the compare-and-set token enforcing
// single-writer semantics per row.
type Assignment struct {
	ID        id.AssignmentID
	ContentID id.ContentID
	SubjectID id.SubjectID
	Status    Status
	Version   int64

	AssignedAt   time.Time
	DueDate      *time.Time
	ReminderDate *time.Time

	ReadAt         *time.Time
	AcknowledgedAt *time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time

	Score           *int
	ProgressPercent *int
	CertificateRef  string
}

// EffectiveStatus applies the due-date expiry predicate at read time. The
// stored status never flips to expired; two reads straddling the due date
// simply disagree, which is the intended time-derived behavior.
func (a Assignment) EffectiveStatus(now time.Time) Status {
	if a.Status != StatusCompleted && a.DueDate != nil && now.After(*a.DueDate) {
		return StatusExpired
	}
	return a.Status
}

// IsExpired reports whether the assignment lapsed without completion.
func (a Assignment) IsExpired(now time.Time) bool {
	return a.EffectiveStatus(now) == StatusExpired
}

// Clone returns a deep copy so stores can hand out rows without aliasing.
func (a Assignment) Clone() Assignment {
	out := a
	out.DueDate = cloneTime(a.DueDate)
	out.ReminderDate = cloneTime(a.ReminderDate)
	out.ReadAt = cloneTime(a.ReadAt)
	out.AcknowledgedAt = cloneTime(a.AcknowledgedAt)
	out.StartedAt = cloneTime(a.StartedAt)
	out.CompletedAt = cloneTime(a.CompletedAt)
	out.Score = cloneInt(a.Score)
	out.ProgressPercent = cloneInt(a.ProgressPercent)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
