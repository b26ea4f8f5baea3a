// Package domain holds typed identifiers and shared enums. Typed IDs prevent
// cross-entity assignment at compile time; construct them via ParseXxxID at
// trust boundaries to enforce the non-nil invariant.
package domain

import (
	"github.com/google/uuid"

	dErrors "certrail/pkg/domain-errors"
)

// UUID-backed identifiers for rows owned by this engine.
type (
	// SubjectID identifies a person (employee, visitor or external).
	SubjectID uuid.UUID
	// AssignmentID identifies one content-item delivery to one subject.
	AssignmentID uuid.UUID
	// ProgressID identifies a (subject, training) progress row.
	ProgressID uuid.UUID
	// PathProgressID identifies one certification attempt row.
	PathProgressID uuid.UUID
)

// String-typed references into externally owned catalogs. These are opaque
// keys, not UUIDs: the content catalog and path definitions are supplied by
// the site's document store and keep their own key scheme.
type (
	// ContentID references a catalog content item.
	ContentID string
	// TrainingID references a training module definition.
	TrainingID string
	// ModuleID references one module inside a training.
	ModuleID string
	// AssessmentID references an assessment definition.
	AssessmentID string
	// PathID references a certification path definition.
	PathID string
)

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

// ParseSubjectID validates external input into a SubjectID.
func ParseSubjectID(s string) (SubjectID, error) {
	u, err := parseUUID(s)
	return SubjectID(u), err
}

// ParseAssignmentID validates external input into an AssignmentID.
func ParseAssignmentID(s string) (AssignmentID, error) {
	u, err := parseUUID(s)
	return AssignmentID(u), err
}

// ParseProgressID validates external input into a ProgressID.
func ParseProgressID(s string) (ProgressID, error) {
	u, err := parseUUID(s)
	return ProgressID(u), err
}

// ParsePathProgressID validates external input into a PathProgressID.
func ParsePathProgressID(s string) (PathProgressID, error) {
	u, err := parseUUID(s)
	return PathProgressID(u), err
}

// NewSubjectID returns a fresh random SubjectID.
func NewSubjectID() SubjectID { return SubjectID(uuid.New()) }

// NewAssignmentID returns a fresh random AssignmentID.
func NewAssignmentID() AssignmentID { return AssignmentID(uuid.New()) }

// NewProgressID returns a fresh random ProgressID.
func NewProgressID() ProgressID { return ProgressID(uuid.New()) }

// NewPathProgressID returns a fresh random PathProgressID.
func NewPathProgressID() PathProgressID { return PathProgressID(uuid.New()) }

func (id SubjectID) String() string      { return uuid.UUID(id).String() }
func (id AssignmentID) String() string   { return uuid.UUID(id).String() }
func (id ProgressID) String() string     { return uuid.UUID(id).String() }
func (id PathProgressID) String() string { return uuid.UUID(id).String() }

func (id SubjectID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id AssignmentID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ProgressID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id PathProgressID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
