package domain

import dErrors "certrail/pkg/domain-errors"

// ContentKind classifies assignable catalog items.
type ContentKind string

const (
	ContentKindTraining  ContentKind = "training"
	ContentKindAlert     ContentKind = "alert"
	ContentKindInfo      ContentKind = "info"
	ContentKindReminder  ContentKind = "reminder"
	ContentKindDocument  ContentKind = "document"
	ContentKindProcedure ContentKind = "procedure"
)

var validContentKinds = map[ContentKind]bool{
	ContentKindTraining:  true,
	ContentKindAlert:     true,
	ContentKindInfo:      true,
	ContentKindReminder:  true,
	ContentKindDocument:  true,
	ContentKindProcedure: true,
}

// ParseContentKind constructs a ContentKind from external input.
func ParseContentKind(s string) (ContentKind, error) {
	k := ContentKind(s)
	if !validContentKinds[k] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid content kind: "+s)
	}
	return k, nil
}

func (k ContentKind) String() string { return string(k) }

// Priority ranks how urgently assigned content must be handled.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var validPriorities = map[Priority]bool{
	PriorityLow:      true,
	PriorityMedium:   true,
	PriorityHigh:     true,
	PriorityCritical: true,
}

// ParsePriority constructs a Priority from external input.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !validPriorities[p] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid priority: "+s)
	}
	return p, nil
}

func (p Priority) String() string { return string(p) }

// CandidateType classifies who is progressing through a certification path.
type CandidateType string

const (
	CandidateEmployee CandidateType = "employee"
	CandidateVisitor  CandidateType = "visitor"
	CandidateExternal CandidateType = "external"
)

var validCandidateTypes = map[CandidateType]bool{
	CandidateEmployee: true,
	CandidateVisitor:  true,
	CandidateExternal: true,
}

// ParseCandidateType constructs a CandidateType from external input.
func ParseCandidateType(s string) (CandidateType, error) {
	c := CandidateType(s)
	if !validCandidateTypes[c] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid candidate type: "+s)
	}
	return c, nil
}

func (c CandidateType) String() string { return string(c) }
