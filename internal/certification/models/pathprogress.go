// Package models defines the certification pathway record: one candidate's
// run through training, the waiting window, the evaluation and the resulting
// habilitation. A failed run is terminal; a retry is a new record.
package models

import (
	"time"

	id "certrail/pkg/domain"
)

// Status is the stored pipeline position. Two labels are derived and never
// stored: evaluation_available (the waiting window elapsed) and
// habilitation_expired (the habilitation lapsed).
type Status string

const (
	StatusAssigned             Status = "assigned"
	StatusTrainingInProgress   Status = "training_in_progress"
	StatusAwaitingEvaluation   Status = "awaiting_evaluation_window"
	StatusEvaluationAvailable  Status = "evaluation_available"
	StatusEvaluationInProgress Status = "evaluation_in_progress"
	StatusEvaluationSubmitted  Status = "evaluation_submitted"
	StatusEvaluationPassed     Status = "evaluation_passed"
	StatusEvaluationFailed     Status = "evaluation_failed"
	StatusHabilitationActive   Status = "habilitation_active"
	StatusHabilitationExpired  Status = "habilitation_expired"
)

func (s Status) String() string { return string(s) }

// PathProgress is one candidate's run through one certification path.
type PathProgress struct {
	ID            id.PathProgressID
	PathID        id.PathID
	CandidateID   id.SubjectID
	CandidateType id.CandidateType
	Status        Status
	Version       int64

	TrainingStartedAt   *time.Time
	TrainingCompletedAt *time.Time
	TrainingScore       *int

	// EvaluationAvailableDate is frozen at training completion and never
	// recomputed, so later edits to the path definition cannot move an
	// already promised date.
	EvaluationAvailableDate *time.Time
	EvaluationStartedAt     *time.Time
	EvaluationSubmittedAt   *time.Time
	EvaluationCorrectedAt   *time.Time
	EvaluationScore         *int
	// EvaluationPassed is tri-state: nil until a verdict exists.
	EvaluationPassed *bool
	CorrectorComment string

	HabilitationGrantedAt  *time.Time
	HabilitationExpiryDate *time.Time

	AssignedBy  string
	AssignedAt  time.Time
	CompletedAt *time.Time
}

// EvaluationAvailable reports whether the waiting window has elapsed.
func (p PathProgress) EvaluationAvailable(now time.Time) bool {
	return p.Status == StatusAwaitingEvaluation &&
		p.EvaluationAvailableDate != nil &&
		!now.Before(*p.EvaluationAvailableDate)
}

// HabilitationExpired reports whether a granted habilitation has lapsed.
func (p PathProgress) HabilitationExpired(now time.Time) bool {
	return p.Status == StatusHabilitationActive &&
		p.HabilitationExpiryDate != nil &&
		!now.Before(*p.HabilitationExpiryDate)
}

// Failed reports whether this run ended in a terminal failure.
func (p PathProgress) Failed() bool {
	return p.Status == StatusEvaluationFailed
}

// EffectiveStatus applies the two derived labels at read time.
func (p PathProgress) EffectiveStatus(now time.Time) Status {
	if p.EvaluationAvailable(now) {
		return StatusEvaluationAvailable
	}
	if p.HabilitationExpired(now) {
		return StatusHabilitationExpired
	}
	return p.Status
}

// Clone returns a deep copy so stores can hand out rows without aliasing.
func (p PathProgress) Clone() PathProgress {
	out := p
	out.TrainingStartedAt = cloneTime(p.TrainingStartedAt)
	out.TrainingCompletedAt = cloneTime(p.TrainingCompletedAt)
	out.TrainingScore = cloneInt(p.TrainingScore)
	out.EvaluationAvailableDate = cloneTime(p.EvaluationAvailableDate)
	out.EvaluationStartedAt = cloneTime(p.EvaluationStartedAt)
	out.EvaluationSubmittedAt = cloneTime(p.EvaluationSubmittedAt)
	out.EvaluationCorrectedAt = cloneTime(p.EvaluationCorrectedAt)
	out.EvaluationScore = cloneInt(p.EvaluationScore)
	out.EvaluationPassed = cloneBool(p.EvaluationPassed)
	out.HabilitationGrantedAt = cloneTime(p.HabilitationGrantedAt)
	out.HabilitationExpiryDate = cloneTime(p.HabilitationExpiryDate)
	out.CompletedAt = cloneTime(p.CompletedAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneInt(n *int) *int {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}
