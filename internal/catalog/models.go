// Package catalog holds the read-only definitions the lifecycle engine
// consumes: assignable content items and certification paths. Both are owned
// by the site's document store; the engine receives them as immutable lookup
// tables and never mutates or persists them.
package catalog

import (
	"encoding/json"

	id "certrail/pkg/domain"
	dErrors "certrail/pkg/domain-errors"
)

// ContentItem is one assignable catalog entry: a training, alert, document,
// procedure, info note or reminder.
type ContentItem struct {
	ID       id.ContentID   `json:"id"`
	Kind     id.ContentKind `json:"kind"`
	Priority id.Priority    `json:"priority"`

	// Training-only fields.
	TrainingRef id.TrainingID `json:"training_ref,omitempty"`
	// ValidityMonths is how long a completion certificate stays valid.
	// Zero means the certificate never expires.
	ValidityMonths int `json:"validity_months,omitempty"`

	// Payload is the item's content (questions, module bodies, document
	// metadata). Opaque to the engine; only the UI layer interprets it.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// IsTraining reports whether the item carries a training module.
func (c ContentItem) IsTraining() bool {
	return c.Kind == id.ContentKindTraining
}

// Validate enforces definition-level invariants at load time.
func (c ContentItem) Validate() error {
	if c.ID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "content item id is required")
	}
	if c.ValidityMonths < 0 {
		return dErrors.New(dErrors.CodeOutOfRange, "validity months cannot be negative")
	}
	if c.IsTraining() && c.TrainingRef == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "training content requires a training ref")
	}
	return nil
}

// CertificationPath links one training module to one assessment and the
// habilitation passing it yields.
type CertificationPath struct {
	ID            id.PathID       `json:"id"`
	TrainingRef   id.TrainingID   `json:"training_ref"`
	AssessmentRef id.AssessmentID `json:"assessment_ref"`
	// DaysBeforeAssessment is the mandatory waiting period between training
	// completion and the earliest evaluation start.
	DaysBeforeAssessment int `json:"days_before_assessment"`
	// PassingScore is the minimum evaluation score, 0-100.
	PassingScore int `json:"passing_score"`
	// HabilitationCode names the safety authorization granted on success.
	HabilitationCode string `json:"habilitation_code"`
	// HabilitationValidityMonths is how long the habilitation stays valid.
	HabilitationValidityMonths int `json:"habilitation_validity_months"`
}

// Validate enforces definition-level invariants at load time.
func (p CertificationPath) Validate() error {
	if p.ID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "certification path id is required")
	}
	if p.TrainingRef == "" || p.AssessmentRef == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "certification path requires training and assessment refs")
	}
	if p.DaysBeforeAssessment < 0 {
		return dErrors.New(dErrors.CodeOutOfRange, "days before assessment cannot be negative")
	}
	if p.PassingScore < 0 || p.PassingScore > 100 {
		return dErrors.New(dErrors.CodeOutOfRange, "passing score must be between 0 and 100")
	}
	if p.HabilitationValidityMonths < 0 {
		return dErrors.New(dErrors.CodeOutOfRange, "habilitation validity cannot be negative")
	}
	return nil
}
