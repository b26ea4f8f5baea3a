// Package models defines the per-(subject, training) progress row: module
// completion, assessment attempts and certificate validity.
package models

import (
	"time"

	id "certrail/pkg/domain"
)

// Status is the stored training progress state. Expiry is never stored: a
// completed record past its ExpiresAt reads as expired, keeping the date the
// single source of truth.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	// StatusExpired is the presentation label assigned lazily on read.
	StatusExpired Status = "expired"
)

func (s Status) String() string { return string(s) }

// AssessmentResult is the latest attempt on one assessment. Resubmission
// replaces the prior entry; only the latest attempt counts toward pass/fail.
type AssessmentResult struct {
	AssessmentID id.AssessmentID
	Score        int
	Passed       bool
	SubmittedAt  time.Time
}

// Progress tracks one subject's advancement through one training module,
// independent of how the training was delivered.
type Progress struct {
	ID         id.ProgressID
	SubjectID  id.SubjectID
	TrainingID id.TrainingID
	Status     Status
	Version    int64

	// CompletedModuleIDs has set semantics: reorder-insensitive and
	// duplicate-safe.
	CompletedModuleIDs []id.ModuleID
	AssessmentResults  []AssessmentResult

	StartedAt           *time.Time
	CompletedAt         *time.Time
	CertificateIssuedAt *time.Time
	// ExpiresAt = CompletedAt + validity months. Nil means the certificate
	// never expires.
	ExpiresAt *time.Time
}

// HasModule reports whether the module is already completed.
func (p Progress) HasModule(moduleID id.ModuleID) bool {
	for _, m := range p.CompletedModuleIDs {
		if m == moduleID {
			return true
		}
	}
	return false
}

// Expired reports whether the certificate has lapsed. Only a completed
// record with a finite validity can expire.
func (p Progress) Expired(now time.Time) bool {
	return p.Status == StatusCompleted && p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

// ExpiringSoon reports whether the certificate lapses within windowDays.
func (p Progress) ExpiringSoon(now time.Time, windowDays int) bool {
	if p.Status != StatusCompleted || p.ExpiresAt == nil {
		return false
	}
	limit := now.AddDate(0, 0, windowDays)
	return now.Before(*p.ExpiresAt) && !p.ExpiresAt.After(limit)
}

// EffectiveStatus maps a lapsed completion to the expired label at read time.
func (p Progress) EffectiveStatus(now time.Time) Status {
	if p.Expired(now) {
		return StatusExpired
	}
	return p.Status
}

// Clone returns a deep copy so stores can hand out rows without aliasing.
func (p Progress) Clone() Progress {
	out := p
	out.CompletedModuleIDs = append([]id.ModuleID(nil), p.CompletedModuleIDs...)
	out.AssessmentResults = append([]AssessmentResult(nil), p.AssessmentResults...)
	out.StartedAt = cloneTime(p.StartedAt)
	out.CompletedAt = cloneTime(p.CompletedAt)
	out.CertificateIssuedAt = cloneTime(p.CertificateIssuedAt)
	out.ExpiresAt = cloneTime(p.ExpiresAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
