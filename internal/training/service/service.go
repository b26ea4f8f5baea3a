// Package service implements the training progress tracker. Records are
// created lazily on first touch of a (subject, training) pair and advanced
// with the same version compare-and-set discipline as assignments.
package service

import (
	"context"
	"errors"
	"sort"

	"certrail/internal/platform/metrics"
	"certrail/internal/training/models"
	id "certrail/pkg/domain"
	dErrors "certrail/pkg/domain-errors"
	"certrail/pkg/platform/events"
	"certrail/pkg/platform/sentinel"
	"certrail/pkg/requestcontext"
)

// Store persists progress rows. GetByKey returns sentinel.ErrNotFound when no
// row exists for the pair; Update must compare-and-set on Version.
type Store interface {
	Create(ctx context.Context, p *models.Progress) error
	Get(ctx context.Context, progressID id.ProgressID) (*models.Progress, error)
	GetByKey(ctx context.Context, subjectID id.SubjectID, trainingID id.TrainingID) (*models.Progress, error)
	Update(ctx context.Context, p *models.Progress) error
	ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]*models.Progress, error)
}

type Service struct {
	store    Store
	recorder *events.Recorder
	metrics  *metrics.Metrics
}

func NewService(store Store, recorder *events.Recorder, m *metrics.Metrics) *Service {
	return &Service{store: store, recorder: recorder, metrics: m}
}

// Start begins a training for a subject. The record is created on first
// touch; restarting an already started training is rejected, Reset is the
// only way back.
func (s *Service) Start(ctx context.Context, subjectID id.SubjectID, trainingID id.TrainingID) (*models.Progress, error) {
	p, err := s.getOrCreate(ctx, subjectID, trainingID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.StatusNotStarted {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "training already started")
	}
	now := requestcontext.Now(ctx)
	p.Status = models.StatusInProgress
	p.StartedAt = &now
	return s.save(ctx, p, "")
}

// CompleteModule records one finished module. Completing the same module
// twice is a no-op, not an error.
func (s *Service) CompleteModule(ctx context.Context, subjectID id.SubjectID, trainingID id.TrainingID, moduleID id.ModuleID) (*models.Progress, error) {
	p, err := s.getOrCreate(ctx, subjectID, trainingID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.StatusInProgress {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "module completion requires an in-progress training")
	}
	if p.HasModule(moduleID) {
		return p, nil
	}
	p.CompletedModuleIDs = append(p.CompletedModuleIDs, moduleID)
	return s.save(ctx, p, "")
}

// RecordAssessmentResult stores the latest attempt on an assessment. A
// resubmission replaces the earlier entry for the same assessment.
func (s *Service) RecordAssessmentResult(ctx context.Context, subjectID id.SubjectID, trainingID id.TrainingID, assessmentID id.AssessmentID, score int, passed bool) (*models.Progress, error) {
	if score < 0 || score > 100 {
		return nil, dErrors.New(dErrors.CodeOutOfRange, "score must be between 0 and 100")
	}
	p, err := s.getOrCreate(ctx, subjectID, trainingID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.StatusInProgress {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "assessments require an in-progress training")
	}
	result := models.AssessmentResult{
		AssessmentID: assessmentID,
		Score:        score,
		Passed:       passed,
		SubmittedAt:  requestcontext.Now(ctx),
	}
	replaced := false
	for i, r := range p.AssessmentResults {
		if r.AssessmentID == assessmentID {
			p.AssessmentResults[i] = result
			replaced = true
			break
		}
	}
	if !replaced {
		p.AssessmentResults = append(p.AssessmentResults, result)
	}
	return s.save(ctx, p, "")
}

// Complete finishes an in-progress training and issues the certificate.
// validityMonths sets the expiry by calendar-month arithmetic; zero means
// the certificate never expires.
func (s *Service) Complete(ctx context.Context, subjectID id.SubjectID, trainingID id.TrainingID, validityMonths int) (*models.Progress, error) {
	if validityMonths < 0 {
		return nil, dErrors.New(dErrors.CodeOutOfRange, "validity months must not be negative")
	}
	p, err := s.getOrCreate(ctx, subjectID, trainingID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.StatusInProgress {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "completion requires an in-progress training")
	}
	if len(p.CompletedModuleIDs) == 0 && len(p.AssessmentResults) == 0 {
		return nil, dErrors.New(dErrors.CodeMissingPrerequisite, "completion requires at least one module or assessment result")
	}
	now := requestcontext.Now(ctx)
	p.Status = models.StatusCompleted
	p.CompletedAt = &now
	p.CertificateIssuedAt = &now
	if validityMonths > 0 {
		expires := now.AddDate(0, validityMonths, 0)
		p.ExpiresAt = &expires
	} else {
		p.ExpiresAt = nil
	}
	p, err = s.save(ctx, p, events.ActionTrainingCompleted)
	if err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, events.ActionCertificateIssued, p.SubjectID, p.ID.String(), string(p.TrainingID))
	return p, nil
}

// Reset clears a progress record back to not_started, typically after the
// certificate lapsed and the subject must requalify.
func (s *Service) Reset(ctx context.Context, subjectID id.SubjectID, trainingID id.TrainingID) (*models.Progress, error) {
	p, err := s.load(ctx, subjectID, trainingID)
	if err != nil {
		return nil, err
	}
	p.Status = models.StatusNotStarted
	p.CompletedModuleIDs = nil
	p.AssessmentResults = nil
	p.StartedAt = nil
	p.CompletedAt = nil
	p.CertificateIssuedAt = nil
	p.ExpiresAt = nil
	return s.save(ctx, p, events.ActionTrainingReset)
}

// Get returns the progress record for the pair.
func (s *Service) Get(ctx context.Context, subjectID id.SubjectID, trainingID id.TrainingID) (*models.Progress, error) {
	return s.load(ctx, subjectID, trainingID)
}

// ListBySubject returns all of the subject's training records.
func (s *Service) ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]*models.Progress, error) {
	list, err := s.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list training progress", err)
	}
	return list, nil
}

// ExpiringSoon returns the subject's certificates lapsing within windowDays,
// soonest first, and emits one notification event per hit.
func (s *Service) ExpiringSoon(ctx context.Context, subjectID id.SubjectID, windowDays int) ([]*models.Progress, error) {
	if windowDays < 0 {
		return nil, dErrors.New(dErrors.CodeOutOfRange, "window days must not be negative")
	}
	list, err := s.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list training progress", err)
	}
	now := requestcontext.Now(ctx)
	var out []*models.Progress
	for _, p := range list {
		if p.ExpiringSoon(now, windowDays) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpiresAt.Before(*out[j].ExpiresAt)
	})
	for _, p := range out {
		s.recorder.Record(ctx, events.ActionTrainingExpiring, p.SubjectID, p.ID.String(), string(p.TrainingID))
	}
	return out, nil
}

func (s *Service) getOrCreate(ctx context.Context, subjectID id.SubjectID, trainingID id.TrainingID) (*models.Progress, error) {
	p, err := s.store.GetByKey(ctx, subjectID, trainingID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "load training progress", err)
	}
	p = &models.Progress{
		ID:         id.NewProgressID(),
		SubjectID:  subjectID,
		TrainingID: trainingID,
		Status:     models.StatusNotStarted,
	}
	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// a concurrent first touch won; use its row
			return s.load(ctx, subjectID, trainingID)
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "create training progress", err)
	}
	return p, nil
}

func (s *Service) load(ctx context.Context, subjectID id.SubjectID, trainingID id.TrainingID) (*models.Progress, error) {
	p, err := s.store.GetByKey(ctx, subjectID, trainingID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "training progress not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "load training progress", err)
	}
	return p, nil
}

func (s *Service) save(ctx context.Context, p *models.Progress, action events.Action) (*models.Progress, error) {
	if err := s.store.Update(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrStaleVersion) {
			s.metrics.IncrementStaleTransitions()
			return nil, dErrors.New(dErrors.CodeStaleTransition, "training progress changed concurrently")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "save training progress", err)
	}
	if action != "" {
		s.recorder.Record(ctx, action, p.SubjectID, p.ID.String(), string(p.TrainingID))
	}
	return p, nil
}
