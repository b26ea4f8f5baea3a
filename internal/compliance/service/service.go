// Package service exposes compliance reporting over the other components'
// read sides, with a cache-aside layer for per-subject rates.
package service

import (
	"context"

	assignment "certrail/internal/assignment/models"
	"certrail/internal/catalog"
	certification "certrail/internal/certification/models"
	"certrail/internal/compliance"
	training "certrail/internal/training/models"
	id "certrail/pkg/domain"
	dErrors "certrail/pkg/domain-errors"
	"certrail/pkg/requestcontext"
)

// AssignmentSource is the assignment read side.
type AssignmentSource interface {
	ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]*assignment.Assignment, error)
}

// TrainingSource is the training progress read side.
type TrainingSource interface {
	ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]*training.Progress, error)
}

// CertificationSource is the certification read side.
type CertificationSource interface {
	ListByCandidate(ctx context.Context, candidateID id.SubjectID) ([]*certification.PathProgress, error)
}

// Cache holds computed subject rates. Implementations own staleness; the
// service only reads through it.
type Cache interface {
	Get(ctx context.Context, subjectID id.SubjectID) (int, bool)
	Set(ctx context.Context, subjectID id.SubjectID, rate int) error
}

// nopCache always misses.
type nopCache struct{}

func (nopCache) Get(context.Context, id.SubjectID) (int, bool) { return 0, false }
func (nopCache) Set(context.Context, id.SubjectID, int) error  { return nil }

type Service struct {
	assignments    AssignmentSource
	trainings      TrainingSource
	certifications CertificationSource
	catalog        *catalog.Registry
	cache          Cache
}

func NewService(assignments AssignmentSource, trainings TrainingSource, certifications CertificationSource, reg *catalog.Registry, cache Cache) *Service {
	if cache == nil {
		cache = nopCache{}
	}
	return &Service{
		assignments:    assignments,
		trainings:      trainings,
		certifications: certifications,
		catalog:        reg,
		cache:          cache,
	}
}

// trainingAssignments loads the subject's assignments restricted to
// training-kind content, resolved against the catalog.
func (s *Service) trainingAssignments(ctx context.Context, subjectID id.SubjectID) ([]*assignment.Assignment, error) {
	list, err := s.assignments.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list assignments", err)
	}
	return compliance.TrainingAssignments(list, s.catalog), nil
}

// SubjectRate returns the subject's training completion rate, serving from
// cache when possible. Only training-kind assignments enter the figure. A
// cache write failure is swallowed: the rate is already correct.
func (s *Service) SubjectRate(ctx context.Context, subjectID id.SubjectID) (int, error) {
	if rate, ok := s.cache.Get(ctx, subjectID); ok {
		return rate, nil
	}
	list, err := s.trainingAssignments(ctx, subjectID)
	if err != nil {
		return 0, err
	}
	rate := compliance.SubjectRate(list)
	_ = s.cache.Set(ctx, subjectID, rate)
	return rate, nil
}

// PopulationRate computes the unweighted mean rate across the given
// subjects, reusing cached per-subject rates where present.
func (s *Service) PopulationRate(ctx context.Context, subjectIDs []id.SubjectID) (int, error) {
	rates := make([]int, 0, len(subjectIDs))
	for _, subjectID := range subjectIDs {
		rate, err := s.SubjectRate(ctx, subjectID)
		if err != nil {
			return 0, err
		}
		rates = append(rates, rate)
	}
	return compliance.PopulationRate(rates), nil
}

// TrainingCounts partitions the subject's training assignments at request
// time. Assigned-but-untouched trainings count as pending even though no
// progress row exists for them yet.
func (s *Service) TrainingCounts(ctx context.Context, subjectID id.SubjectID) (compliance.TrainingCounts, error) {
	list, err := s.trainingAssignments(ctx, subjectID)
	if err != nil {
		return compliance.TrainingCounts{}, err
	}
	return compliance.CountTrainings(list, requestcontext.Now(ctx)), nil
}

// ExpiringCertificates reports the subject's certificates lapsing within
// windowDays.
func (s *Service) ExpiringCertificates(ctx context.Context, subjectID id.SubjectID, windowDays int) ([]*training.Progress, error) {
	if windowDays < 0 {
		return nil, dErrors.New(dErrors.CodeOutOfRange, "window days must not be negative")
	}
	list, err := s.trainings.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list training progress", err)
	}
	return compliance.ExpiringCertificates(list, requestcontext.Now(ctx), windowDays), nil
}

// HabilitationSummary partitions the subject's certification runs at request
// time.
func (s *Service) HabilitationSummary(ctx context.Context, subjectID id.SubjectID) (compliance.HabilitationSummary, error) {
	list, err := s.certifications.ListByCandidate(ctx, subjectID)
	if err != nil {
		return compliance.HabilitationSummary{}, dErrors.Wrap(dErrors.CodeInternal, "list path progress", err)
	}
	return compliance.SummarizeHabilitations(list, requestcontext.Now(ctx)), nil
}
