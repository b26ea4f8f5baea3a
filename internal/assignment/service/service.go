// Package service implements the assignment lifecycle transitions. Each
// operation loads one row, checks its status precondition, applies the
// change and saves with a version compare-and-set, so two concurrent calls
// on the same row cannot both succeed.
package service

import (
	"context"
	"errors"
	"time"

	"certrail/internal/assignment/models"
	"certrail/internal/catalog"
	"certrail/internal/platform/metrics"
	id "certrail/pkg/domain"
	dErrors "certrail/pkg/domain-errors"
	"certrail/pkg/platform/events"
	"certrail/pkg/platform/sentinel"
	"certrail/pkg/requestcontext"
)

// Store persists assignment rows. Update must compare-and-set on Version and
// return sentinel.ErrStaleVersion when a concurrent writer won.
type Store interface {
	Create(ctx context.Context, a *models.Assignment) error
	Get(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error)
	Update(ctx context.Context, a *models.Assignment) error
	ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]*models.Assignment, error)
}

// Service orchestrates assignment transitions. It keeps FSM rules out of
// handlers and stores.
type Service struct {
	store    Store
	catalog  *catalog.Registry
	recorder *events.Recorder
	metrics  *metrics.Metrics
}

func NewService(store Store, reg *catalog.Registry, recorder *events.Recorder, m *metrics.Metrics) *Service {
	return &Service{store: store, catalog: reg, recorder: recorder, metrics: m}
}

// Assign delivers a catalog item to a subject. Initial status is sent.
func (s *Service) Assign(ctx context.Context, contentID id.ContentID, subjectID id.SubjectID, dueDate, reminderDate *time.Time) (*models.Assignment, error) {
	if _, err := s.catalog.ContentItem(contentID); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	a := &models.Assignment{
		ID:           id.NewAssignmentID(),
		ContentID:    contentID,
		SubjectID:    subjectID,
		Status:       models.StatusSent,
		AssignedAt:   now,
		DueDate:      dueDate,
		ReminderDate: reminderDate,
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "create assignment", err)
	}
	return a, nil
}

// MarkReceived records delivery confirmation from the distribution layer.
func (s *Service) MarkReceived(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	a, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.Status.AtLeast(models.StatusReceived) {
		return a, nil
	}
	if err := s.requireLive(ctx, a); err != nil {
		return nil, err
	}
	a.Status = models.StatusReceived
	return s.save(ctx, a, "")
}

// MarkAsRead records that the subject opened the content. Idempotent once
// read or later: a second call never overwrites the first ReadAt.
func (s *Service) MarkAsRead(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	a, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.Status.AtLeast(models.StatusRead) {
		return a, nil
	}
	if err := s.requireLive(ctx, a); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	a.Status = models.StatusRead
	a.ReadAt = &now
	return s.save(ctx, a, events.ActionAssignmentRead)
}

// Acknowledge records the subject's explicit confirmation.
func (s *Service) Acknowledge(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	a, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.Status == models.StatusAcknowledged {
		return a, nil
	}
	if a.Status.AtLeast(models.StatusInProgress) {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "cannot acknowledge from status "+a.Status.String())
	}
	if err := s.requireLive(ctx, a); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	a.Status = models.StatusAcknowledged
	a.AcknowledgedAt = &now
	return s.save(ctx, a, events.ActionAssignmentAcknowledged)
}

// StartTraining moves a training assignment into in_progress. StartedAt is
// set on the first call only.
func (s *Service) StartTraining(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	a, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	item, err := s.catalog.ContentItem(a.ContentID)
	if err != nil {
		return nil, err
	}
	if !item.IsTraining() {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "content is not a training")
	}
	if a.Status.AtLeast(models.StatusInProgress) {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "training already started")
	}
	if err := s.requireLive(ctx, a); err != nil {
		return nil, err
	}
	a.Status = models.StatusInProgress
	if a.StartedAt == nil {
		now := requestcontext.Now(ctx)
		a.StartedAt = &now
	}
	return s.save(ctx, a, "")
}

// UpdateProgress records module advancement. Percent is clamped to [0,100];
// the status does not change.
func (s *Service) UpdateProgress(ctx context.Context, assignmentID id.AssignmentID, percent int) (*models.Assignment, error) {
	a, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusInProgress {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "progress updates require an in-progress training")
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	a.ProgressPercent = &percent
	return s.save(ctx, a, "")
}

// CompleteTraining finishes an in-progress training assignment. The score
// feeds downstream pass/fail decisions, so an out-of-range value is rejected
// rather than clamped.
func (s *Service) CompleteTraining(ctx context.Context, assignmentID id.AssignmentID, score int, certificateRef string) (*models.Assignment, error) {
	if score < 0 || score > 100 {
		return nil, dErrors.New(dErrors.CodeOutOfRange, "score must be between 0 and 100")
	}
	a, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != models.StatusInProgress {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "completion requires an in-progress training")
	}
	now := requestcontext.Now(ctx)
	full := 100
	a.Status = models.StatusCompleted
	a.CompletedAt = &now
	a.Score = &score
	a.ProgressPercent = &full
	a.CertificateRef = certificateRef
	return s.save(ctx, a, events.ActionAssignmentCompleted)
}

// Reset is the explicit administrative reassignment: the only backward
// transition. All interaction fields are cleared and the lifecycle restarts
// at sent.
func (s *Service) Reset(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	a, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	a.Status = models.StatusSent
	a.AssignedAt = now
	a.ReadAt = nil
	a.AcknowledgedAt = nil
	a.StartedAt = nil
	a.CompletedAt = nil
	a.Score = nil
	a.ProgressPercent = nil
	a.CertificateRef = ""
	return s.save(ctx, a, events.ActionAssignmentReset)
}

// Get returns one assignment.
func (s *Service) Get(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	return s.load(ctx, assignmentID)
}

// ListBySubject returns the subject's assignments.
func (s *Service) ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]*models.Assignment, error) {
	list, err := s.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list assignments", err)
	}
	return list, nil
}

func (s *Service) load(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	a, err := s.store.Get(ctx, assignmentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "assignment not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "load assignment", err)
	}
	return a, nil
}

// requireLive rejects transitions on assignments that already lapsed past
// their due date.
func (s *Service) requireLive(ctx context.Context, a *models.Assignment) error {
	if a.IsExpired(requestcontext.Now(ctx)) {
		return dErrors.New(dErrors.CodeInvalidTransition, "assignment has expired")
	}
	return nil
}

func (s *Service) save(ctx context.Context, a *models.Assignment, action events.Action) (*models.Assignment, error) {
	if err := s.store.Update(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrStaleVersion) {
			s.metrics.IncrementStaleTransitions()
			return nil, dErrors.New(dErrors.CodeStaleTransition, "assignment changed concurrently")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "save assignment", err)
	}
	s.metrics.IncrementAssignmentTransition(a.Status.String())
	if action != "" {
		s.recorder.Record(ctx, action, a.SubjectID, a.ID.String(), string(a.Status))
	}
	return a, nil
}
