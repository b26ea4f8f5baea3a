// Package service orchestrates certification pathways: training, the
// mandatory waiting window, the evaluation and the habilitation grant. A
// habilitation only ever appears as the outcome of a passed evaluation;
// there is no operation that writes one directly.
package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"certrail/internal/catalog"
	"certrail/internal/certification/models"
	"certrail/internal/platform/metrics"
	training "certrail/internal/training/models"
	id "certrail/pkg/domain"
	dErrors "certrail/pkg/domain-errors"
	"certrail/pkg/platform/events"
	"certrail/pkg/platform/sentinel"
	"certrail/pkg/requestcontext"
)

// Store persists path progress rows. Update must compare-and-set on Version.
type Store interface {
	Create(ctx context.Context, p *models.PathProgress) error
	Get(ctx context.Context, progressID id.PathProgressID) (*models.PathProgress, error)
	Update(ctx context.Context, p *models.PathProgress) error
	ListByCandidate(ctx context.Context, candidateID id.SubjectID) ([]*models.PathProgress, error)
	ListByCandidatePath(ctx context.Context, candidateID id.SubjectID, pathID id.PathID) ([]*models.PathProgress, error)
}

type Service struct {
	store    Store
	catalog  *catalog.Registry
	recorder *events.Recorder
	metrics  *metrics.Metrics
}

func NewService(store Store, reg *catalog.Registry, recorder *events.Recorder, m *metrics.Metrics) *Service {
	return &Service{store: store, catalog: reg, recorder: recorder, metrics: m}
}

// AssignPath enrolls a candidate on a certification path. Each assignment is
// a fresh run: earlier rows for the same pair stay as immutable history.
func (s *Service) AssignPath(ctx context.Context, pathID id.PathID, candidateID id.SubjectID, candidateType id.CandidateType, assignedBy string) (*models.PathProgress, error) {
	if _, err := s.catalog.Path(pathID); err != nil {
		return nil, err
	}
	p := &models.PathProgress{
		ID:            id.NewPathProgressID(),
		PathID:        pathID,
		CandidateID:   candidateID,
		CandidateType: candidateType,
		Status:        models.StatusAssigned,
		AssignedBy:    assignedBy,
		AssignedAt:    requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "create path progress", err)
	}
	s.recorder.Record(ctx, events.ActionPathAssigned, p.CandidateID, p.ID.String(), string(p.PathID))
	return p, nil
}

// MarkTrainingStarted records that the candidate began the path's training.
func (s *Service) MarkTrainingStarted(ctx context.Context, progressID id.PathProgressID) (*models.PathProgress, error) {
	p, err := s.load(ctx, progressID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.StatusAssigned {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "training start requires status assigned, have "+p.Status.String())
	}
	now := requestcontext.Now(ctx)
	p.Status = models.StatusTrainingInProgress
	p.TrainingStartedAt = &now
	return s.save(ctx, p, "")
}

// MarkTrainingCompleted closes the training leg and freezes the evaluation
// availability date. The frozen date is stored and never recomputed, so a
// later change to the path definition cannot move it.
func (s *Service) MarkTrainingCompleted(ctx context.Context, progressID id.PathProgressID, score *int) (*models.PathProgress, error) {
	if score != nil && (*score < 0 || *score > 100) {
		return nil, dErrors.New(dErrors.CodeOutOfRange, "training score must be between 0 and 100")
	}
	p, err := s.load(ctx, progressID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.StatusTrainingInProgress {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "training completion requires an in-progress training, have "+p.Status.String())
	}
	path, err := s.catalog.Path(p.PathID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	available := now.AddDate(0, 0, path.DaysBeforeAssessment)
	p.Status = models.StatusAwaitingEvaluation
	p.TrainingCompletedAt = &now
	p.TrainingScore = score
	p.EvaluationAvailableDate = &available
	return s.save(ctx, p, "")
}

// StartEvaluation opens the evaluation once the waiting window has elapsed.
// EvaluationStartedAt is the durable marker; a second start is rejected.
func (s *Service) StartEvaluation(ctx context.Context, progressID id.PathProgressID) (*models.PathProgress, error) {
	p, err := s.load(ctx, progressID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.StatusAwaitingEvaluation {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "evaluation start requires a completed training, have "+p.Status.String())
	}
	if p.EvaluationStartedAt != nil {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "evaluation already started")
	}
	now := requestcontext.Now(ctx)
	if p.EvaluationAvailableDate == nil || now.Before(*p.EvaluationAvailableDate) {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "evaluation window has not opened yet")
	}
	p.Status = models.StatusEvaluationInProgress
	p.EvaluationStartedAt = &now
	return s.save(ctx, p, "")
}

// SubmitEvaluation records the graded attempt. A passing score grants the
// habilitation immediately; a failing one ends the run. The version check in
// save makes a duplicate concurrent submit surface as StaleTransition.
func (s *Service) SubmitEvaluation(ctx context.Context, progressID id.PathProgressID, score int) (*models.PathProgress, error) {
	if score < 0 || score > 100 {
		return nil, dErrors.New(dErrors.CodeOutOfRange, "score must be between 0 and 100")
	}
	p, err := s.load(ctx, progressID)
	if err != nil {
		return nil, err
	}
	if p.EvaluationStartedAt == nil || p.Status != models.StatusEvaluationInProgress {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "submission requires an in-progress evaluation, have "+p.Status.String())
	}
	if p.EvaluationSubmittedAt != nil {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "evaluation already submitted")
	}
	path, err := s.catalog.Path(p.PathID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	passed := score >= path.PassingScore
	p.Status = models.StatusEvaluationSubmitted
	p.EvaluationSubmittedAt = &now
	p.EvaluationScore = &score
	p.EvaluationPassed = &passed

	s.settle(p, path, now)
	p, err = s.save(ctx, p, events.ActionEvaluationSubmitted)
	if err != nil {
		return nil, err
	}
	s.recordOutcome(ctx, p, score, passed)
	return p, nil
}

// Correct is the one-shot manual grading pass. The corrector may overwrite
// score and verdict; the outcome is settled from the corrected values and
// the grant time base moves to the correction instant.
func (s *Service) Correct(ctx context.Context, progressID id.PathProgressID, finalScore *int, comment string) (*models.PathProgress, error) {
	if finalScore != nil && (*finalScore < 0 || *finalScore > 100) {
		return nil, dErrors.New(dErrors.CodeOutOfRange, "score must be between 0 and 100")
	}
	p, err := s.load(ctx, progressID)
	if err != nil {
		return nil, err
	}
	if p.EvaluationSubmittedAt == nil {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "correction requires a submitted evaluation")
	}
	if p.EvaluationCorrectedAt != nil {
		return nil, dErrors.New(dErrors.CodeInvalidTransition, "evaluation already corrected")
	}
	path, err := s.catalog.Path(p.PathID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	p.EvaluationCorrectedAt = &now
	p.CorrectorComment = comment
	if finalScore != nil {
		passed := *finalScore >= path.PassingScore
		p.EvaluationScore = finalScore
		p.EvaluationPassed = &passed
	}
	// undo a previously settled outcome before re-settling from the
	// corrected verdict
	p.Status = models.StatusEvaluationSubmitted
	p.HabilitationGrantedAt = nil
	p.HabilitationExpiryDate = nil
	p.CompletedAt = nil

	s.settle(p, path, now)
	p, err = s.save(ctx, p, events.ActionEvaluationCorrected)
	if err != nil {
		return nil, err
	}
	if p.EvaluationScore != nil && p.EvaluationPassed != nil {
		s.recordOutcome(ctx, p, *p.EvaluationScore, *p.EvaluationPassed)
	}
	return p, nil
}

// Get returns one path progress record.
func (s *Service) Get(ctx context.Context, progressID id.PathProgressID) (*models.PathProgress, error) {
	return s.load(ctx, progressID)
}

// ListByCandidate returns all of the candidate's runs, current and historic.
func (s *Service) ListByCandidate(ctx context.Context, candidateID id.SubjectID) ([]*models.PathProgress, error) {
	list, err := s.store.ListByCandidate(ctx, candidateID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list path progress", err)
	}
	return list, nil
}

// CurrentProgress returns the candidate's latest run on a path: the row with
// the newest AssignedAt. Older rows are immutable history.
func (s *Service) CurrentProgress(ctx context.Context, candidateID id.SubjectID, pathID id.PathID) (*models.PathProgress, error) {
	list, err := s.store.ListByCandidatePath(ctx, candidateID, pathID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list path progress", err)
	}
	if len(list) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "no progress for candidate on this path")
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].AssignedAt.After(list[j].AssignedAt)
	})
	return list[0], nil
}

// SyncFromTraining drives the training leg of the candidate's current run
// from a training progress snapshot for the path's training. Correlation is
// read-only; nothing is written back to the training record.
func (s *Service) SyncFromTraining(ctx context.Context, pathID id.PathID, snapshot *training.Progress) (*models.PathProgress, error) {
	path, err := s.catalog.Path(pathID)
	if err != nil {
		return nil, err
	}
	if snapshot.TrainingID != path.TrainingRef {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "snapshot does not belong to the path's training")
	}
	p, err := s.CurrentProgress(ctx, snapshot.SubjectID, pathID)
	if err != nil {
		return nil, err
	}
	switch snapshot.Status {
	case training.StatusInProgress:
		if p.Status != models.StatusAssigned {
			return p, nil
		}
		return s.MarkTrainingStarted(ctx, p.ID)
	case training.StatusCompleted:
		if p.Status == models.StatusAssigned {
			if p, err = s.MarkTrainingStarted(ctx, p.ID); err != nil {
				return nil, err
			}
		}
		if p.Status != models.StatusTrainingInProgress {
			return p, nil
		}
		var score *int
		if n := len(snapshot.AssessmentResults); n > 0 {
			latest := snapshot.AssessmentResults[n-1].Score
			score = &latest
		}
		return s.MarkTrainingCompleted(ctx, p.ID, score)
	default:
		return p, nil
	}
}

// settle resolves a submitted evaluation with a verdict into its terminal
// state. Grant time base: EvaluationCorrectedAt if set, else
// EvaluationSubmittedAt.
func (s *Service) settle(p *models.PathProgress, path catalog.CertificationPath, now time.Time) {
	if p.EvaluationPassed == nil {
		return
	}
	if !*p.EvaluationPassed {
		p.Status = models.StatusEvaluationFailed
		p.CompletedAt = &now
		return
	}
	base := p.EvaluationSubmittedAt
	if p.EvaluationCorrectedAt != nil {
		base = p.EvaluationCorrectedAt
	}
	expiry := base.AddDate(0, path.HabilitationValidityMonths, 0)
	p.Status = models.StatusHabilitationActive
	p.HabilitationGrantedAt = base
	p.HabilitationExpiryDate = &expiry
	p.CompletedAt = &now
}

func (s *Service) recordOutcome(ctx context.Context, p *models.PathProgress, score int, passed bool) {
	s.metrics.RecordEvaluation(score, passed)
	if passed {
		s.recorder.Record(ctx, events.ActionHabilitationGranted, p.CandidateID, p.ID.String(), string(p.PathID))
	} else {
		s.recorder.Record(ctx, events.ActionCertificationFailed, p.CandidateID, p.ID.String(), string(p.PathID))
	}
}

func (s *Service) load(ctx context.Context, progressID id.PathProgressID) (*models.PathProgress, error) {
	p, err := s.store.Get(ctx, progressID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "path progress not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "load path progress", err)
	}
	return p, nil
}

func (s *Service) save(ctx context.Context, p *models.PathProgress, action events.Action) (*models.PathProgress, error) {
	if err := s.store.Update(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrStaleVersion) {
			s.metrics.IncrementStaleTransitions()
			return nil, dErrors.New(dErrors.CodeStaleTransition, "path progress changed concurrently")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "save path progress", err)
	}
	if action != "" {
		s.recorder.Record(ctx, action, p.CandidateID, p.ID.String(), string(p.PathID))
	}
	return p, nil
}
