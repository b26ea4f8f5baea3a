package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certrail/internal/catalog"
	"certrail/internal/certification/models"
	"certrail/internal/certification/store/memory"
	training "certrail/internal/training/models"
	id "certrail/pkg/domain"
	dErrors "certrail/pkg/domain-errors"
	"certrail/pkg/platform/events"
	"certrail/pkg/platform/sentinel"
	"certrail/pkg/requestcontext"
)

const pathCrane = id.PathID("path-crane-operator")

var testTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func testRegistry(t *testing.T) *catalog.Registry {
	t.Helper()
	reg, err := catalog.NewRegistry(nil, []catalog.CertificationPath{
		{
			ID:                         pathCrane,
			TrainingRef:                "training-crane",
			AssessmentRef:              "assessment-crane",
			DaysBeforeAssessment:       15,
			PassingScore:               70,
			HabilitationCode:           "HAB-CRANE",
			HabilitationValidityMonths: 24,
		},
		{
			ID:                   "path-immediate",
			TrainingRef:          "training-induction",
			AssessmentRef:        "assessment-induction",
			DaysBeforeAssessment: 0,
			PassingScore:         50,
			HabilitationCode:     "HAB-SITE",
		},
	})
	require.NoError(t, err)
	return reg
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(memory.New(), testRegistry(t), events.Nop(), nil)
}

func ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

// drive runs a record up to a submitted-and-startable evaluation.
func drive(t *testing.T, svc *Service, candidate id.SubjectID) *models.PathProgress {
	t.Helper()
	ctx := ctxAt(testTime)
	p, err := svc.AssignPath(ctx, pathCrane, candidate, id.CandidateEmployee, "admin-7")
	require.NoError(t, err)
	p, err = svc.MarkTrainingStarted(ctx, p.ID)
	require.NoError(t, err)
	p, err = svc.MarkTrainingCompleted(ctx, p.ID, nil)
	require.NoError(t, err)
	p, err = svc.StartEvaluation(ctxAt(*p.EvaluationAvailableDate), p.ID)
	require.NoError(t, err)
	return p
}

func TestAssignPath(t *testing.T) {
	svc := newTestService(t)
	ctx := ctxAt(testTime)
	candidate := id.NewSubjectID()

	t.Run("creates run in assigned status", func(t *testing.T) {
		p, err := svc.AssignPath(ctx, pathCrane, candidate, id.CandidateEmployee, "admin-7")
		require.NoError(t, err)
		assert.Equal(t, models.StatusAssigned, p.Status)
		assert.Equal(t, "admin-7", p.AssignedBy)
		assert.Equal(t, testTime, p.AssignedAt)
	})

	t.Run("rejects unknown path", func(t *testing.T) {
		_, err := svc.AssignPath(ctx, "path-missing", candidate, id.CandidateEmployee, "admin-7")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestFullPipeline_GrantsHabilitation(t *testing.T) {
	svc := newTestService(t)
	ctx := ctxAt(testTime)
	candidate := id.NewSubjectID()

	p, err := svc.AssignPath(ctx, pathCrane, candidate, id.CandidateEmployee, "admin-7")
	require.NoError(t, err)

	p, err = svc.MarkTrainingStarted(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTrainingInProgress, p.Status)

	score := 81
	p, err = svc.MarkTrainingCompleted(ctx, p.ID, &score)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAwaitingEvaluation, p.Status)
	require.NotNil(t, p.EvaluationAvailableDate)
	assert.Equal(t, testTime.AddDate(0, 0, 15), *p.EvaluationAvailableDate)

	t.Run("evaluation is locked before the window opens", func(t *testing.T) {
		_, err := svc.StartEvaluation(ctxAt(testTime.AddDate(0, 0, 14)), p.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	t.Run("awaiting reads as available once the window opens", func(t *testing.T) {
		assert.Equal(t, models.StatusAwaitingEvaluation, p.EffectiveStatus(testTime.AddDate(0, 0, 14)))
		assert.Equal(t, models.StatusEvaluationAvailable, p.EffectiveStatus(testTime.AddDate(0, 0, 15)))
	})

	openAt := testTime.AddDate(0, 0, 15)
	p, err = svc.StartEvaluation(ctxAt(openAt), p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEvaluationInProgress, p.Status)

	submitAt := openAt.Add(2 * time.Hour)
	p, err = svc.SubmitEvaluation(ctxAt(submitAt), p.ID, 78)
	require.NoError(t, err)

	assert.Equal(t, models.StatusHabilitationActive, p.Status)
	require.NotNil(t, p.EvaluationPassed)
	assert.True(t, *p.EvaluationPassed)
	require.NotNil(t, p.HabilitationGrantedAt)
	assert.Equal(t, submitAt, *p.HabilitationGrantedAt)
	require.NotNil(t, p.HabilitationExpiryDate)
	assert.Equal(t, submitAt.AddDate(0, 24, 0), *p.HabilitationExpiryDate)
	require.NotNil(t, p.CompletedAt)

	t.Run("habilitation reads as expired after its date", func(t *testing.T) {
		assert.Equal(t, models.StatusHabilitationActive, p.EffectiveStatus(p.HabilitationExpiryDate.Add(-time.Hour)))
		assert.Equal(t, models.StatusHabilitationExpired, p.EffectiveStatus(*p.HabilitationExpiryDate))
	})
}

func TestEvaluationDateFreeze(t *testing.T) {
	svc := newTestService(t)
	ctx := ctxAt(testTime)
	candidate := id.NewSubjectID()

	p, err := svc.AssignPath(ctx, pathCrane, candidate, id.CandidateEmployee, "admin-7")
	require.NoError(t, err)
	_, err = svc.MarkTrainingStarted(ctx, p.ID)
	require.NoError(t, err)
	p, err = svc.MarkTrainingCompleted(ctx, p.ID, nil)
	require.NoError(t, err)
	frozen := *p.EvaluationAvailableDate

	got, err := svc.Get(ctxAt(testTime.AddDate(0, 2, 0)), p.ID)
	require.NoError(t, err)
	assert.Equal(t, frozen, *got.EvaluationAvailableDate, "availability date must never be recomputed")
}

func TestImmediateAvailability(t *testing.T) {
	svc := newTestService(t)
	ctx := ctxAt(testTime)
	candidate := id.NewSubjectID()

	p, err := svc.AssignPath(ctx, "path-immediate", candidate, id.CandidateVisitor, "admin-7")
	require.NoError(t, err)
	_, err = svc.MarkTrainingStarted(ctx, p.ID)
	require.NoError(t, err)
	p, err = svc.MarkTrainingCompleted(ctx, p.ID, nil)
	require.NoError(t, err)

	p, err = svc.StartEvaluation(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEvaluationInProgress, p.Status)
}

func TestFailedRun_TerminalAndRetriedAsNewRow(t *testing.T) {
	svc := newTestService(t)
	candidate := id.NewSubjectID()

	p := drive(t, svc, candidate)
	failAt := p.EvaluationStartedAt.Add(time.Hour)
	p, err := svc.SubmitEvaluation(ctxAt(failAt), p.ID, 40)
	require.NoError(t, err)

	assert.Equal(t, models.StatusEvaluationFailed, p.Status)
	assert.True(t, p.Failed())
	assert.Nil(t, p.HabilitationGrantedAt)

	t.Run("failed run accepts no further transitions", func(t *testing.T) {
		_, err := svc.StartEvaluation(ctxAt(failAt.Add(time.Hour)), p.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	t.Run("retry is a fresh row and becomes current", func(t *testing.T) {
		retryAt := failAt.AddDate(0, 0, 7)
		retry, err := svc.AssignPath(ctxAt(retryAt), pathCrane, candidate, id.CandidateEmployee, "admin-7")
		require.NoError(t, err)
		assert.NotEqual(t, p.ID, retry.ID)

		current, err := svc.CurrentProgress(context.Background(), candidate, pathCrane)
		require.NoError(t, err)
		assert.Equal(t, retry.ID, current.ID)

		list, err := svc.ListByCandidate(context.Background(), candidate)
		require.NoError(t, err)
		assert.Len(t, list, 2, "the failed row stays as history")
	})
}

func TestCorrect(t *testing.T) {
	candidate := id.NewSubjectID()

	t.Run("overturns a failing submission", func(t *testing.T) {
		svc := newTestService(t)
		p := drive(t, svc, candidate)
		submitAt := p.EvaluationStartedAt.Add(time.Hour)
		p, err := svc.SubmitEvaluation(ctxAt(submitAt), p.ID, 65)
		require.NoError(t, err)
		require.Equal(t, models.StatusEvaluationFailed, p.Status)

		correctAt := submitAt.AddDate(0, 0, 2)
		corrected := 72
		p, err = svc.Correct(ctxAt(correctAt), p.ID, &corrected, "two answers misgraded")
		require.NoError(t, err)

		assert.Equal(t, models.StatusHabilitationActive, p.Status)
		assert.True(t, *p.EvaluationPassed)
		assert.Equal(t, "two answers misgraded", p.CorrectorComment)
		require.NotNil(t, p.HabilitationGrantedAt)
		assert.Equal(t, correctAt, *p.HabilitationGrantedAt, "grant base moves to the correction instant")
		assert.Equal(t, correctAt.AddDate(0, 24, 0), *p.HabilitationExpiryDate)
	})

	t.Run("overturns a passing submission", func(t *testing.T) {
		svc := newTestService(t)
		p := drive(t, svc, candidate)
		submitAt := p.EvaluationStartedAt.Add(time.Hour)
		p, err := svc.SubmitEvaluation(ctxAt(submitAt), p.ID, 75)
		require.NoError(t, err)
		require.Equal(t, models.StatusHabilitationActive, p.Status)

		corrected := 60
		p, err = svc.Correct(ctxAt(submitAt.AddDate(0, 0, 2)), p.ID, &corrected, "answer sheet mixup")
		require.NoError(t, err)

		assert.Equal(t, models.StatusEvaluationFailed, p.Status)
		assert.False(t, *p.EvaluationPassed)
		assert.Nil(t, p.HabilitationGrantedAt, "revoked grant must not linger")
		assert.Nil(t, p.HabilitationExpiryDate)
	})

	t.Run("is one-shot", func(t *testing.T) {
		svc := newTestService(t)
		p := drive(t, svc, candidate)
		submitAt := p.EvaluationStartedAt.Add(time.Hour)
		_, err := svc.SubmitEvaluation(ctxAt(submitAt), p.ID, 75)
		require.NoError(t, err)
		_, err = svc.Correct(ctxAt(submitAt), p.ID, nil, "confirmed")
		require.NoError(t, err)

		_, err = svc.Correct(ctxAt(submitAt), p.ID, nil, "again")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	t.Run("requires a submitted evaluation", func(t *testing.T) {
		svc := newTestService(t)
		p := drive(t, svc, candidate)
		_, err := svc.Correct(ctxAt(testTime), p.ID, nil, "premature")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func TestSubmitEvaluation_Guards(t *testing.T) {
	svc := newTestService(t)
	candidate := id.NewSubjectID()
	p := drive(t, svc, candidate)
	submitAt := p.EvaluationStartedAt.Add(time.Hour)

	t.Run("rejects out of range score", func(t *testing.T) {
		_, err := svc.SubmitEvaluation(ctxAt(submitAt), p.ID, 101)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeOutOfRange))
	})

	t.Run("rejects a second submission", func(t *testing.T) {
		_, err := svc.SubmitEvaluation(ctxAt(submitAt), p.ID, 80)
		require.NoError(t, err)
		_, err = svc.SubmitEvaluation(ctxAt(submitAt), p.ID, 90)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

// staleOnceStore forces the first Update to lose the version race, the way a
// concurrent grader's submit would.
type staleOnceStore struct {
	*memory.InMemoryStore
	tripped bool
}

func (s *staleOnceStore) Update(ctx context.Context, p *models.PathProgress) error {
	if !s.tripped {
		s.tripped = true
		return sentinel.ErrStaleVersion
	}
	return s.InMemoryStore.Update(ctx, p)
}

func TestSubmitEvaluation_ConcurrentLoserGetsStaleTransition(t *testing.T) {
	store := &staleOnceStore{InMemoryStore: memory.New()}
	svc := NewService(store, testRegistry(t), events.Nop(), nil)
	candidate := id.NewSubjectID()

	ctx := ctxAt(testTime)
	p, err := svc.AssignPath(ctx, pathCrane, candidate, id.CandidateEmployee, "admin-7")
	require.NoError(t, err)

	_, err = svc.MarkTrainingStarted(ctx, p.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeStaleTransition))

	// the loser retries against fresh state and succeeds
	got, err := svc.MarkTrainingStarted(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTrainingInProgress, got.Status)
}

func TestSyncFromTraining(t *testing.T) {
	svc := newTestService(t)
	candidate := id.NewSubjectID()
	ctx := ctxAt(testTime)

	_, err := svc.AssignPath(ctx, pathCrane, candidate, id.CandidateEmployee, "admin-7")
	require.NoError(t, err)

	t.Run("rejects a snapshot for another training", func(t *testing.T) {
		snap := &training.Progress{SubjectID: candidate, TrainingID: "training-first-aid", Status: training.StatusInProgress}
		_, err := svc.SyncFromTraining(ctx, pathCrane, snap)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("in-progress snapshot starts the training leg", func(t *testing.T) {
		snap := &training.Progress{SubjectID: candidate, TrainingID: "training-crane", Status: training.StatusInProgress}
		got, err := svc.SyncFromTraining(ctx, pathCrane, snap)
		require.NoError(t, err)
		assert.Equal(t, models.StatusTrainingInProgress, got.Status)
	})

	t.Run("completed snapshot closes the leg and freezes the window", func(t *testing.T) {
		snap := &training.Progress{
			SubjectID:  candidate,
			TrainingID: "training-crane",
			Status:     training.StatusCompleted,
			AssessmentResults: []training.AssessmentResult{
				{AssessmentID: "quiz-1", Score: 84, Passed: true},
			},
		}
		got, err := svc.SyncFromTraining(ctx, pathCrane, snap)
		require.NoError(t, err)
		assert.Equal(t, models.StatusAwaitingEvaluation, got.Status)
		require.NotNil(t, got.TrainingScore)
		assert.Equal(t, 84, *got.TrainingScore)
		require.NotNil(t, got.EvaluationAvailableDate)
	})

	t.Run("snapshot behind the record is a no-op", func(t *testing.T) {
		snap := &training.Progress{SubjectID: candidate, TrainingID: "training-crane", Status: training.StatusInProgress}
		got, err := svc.SyncFromTraining(ctx, pathCrane, snap)
		require.NoError(t, err)
		assert.Equal(t, models.StatusAwaitingEvaluation, got.Status)
	})
}
