package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certrail/internal/assignment/models"
	"certrail/internal/assignment/store/memory"
	"certrail/internal/catalog"
	id "certrail/pkg/domain"
	dErrors "certrail/pkg/domain-errors"
	"certrail/pkg/platform/events"
	"certrail/pkg/requestcontext"
)

var testTime = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func testRegistry(t *testing.T) *catalog.Registry {
	t.Helper()
	reg, err := catalog.NewRegistry([]catalog.ContentItem{
		{ID: "content-forklift", Kind: id.ContentKindTraining, Priority: id.PriorityHigh, TrainingRef: "training-forklift", ValidityMonths: 12},
		{ID: "content-alert", Kind: id.ContentKindAlert, Priority: id.PriorityCritical},
	}, nil)
	require.NoError(t, err)
	return reg
}

func newTestService(t *testing.T) (*Service, *events.Recorder) {
	t.Helper()
	recorder := events.Nop()
	return NewService(memory.New(), testRegistry(t), recorder, nil), recorder
}

func ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func TestAssign(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ctxAt(testTime)
	subject := id.NewSubjectID()

	t.Run("creates assignment in sent status", func(t *testing.T) {
		a, err := svc.Assign(ctx, "content-forklift", subject, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, models.StatusSent, a.Status)
		assert.Equal(t, testTime, a.AssignedAt)
		assert.False(t, a.ID.IsNil())
	})

	t.Run("rejects unknown content", func(t *testing.T) {
		_, err := svc.Assign(ctx, "content-missing", subject, nil, nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// Covers the full happy path: sent → read → in_progress → completed.
func TestTrainingLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ctxAt(testTime)
	subject := id.NewSubjectID()

	a, err := svc.Assign(ctx, "content-forklift", subject, nil, nil)
	require.NoError(t, err)

	a, err = svc.MarkAsRead(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRead, a.Status)
	require.NotNil(t, a.ReadAt)
	assert.Equal(t, testTime, *a.ReadAt)

	a, err = svc.StartTraining(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, a.Status)
	require.NotNil(t, a.StartedAt)

	a, err = svc.CompleteTraining(ctx, a.ID, 88, "cert-001")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, a.Status)
	require.NotNil(t, a.Score)
	assert.Equal(t, 88, *a.Score)
	require.NotNil(t, a.ProgressPercent)
	assert.Equal(t, 100, *a.ProgressPercent)
	require.NotNil(t, a.CompletedAt)
}

func TestMarkAsRead_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)
	subject := id.NewSubjectID()

	a, err := svc.Assign(ctxAt(testTime), "content-alert", subject, nil, nil)
	require.NoError(t, err)

	first, err := svc.MarkAsRead(ctxAt(testTime), a.ID)
	require.NoError(t, err)

	// A later second call must not overwrite the first timestamp.
	second, err := svc.MarkAsRead(ctxAt(testTime.Add(time.Hour)), a.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ReadAt, second.ReadAt)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Version, second.Version, "no write should happen on the idempotent call")
}

func TestAcknowledge(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ctxAt(testTime)

	t.Run("from read", func(t *testing.T) {
		a, err := svc.Assign(ctx, "content-alert", id.NewSubjectID(), nil, nil)
		require.NoError(t, err)
		_, err = svc.MarkAsRead(ctx, a.ID)
		require.NoError(t, err)

		a, err = svc.Acknowledge(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusAcknowledged, a.Status)
		require.NotNil(t, a.AcknowledgedAt)
	})

	t.Run("rejected once training started", func(t *testing.T) {
		a, err := svc.Assign(ctx, "content-forklift", id.NewSubjectID(), nil, nil)
		require.NoError(t, err)
		_, err = svc.StartTraining(ctx, a.ID)
		require.NoError(t, err)

		_, err = svc.Acknowledge(ctx, a.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func TestStartTraining_NonTrainingContent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ctxAt(testTime)

	a, err := svc.Assign(ctx, "content-alert", id.NewSubjectID(), nil, nil)
	require.NoError(t, err)

	_, err = svc.StartTraining(ctx, a.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func TestUpdateProgress(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ctxAt(testTime)

	a, err := svc.Assign(ctx, "content-forklift", id.NewSubjectID(), nil, nil)
	require.NoError(t, err)

	t.Run("requires in_progress", func(t *testing.T) {
		_, err := svc.UpdateProgress(ctx, a.ID, 50)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	_, err = svc.StartTraining(ctx, a.ID)
	require.NoError(t, err)

	t.Run("clamps percent into range", func(t *testing.T) {
		got, err := svc.UpdateProgress(ctx, a.ID, 150)
		require.NoError(t, err)
		assert.Equal(t, 100, *got.ProgressPercent)
		assert.Equal(t, models.StatusInProgress, got.Status, "progress does not change status")

		got, err = svc.UpdateProgress(ctx, a.ID, -10)
		require.NoError(t, err)
		assert.Equal(t, 0, *got.ProgressPercent)
	})
}

func TestCompleteTraining_ScoreOutOfRange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ctxAt(testTime)

	a, err := svc.Assign(ctx, "content-forklift", id.NewSubjectID(), nil, nil)
	require.NoError(t, err)
	_, err = svc.StartTraining(ctx, a.ID)
	require.NoError(t, err)

	_, err = svc.CompleteTraining(ctx, a.ID, 101, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeOutOfRange))
}

func TestExpiry_DerivedNotStored(t *testing.T) {
	svc, _ := newTestService(t)
	due := testTime.Add(24 * time.Hour)

	a, err := svc.Assign(ctxAt(testTime), "content-forklift", id.NewSubjectID(), &due, nil)
	require.NoError(t, err)

	t.Run("reads as expired after due date", func(t *testing.T) {
		got, err := svc.Get(ctxAt(testTime), a.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusSent, got.EffectiveStatus(due.Add(-time.Minute)))
		assert.Equal(t, models.StatusExpired, got.EffectiveStatus(due.Add(time.Minute)))
		assert.Equal(t, models.StatusSent, got.Status, "stored status untouched")
	})

	t.Run("transitions rejected after due date", func(t *testing.T) {
		_, err := svc.MarkAsRead(ctxAt(due.Add(time.Minute)), a.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	t.Run("completed assignment never reads expired", func(t *testing.T) {
		b, err := svc.Assign(ctxAt(testTime), "content-forklift", id.NewSubjectID(), &due, nil)
		require.NoError(t, err)
		_, err = svc.StartTraining(ctxAt(testTime), b.ID)
		require.NoError(t, err)
		done, err := svc.CompleteTraining(ctxAt(testTime), b.ID, 90, "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, done.EffectiveStatus(due.Add(48*time.Hour)))
	})
}

func TestReset_OnlyBackwardTransition(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ctxAt(testTime)

	a, err := svc.Assign(ctx, "content-forklift", id.NewSubjectID(), nil, nil)
	require.NoError(t, err)
	_, err = svc.StartTraining(ctx, a.ID)
	require.NoError(t, err)
	_, err = svc.CompleteTraining(ctx, a.ID, 75, "")
	require.NoError(t, err)

	later := ctxAt(testTime.Add(time.Hour))
	got, err := svc.Reset(later, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, got.Status)
	assert.Nil(t, got.ReadAt)
	assert.Nil(t, got.StartedAt)
	assert.Nil(t, got.CompletedAt)
	assert.Nil(t, got.Score)
	assert.Nil(t, got.ProgressPercent)
	assert.Equal(t, testTime.Add(time.Hour), got.AssignedAt)
}

func TestStaleTransition(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := ctxAt(testTime)

	a, err := svc.Assign(ctx, "content-forklift", id.NewSubjectID(), nil, nil)
	require.NoError(t, err)

	// Two actors read the same version; both try to advance it. The memory
	// store applies the first write and rejects the second by version.
	_, err = svc.StartTraining(ctx, a.ID)
	require.NoError(t, err)

	stale := a.Clone()
	stale.Status = models.StatusRead
	err = svc.store.Update(ctx, &stale)
	require.Error(t, err)
}

func TestEvents_EmittedOnTransitions(t *testing.T) {
	recorder := events.NewRecorder(16, discardLogger())
	svc := NewService(memory.New(), testRegistry(t), recorder, nil)
	ctx := ctxAt(testTime)
	subject := id.NewSubjectID()

	a, err := svc.Assign(ctx, "content-forklift", subject, nil, nil)
	require.NoError(t, err)
	_, err = svc.MarkAsRead(ctx, a.ID)
	require.NoError(t, err)
	_, err = svc.StartTraining(ctx, a.ID)
	require.NoError(t, err)
	_, err = svc.CompleteTraining(ctx, a.ID, 95, "")
	require.NoError(t, err)

	got := recorder.Drain(2, time.Second)
	require.Len(t, got, 2)
	assert.Equal(t, string(events.ActionAssignmentRead), got[0].Action)
	assert.Equal(t, string(events.ActionAssignmentCompleted), got[1].Action)
	assert.Equal(t, subject, got[0].SubjectID)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
