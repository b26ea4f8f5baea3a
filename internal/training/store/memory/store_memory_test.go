package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certrail/internal/training/models"
	id "certrail/pkg/domain"
	"certrail/pkg/platform/sentinel"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	subject := id.NewSubjectID()

	t.Run("get missing pair returns not found", func(t *testing.T) {
		store := New()
		_, err := store.GetByKey(ctx, subject, "training-forklift")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("pair index resolves the created row", func(t *testing.T) {
		store := New()
		p := &models.Progress{ID: id.NewProgressID(), SubjectID: subject, TrainingID: "training-forklift", Status: models.StatusNotStarted}
		require.NoError(t, store.Create(ctx, p))

		got, err := store.GetByKey(ctx, subject, "training-forklift")
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, int64(1), got.Version)
	})

	t.Run("second create for the same pair conflicts", func(t *testing.T) {
		store := New()
		first := &models.Progress{ID: id.NewProgressID(), SubjectID: subject, TrainingID: "training-forklift"}
		require.NoError(t, store.Create(ctx, first))

		dup := &models.Progress{ID: id.NewProgressID(), SubjectID: subject, TrainingID: "training-forklift"}
		assert.ErrorIs(t, store.Create(ctx, dup), sentinel.ErrConflict)
	})

	t.Run("returned rows do not alias stored state", func(t *testing.T) {
		store := New()
		p := &models.Progress{ID: id.NewProgressID(), SubjectID: subject, TrainingID: "training-forklift"}
		require.NoError(t, store.Create(ctx, p))

		got, err := store.Get(ctx, p.ID)
		require.NoError(t, err)
		got.CompletedModuleIDs = append(got.CompletedModuleIDs, "module-theory")

		again, err := store.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, again.CompletedModuleIDs)
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		store := New()
		p := &models.Progress{ID: id.NewProgressID(), SubjectID: subject, TrainingID: "training-forklift"}
		require.NoError(t, store.Create(ctx, p))

		first, err := store.Get(ctx, p.ID)
		require.NoError(t, err)
		second, err := store.Get(ctx, p.ID)
		require.NoError(t, err)

		require.NoError(t, store.Update(ctx, first))
		assert.ErrorIs(t, store.Update(ctx, second), sentinel.ErrStaleVersion)
	})

	t.Run("list filters by subject", func(t *testing.T) {
		store := New()
		other := id.NewSubjectID()
		require.NoError(t, store.Create(ctx, &models.Progress{ID: id.NewProgressID(), SubjectID: subject, TrainingID: "training-forklift"}))
		require.NoError(t, store.Create(ctx, &models.Progress{ID: id.NewProgressID(), SubjectID: subject, TrainingID: "training-crane"}))
		require.NoError(t, store.Create(ctx, &models.Progress{ID: id.NewProgressID(), SubjectID: other, TrainingID: "training-forklift"}))

		got, err := store.ListBySubject(ctx, subject)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}
