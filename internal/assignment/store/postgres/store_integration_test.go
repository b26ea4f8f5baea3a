//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certrail/internal/assignment/models"
	id "certrail/pkg/domain"
	"certrail/pkg/platform/sentinel"
	"certrail/pkg/testutil/containers"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	pc := containers.NewPostgresContainer(t)

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "..", "migrations", "001_init.sql"))
	require.NoError(t, err)
	require.NoError(t, pc.Exec(context.Background(), string(schema)))

	return New(pc.DB)
}

func TestStore_RoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	subject := id.NewSubjectID()
	due := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	a := &models.Assignment{
		ID:         id.NewAssignmentID(),
		ContentID:  "content-forklift",
		SubjectID:  subject,
		Status:     models.StatusSent,
		AssignedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		DueDate:    &due,
	}
	require.NoError(t, store.Create(ctx, a))

	got, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, models.StatusSent, got.Status)
	assert.Equal(t, int64(1), got.Version)
	require.NotNil(t, got.DueDate)
	assert.True(t, due.Equal(*got.DueDate))

	t.Run("duplicate create conflicts", func(t *testing.T) {
		dup := *a
		assert.ErrorIs(t, store.Create(ctx, &dup), sentinel.ErrConflict)
	})
}

func TestStore_VersionCompareAndSet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	a := &models.Assignment{
		ID:         id.NewAssignmentID(),
		ContentID:  "content-forklift",
		SubjectID:  id.NewSubjectID(),
		Status:     models.StatusSent,
		AssignedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Create(ctx, a))

	first, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	second, err := store.Get(ctx, a.ID)
	require.NoError(t, err)

	first.Status = models.StatusRead
	require.NoError(t, store.Update(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	second.Status = models.StatusAcknowledged
	assert.ErrorIs(t, store.Update(ctx, second), sentinel.ErrStaleVersion)

	t.Run("update on a missing row is not found", func(t *testing.T) {
		ghost := &models.Assignment{ID: id.NewAssignmentID(), Version: 1}
		assert.ErrorIs(t, store.Update(ctx, ghost), sentinel.ErrNotFound)
	})
}

func TestStore_ListBySubject(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	subject := id.NewSubjectID()

	for i, content := range []id.ContentID{"content-a", "content-b"} {
		a := &models.Assignment{
			ID:         id.NewAssignmentID(),
			ContentID:  content,
			SubjectID:  subject,
			Status:     models.StatusSent,
			AssignedAt: time.Now().UTC().Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.Create(ctx, a))
	}

	got, err := store.ListBySubject(ctx, subject)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, id.ContentID("content-a"), got[0].ContentID)
}
