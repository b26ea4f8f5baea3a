package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certrail/internal/assignment/models"
	id "certrail/pkg/domain"
	"certrail/pkg/platform/sentinel"
)

func newAssignment(subject id.SubjectID) *models.Assignment {
	return &models.Assignment{
		ID:         id.NewAssignmentID(),
		ContentID:  "content-1",
		SubjectID:  subject,
		Status:     models.StatusSent,
		AssignedAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestInMemoryStore(t *testing.T) {
	store := New()
	ctx := context.Background()

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		_, err := store.Get(ctx, id.NewAssignmentID())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("create then get returns a copy", func(t *testing.T) {
		a := newAssignment(id.NewSubjectID())
		require.NoError(t, store.Create(ctx, a))
		assert.Equal(t, int64(1), a.Version)

		got, err := store.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)

		// Mutating the returned row must not leak into the store.
		got.Status = models.StatusCompleted
		again, err := store.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusSent, again.Status)
	})

	t.Run("duplicate create conflicts", func(t *testing.T) {
		a := newAssignment(id.NewSubjectID())
		require.NoError(t, store.Create(ctx, a))
		assert.ErrorIs(t, store.Create(ctx, a), sentinel.ErrConflict)
	})

	t.Run("update with stale version is rejected", func(t *testing.T) {
		a := newAssignment(id.NewSubjectID())
		require.NoError(t, store.Create(ctx, a))

		fresh, err := store.Get(ctx, a.ID)
		require.NoError(t, err)
		stale, err := store.Get(ctx, a.ID)
		require.NoError(t, err)

		fresh.Status = models.StatusRead
		require.NoError(t, store.Update(ctx, fresh))

		stale.Status = models.StatusAcknowledged
		assert.ErrorIs(t, store.Update(ctx, stale), sentinel.ErrStaleVersion)
	})

	t.Run("list by subject filters rows", func(t *testing.T) {
		subject := id.NewSubjectID()
		require.NoError(t, store.Create(ctx, newAssignment(subject)))
		require.NoError(t, store.Create(ctx, newAssignment(subject)))
		require.NoError(t, store.Create(ctx, newAssignment(id.NewSubjectID())))

		list, err := store.ListBySubject(ctx, subject)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})
}

// Exactly one of N concurrent writers against the same version may win.
func TestInMemoryStore_ConcurrentCAS(t *testing.T) {
	store := New()
	ctx := context.Background()

	a := newAssignment(id.NewSubjectID())
	require.NoError(t, store.Create(ctx, a))

	const writers = 50
	var wg sync.WaitGroup
	wg.Add(writers)
	wins := make(chan struct{}, writers)

	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			row, err := store.Get(ctx, a.ID)
			if err != nil {
				return
			}
			row.Version = 1 // everyone claims the initial version
			row.Status = models.StatusRead
			if err := store.Update(ctx, row); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners int
	for range wins {
		winners++
	}
	assert.Equal(t, 1, winners, "exactly one CAS writer may succeed")
}
