// Package memory is the reference assignment store: per-entity keyed storage
// so concurrent updates to different rows never contend on a shared blob.
package memory

import (
	"context"
	"sync"

	"certrail/internal/assignment/models"
	id "certrail/pkg/domain"
	"certrail/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu   sync.RWMutex
	rows map[id.AssignmentID]*models.Assignment
}

func New() *InMemoryStore {
	return &InMemoryStore{rows: make(map[id.AssignmentID]*models.Assignment)}
}

func (s *InMemoryStore) Create(_ context.Context, a *models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[a.ID]; exists {
		return sentinel.ErrConflict
	}
	a.Version = 1
	stored := a.Clone()
	s.rows[a.ID] = &stored
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, exists := s.rows[assignmentID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	out := row.Clone()
	return &out, nil
}

// Update applies a compare-and-set on Version: the caller's copy must carry
// the version it read, otherwise a concurrent writer won the race.
func (s *InMemoryStore) Update(_ context.Context, a *models.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, exists := s.rows[a.ID]
	if !exists {
		return sentinel.ErrNotFound
	}
	if row.Version != a.Version {
		return sentinel.ErrStaleVersion
	}
	a.Version++
	stored := a.Clone()
	s.rows[a.ID] = &stored
	return nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID id.SubjectID) ([]*models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Assignment
	for _, row := range s.rows {
		if row.SubjectID == subjectID {
			c := row.Clone()
			out = append(out, &c)
		}
	}
	return out, nil
}
