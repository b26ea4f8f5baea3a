// Package memory is the reference path progress store. Multiple rows per
// (candidate, path) pair are expected: each run through a path is its own
// record.
package memory

import (
	"context"
	"sync"

	"certrail/internal/certification/models"
	id "certrail/pkg/domain"
	"certrail/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu   sync.RWMutex
	rows map[id.PathProgressID]*models.PathProgress
}

func New() *InMemoryStore {
	return &InMemoryStore{rows: make(map[id.PathProgressID]*models.PathProgress)}
}

func (s *InMemoryStore) Create(_ context.Context, p *models.PathProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[p.ID]; exists {
		return sentinel.ErrConflict
	}
	p.Version = 1
	stored := p.Clone()
	s.rows[p.ID] = &stored
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, progressID id.PathProgressID) (*models.PathProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, exists := s.rows[progressID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	out := row.Clone()
	return &out, nil
}

// Update applies a compare-and-set on Version.
func (s *InMemoryStore) Update(_ context.Context, p *models.PathProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, exists := s.rows[p.ID]
	if !exists {
		return sentinel.ErrNotFound
	}
	if row.Version != p.Version {
		return sentinel.ErrStaleVersion
	}
	p.Version++
	stored := p.Clone()
	s.rows[p.ID] = &stored
	return nil
}

func (s *InMemoryStore) ListByCandidate(_ context.Context, candidateID id.SubjectID) ([]*models.PathProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.PathProgress
	for _, row := range s.rows {
		if row.CandidateID == candidateID {
			c := row.Clone()
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListByCandidatePath(_ context.Context, candidateID id.SubjectID, pathID id.PathID) ([]*models.PathProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.PathProgress
	for _, row := range s.rows {
		if row.CandidateID == candidateID && row.PathID == pathID {
			c := row.Clone()
			out = append(out, &c)
		}
	}
	return out, nil
}
