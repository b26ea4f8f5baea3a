// Package memory is the reference training progress store. Rows are indexed
// by ID and by the (subject, training) pair so lazy get-or-create stays one
// lookup.
package memory

import (
	"context"
	"sync"

	"certrail/internal/training/models"
	id "certrail/pkg/domain"
	"certrail/pkg/platform/sentinel"
)

type pairKey struct {
	subjectID  id.SubjectID
	trainingID id.TrainingID
}

type InMemoryStore struct {
	mu     sync.RWMutex
	rows   map[id.ProgressID]*models.Progress
	byPair map[pairKey]id.ProgressID
}

func New() *InMemoryStore {
	return &InMemoryStore{
		rows:   make(map[id.ProgressID]*models.Progress),
		byPair: make(map[pairKey]id.ProgressID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, p *models.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{subjectID: p.SubjectID, trainingID: p.TrainingID}
	if _, exists := s.rows[p.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byPair[key]; exists {
		return sentinel.ErrConflict
	}
	p.Version = 1
	stored := p.Clone()
	s.rows[p.ID] = &stored
	s.byPair[key] = p.ID
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, progressID id.ProgressID) (*models.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, exists := s.rows[progressID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	out := row.Clone()
	return &out, nil
}

func (s *InMemoryStore) GetByKey(_ context.Context, subjectID id.SubjectID, trainingID id.TrainingID) (*models.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	progressID, exists := s.byPair[pairKey{subjectID: subjectID, trainingID: trainingID}]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	out := s.rows[progressID].Clone()
	return &out, nil
}

// Update applies a compare-and-set on Version.
func (s *InMemoryStore) Update(_ context.Context, p *models.Progress) error {
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

func (s *InMemoryStore) ListBySubject(_ context.Context, subjectID id.SubjectID) ([]*models.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Progress
	for _, row := range s.rows {
		if row.SubjectID == subjectID {
			c := row.Clone()
			out = append(out, &c)
		}
	}
	return out, nil
}
