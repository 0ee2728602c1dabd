// Package store provides persistence-service implementations for candidate
// records. The coordinator consumes these through the collection.Persistence
// interface; it never talks to SQL directly.
package store

import (
	"context"
	"sync"

	"passage/internal/pipeline/models"
	id "passage/pkg/domain"
	"passage/pkg/platform/sentinel"
)

// InMemory implements the persistence service in memory. Used by tests and by
// single-node deployments without Postgres.
type InMemory struct {
	mu         sync.RWMutex
	candidates map[id.CandidateID]*models.Candidate
	order      []id.CandidateID
}

// NewInMemory creates an empty in-memory candidate store.
func NewInMemory() *InMemory {
	return &InMemory{
		candidates: make(map[id.CandidateID]*models.Candidate),
	}
}

// Create stores a new candidate.
func (s *InMemory) Create(ctx context.Context, c *models.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.candidates[c.ID]; exists {
		return sentinel.ErrInvalidState
	}
	s.candidates[c.ID] = c.Clone()
	s.order = append(s.order, c.ID)
	return nil
}

// List returns every candidate in insertion order.
func (s *InMemory) List(ctx context.Context) ([]*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Candidate, 0, len(s.order))
	for _, cid := range s.order {
		if c, ok := s.candidates[cid]; ok {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

// Get returns one candidate.
func (s *InMemory) Get(ctx context.Context, candidateID id.CandidateID) (*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.candidates[candidateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

// Update replaces the stored record by id.
func (s *InMemory) Update(ctx context.Context, c *models.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.candidates[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.candidates[c.ID] = c.Clone()
	return nil
}

// Delete removes a candidate. Normal flow retires candidates logically at the
// terminal stage; physical deletes serve data-subject requests.
func (s *InMemory) Delete(ctx context.Context, candidateID id.CandidateID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.candidates[candidateID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.candidates, candidateID)
	for i, cid := range s.order {
		if cid == candidateID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
