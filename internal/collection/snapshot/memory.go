// Package snapshot provides durable stores for the coordinator's offline
// fallback: the full candidate collection saved after every successful refresh
// and reloaded when the backend is unreachable.
package snapshot

import (
	"context"
	"sync"

	"passage/internal/pipeline/models"
	"passage/pkg/platform/sentinel"
)

// InMemory is the snapshot store used in tests and single-process deployments
// without Redis. It survives coordinator restarts within one process only.
type InMemory struct {
	mu       sync.RWMutex
	saved    []*models.Candidate
	hasValue bool
}

// NewInMemory creates an empty in-memory snapshot store.
func NewInMemory() *InMemory {
	return &InMemory{}
}

// Save replaces the stored snapshot.
func (s *InMemory) Save(ctx context.Context, candidates []*models.Candidate) error {
	cloned := make([]*models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		cloned = append(cloned, c.Clone())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = cloned
	s.hasValue = true
	return nil
}

// Load returns the stored snapshot, or sentinel.ErrNotFound when Save has
// never been called.
func (s *InMemory) Load(ctx context.Context) ([]*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasValue {
		return nil, sentinel.ErrNotFound
	}
	out := make([]*models.Candidate, 0, len(s.saved))
	for _, c := range s.saved {
		out = append(out, c.Clone())
	}
	return out, nil
}
