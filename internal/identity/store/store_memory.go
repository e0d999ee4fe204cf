package store

import (
	"context"
	"sync"

	"turnstile/internal/identity/models"
	"turnstile/pkg/platform/sentinel"
)

// InMemoryStore keeps identities in mutex-guarded maps, indexed by id and by
// handle. Intended for tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]*models.Identity
	byHandle map[string]*models.Identity
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:     make(map[string]*models.Identity),
		byHandle: make(map[string]*models.Identity),
	}
}

func (s *InMemoryStore) Create(_ context.Context, identity *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[identity.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byHandle[identity.Handle]; exists {
		return sentinel.ErrConflict
	}

	copied := *identity
	s.byID[identity.ID] = &copied
	s.byHandle[identity.Handle] = &copied
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *identity
	return &copied, nil
}

func (s *InMemoryStore) GetByHandle(_ context.Context, handle string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.byHandle[handle]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *identity
	return &copied, nil
}
