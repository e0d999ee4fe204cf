package store

import (
	"context"
	"sync"

	"turnstile/internal/session/models"
	"turnstile/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions in a mutex-guarded map. Intended for tests and
// single-process deployments.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*models.Session)}
}

func (s *InMemoryStore) Get(_ context.Context, identityID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[identityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *InMemoryStore) Upsert(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	s.sessions[session.IdentityID] = &copied
	return nil
}

func (s *InMemoryStore) Execute(_ context.Context, identityID string, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[identityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := *session
	if validate != nil {
		if err := validate(&working); err != nil {
			return nil, err
		}
	}
	mutate(&working)
	s.sessions[identityID] = &working

	copied := working
	return &copied, nil
}

func (s *InMemoryStore) Delete(_ context.Context, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, identityID)
	return nil
}
