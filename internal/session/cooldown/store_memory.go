package cooldown

import (
	"context"
	"sync"
	"time"

	"turnstile/internal/session/models"
)

// InMemoryStore keeps cooldown windows in a mutex-guarded map. Windows are
// replaced on Put and judged against the clock by the service; there is no
// sweeper.
type InMemoryStore struct {
	mu      sync.Mutex
	windows map[string]*models.CooldownWindow
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{windows: make(map[string]*models.CooldownWindow)}
}

func (s *InMemoryStore) Get(_ context.Context, networkAddress string) (*models.CooldownWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	window, ok := s.windows[networkAddress]
	if !ok {
		return nil, nil
	}
	copied := *window
	return &copied, nil
}

func (s *InMemoryStore) Put(_ context.Context, networkAddress, identityID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.windows[networkAddress] = &models.CooldownWindow{
		NetworkAddress: networkAddress,
		IdentityID:     identityID,
		Until:          until,
	}
	return nil
}
