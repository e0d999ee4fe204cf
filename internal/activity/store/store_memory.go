package store

import (
	"context"
	"sort"
	"sync"

	"turnstile/internal/activity/models"
	"turnstile/pkg/platform/sentinel"
)

// InMemoryStore keeps the catalog in a map. It intentionally favors clarity
// over performance.
type InMemoryStore struct {
	mu         sync.RWMutex
	activities map[string]models.ActivityWindow
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{activities: make(map[string]models.ActivityWindow)}
}

func (s *InMemoryStore) Create(_ context.Context, activity *models.ActivityWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[activity.ID]; ok {
		return sentinel.ErrConflict
	}
	s.activities[activity.ID] = *activity
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*models.ActivityWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.activities[id]; ok {
		copied := a
		return &copied, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.ActivityWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ActivityWindow, 0, len(s.activities))
	for _, a := range s.activities {
		copied := a
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpensAt.Before(out[j].OpensAt) })
	return out, nil
}

// IncrementCount bumps current_count by one. Only the check-in coordinator's
// in-memory transaction runner calls this, under its own serializing lock.
func (s *InMemoryStore) IncrementCount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	a.CurrentCount++
	s.activities[id] = a
	return nil
}
