package store

import (
	"context"
	"errors"
	"sync"

	activitymodels "turnstile/internal/activity/models"
	activitystore "turnstile/internal/activity/store"
	"turnstile/internal/checkin/models"
	"turnstile/pkg/platform/sentinel"
)

type registrationKey struct {
	activityID string
	identityID string
}

// InMemoryRunner serializes whole check-in transactions behind one mutex, so
// concurrent Register calls observe the same one-success guarantees as the
// Postgres runner without optimistic retries. Registrations and claims live
// here; activities live in the shared catalog store.
type InMemoryRunner struct {
	mu            sync.Mutex
	catalog       *activitystore.InMemoryStore
	registrations map[registrationKey]models.RegistrationRecord
	claims        map[string]models.ExclusivityClaim
}

func NewInMemoryRunner(catalog *activitystore.InMemoryStore) *InMemoryRunner {
	return &InMemoryRunner{
		catalog:       catalog,
		registrations: make(map[registrationKey]models.RegistrationRecord),
		claims:        make(map[string]models.ExclusivityClaim),
	}
}

func (r *InMemoryRunner) RunInTx(ctx context.Context, fn func(Store) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(&memTxStore{runner: r})
}

// Registrations returns all records for an activity; test helper.
func (r *InMemoryRunner) Registrations(activityID string) []models.RegistrationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.RegistrationRecord
	for key, rec := range r.registrations {
		if key.activityID == activityID {
			out = append(out, rec)
		}
	}
	return out
}

// memTxStore is only valid while the runner lock is held. Map writes cannot
// fail, so the write phase of a check-in either happens entirely or not at
// all, matching the transaction contract.
type memTxStore struct {
	runner *InMemoryRunner
}

func (s *memTxStore) GetActivity(ctx context.Context, activityID string) (*activitymodels.ActivityWindow, error) {
	activity, err := s.runner.catalog.Get(ctx, activityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return activity, nil
}

func (s *memTxStore) GetRegistration(_ context.Context, activityID, identityID string) (*models.RegistrationRecord, error) {
	if rec, ok := s.runner.registrations[registrationKey{activityID, identityID}]; ok {
		copied := rec
		return &copied, nil
	}
	return nil, nil
}

func (s *memTxStore) GetClaim(_ context.Context, activityID string) (*models.ExclusivityClaim, error) {
	if claim, ok := s.runner.claims[activityID]; ok {
		copied := claim
		return &copied, nil
	}
	return nil, nil
}

func (s *memTxStore) CreateClaim(_ context.Context, claim *models.ExclusivityClaim) error {
	s.runner.claims[claim.ActivityID] = *claim
	return nil
}

func (s *memTxStore) CreateRegistration(_ context.Context, record *models.RegistrationRecord) error {
	s.runner.registrations[registrationKey{record.ActivityID, record.IdentityID}] = *record
	return nil
}

func (s *memTxStore) IncrementCount(ctx context.Context, activityID string) error {
	return s.runner.catalog.IncrementCount(ctx, activityID)
}
