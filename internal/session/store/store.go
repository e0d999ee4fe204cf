package store

import (
	"context"

	"turnstile/internal/session/models"
)

// Store persists one session per identity with atomic read-modify-write per
// key. Implementations return sentinel.ErrNotFound when no session exists;
// policy decisions (expiry, cooldown) live in the service.
type Store interface {
	// Get returns the session for the identity.
	Get(ctx context.Context, identityID string) (*models.Session, error)

	// Upsert writes the session in a single atomic operation, replacing any
	// previous session held by the same identity.
	Upsert(ctx context.Context, session *models.Session) error

	// Execute atomically applies mutate to the identity's session after
	// validate accepts the current state. Concurrent modification of the
	// same key aborts the attempt instead of clobbering it.
	Execute(ctx context.Context, identityID string, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error)

	// Delete removes the identity's session; deleting an absent session is
	// not an error.
	Delete(ctx context.Context, identityID string) error
}
