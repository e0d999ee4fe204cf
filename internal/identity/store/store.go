package store

import (
	"context"

	"turnstile/internal/identity/models"
)

// Store persists identities. Implementations return sentinel.ErrNotFound when
// no identity matches and sentinel.ErrConflict on a duplicate handle.
type Store interface {
	Create(ctx context.Context, identity *models.Identity) error
	Get(ctx context.Context, id string) (*models.Identity, error)
	GetByHandle(ctx context.Context, handle string) (*models.Identity, error)
}
