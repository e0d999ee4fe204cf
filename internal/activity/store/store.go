// Package store persists the activity catalog. Stores are pure I/O; the
// time-window, capacity, and exclusivity rules live in the check-in service.
package store

import (
	"context"

	"turnstile/internal/activity/models"
)

// Store captures catalog persistence operations. The check-in coordinator
// mutates current_count through its own transaction, never through this
// interface.
type Store interface {
	Create(ctx context.Context, activity *models.ActivityWindow) error
	Get(ctx context.Context, id string) (*models.ActivityWindow, error)
	List(ctx context.Context) ([]*models.ActivityWindow, error)
}
