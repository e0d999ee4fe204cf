// Package cooldown tracks which identity last occupied a network address, so
// the session service can refuse a second identity logging in from the same
// address inside the cooldown window. It is a time-windowed address map, not
// a scan over sessions.
package cooldown

import (
	"context"
	"time"

	"turnstile/internal/session/models"
)

// Store is pure I/O over cooldown windows; the blocking decision belongs to
// the session service.
type Store interface {
	// Get returns the window for the address, or (nil, nil) when none is
	// recorded. Implementations may treat an elapsed window as absent.
	Get(ctx context.Context, networkAddress string) (*models.CooldownWindow, error)

	// Put records that the identity occupies the address until the given
	// time, replacing any previous window for the address.
	Put(ctx context.Context, networkAddress, identityID string, until time.Time) error
}
