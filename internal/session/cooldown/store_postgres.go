package cooldown

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"turnstile/internal/session/models"
)

// PostgresStore persists cooldown windows in PostgreSQL. This store is pure
// I/O; the blocking decision and window duration live in the session service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, networkAddress string) (*models.CooldownWindow, error) {
	query := `
		SELECT network_address, identity_id, until
		FROM network_cooldowns
		WHERE network_address = $1
	`
	var window models.CooldownWindow
	err := s.db.QueryRowContext(ctx, query, networkAddress).Scan(
		&window.NetworkAddress,
		&window.IdentityID,
		&window.Until,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cooldown window: %w", err)
	}
	return &window, nil
}

func (s *PostgresStore) Put(ctx context.Context, networkAddress, identityID string, until time.Time) error {
	query := `
		INSERT INTO network_cooldowns (network_address, identity_id, until)
		VALUES ($1, $2, $3)
		ON CONFLICT (network_address) DO UPDATE SET
			identity_id = EXCLUDED.identity_id,
			until = EXCLUDED.until
	`
	if _, err := s.db.ExecContext(ctx, query, networkAddress, identityID, until); err != nil {
		return fmt.Errorf("put cooldown window: %w", err)
	}
	return nil
}
