package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"turnstile/internal/identity/models"
	"turnstile/pkg/platform/sentinel"
)

// PostgresStore persists identities in PostgreSQL via database/sql.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const identityColumns = `identity_id, handle, display_name, password_hash, created_at, active`

func (s *PostgresStore) Create(ctx context.Context, identity *models.Identity) error {
	query := `
		INSERT INTO identities (` + identityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		identity.ID,
		identity.Handle,
		identity.DisplayName,
		identity.PasswordHash,
		identity.CreatedAt,
		identity.Active,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE identity_id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) GetByHandle(ctx context.Context, handle string) (*models.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE handle = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, handle))
}

func (s *PostgresStore) scanOne(row *sql.Row) (*models.Identity, error) {
	var identity models.Identity
	err := row.Scan(
		&identity.ID,
		&identity.Handle,
		&identity.DisplayName,
		&identity.PasswordHash,
		&identity.CreatedAt,
		&identity.Active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &identity, nil
}
