package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"turnstile/internal/activity/models"
	"turnstile/pkg/platform/sentinel"
)

// PostgresStore persists the activity catalog in PostgreSQL via database/sql.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const activityColumns = `activity_id, title, center_lat, center_lng, radius_meters, opens_at, closes_at, active, capacity, current_count, exclusive`

func (s *PostgresStore) Create(ctx context.Context, activity *models.ActivityWindow) error {
	query := `
		INSERT INTO activities (` + activityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		activity.ID,
		activity.Title,
		activity.GeofenceCenter.Lat,
		activity.GeofenceCenter.Lng,
		activity.RadiusMeters,
		activity.OpensAt,
		activity.ClosesAt,
		activity.Active,
		activity.Capacity,
		activity.CurrentCount,
		activity.Exclusive,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.ActivityWindow, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE activity_id = $1`
	activity, err := scanActivity(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return activity, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.ActivityWindow, error) {
	query := `SELECT ` + activityColumns + ` FROM activities ORDER BY opens_at`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []*models.ActivityWindow
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return out, nil
}

type activityRow interface {
	Scan(dest ...any) error
}

func scanActivity(row activityRow) (*models.ActivityWindow, error) {
	var a models.ActivityWindow
	if err := row.Scan(
		&a.ID,
		&a.Title,
		&a.GeofenceCenter.Lat,
		&a.GeofenceCenter.Lng,
		&a.RadiusMeters,
		&a.OpensAt,
		&a.ClosesAt,
		&a.Active,
		&a.Capacity,
		&a.CurrentCount,
		&a.Exclusive,
	); err != nil {
		return nil, err
	}
	return &a, nil
}
