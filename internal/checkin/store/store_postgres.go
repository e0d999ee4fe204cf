package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	activitymodels "turnstile/internal/activity/models"
	"turnstile/internal/checkin/models"
	"turnstile/pkg/platform/sentinel"
)

// PgxRunner executes check-in transactions against PostgreSQL at SERIALIZABLE
// isolation. Serialization failures abort the whole transaction and are
// retried from scratch up to maxRetries before being surfaced as
// sentinel.ErrUnavailable.
type PgxRunner struct {
	pool       *pgxpool.Pool
	maxRetries int
	onRetry    func()
}

type RunnerOption func(*PgxRunner)

// WithMaxRetries bounds the number of retries after the first attempt.
func WithMaxRetries(n int) RunnerOption {
	return func(r *PgxRunner) {
		r.maxRetries = n
	}
}

// WithRetryHook installs a callback invoked once per retried attempt;
// used to feed the retry counter metric.
func WithRetryHook(fn func()) RunnerOption {
	return func(r *PgxRunner) {
		r.onRetry = fn
	}
}

func NewPgxRunner(pool *pgxpool.Pool, opts ...RunnerOption) *PgxRunner {
	r := &PgxRunner{pool: pool, maxRetries: 3}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *PgxRunner) RunInTx(ctx context.Context, fn func(Store) error) error {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 && r.onRetry != nil {
			r.onRetry()
		}

		lastErr = r.attempt(ctx, fn)
		if lastErr == nil {
			return nil
		}
		if !isSerializationFailure(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("transaction retries exhausted: %w", sentinel.ErrUnavailable)
}

func (r *PgxRunner) attempt(ctx context.Context, fn func(Store) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin check-in tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&pgxTxStore{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit check-in tx: %w", err)
	}
	return nil
}

// isSerializationFailure matches SQLSTATE 40001 (serialization_failure) and
// 40P01 (deadlock_detected), both of which are safe to retry from scratch.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// pgxTxStore scopes all reads and writes to one transaction so they observe
// a single consistent snapshot.
type pgxTxStore struct {
	tx pgx.Tx
}

func (s *pgxTxStore) GetActivity(ctx context.Context, activityID string) (*activitymodels.ActivityWindow, error) {
	const query = `
		SELECT activity_id, title, center_lat, center_lng, radius_meters, opens_at, closes_at, active, capacity, current_count, exclusive
		FROM activities WHERE activity_id = $1
	`
	var a activitymodels.ActivityWindow
	err := s.tx.QueryRow(ctx, query, activityID).Scan(
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
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return &a, nil
}

func (s *pgxTxStore) GetRegistration(ctx context.Context, activityID, identityID string) (*models.RegistrationRecord, error) {
	const query = `
		SELECT activity_id, identity_id, lat, lng, submitted_at
		FROM registrations WHERE activity_id = $1 AND identity_id = $2
	`
	var rec models.RegistrationRecord
	err := s.tx.QueryRow(ctx, query, activityID, identityID).Scan(
		&rec.ActivityID,
		&rec.IdentityID,
		&rec.Location.Lat,
		&rec.Location.Lng,
		&rec.SubmittedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return &rec, nil
}

func (s *pgxTxStore) GetClaim(ctx context.Context, activityID string) (*models.ExclusivityClaim, error) {
	const query = `
		SELECT activity_id, claimant_handle, claimed_at
		FROM exclusivity_claims WHERE activity_id = $1
	`
	var claim models.ExclusivityClaim
	err := s.tx.QueryRow(ctx, query, activityID).Scan(
		&claim.ActivityID,
		&claim.ClaimantHandle,
		&claim.ClaimedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return &claim, nil
}

func (s *pgxTxStore) CreateClaim(ctx context.Context, claim *models.ExclusivityClaim) error {
	const stmt = `
		INSERT INTO exclusivity_claims (activity_id, claimant_handle, claimed_at)
		VALUES ($1, $2, $3)
	`
	if _, err := s.tx.Exec(ctx, stmt, claim.ActivityID, claim.ClaimantHandle, claim.ClaimedAt); err != nil {
		return fmt.Errorf("create claim: %w", err)
	}
	return nil
}

func (s *pgxTxStore) CreateRegistration(ctx context.Context, record *models.RegistrationRecord) error {
	const stmt = `
		INSERT INTO registrations (activity_id, identity_id, lat, lng, submitted_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.tx.Exec(ctx, stmt,
		record.ActivityID,
		record.IdentityID,
		record.Location.Lat,
		record.Location.Lng,
		record.SubmittedAt,
	); err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

func (s *pgxTxStore) IncrementCount(ctx context.Context, activityID string) error {
	const stmt = `UPDATE activities SET current_count = current_count + 1 WHERE activity_id = $1`
	tag, err := s.tx.Exec(ctx, stmt, activityID)
	if err != nil {
		return fmt.Errorf("increment count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
