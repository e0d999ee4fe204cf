//go:build integration

package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"turnstile/internal/checkin/metrics"
	"turnstile/internal/checkin/models"
	"turnstile/internal/checkin/service"
	checkinstore "turnstile/internal/checkin/store"
	"turnstile/internal/geo"
	"turnstile/internal/platform/logger"
	"turnstile/pkg/platform/audit/memory"
	"turnstile/pkg/platform/audit/publisher"
	"turnstile/pkg/requestcontext"
	"turnstile/pkg/testutil/containers"
)

const checkinSchema = `
	CREATE TABLE IF NOT EXISTS activities (
		activity_id   TEXT PRIMARY KEY,
		title         TEXT NOT NULL,
		center_lat    DOUBLE PRECISION NOT NULL,
		center_lng    DOUBLE PRECISION NOT NULL,
		radius_meters DOUBLE PRECISION NOT NULL,
		opens_at      TIMESTAMPTZ NOT NULL,
		closes_at     TIMESTAMPTZ NOT NULL,
		active        BOOLEAN NOT NULL,
		capacity      INTEGER NOT NULL,
		current_count INTEGER NOT NULL,
		exclusive     BOOLEAN NOT NULL
	);

	CREATE TABLE IF NOT EXISTS registrations (
		activity_id  TEXT NOT NULL,
		identity_id  TEXT NOT NULL,
		lat          DOUBLE PRECISION NOT NULL,
		lng          DOUBLE PRECISION NOT NULL,
		submitted_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (activity_id, identity_id)
	);

	CREATE TABLE IF NOT EXISTS exclusivity_claims (
		activity_id     TEXT PRIMARY KEY,
		claimant_handle TEXT NOT NULL,
		claimed_at      TIMESTAMPTZ NOT NULL
	);
`

var pgTestMetrics = metrics.New()

type PostgresCoordinatorSuite struct {
	suite.Suite
	pool *pgxpool.Pool
	svc  *service.Service
	now  time.Time
}

func TestPostgresCoordinatorSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresCoordinatorSuite))
}

func (s *PostgresCoordinatorSuite) SetupSuite() {
	pg := containers.NewPostgresContainer(s.T())

	pool, err := pgxpool.New(context.Background(), pg.URL)
	s.Require().NoError(err)
	s.T().Cleanup(pool.Close)
	s.pool = pool

	_, err = pool.Exec(context.Background(), checkinSchema)
	s.Require().NoError(err)

	// Concurrent serializable transactions abort each other freely; a wider
	// retry budget keeps the work's outcome deterministic under contention.
	runner := checkinstore.NewPgxRunner(pool, checkinstore.WithMaxRetries(32))
	s.svc = service.New(runner, pgTestMetrics, publisher.NewPublisher(memory.NewInMemoryStore()), logger.New())
}

func (s *PostgresCoordinatorSuite) SetupTest() {
	s.now = time.Now().UTC().Truncate(time.Microsecond)
	_, err := s.pool.Exec(context.Background(),
		`TRUNCATE activities, registrations, exclusivity_claims`)
	s.Require().NoError(err)
}

func (s *PostgresCoordinatorSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *PostgresCoordinatorSuite) seedActivity(id string, capacity int, exclusive bool, opensAt, closesAt time.Time) {
	_, err := s.pool.Exec(context.Background(), `
		INSERT INTO activities (activity_id, title, center_lat, center_lng, radius_meters, opens_at, closes_at, active, capacity, current_count, exclusive)
		VALUES ($1, $2, 52.37, 4.89, 75, $3, $4, TRUE, $5, 0, $6)
	`, id, "activity "+id, opensAt, closesAt, capacity, exclusive)
	s.Require().NoError(err)
}

func (s *PostgresCoordinatorSuite) seedOpenActivity(id string, capacity int, exclusive bool) {
	s.seedActivity(id, capacity, exclusive, s.now.Add(-time.Hour), s.now.Add(time.Hour))
}

func (s *PostgresCoordinatorSuite) register(activityID, identityID, handle string) *models.Result {
	res, err := s.svc.Register(s.ctx(), activityID, identityID, geo.Point{Lat: 52.3701, Lng: 4.8901}, handle)
	s.Require().NoError(err)
	return res
}

func (s *PostgresCoordinatorSuite) currentCount(activityID string) int {
	var count int
	err := s.pool.QueryRow(context.Background(),
		`SELECT current_count FROM activities WHERE activity_id = $1`, activityID).Scan(&count)
	s.Require().NoError(err)
	return count
}

func (s *PostgresCoordinatorSuite) TestRegister() {
	s.Run("persists the registration and increments the counter", func() {
		s.seedOpenActivity("act-1", 10, false)

		res := s.register("act-1", "alice", "@alice")
		s.Equal(models.OutcomeOK, res.Outcome)
		s.Require().NotNil(res.Registration)
		s.Equal(s.now, res.Registration.SubmittedAt.UTC())
		s.Equal(1, s.currentCount("act-1"))
	})

	s.Run("rejects a second attempt by the same identity", func() {
		s.seedOpenActivity("act-1", 10, false)

		s.register("act-1", "alice", "@alice")
		res := s.register("act-1", "alice", "@alice")
		s.Equal(models.OutcomeAlreadyRegistered, res.Outcome)
		s.Equal(1, s.currentCount("act-1"))
	})

	s.Run("rejects an unknown activity", func() {
		res := s.register("ghost", "alice", "@alice")
		s.Equal(models.OutcomeActivityNotFound, res.Outcome)
	})

	s.Run("rejects a closed window", func() {
		s.seedActivity("act-closed", 10, false, s.now.Add(-2*time.Hour), s.now.Add(-time.Hour))

		res := s.register("act-closed", "alice", "@alice")
		s.Equal(models.OutcomeFormClosed, res.Outcome)
		s.Equal(0, s.currentCount("act-closed"))
	})
}

func (s *PostgresCoordinatorSuite) concurrent(n int) []*models.Result {
	s.T().Helper()

	results := make([]*models.Result, n)
	errs := make([]error, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = s.svc.Register(
				s.ctx(), "act-1", identityName(i), geo.Point{Lat: 52.3701, Lng: 4.8901}, "@"+identityName(i),
			)
		}(i)
	}
	close(start)
	wg.Wait()
	for i := 0; i < n; i++ {
		s.Require().NoError(errs[i])
	}
	return results
}

func identityName(i int) string {
	return "identity-" + string(rune('a'+i))
}

func countOutcome(results []*models.Result, outcome models.Outcome) int {
	count := 0
	for _, res := range results {
		if res.Outcome == outcome {
			count++
		}
	}
	return count
}

func (s *PostgresCoordinatorSuite) TestConcurrentCapacity() {
	s.seedOpenActivity("act-1", 3, false)

	results := s.concurrent(8)

	s.Equal(3, countOutcome(results, models.OutcomeOK))
	s.Equal(5, countOutcome(results, models.OutcomeFull))
	s.Equal(3, s.currentCount("act-1"))

	var registered int
	err := s.pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM registrations WHERE activity_id = 'act-1'`).Scan(&registered)
	s.Require().NoError(err)
	s.Equal(3, registered)
}

func (s *PostgresCoordinatorSuite) TestConcurrentExclusive() {
	s.seedOpenActivity("act-1", 0, true)

	results := s.concurrent(8)

	s.Equal(1, countOutcome(results, models.OutcomeOK))
	s.Equal(7, countOutcome(results, models.OutcomeSingleUserTaken))

	var claims int
	err := s.pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM exclusivity_claims WHERE activity_id = 'act-1'`).Scan(&claims)
	s.Require().NoError(err)
	s.Equal(1, claims)
}
