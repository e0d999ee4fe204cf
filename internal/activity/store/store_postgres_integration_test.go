//go:build integration

package store_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	"turnstile/internal/activity/models"
	"turnstile/internal/activity/store"
	"turnstile/internal/geo"
	"turnstile/pkg/platform/sentinel"
	"turnstile/pkg/testutil/containers"
)

const activitySchema = `
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
`

type PostgresStoreSuite struct {
	suite.Suite
	db    *sql.DB
	store *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	pg := containers.NewPostgresContainer(s.T())

	db, err := sql.Open("postgres", pg.URL)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = db.Close() })
	s.db = db

	_, err = db.Exec(activitySchema)
	s.Require().NoError(err)

	s.store = store.NewPostgres(db)
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.db.Exec(`TRUNCATE activities`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) makeActivity(id string) *models.ActivityWindow {
	now := time.Now().UTC().Truncate(time.Microsecond)
	a, err := models.NewActivityWindow(
		id, "activity "+id,
		geo.Point{Lat: 52.37, Lng: 4.89}, 75,
		now.Add(-time.Hour), now.Add(time.Hour),
		10, false,
	)
	s.Require().NoError(err)
	return a
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	activity := s.makeActivity("act-1")

	s.Require().NoError(s.store.Create(ctx, activity))

	got, err := s.store.Get(ctx, "act-1")
	s.Require().NoError(err)
	s.Equal(activity.Title, got.Title)
	s.Equal(activity.GeofenceCenter, got.GeofenceCenter)
	s.True(activity.OpensAt.Equal(got.OpensAt))
	s.True(activity.ClosesAt.Equal(got.ClosesAt))
	s.Equal(activity.Capacity, got.Capacity)
}

func (s *PostgresStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), "ghost")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestCreateDuplicate() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.makeActivity("act-1")))

	err := s.store.Create(ctx, s.makeActivity("act-1"))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestListOrdersByOpensAt() {
	ctx := context.Background()

	later := s.makeActivity("act-later")
	later.OpensAt = later.OpensAt.Add(30 * time.Minute)
	earlier := s.makeActivity("act-earlier")

	s.Require().NoError(s.store.Create(ctx, later))
	s.Require().NoError(s.store.Create(ctx, earlier))

	activities, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(activities, 2)
	s.Equal("act-earlier", activities[0].ID)
	s.Equal("act-later", activities[1].ID)
}
