package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	activitymodels "turnstile/internal/activity/models"
	activitystore "turnstile/internal/activity/store"
	"turnstile/internal/checkin/metrics"
	"turnstile/internal/checkin/models"
	checkinstore "turnstile/internal/checkin/store"
	"turnstile/internal/geo"
	"turnstile/internal/platform/logger"
	"turnstile/pkg/platform/audit/memory"
	"turnstile/pkg/platform/audit/publisher"
	"turnstile/pkg/requestcontext"
)

var testMetrics = metrics.New()

type CoordinatorSuite struct {
	suite.Suite
	catalog *activitystore.InMemoryStore
	runner  *checkinstore.InMemoryRunner
	svc     *Service
	now     time.Time
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	s.catalog = activitystore.NewInMemory()
	s.runner = checkinstore.NewInMemoryRunner(s.catalog)
	s.svc = New(s.runner, testMetrics, publisher.NewPublisher(memory.NewInMemoryStore()), logger.New())
	s.now = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
}

func (s *CoordinatorSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *CoordinatorSuite) seedActivity(id string, capacity int, exclusive bool) {
	a, err := activitymodels.NewActivityWindow(
		id, "activity "+id,
		geo.Point{Lat: 52.37, Lng: 4.89}, 75,
		s.now.Add(-time.Hour), s.now.Add(time.Hour),
		capacity, exclusive,
	)
	s.Require().NoError(err)
	s.Require().NoError(s.catalog.Create(context.Background(), a))
}

func (s *CoordinatorSuite) register(activityID, identityID, handle string) *models.Result {
	res, err := s.svc.Register(s.ctx(), activityID, identityID, geo.Point{Lat: 52.3701, Lng: 4.8901}, handle)
	s.Require().NoError(err)
	return res
}

func (s *CoordinatorSuite) currentCount(activityID string) int {
	a, err := s.catalog.Get(context.Background(), activityID)
	s.Require().NoError(err)
	return a.CurrentCount
}

func (s *CoordinatorSuite) TestRegister() {
	s.Run("happy path creates a record with server-assigned timestamp", func() {
		s.seedActivity("act-1", 10, false)

		res := s.register("act-1", "alice", "@alice")
		s.Equal(models.OutcomeOK, res.Outcome)
		s.Require().NotNil(res.Registration)
		s.Equal(s.now, res.Registration.SubmittedAt)
		s.Equal(1, s.currentCount("act-1"))
	})

	s.Run("unknown activity", func() {
		res := s.register("ghost", "alice", "@alice")
		s.Equal(models.OutcomeActivityNotFound, res.Outcome)
		s.Nil(res.Registration)
	})

	s.Run("duplicate identity is rejected and count stays put", func() {
		s.seedActivity("act-2", 10, false)

		first := s.register("act-2", "alice", "@alice")
		s.Equal(models.OutcomeOK, first.Outcome)

		second := s.register("act-2", "alice", "@alice")
		s.Equal(models.OutcomeAlreadyRegistered, second.Outcome)
		s.Equal(1, s.currentCount("act-2"))
	})

	s.Run("every outcome carries a message", func() {
		s.seedActivity("act-3", 1, false)
		s.register("act-3", "alice", "@alice")

		res := s.register("act-3", "bob", "@bob")
		s.Equal(models.OutcomeFull, res.Outcome)
		s.NotEmpty(res.Message)
	})
}

func (s *CoordinatorSuite) TestTimeWindow() {
	s.Run("closed activity rejects regardless of location validity", func() {
		a, err := activitymodels.NewActivityWindow(
			"closed", "over",
			geo.Point{Lat: 52.37, Lng: 4.89}, 75,
			s.now.Add(-3*time.Hour), s.now.Add(-time.Hour),
			0, false,
		)
		s.Require().NoError(err)
		s.Require().NoError(s.catalog.Create(context.Background(), a))

		res := s.register("closed", "alice", "@alice")
		s.Equal(models.OutcomeFormClosed, res.Outcome)
		s.Equal(0, s.currentCount("closed"))
	})

	s.Run("inactive activity rejects even inside the window", func() {
		inactive := &activitymodels.ActivityWindow{
			ID:             "inactive",
			GeofenceCenter: geo.Point{Lat: 52.37, Lng: 4.89},
			RadiusMeters:   75,
			OpensAt:        s.now.Add(-time.Hour),
			ClosesAt:       s.now.Add(time.Hour),
			Active:         false,
		}
		s.Require().NoError(s.catalog.Create(context.Background(), inactive))

		res := s.register("inactive", "alice", "@alice")
		s.Equal(models.OutcomeFormClosed, res.Outcome)
	})
}

func (s *CoordinatorSuite) TestExclusivity() {
	s.Run("first claimant wins, different handle is rejected", func() {
		s.seedActivity("solo", 0, true)

		first := s.register("solo", "alice", "@alice")
		s.Equal(models.OutcomeOK, first.Outcome)

		second := s.register("solo", "bob", "@bob")
		s.Equal(models.OutcomeSingleUserTaken, second.Outcome)
		s.Equal(1, s.currentCount("solo"))
	})

	s.Run("matching handle keeps the claim idempotently", func() {
		s.seedActivity("solo-2", 0, true)

		s.register("solo-2", "alice", "@team")
		res := s.register("solo-2", "alice2", "@team")
		s.Equal(models.OutcomeOK, res.Outcome)
	})
}

func (s *CoordinatorSuite) TestValidation() {
	_, err := s.svc.Register(s.ctx(), "", "alice", geo.Point{}, "@alice")
	s.Require().Error(err)

	_, err = s.svc.Register(s.ctx(), "act", "", geo.Point{}, "@alice")
	s.Require().Error(err)
}

// Concurrency properties: correctness comes purely from transaction
// atomicity, with no application-level locking in the service.

func (s *CoordinatorSuite) TestConcurrentDuplicateIdentity() {
	s.seedActivity("race-dup", 0, false)

	results := s.concurrent(2, func(int) (*models.Result, error) {
		return s.svc.Register(s.ctx(), "race-dup", "alice", geo.Point{Lat: 52.3701, Lng: 4.8901}, "@alice")
	})

	s.Equal(1, s.countOutcome(results, models.OutcomeOK))
	s.Equal(1, s.countOutcome(results, models.OutcomeAlreadyRegistered))
	s.Equal(1, s.currentCount("race-dup"))
}

func (s *CoordinatorSuite) TestConcurrentExclusivityClaim() {
	s.seedActivity("race-solo", 0, true)

	handles := []string{"@alice", "@bob"}
	results := s.concurrent(2, func(i int) (*models.Result, error) {
		return s.svc.Register(s.ctx(), "race-solo", handles[i][1:], geo.Point{Lat: 52.3701, Lng: 4.8901}, handles[i])
	})

	s.Equal(1, s.countOutcome(results, models.OutcomeOK))
	s.Equal(1, s.countOutcome(results, models.OutcomeSingleUserTaken))
}

func (s *CoordinatorSuite) TestCapacityNeverExceeded() {
	const capacity = 3
	const attempts = 12
	s.seedActivity("race-cap", capacity, false)

	identities := make([]string, attempts)
	for i := range identities {
		identities[i] = string(rune('a' + i))
	}

	results := s.concurrent(attempts, func(i int) (*models.Result, error) {
		return s.svc.Register(s.ctx(), "race-cap", identities[i], geo.Point{Lat: 52.3701, Lng: 4.8901}, "@"+identities[i])
	})

	s.Equal(capacity, s.countOutcome(results, models.OutcomeOK))
	s.Equal(attempts-capacity, s.countOutcome(results, models.OutcomeFull))
	s.Equal(capacity, s.currentCount("race-cap"))
	s.Len(s.runner.Registrations("race-cap"), capacity)
}

func (s *CoordinatorSuite) TestCapacityOneTwoIdentities() {
	s.seedActivity("race-one", 1, false)

	identities := []string{"alice", "bob"}
	results := s.concurrent(2, func(i int) (*models.Result, error) {
		return s.svc.Register(s.ctx(), "race-one", identities[i], geo.Point{Lat: 52.3701, Lng: 4.8901}, "@"+identities[i])
	})

	s.Equal(1, s.countOutcome(results, models.OutcomeOK))
	s.Equal(1, s.countOutcome(results, models.OutcomeFull))
	s.Equal(1, s.currentCount("race-one"))
}

// concurrent fires n calls at once and requires that none failed with an
// infrastructure error. Assertions run after the goroutines have joined
// because testify's FailNow only works from the test goroutine.
func (s *CoordinatorSuite) concurrent(n int, fn func(i int) (*models.Result, error)) []*models.Result {
	results := make([]*models.Result, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i], errs[i] = fn(i)
		}()
	}
	close(start)
	wg.Wait()

	for i := range n {
		s.Require().NoError(errs[i])
	}
	return results
}

func (s *CoordinatorSuite) countOutcome(results []*models.Result, outcome models.Outcome) int {
	count := 0
	for _, r := range results {
		if r.Outcome == outcome {
			count++
		}
	}
	return count
}
