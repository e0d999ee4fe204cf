package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	activitymodels "turnstile/internal/activity/models"
	activitystore "turnstile/internal/activity/store"
	checkinmetrics "turnstile/internal/checkin/metrics"
	checkinmodels "turnstile/internal/checkin/models"
	checkinservice "turnstile/internal/checkin/service"
	checkinstore "turnstile/internal/checkin/store"
	"turnstile/internal/geo"
	"turnstile/internal/platform/logger"
	"turnstile/internal/platform/middleware"
	sessioncooldown "turnstile/internal/session/cooldown"
	sessionmetrics "turnstile/internal/session/metrics"
	sessionservice "turnstile/internal/session/service"
	sessionstore "turnstile/internal/session/store"
	"turnstile/pkg/platform/audit/memory"
	"turnstile/pkg/platform/audit/publisher"
	"turnstile/pkg/testutil"
)

var (
	testCheckinMetrics = checkinmetrics.New()
	testSessionMetrics = sessionmetrics.New()
)

// stubValidator accepts any bearer token and uses it verbatim as the
// identity id, so tests control authentication via the Authorization header.
type stubValidator struct{}

func (stubValidator) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	return &middleware.TokenClaims{IdentityID: tokenString, Handle: "@" + tokenString}, nil
}

type CheckinHandlerSuite struct {
	suite.Suite
	router   chi.Router
	catalog  *activitystore.InMemoryStore
	sessions *sessionservice.Service
}

func TestCheckinHandlerSuite(t *testing.T) {
	suite.Run(t, new(CheckinHandlerSuite))
}

func (s *CheckinHandlerSuite) SetupTest() {
	log := logger.New()
	auditor := publisher.NewPublisher(memory.NewInMemoryStore())

	s.catalog = activitystore.NewInMemory()
	runner := checkinstore.NewInMemoryRunner(s.catalog)
	coordinator := checkinservice.New(runner, testCheckinMetrics, auditor, log)
	s.sessions = sessionservice.New(sessionstore.NewInMemory(), sessioncooldown.NewInMemory(), testSessionMetrics, auditor, log)

	s.router = chi.NewRouter()
	New(coordinator, s.catalog, s.sessions, stubValidator{}, log).Register(s.router)
}

func (s *CheckinHandlerSuite) seedActivity(id string, capacity int, exclusive bool) {
	now := time.Now()
	a, err := activitymodels.NewActivityWindow(
		id, "activity "+id,
		geo.Point{Lat: 52.37, Lng: 4.89}, 75,
		now.Add(-time.Hour), now.Add(time.Hour),
		capacity, exclusive,
	)
	s.Require().NoError(err)
	s.Require().NoError(s.catalog.Create(context.Background(), a))
}

func (s *CheckinHandlerSuite) login(identityID string) {
	res, err := s.sessions.Create(context.Background(), identityID, "@"+identityID, "10.0.0.1", "test")
	s.Require().NoError(err)
	s.Require().False(res.Blocked())
}

func (s *CheckinHandlerSuite) checkin(identityID string, body map[string]any) *http.Request {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/checkin", body)
	req.Header.Set("Authorization", "Bearer "+identityID)
	req = testutil.WithRequestTime(req, time.Now())
	return testutil.WithClientMetadata(req, "10.0.0.1", "test-agent")
}

func (s *CheckinHandlerSuite) TestCheckin() {
	s.Run("happy path registers and reports distance", func() {
		s.seedActivity("act-1", 0, false)
		s.login("alice")

		rr := testutil.DoRequest(s.router, s.checkin("alice", map[string]any{
			"activity_id": "act-1",
			"lat":         52.3701,
			"lng":         4.8901,
			"handle":      "@alice",
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)

		resp := testutil.UnmarshalResponse[checkinResponse](s.T(), rr)
		s.Equal(checkinmodels.OutcomeOK, resp.Outcome)
		s.Require().NotNil(resp.Registration)
		s.Equal("alice", resp.Registration.IdentityID)
		s.Greater(resp.DistanceMeters, 0.0)
	})

	s.Run("missing bearer token", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/checkin", map[string]any{}))
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("no session forces re-authentication", func() {
		s.seedActivity("act-2", 0, false)

		rr := testutil.DoRequest(s.router, s.checkin("ghost", map[string]any{
			"activity_id": "act-2",
			"lat":         52.3701,
			"lng":         4.8901,
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("unknown activity", func() {
		s.login("alice")

		rr := testutil.DoRequest(s.router, s.checkin("alice", map[string]any{
			"activity_id": "ghost",
			"lat":         52.3701,
			"lng":         4.8901,
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
		testutil.AssertJSONContains(s.T(), rr, "outcome", string(checkinmodels.OutcomeActivityNotFound))
	})

	s.Run("out of radius is rejected before the transaction", func() {
		s.seedActivity("act-3", 0, false)
		s.login("alice")

		rr := testutil.DoRequest(s.router, s.checkin("alice", map[string]any{
			"activity_id": "act-3",
			"lat":         52.40,
			"lng":         4.95,
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)

		resp := testutil.UnmarshalResponse[outOfRadiusResponse](s.T(), rr)
		s.Greater(resp.DistanceMeters, 75.0)
		s.Equal(75.0, resp.RadiusMeters)
	})

	s.Run("duplicate registration", func() {
		s.seedActivity("act-4", 0, false)
		s.login("alice")

		body := map[string]any{"activity_id": "act-4", "lat": 52.3701, "lng": 4.8901}
		first := testutil.DoRequest(s.router, s.checkin("alice", body))
		testutil.AssertStatus(s.T(), first, http.StatusCreated)

		second := testutil.DoRequest(s.router, s.checkin("alice", body))
		testutil.AssertStatus(s.T(), second, http.StatusConflict)
		testutil.AssertJSONContains(s.T(), second, "outcome", string(checkinmodels.OutcomeAlreadyRegistered))
	})
}

func (s *CheckinHandlerSuite) TestSourceErrors() {
	s.login("alice")

	s.Run("known source errors surface their kind", func() {
		rr := testutil.DoRequest(s.router, s.checkin("alice", map[string]any{
			"activity_id":  "act-1",
			"source_error": string(geo.SourcePermissionDenied),
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusUnprocessableEntity)

		body := string(testutil.ReadBody(s.T(), rr))
		s.Contains(body, string(geo.SourcePermissionDenied))
	})

	s.Run("unknown source error kind is a bad request", func() {
		rr := testutil.DoRequest(s.router, s.checkin("alice", map[string]any{
			"activity_id":  "act-1",
			"source_error": "SOLAR_FLARE",
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}
