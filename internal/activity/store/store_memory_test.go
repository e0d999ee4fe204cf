package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"turnstile/internal/activity/models"
	"turnstile/internal/geo"
	"turnstile/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func (s *InMemoryStoreSuite) activity(id string, opensAt time.Time) *models.ActivityWindow {
	a, err := models.NewActivityWindow(id, "title-"+id, geo.Point{Lat: 52.37, Lng: 4.89}, 75, opensAt, opensAt.Add(time.Hour), 10, false)
	s.Require().NoError(err)
	return a
}

func (s *InMemoryStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	opens := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	s.Run("round-trips an activity", func() {
		created := s.activity("act-1", opens)
		s.Require().NoError(s.store.Create(ctx, created))

		found, err := s.store.Get(ctx, "act-1")
		s.Require().NoError(err)
		s.Equal(created, found)
	})

	s.Run("duplicate id returns ErrConflict", func() {
		err := s.store.Create(ctx, s.activity("act-1", opens))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("missing id returns ErrNotFound", func() {
		_, err := s.store.Get(ctx, "nope")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned copy does not alias store state", func() {
		found, err := s.store.Get(ctx, "act-1")
		s.Require().NoError(err)
		found.CurrentCount = 99

		again, err := s.store.Get(ctx, "act-1")
		s.Require().NoError(err)
		s.Equal(0, again.CurrentCount)
	})
}

func (s *InMemoryStoreSuite) TestList() {
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	s.Require().NoError(s.store.Create(ctx, s.activity("later", base.Add(2*time.Hour))))
	s.Require().NoError(s.store.Create(ctx, s.activity("earlier", base)))

	listed, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal("earlier", listed[0].ID)
	s.Equal("later", listed[1].ID)
}

func (s *InMemoryStoreSuite) TestIncrementCount() {
	ctx := context.Background()
	opens := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.Create(ctx, s.activity("act-1", opens)))

	s.Require().NoError(s.store.IncrementCount(ctx, "act-1"))
	s.Require().NoError(s.store.IncrementCount(ctx, "act-1"))

	found, err := s.store.Get(ctx, "act-1")
	s.Require().NoError(err)
	s.Equal(2, found.CurrentCount)

	s.Require().ErrorIs(s.store.IncrementCount(ctx, "nope"), sentinel.ErrNotFound)
}
