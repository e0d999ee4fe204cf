package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "turnstile/pkg/domain-errors"
)

type TokenSuite struct {
	suite.Suite
	svc *Service
}

func TestTokenSuite(t *testing.T) {
	suite.Run(t, new(TokenSuite))
}

func (s *TokenSuite) SetupTest() {
	s.svc = NewService("test-signing-key")
}

func (s *TokenSuite) TestRoundTrip() {
	signed, err := s.svc.GenerateAccessToken("id-123", "@alice", time.Hour)
	s.Require().NoError(err)

	claims, err := s.svc.ValidateToken(signed)
	s.Require().NoError(err)
	s.Equal("id-123", claims.IdentityID)
	s.Equal("@alice", claims.Handle)
	s.Equal("id-123", claims.Subject)
	s.NotEmpty(claims.ID)
}

func (s *TokenSuite) TestExpiredToken() {
	signed, err := s.svc.GenerateAccessToken("id-123", "@alice", -time.Minute)
	s.Require().NoError(err)

	_, err = s.svc.ValidateToken(signed)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Contains(err.Error(), "expired")
}

func (s *TokenSuite) TestWrongSigningKey() {
	signed, err := NewService("other-key").GenerateAccessToken("id-123", "@alice", time.Hour)
	s.Require().NoError(err)

	_, err = s.svc.ValidateToken(signed)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *TokenSuite) TestGarbageToken() {
	_, err := s.svc.ValidateToken("not-a-jwt")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *TokenSuite) TestAdapter() {
	signed, err := s.svc.GenerateAccessToken("id-123", "@alice", time.Hour)
	s.Require().NoError(err)

	claims, err := NewAdapter(s.svc).ValidateToken(signed)
	s.Require().NoError(err)
	s.Equal("id-123", claims.IdentityID)
	s.Equal("@alice", claims.Handle)
}
