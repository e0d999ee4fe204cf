// Package service implements identity registration and credential
// verification for the login flow.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"turnstile/internal/identity/models"
	"turnstile/internal/identity/store"
	dErrors "turnstile/pkg/domain-errors"
	"turnstile/pkg/platform/audit"
	"turnstile/pkg/platform/sentinel"
	"turnstile/pkg/requestcontext"
)

// Auditor records authentication events; satisfied by the audit publisher.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store   store.Store
	auditor Auditor
	logger  *slog.Logger
}

func New(store store.Store, auditor Auditor, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		auditor: auditor,
		logger:  logger,
	}
}

// Register creates an identity with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, handle, displayName, password string) (*models.Identity, error) {
	if handle == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "handle and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "password could not be hashed")
	}

	identity := &models.Identity{
		ID:           uuid.NewString(),
		Handle:       handle,
		DisplayName:  displayName,
		PasswordHash: hash,
		CreatedAt:    requestcontext.Now(ctx),
		Active:       true,
	}
	if err := s.store.Create(ctx, identity); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "handle is already taken")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "identity could not be created")
	}
	return identity, nil
}

// Authenticate verifies a handle/password pair. All failure modes collapse to
// one unauthorized error so callers cannot probe which handles exist.
func (s *Service) Authenticate(ctx context.Context, handle, password string) (*models.Identity, error) {
	identity, err := s.store.GetByHandle(ctx, handle)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, s.loginFailed(ctx, handle)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "identity lookup failed")
	}

	if !identity.Active {
		return nil, s.loginFailed(ctx, handle)
	}
	if err := bcrypt.CompareHashAndPassword(identity.PasswordHash, []byte(password)); err != nil {
		return nil, s.loginFailed(ctx, handle)
	}
	return identity, nil
}

func (s *Service) loginFailed(ctx context.Context, handle string) error {
	event := audit.Event{
		Category:   audit.CategorySecurity,
		Timestamp:  requestcontext.Now(ctx),
		IdentityID: handle,
		Action:     string(audit.EventLoginFailed),
		NetworkIP:  requestcontext.ClientIP(ctx),
		RequestID:  requestcontext.RequestID(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.Warn("audit emit failed", "action", event.Action, "error", err)
	}
	return dErrors.New(dErrors.CodeUnauthorized, "invalid handle or password")
}
