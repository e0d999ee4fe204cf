// Package handler exposes the login and session lifecycle endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	identitymodels "turnstile/internal/identity/models"
	"turnstile/internal/platform/middleware"
	"turnstile/internal/session/device"
	"turnstile/internal/session/models"
	dErrors "turnstile/pkg/domain-errors"
	"turnstile/pkg/platform/httputil"
	"turnstile/pkg/requestcontext"
)

// SessionService is the session lifecycle surface the handler needs.
type SessionService interface {
	Create(ctx context.Context, identityID, handle, networkAddress, device string) (*models.CreateResult, error)
	Validate(ctx context.Context, identityID string) (*models.ValidationResult, error)
	Touch(ctx context.Context, identityID string) error
	Extend(ctx context.Context, identityID string) (*models.Session, error)
	Destroy(ctx context.Context, identityID string) error
}

// IdentityService verifies credentials at login.
type IdentityService interface {
	Authenticate(ctx context.Context, handle, password string) (*identitymodels.Identity, error)
}

// TokenIssuer mints the access token returned on login.
type TokenIssuer interface {
	GenerateAccessToken(identityID, handle string, expiresIn time.Duration) (string, error)
}

// SessionWatcher starts and stops per-session revalidation.
type SessionWatcher interface {
	Watch(ctx context.Context, identityID string, onInvalid func(*models.ValidationResult))
	Unwatch(identityID string)
}

type Handler struct {
	sessions  SessionService
	identity  IdentityService
	tokens    TokenIssuer
	watcher   SessionWatcher
	validator middleware.TokenValidator
	logger    *slog.Logger
	tokenTTL  time.Duration
}

func New(sessions SessionService, identity IdentityService, tokens TokenIssuer, watcher SessionWatcher, validator middleware.TokenValidator, logger *slog.Logger, tokenTTL time.Duration) *Handler {
	return &Handler{
		sessions:  sessions,
		identity:  identity,
		tokens:    tokens,
		watcher:   watcher,
		validator: validator,
		logger:    logger,
		tokenTTL:  tokenTTL,
	}
}

// Register mounts the auth routes. Login is the only unauthenticated one.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/auth/logout", h.handleLogout)
		r.Get("/auth/session", h.handleValidate)
		r.Post("/auth/session/extend", h.handleExtend)
		r.Post("/auth/session/touch", h.handleTouch)
	})
}

type loginRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string          `json:"access_token"`
	Session     *models.Session `json:"session"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	identity, err := h.identity.Authenticate(ctx, req.Handle, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	label := device.ParseUserAgent(requestcontext.UserAgent(ctx))
	result, err := h.sessions.Create(ctx, identity.ID, identity.Handle, requestcontext.ClientIP(ctx), label)
	if err != nil {
		h.logger.ErrorContext(ctx, "session creation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	if result.Blocked() {
		httputil.WriteJSON(w, http.StatusTooManyRequests, result)
		return
	}

	token, err := h.tokens.GenerateAccessToken(identity.ID, identity.Handle, h.tokenTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "token generation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "login failed"))
		return
	}

	// The watch runs on the wall clock, not the request-scoped one, so it
	// observes real expiry. Its validation destroys the expired record.
	h.watcher.Watch(context.Background(), identity.ID, func(res *models.ValidationResult) {
		h.logger.Info("session invalidated by watcher",
			"identity_id", identity.ID,
			"status", string(res.Status),
		)
	})

	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		Session:     result.Session,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID := requestcontext.IdentityID(ctx)

	h.watcher.Unwatch(identityID)
	if err := h.sessions.Destroy(ctx, identityID); err != nil {
		h.logger.ErrorContext(ctx, "session destroy failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.sessions.Validate(ctx, requestcontext.IdentityID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusOK
	if !result.Valid() {
		// Expired or missing sessions force re-authentication.
		status = http.StatusUnauthorized
	}
	httputil.WriteJSON(w, status, result)
}

func (h *Handler) handleExtend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, err := h.sessions.Extend(ctx, requestcontext.IdentityID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) handleTouch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.sessions.Touch(ctx, requestcontext.IdentityID(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
