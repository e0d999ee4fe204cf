// Package handler exposes account signup.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"turnstile/internal/identity/models"
	dErrors "turnstile/pkg/domain-errors"
	"turnstile/pkg/platform/httputil"
)

// IdentityService creates new accounts.
type IdentityService interface {
	Register(ctx context.Context, handle, displayName, password string) (*models.Identity, error)
}

type Handler struct {
	identity IdentityService
	logger   *slog.Logger
}

func New(identity IdentityService, logger *slog.Logger) *Handler {
	return &Handler{identity: identity, logger: logger}
}

// Register mounts the signup route. It is unauthenticated; new users have no
// token yet.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
}

type registerRequest struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	identity, err := h.identity.Register(ctx, req.Handle, req.DisplayName, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, identity)
}
