// Package handler exposes the activity catalog endpoints used to seed and
// inspect check-in subjects.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"turnstile/internal/activity/models"
	"turnstile/internal/geo"
	"turnstile/internal/platform/middleware"
	dErrors "turnstile/pkg/domain-errors"
	"turnstile/pkg/platform/httputil"
	"turnstile/pkg/platform/sentinel"
	"turnstile/pkg/requestcontext"
)

// Store is the catalog surface the handler needs.
type Store interface {
	Create(ctx context.Context, activity *models.ActivityWindow) error
	Get(ctx context.Context, id string) (*models.ActivityWindow, error)
	List(ctx context.Context) ([]*models.ActivityWindow, error)
}

type Handler struct {
	store     Store
	validator middleware.TokenValidator
	logger    *slog.Logger
}

func New(store Store, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/activities", h.handleCreate)
		r.Get("/activities", h.handleList)
		r.Get("/activities/{activityID}", h.handleGet)
	})
}

type createRequest struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CenterLat    float64   `json:"center_lat"`
	CenterLng    float64   `json:"center_lng"`
	RadiusMeters float64   `json:"radius_meters"`
	OpensAt      time.Time `json:"opens_at"`
	ClosesAt     time.Time `json:"closes_at"`
	Capacity     int       `json:"capacity"`
	Exclusive    bool      `json:"exclusive"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	activity, err := models.NewActivityWindow(
		req.ID, req.Title,
		geo.Point{Lat: req.CenterLat, Lng: req.CenterLng}, req.RadiusMeters,
		req.OpensAt, req.ClosesAt,
		req.Capacity, req.Exclusive,
	)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.store.Create(ctx, activity); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeConflict, "activity id is already taken"))
			return
		}
		h.logger.ErrorContext(ctx, "activity create failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "activity could not be created"))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, activity)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	activity, err := h.store.Get(ctx, chi.URLParam(r, "activityID"))
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "activity not found"))
		return
	}
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "activity lookup failed"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, activity)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	activities, err := h.store.List(r.Context())
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "activity listing failed"))
		return
	}
	if activities == nil {
		activities = []*models.ActivityWindow{}
	}
	httputil.WriteJSON(w, http.StatusOK, activities)
}
