// Package handler exposes the check-in endpoint: geofence gate, session
// gate, then the atomic registration transaction.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	activitymodels "turnstile/internal/activity/models"
	checkinmodels "turnstile/internal/checkin/models"
	"turnstile/internal/geo"
	"turnstile/internal/platform/middleware"
	sessionmodels "turnstile/internal/session/models"
	dErrors "turnstile/pkg/domain-errors"
	"turnstile/pkg/platform/httputil"
	"turnstile/pkg/platform/sentinel"
	"turnstile/pkg/requestcontext"
)

// Coordinator is the registration transaction surface.
type Coordinator interface {
	Register(ctx context.Context, activityID, identityID string, location geo.Point, requesterHandle string) (*checkinmodels.Result, error)
}

// Catalog supplies the activity geofence before the transaction runs.
type Catalog interface {
	Get(ctx context.Context, id string) (*activitymodels.ActivityWindow, error)
}

// Sessions gates check-in attempts on a live session.
type Sessions interface {
	Validate(ctx context.Context, identityID string) (*sessionmodels.ValidationResult, error)
}

type Handler struct {
	coordinator Coordinator
	catalog     Catalog
	sessions    Sessions
	validator   middleware.TokenValidator
	logger      *slog.Logger
}

func New(coordinator Coordinator, catalog Catalog, sessions Sessions, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		coordinator: coordinator,
		catalog:     catalog,
		sessions:    sessions,
		validator:   validator,
		logger:      logger,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/checkin", h.handleCheckin)
	})
}

type checkinRequest struct {
	ActivityID string  `json:"activity_id"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Handle     string  `json:"handle"`

	// Set instead of coordinates when the client's location source failed.
	SourceError string `json:"source_error,omitempty"`
}

type checkinResponse struct {
	Outcome        checkinmodels.Outcome             `json:"outcome"`
	Message        string                            `json:"message"`
	DistanceMeters float64                           `json:"distance_meters"`
	Registration   *checkinmodels.RegistrationRecord `json:"registration,omitempty"`
}

type outOfRadiusResponse struct {
	Message        string  `json:"message"`
	DistanceMeters float64 `json:"distance_meters"`
	RadiusMeters   float64 `json:"radius_meters"`
}

var statusByOutcome = map[checkinmodels.Outcome]int{
	checkinmodels.OutcomeOK:                http.StatusCreated,
	checkinmodels.OutcomeActivityNotFound:  http.StatusNotFound,
	checkinmodels.OutcomeFormClosed:        http.StatusConflict,
	checkinmodels.OutcomeFull:              http.StatusConflict,
	checkinmodels.OutcomeAlreadyRegistered: http.StatusConflict,
	checkinmodels.OutcomeSingleUserTaken:   http.StatusConflict,
}

func (h *Handler) handleCheckin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID := requestcontext.IdentityID(ctx)

	var req checkinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	// Location-source failures carry their kind through so the caller can
	// give kind-specific guidance. They are never retried here.
	if req.SourceError != "" {
		srcErr := geo.SourceError(req.SourceError)
		if !srcErr.IsValid() {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unknown location source error"))
			return
		}
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation, "%s: %s", srcErr, srcErr.Message()))
		return
	}

	// Session gate: anything but VALID forces re-authentication.
	session, err := h.sessions.Validate(ctx, identityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !session.Valid() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, session.Message))
		return
	}

	activity, err := h.catalog.Get(ctx, req.ActivityID)
	if errors.Is(err, sentinel.ErrNotFound) {
		outcome := checkinmodels.OutcomeActivityNotFound
		httputil.WriteJSON(w, statusByOutcome[outcome], checkinResponse{
			Outcome: outcome,
			Message: outcome.Message(),
		})
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "activity lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "activity lookup failed"))
		return
	}

	location := geo.Point{Lat: req.Lat, Lng: req.Lng}
	verdict, err := geo.Verify(activity.GeofenceCenter, location, activity.RadiusMeters)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !verdict.WithinRadius {
		httputil.WriteJSON(w, http.StatusForbidden, outOfRadiusResponse{
			Message:        "you are outside the activity area",
			DistanceMeters: verdict.DistanceMeters,
			RadiusMeters:   activity.RadiusMeters,
		})
		return
	}

	result, err := h.coordinator.Register(ctx, req.ActivityID, identityID, location, req.Handle)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	status, ok := statusByOutcome[result.Outcome]
	if !ok {
		status = http.StatusConflict
	}
	httputil.WriteJSON(w, status, checkinResponse{
		Outcome:        result.Outcome,
		Message:        result.Message,
		DistanceMeters: verdict.DistanceMeters,
		Registration:   result.Registration,
	})
}
