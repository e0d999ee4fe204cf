package models

import (
	"time"

	"turnstile/internal/geo"
	dErrors "turnstile/pkg/domain-errors"
)

// ActivityWindow is the transactional subject of a check-in: a time-boxed,
// geofenced activity with a capacity and an optional single-claimant mode.
//
// current_count is mutated only by the check-in coordinator's transaction;
// everything else belongs to the admin collaborator.
type ActivityWindow struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	GeofenceCenter geo.Point `json:"geofence_center"`
	RadiusMeters   float64   `json:"radius_meters"`
	OpensAt        time.Time `json:"opens_at"`
	ClosesAt       time.Time `json:"closes_at"`
	Active         bool      `json:"active"`
	Capacity       int       `json:"capacity"` // 0 = unlimited
	CurrentCount   int       `json:"current_count"`
	Exclusive      bool      `json:"exclusive"`
}

// NewActivityWindow creates an ActivityWindow with domain invariant validation.
func NewActivityWindow(id, title string, center geo.Point, radiusMeters float64, opensAt, closesAt time.Time, capacity int, exclusive bool) (*ActivityWindow, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "activity id cannot be empty")
	}
	if radiusMeters <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "radius must be positive")
	}
	if !closesAt.After(opensAt) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "closes_at must be after opens_at")
	}
	if capacity < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "capacity cannot be negative")
	}

	return &ActivityWindow{
		ID:             id,
		Title:          title,
		GeofenceCenter: center,
		RadiusMeters:   radiusMeters,
		OpensAt:        opensAt,
		ClosesAt:       closesAt,
		Active:         true,
		Capacity:       capacity,
		Exclusive:      exclusive,
	}, nil
}

// OpenAt reports whether the activity accepts check-ins at the given instant.
func (a *ActivityWindow) OpenAt(now time.Time) bool {
	return a.Active && !now.Before(a.OpensAt) && !now.After(a.ClosesAt)
}

// AtCapacity reports whether the activity has reached its limit.
// A zero capacity means unlimited.
func (a *ActivityWindow) AtCapacity() bool {
	return a.Capacity > 0 && a.CurrentCount >= a.Capacity
}
