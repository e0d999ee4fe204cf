package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose. Routing and
// retention decisions hang off the category, not the individual event name.
type EventCategory string

const (
	// CategorySecurity covers events relevant to security monitoring:
	// login failures, cooldown blocks, session revocations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility: session creation, check-in outcomes.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category   EventCategory
	Timestamp  time.Time
	IdentityID string
	Action     string
	ActivityID string
	Outcome    string
	NetworkIP  string
	RequestID  string
}

type AuditEvent string

const (
	// Session events
	EventSessionCreated   AuditEvent = "session_created"
	EventSessionExtended  AuditEvent = "session_extended"
	EventSessionExpired   AuditEvent = "session_expired"
	EventSessionDestroyed AuditEvent = "session_destroyed"
	EventLoginFailed      AuditEvent = "login_failed"
	EventLoginBlocked     AuditEvent = "login_blocked_by_cooldown"

	// Check-in events
	EventCheckinRegistered AuditEvent = "checkin_registered"
	EventCheckinRejected   AuditEvent = "checkin_rejected"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByIdentity(ctx context.Context, identityID string) ([]Event, error)
}
