// Package models holds the session records and caller-facing result codes of
// the session lifecycle.
package models

import "time"

// Session is the single login record held per identity. A new login
// overwrites the previous one; the record is created in one upsert and never
// partially written.
type Session struct {
	IdentityID     string    `json:"identity_id"`
	Handle         string    `json:"handle,omitempty"`
	NetworkAddress string    `json:"network_address"`
	Device         string    `json:"device,omitempty"`
	LoginAt        time.Time `json:"login_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	LastActivity   time.Time `json:"last_activity"`
	Active         bool      `json:"active"`
}

// ExpiredAt reports whether the session is expired when observed at now.
// Expiry is read-time derived: nothing pushes a session into this state.
func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// CooldownWindow records that an identity occupied a network address until a
// point in time. A different identity may not start a session from the same
// address before then.
type CooldownWindow struct {
	NetworkAddress string    `json:"network_address"`
	IdentityID     string    `json:"identity_id"`
	Until          time.Time `json:"until"`
}

// Status is a stable caller-facing session result code.
type Status string

const (
	StatusValid             Status = "VALID"
	StatusNoSession         Status = "NO_SESSION"
	StatusExpired           Status = "EXPIRED"
	StatusBlockedByCooldown Status = "BLOCKED_BY_COOLDOWN"
)

// statusMessages is total over Status so no result reaches the caller
// unexplained.
var statusMessages = map[Status]string{
	StatusValid:             "session is valid",
	StatusNoSession:         "no active session, please log in",
	StatusExpired:           "session has expired, please log in again",
	StatusBlockedByCooldown: "this network address recently started a session under a different account",
}

func (s Status) Message() string {
	if msg, ok := statusMessages[s]; ok {
		return msg
	}
	return "session check failed"
}

// ValidationResult is the outcome of validating an identity's session.
// RemainingMinutes is set only when Status is VALID.
type ValidationResult struct {
	Status           Status `json:"status"`
	Message          string `json:"message"`
	RemainingMinutes int    `json:"remaining_minutes,omitempty"`
}

func (r *ValidationResult) Valid() bool {
	return r.Status == StatusValid
}

// CreateResult is the outcome of a session creation attempt. WaitMinutes is
// set only when Status is BLOCKED_BY_COOLDOWN.
type CreateResult struct {
	Status      Status   `json:"status"`
	Message     string   `json:"message"`
	WaitMinutes int      `json:"wait_minutes,omitempty"`
	Session     *Session `json:"session,omitempty"`
}

func (r *CreateResult) Blocked() bool {
	return r.Status == StatusBlockedByCooldown
}
