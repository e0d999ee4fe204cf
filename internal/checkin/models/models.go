package models

import (
	"time"

	"turnstile/internal/geo"
)

// RegistrationRecord is one identity's attendance at one activity. The key is
// (activity_id, identity_id); a record is created exactly once and never
// updated by this service.
type RegistrationRecord struct {
	ActivityID  string    `json:"activity_id"`
	IdentityID  string    `json:"identity_id"`
	Location    geo.Point `json:"location"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ExclusivityClaim is the single-winner lock on an exclusivity-flagged
// activity. At most one distinct claimant is ever written per activity;
// repeat writes from the same claimant are idempotent.
type ExclusivityClaim struct {
	ActivityID     string    `json:"activity_id"`
	ClaimantHandle string    `json:"claimant_handle"`
	ClaimedAt      time.Time `json:"claimed_at"`
}

// Outcome is the stable, caller-facing result code of a check-in attempt.
type Outcome string

const (
	OutcomeOK                Outcome = "OK"
	OutcomeActivityNotFound  Outcome = "ACT_NOT_FOUND"
	OutcomeFormClosed        Outcome = "FORM_CLOSED"
	OutcomeFull              Outcome = "FULL"
	OutcomeAlreadyRegistered Outcome = "ALREADY_REGISTERED"
	OutcomeSingleUserTaken   Outcome = "SINGLE_USER_TAKEN"
)

// Rejected reports whether the outcome is anything but success.
func (o Outcome) Rejected() bool {
	return o != OutcomeOK
}

// Message returns the human-readable message for an outcome. The mapping is
// total so no rejection reaches the caller unexplained.
func (o Outcome) Message() string {
	switch o {
	case OutcomeOK:
		return "you are checked in"
	case OutcomeActivityNotFound:
		return "this activity does not exist"
	case OutcomeFormClosed:
		return "this activity is not accepting check-ins right now"
	case OutcomeFull:
		return "this activity has reached its capacity"
	case OutcomeAlreadyRegistered:
		return "you are already checked in to this activity"
	case OutcomeSingleUserTaken:
		return "someone else already claimed this activity"
	default:
		return "check-in could not be completed"
	}
}

// Result bundles the outcome with the created record on success.
type Result struct {
	Outcome      Outcome             `json:"outcome"`
	Message      string              `json:"message"`
	Registration *RegistrationRecord `json:"registration,omitempty"`
}
