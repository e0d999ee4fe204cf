// Package service implements the check-in registration coordinator: it turns
// a verified location plus an identity into a durable, race-free attendance
// record inside a single atomic transaction.
package service

import (
	"context"
	"errors"
	"log/slog"

	"turnstile/internal/checkin/metrics"
	"turnstile/internal/checkin/models"
	"turnstile/internal/checkin/store"
	"turnstile/internal/geo"
	dErrors "turnstile/pkg/domain-errors"
	"turnstile/pkg/platform/audit"
	"turnstile/pkg/platform/sentinel"
	"turnstile/pkg/requestcontext"
)

// Auditor records check-in outcomes; satisfied by the audit publisher.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service coordinates atomic check-in registrations. All correctness under
// concurrency comes from the transaction runner, not from in-process locks.
type Service struct {
	runner  store.TxRunner
	metrics *metrics.Metrics
	auditor Auditor
	logger  *slog.Logger
}

func New(runner store.TxRunner, m *metrics.Metrics, auditor Auditor, logger *slog.Logger) *Service {
	return &Service{
		runner:  runner,
		metrics: m,
		auditor: auditor,
		logger:  logger,
	}
}

// Register performs the check-in transaction for one identity and activity.
//
// Preconditions enforced by the boundary, not here: the caller holds a valid
// session for identityID and location already passed geofence verification.
//
// All reads and writes happen against one consistent snapshot. The callback
// may run more than once when the runner retries a serialization conflict, so
// it recomputes its decisions from fresh reads on every attempt and performs
// no writes before all rejection checks have passed.
func (s *Service) Register(ctx context.Context, activityID, identityID string, location geo.Point, requesterHandle string) (*models.Result, error) {
	if activityID == "" || identityID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "activity id and identity id are required")
	}

	now := requestcontext.Now(ctx)
	var result *models.Result

	err := s.runner.RunInTx(ctx, func(tx store.Store) error {
		result = nil

		activity, err := tx.GetActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if activity == nil {
			result = reject(models.OutcomeActivityNotFound)
			return nil
		}

		if !activity.OpenAt(now) {
			result = reject(models.OutcomeFormClosed)
			return nil
		}

		if activity.AtCapacity() {
			result = reject(models.OutcomeFull)
			return nil
		}

		existing, err := tx.GetRegistration(ctx, activityID, identityID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = reject(models.OutcomeAlreadyRegistered)
			return nil
		}

		writeClaim := false
		if activity.Exclusive {
			claim, err := tx.GetClaim(ctx, activityID)
			if err != nil {
				return err
			}
			switch {
			case claim == nil:
				writeClaim = true
			case claim.ClaimantHandle != requesterHandle:
				result = reject(models.OutcomeSingleUserTaken)
				return nil
			}
			// Matching claimant: idempotent, no rewrite needed.
		}

		// All rejection checks passed; the write phase commits atomically or
		// not at all.
		if writeClaim {
			if err := tx.CreateClaim(ctx, &models.ExclusivityClaim{
				ActivityID:     activityID,
				ClaimantHandle: requesterHandle,
				ClaimedAt:      now,
			}); err != nil {
				return err
			}
		}

		record := &models.RegistrationRecord{
			ActivityID:  activityID,
			IdentityID:  identityID,
			Location:    location,
			SubmittedAt: now,
		}
		if err := tx.CreateRegistration(ctx, record); err != nil {
			return err
		}
		if err := tx.IncrementCount(ctx, activityID); err != nil {
			return err
		}

		result = &models.Result{
			Outcome:      models.OutcomeOK,
			Message:      models.OutcomeOK.Message(),
			Registration: record,
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "check-in transaction failed",
			"request_id", requestcontext.RequestID(ctx),
			"activity_id", activityID,
			"error", err.Error(),
		)
		if errors.Is(err, sentinel.ErrUnavailable) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "check-in could not be completed, try again")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check-in failed")
	}

	s.metrics.ObserveOutcome(string(result.Outcome))
	s.audit(ctx, activityID, identityID, result)
	return result, nil
}

func reject(outcome models.Outcome) *models.Result {
	return &models.Result{Outcome: outcome, Message: outcome.Message()}
}

func (s *Service) audit(ctx context.Context, activityID, identityID string, result *models.Result) {
	action := audit.EventCheckinRegistered
	if result.Outcome.Rejected() {
		action = audit.EventCheckinRejected
	}
	event := audit.Event{
		Category:   audit.CategoryOperations,
		Timestamp:  requestcontext.Now(ctx),
		IdentityID: identityID,
		Action:     string(action),
		ActivityID: activityID,
		Outcome:    string(result.Outcome),
		NetworkIP:  requestcontext.ClientIP(ctx),
		RequestID:  requestcontext.RequestID(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.Warn("audit emit failed", "action", event.Action, "error", err)
	}
}
