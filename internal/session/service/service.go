// Package service implements the session lifecycle: creation behind a
// per-network cooldown, read-time expiry, fixed-duration TTL with explicit
// extension, and availability-biased validation.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"turnstile/internal/session/cooldown"
	"turnstile/internal/session/metrics"
	"turnstile/internal/session/models"
	"turnstile/internal/session/store"
	dErrors "turnstile/pkg/domain-errors"
	"turnstile/pkg/platform/audit"
	"turnstile/pkg/platform/sentinel"
	"turnstile/pkg/requestcontext"
)

const (
	defaultSessionTTL     = 30 * time.Minute
	defaultCooldownWindow = 30 * time.Minute
	defaultTouchInterval  = 60 * time.Second

	// Remaining time reported when the store cannot be read during
	// validation. Short enough that a revalidation happens soon, long
	// enough to avoid a spurious logout.
	fallbackRemainingMinutes = 5
)

// Auditor records session lifecycle events; satisfied by the audit publisher.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns session policy. Stores are pure I/O: expiry, cooldown
// blocking, and the touch throttle are all decided here.
type Service struct {
	sessions  store.Store
	cooldowns cooldown.Store
	metrics   *metrics.Metrics
	auditor   Auditor
	logger    *slog.Logger

	sessionTTL     time.Duration
	cooldownWindow time.Duration
	touchInterval  time.Duration
}

type Option func(*Service)

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.sessionTTL = ttl
	}
}

func WithCooldownWindow(window time.Duration) Option {
	return func(s *Service) {
		s.cooldownWindow = window
	}
}

func WithTouchInterval(interval time.Duration) Option {
	return func(s *Service) {
		s.touchInterval = interval
	}
}

func New(sessions store.Store, cooldowns cooldown.Store, m *metrics.Metrics, auditor Auditor, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		sessions:       sessions,
		cooldowns:      cooldowns,
		metrics:        m,
		auditor:        auditor,
		logger:         logger,
		sessionTTL:     defaultSessionTTL,
		cooldownWindow: defaultCooldownWindow,
		touchInterval:  defaultTouchInterval,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Create upserts the identity's session unless the network address is still
// inside the cooldown window of a different identity. The upsert replaces any
// previous session the identity held; creation errors are never swallowed.
func (s *Service) Create(ctx context.Context, identityID, handle, networkAddress, device string) (*models.CreateResult, error) {
	if identityID == "" || networkAddress == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "identity id and network address are required")
	}

	now := requestcontext.Now(ctx)

	window, err := s.cooldowns.Get(ctx, networkAddress)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "cooldown check failed")
	}
	if window != nil && window.IdentityID != identityID && now.Before(window.Until) {
		wait := ceilMinutes(window.Until.Sub(now))
		s.metrics.CooldownBlocks.Inc()
		s.audit(ctx, audit.EventLoginBlocked, identityID, string(models.StatusBlockedByCooldown))
		return &models.CreateResult{
			Status:      models.StatusBlockedByCooldown,
			Message:     models.StatusBlockedByCooldown.Message(),
			WaitMinutes: wait,
		}, nil
	}

	session := &models.Session{
		IdentityID:     identityID,
		Handle:         handle,
		NetworkAddress: networkAddress,
		Device:         device,
		LoginAt:        now,
		ExpiresAt:      now.Add(s.sessionTTL),
		LastActivity:   now,
		Active:         true,
	}
	if err := s.sessions.Upsert(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "session could not be created")
	}
	if err := s.cooldowns.Put(ctx, networkAddress, identityID, now.Add(s.cooldownWindow)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "cooldown window could not be recorded")
	}

	s.metrics.SessionsCreated.Inc()
	s.audit(ctx, audit.EventSessionCreated, identityID, string(models.StatusValid))
	return &models.CreateResult{
		Status:  models.StatusValid,
		Message: models.StatusValid.Message(),
		Session: session,
	}, nil
}

// Validate derives the session state at read time. An expired record is
// destroyed as a side effect. A transient store read failure answers VALID
// with a short fallback remaining time: availability wins over strict expiry
// precision for reads.
func (s *Service) Validate(ctx context.Context, identityID string) (*models.ValidationResult, error) {
	now := requestcontext.Now(ctx)

	session, err := s.sessions.Get(ctx, identityID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return s.validation(models.StatusNoSession, 0), nil
	}
	if err != nil {
		s.logger.WarnContext(ctx, "session read failed, answering with fallback",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		s.metrics.ReadFallbacks.Inc()
		return s.validation(models.StatusValid, fallbackRemainingMinutes), nil
	}

	if session.ExpiredAt(now) {
		if err := s.sessions.Delete(ctx, identityID); err != nil {
			s.logger.Warn("expired session cleanup failed", "error", err)
		}
		s.audit(ctx, audit.EventSessionExpired, identityID, string(models.StatusExpired))
		return s.validation(models.StatusExpired, 0), nil
	}

	remaining := ceilMinutes(session.ExpiresAt.Sub(now))

	// Best effort: a failed activity-stamp update must not invalidate an
	// otherwise-valid session.
	if _, err := s.sessions.Execute(ctx, identityID, nil, func(sess *models.Session) {
		sess.LastActivity = now
	}); err != nil {
		s.logger.Warn("last-activity update failed", "error", err)
	}

	return s.validation(models.StatusValid, remaining), nil
}

// Touch stamps LastActivity, at most once per touch interval per identity.
// It never moves ExpiresAt: sessions are fixed-duration and only Extend
// resets the clock. Touch is best effort throughout.
func (s *Service) Touch(ctx context.Context, identityID string) error {
	now := requestcontext.Now(ctx)

	_, err := s.sessions.Execute(ctx, identityID,
		func(sess *models.Session) error {
			if now.Sub(sess.LastActivity) < s.touchInterval {
				return errTouchThrottled
			}
			return nil
		},
		func(sess *models.Session) {
			sess.LastActivity = now
		},
	)
	if err != nil && !errors.Is(err, errTouchThrottled) && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.Warn("touch failed", "error", err)
	}
	return nil
}

// Extend resets the expiry to a full TTL from now. Only an unexpired session
// can be extended; an expired or absent one forces re-authentication.
func (s *Service) Extend(ctx context.Context, identityID string) (*models.Session, error) {
	now := requestcontext.Now(ctx)

	session, err := s.sessions.Execute(ctx, identityID,
		func(sess *models.Session) error {
			if sess.ExpiredAt(now) {
				return sentinel.ErrExpired
			}
			return nil
		},
		func(sess *models.Session) {
			sess.ExpiresAt = now.Add(s.sessionTTL)
			sess.LastActivity = now
		},
	)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, models.StatusNoSession.Message())
	}
	if errors.Is(err, sentinel.ErrExpired) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, models.StatusExpired.Message())
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "session could not be extended")
	}

	s.audit(ctx, audit.EventSessionExtended, identityID, string(models.StatusValid))
	return session, nil
}

// Destroy deletes the identity's session. Destroying an absent session is a
// no-op; deletion errors are never swallowed.
func (s *Service) Destroy(ctx context.Context, identityID string) error {
	if err := s.sessions.Delete(ctx, identityID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "session could not be destroyed")
	}
	s.audit(ctx, audit.EventSessionDestroyed, identityID, "")
	return nil
}

var errTouchThrottled = errors.New("touch throttled")

func (s *Service) validation(status models.Status, remaining int) *models.ValidationResult {
	s.metrics.ObserveValidation(string(status))
	return &models.ValidationResult{
		Status:           status,
		Message:          status.Message(),
		RemainingMinutes: remaining,
	}
}

func (s *Service) audit(ctx context.Context, action audit.AuditEvent, identityID, outcome string) {
	event := audit.Event{
		Category:   audit.CategorySecurity,
		Timestamp:  requestcontext.Now(ctx),
		IdentityID: identityID,
		Action:     string(action),
		Outcome:    outcome,
		NetworkIP:  requestcontext.ClientIP(ctx),
		RequestID:  requestcontext.RequestID(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.Warn("audit emit failed", "action", event.Action, "error", err)
	}
}

func ceilMinutes(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}
