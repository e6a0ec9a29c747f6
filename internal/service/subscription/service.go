package subscription

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/newsletter-service/internal/domain"
	"github.com/ignite/newsletter-service/internal/pkg/logger"
	"github.com/ignite/newsletter-service/internal/ratelimit"
)

// Gate is the admission check consulted before any subscribe work happens.
type Gate interface {
	Allow(ctx context.Context, identifier string) ratelimit.Decision
}

// EmailSender delivers the confirmation email. A send failure must not roll
// back the already-committed state transition; the workflow reports it as a
// warning instead.
type EmailSender interface {
	SendConfirmation(ctx context.Context, email, token string) error
}

// Analytics records lifecycle transitions best-effort. Errors never change
// the outcome of the operation that triggered them.
type Analytics interface {
	Record(ctx context.Context, email string, status domain.SubscriberStatus, userAgent string) error
}

// Result is the outcome of a workflow operation. Status is the
// HTTP-equivalent code for the transport layer to map. Warnings carry
// non-fatal side-effect failures (delivery, analytics, fail-open
// rate limiting) so callers and tests can observe them without the
// primary outcome changing.
type Result struct {
	Status   int      `json:"-"`
	Message  string   `json:"message"`
	Warnings []string `json:"warnings,omitempty"`
}

// Option tunes optional service behavior.
type Option func(*Service)

// WithTokenTTL sets how long a confirmation token stays valid. Zero
// disables expiry. The user-facing copy promises 24 hours, so that is the
// default used in cmd/server.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.tokenTTL = ttl }
}

// WithClock overrides the time source. Tests use this to drive expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service orchestrates the double-opt-in state machine. It is stateless and
// safe for concurrent use; all persistent state lives behind Repository.
type Service struct {
	repo      Repository
	gate      Gate
	tokens    TokenIssuer
	sender    EmailSender
	analytics Analytics

	tokenTTL time.Duration
	now      func() time.Time
}

// NewService wires the workflow. All collaborators are injected explicitly;
// the service holds no ambient globals.
func NewService(repo Repository, gate Gate, tokens TokenIssuer, sender EmailSender, analytics Analytics, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		gate:      gate,
		tokens:    tokens,
		sender:    sender,
		analytics: analytics,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe handles a subscription request for rawEmail from the given
// client. It gates on the rate limiter, validates the email, then applies
// the state-machine branch for the current record:
//
//	absent        → create pending record, send confirmation (201)
//	pending       → rotate token, resend confirmation (200)
//	confirmed     → ErrAlreadySubscribed
//	unsubscribed  → re-enter pending with a fresh token (200)
func (s *Service) Subscribe(ctx context.Context, rawEmail, ip, userAgent string) (*Result, error) {
	var warnings []string

	decision := s.gate.Allow(ctx, ip)
	if !decision.Allowed {
		return nil, ErrRateLimited
	}
	if decision.FailedOpen {
		warnings = append(warnings, "rate limiting unavailable, request admitted")
	}

	email, err := ValidateEmail(rawEmail)
	if err != nil {
		return nil, err
	}

	// One retry: an insert that loses a concurrent-create race is replayed
	// as if the record had already existed.
	return s.subscribe(ctx, email, ip, userAgent, warnings, 1)
}

func (s *Service) subscribe(ctx context.Context, email, ip, userAgent string, warnings []string, retries int) (*Result, error) {
	sub, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, &StoreError{Op: "find subscriber", Err: err}
	}

	switch {
	case sub == nil:
		return s.createPending(ctx, email, ip, userAgent, warnings, retries)

	case sub.Status == domain.StatusPending:
		return s.refreshPending(ctx, email, userAgent, warnings)

	case sub.Status == domain.StatusConfirmed:
		return nil, ErrAlreadySubscribed

	default: // unsubscribed: re-entry into the pending state
		return s.reactivate(ctx, email, userAgent, warnings)
	}
}

// createPending is the absent → pending transition.
func (s *Service) createPending(ctx context.Context, email, ip, userAgent string, warnings []string, retries int) (*Result, error) {
	token, err := s.tokens.Issue()
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	now := s.now()
	sub := &domain.Subscriber{
		ID:                uuid.New().String(),
		Email:             email,
		Status:            domain.StatusPending,
		ConfirmationToken: token,
		TokenIssuedAt:     &now,
		IPAddress:         ip,
		UserAgent:         userAgent,
		CreatedAt:         now,
	}

	if err := s.repo.Insert(ctx, sub); err != nil {
		if errors.Is(err, ErrDuplicateEmail) && retries > 0 {
			// Concurrent create: another request inserted this email
			// between our read and write. Re-read and replay.
			logger.Info("insert conflict, replaying subscribe", "email", email)
			return s.subscribe(ctx, email, ip, userAgent, warnings, retries-1)
		}
		return nil, &StoreError{Op: "insert subscriber", Err: err}
	}

	warnings = s.sendConfirmation(ctx, email, token, warnings)
	warnings = s.record(ctx, email, domain.StatusPending, userAgent, warnings)

	return &Result{
		Status:   http.StatusCreated,
		Message:  "Please check your email to confirm your subscription!",
		Warnings: warnings,
	}, nil
}

// refreshPending is the pending → pending transition: a fresh token
// overwrites the stored one, so repeated subscribes stay idempotent (one
// record) while the previous token stops being confirmable.
func (s *Service) refreshPending(ctx context.Context, email, userAgent string, warnings []string) (*Result, error) {
	token, err := s.tokens.Issue()
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	if err := s.repo.RefreshToken(ctx, email, token, s.now()); err != nil {
		return nil, &StoreError{Op: "refresh token", Err: err}
	}

	warnings = s.sendConfirmation(ctx, email, token, warnings)

	return &Result{
		Status:   http.StatusOK,
		Message:  "Confirmation email sent. Please check your inbox.",
		Warnings: warnings,
	}, nil
}

// reactivate is the unsubscribed → pending re-entry. Updating the existing
// row keeps the email unique key intact instead of risking an insert
// conflict.
func (s *Service) reactivate(ctx context.Context, email, userAgent string, warnings []string) (*Result, error) {
	token, err := s.tokens.Issue()
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	if err := s.repo.Reactivate(ctx, email, token, s.now()); err != nil {
		return nil, &StoreError{Op: "reactivate subscriber", Err: err}
	}

	warnings = s.sendConfirmation(ctx, email, token, warnings)
	warnings = s.record(ctx, email, domain.StatusPending, userAgent, warnings)

	return &Result{
		Status:   http.StatusOK,
		Message:  "Confirmation email sent. Please check your inbox.",
		Warnings: warnings,
	}, nil
}

// Confirm redeems a confirmation token. The guarded update (token AND
// status=pending) is what makes a token single-use: once the row leaves
// pending the same token can never match again.
func (s *Service) Confirm(ctx context.Context, token string) (*Result, error) {
	if token == "" {
		return nil, ErrConfirmation
	}

	sub, err := s.repo.FindPendingByToken(ctx, token)
	if err != nil {
		return nil, &StoreError{Op: "find pending by token", Err: err}
	}
	if sub == nil {
		return nil, ErrConfirmation
	}

	now := s.now()
	if s.tokenTTL > 0 && sub.TokenIssuedAt != nil && now.Sub(*sub.TokenIssuedAt) > s.tokenTTL {
		return nil, ErrConfirmation
	}

	matched, err := s.repo.MarkConfirmed(ctx, token, now)
	if err != nil {
		return nil, &StoreError{Op: "mark confirmed", Err: err}
	}
	if !matched {
		// Lost a race with another confirm for the same token.
		return nil, ErrConfirmation
	}

	warnings := s.record(ctx, sub.Email, domain.StatusConfirmed, sub.UserAgent, nil)

	return &Result{
		Status:   http.StatusOK,
		Message:  "Subscription confirmed successfully!",
		Warnings: warnings,
	}, nil
}

// Unsubscribe transitions a confirmed subscriber to unsubscribed. Calling
// it for a pending or absent email changes nothing and still reports
// success; callers cannot rely on it detecting "not confirmed".
func (s *Service) Unsubscribe(ctx context.Context, rawEmail string) (*Result, error) {
	email, err := ValidateEmail(rawEmail)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.MarkUnsubscribed(ctx, email, s.now()); err != nil {
		return nil, &StoreError{Op: "mark unsubscribed", Err: err}
	}

	return &Result{
		Status:  http.StatusOK,
		Message: "Successfully unsubscribed",
	}, nil
}

// sendConfirmation attempts delivery and converts failure into a warning.
// The durable state transition is authoritative; delivery is downstream.
func (s *Service) sendConfirmation(ctx context.Context, email, token string, warnings []string) []string {
	if err := s.sender.SendConfirmation(ctx, email, token); err != nil {
		logger.Error("confirmation email delivery failed", "email", email, "error", err)
		return append(warnings, "confirmation email could not be delivered")
	}
	return warnings
}

// record appends a lifecycle event best-effort.
func (s *Service) record(ctx context.Context, email string, status domain.SubscriberStatus, userAgent string, warnings []string) []string {
	if s.analytics == nil {
		return warnings
	}
	if err := s.analytics.Record(ctx, email, status, userAgent); err != nil {
		logger.Warn("analytics event lost", "email", email, "status", string(status), "error", err)
		return append(warnings, "analytics event lost")
	}
	return warnings
}
