// Package postgres implements the service repository contracts against
// PostgreSQL. Per-row atomicity of UPDATE plus the unique index on email
// are what the workflow's concurrency guarantees lean on.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/newsletter-service/internal/domain"
	"github.com/ignite/newsletter-service/internal/service/subscription"
)

// uniqueViolation is the Postgres error code for a unique-constraint hit.
const uniqueViolation = "23505"

// SubscriberRepo implements subscription.Repository against PostgreSQL.
type SubscriberRepo struct{ db *sql.DB }

// NewSubscriberRepo creates a Postgres-backed subscriber repository.
func NewSubscriberRepo(db *sql.DB) *SubscriberRepo { return &SubscriberRepo{db: db} }

const subscriberColumns = `id, email, status, confirmation_token, token_issued_at,
	ip_address, user_agent, created_at, confirmed_at, unsubscribed_at`

func (r *SubscriberRepo) FindByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+subscriberColumns+`
		FROM newsletter_subscribers
		WHERE email = $1
	`, email)
	return scanSubscriber(row)
}

func (r *SubscriberRepo) FindPendingByToken(ctx context.Context, token string) (*domain.Subscriber, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+subscriberColumns+`
		FROM newsletter_subscribers
		WHERE confirmation_token = $1 AND status = 'pending'
	`, token)
	return scanSubscriber(row)
}

func (r *SubscriberRepo) Insert(ctx context.Context, s *domain.Subscriber) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO newsletter_subscribers
			(id, email, status, confirmation_token, token_issued_at,
			 ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.ID, s.Email, s.Status, s.ConfirmationToken, s.TokenIssuedAt,
		s.IPAddress, s.UserAgent, s.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return subscription.ErrDuplicateEmail
		}
		return fmt.Errorf("insert subscriber: %w", err)
	}
	return nil
}

func (r *SubscriberRepo) RefreshToken(ctx context.Context, email, token string, issuedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE newsletter_subscribers
		SET confirmation_token = $2, token_issued_at = $3
		WHERE email = $1 AND status = 'pending'
	`, email, token, issuedAt)
	if err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return subscription.ErrNotFound
	}
	return nil
}

func (r *SubscriberRepo) Reactivate(ctx context.Context, email, token string, issuedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE newsletter_subscribers
		SET status = 'pending', confirmation_token = $2, token_issued_at = $3,
		    unsubscribed_at = NULL
		WHERE email = $1 AND status = 'unsubscribed'
	`, email, token, issuedAt)
	if err != nil {
		return fmt.Errorf("reactivate subscriber: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return subscription.ErrNotFound
	}
	return nil
}

func (r *SubscriberRepo) MarkConfirmed(ctx context.Context, token string, at time.Time) (bool, error) {
	// Single guarded update: the status filter is what makes the token
	// single-use under concurrent confirms.
	res, err := r.db.ExecContext(ctx, `
		UPDATE newsletter_subscribers
		SET status = 'confirmed', confirmed_at = $2,
		    confirmation_token = NULL, token_issued_at = NULL
		WHERE confirmation_token = $1 AND status = 'pending'
	`, token, at)
	if err != nil {
		return false, fmt.Errorf("mark confirmed: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *SubscriberRepo) MarkUnsubscribed(ctx context.Context, email string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE newsletter_subscribers
		SET status = 'unsubscribed', unsubscribed_at = $2
		WHERE email = $1 AND status = 'confirmed'
	`, email, at)
	if err != nil {
		return false, fmt.Errorf("mark unsubscribed: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func scanSubscriber(row *sql.Row) (*domain.Subscriber, error) {
	var s domain.Subscriber
	var token sql.NullString
	err := row.Scan(&s.ID, &s.Email, &s.Status, &token, &s.TokenIssuedAt,
		&s.IPAddress, &s.UserAgent, &s.CreatedAt, &s.ConfirmedAt, &s.UnsubscribedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscriber: %w", err)
	}
	s.ConfirmationToken = token.String
	return &s, nil
}
