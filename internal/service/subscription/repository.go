package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/ignite/newsletter-service/internal/domain"
)

// Repository sentinel errors.
var (
	// ErrDuplicateEmail is returned by Insert when the email unique key
	// already exists. The workflow treats it as a concurrent-create race.
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrNotFound is returned by updates that matched no row.
	ErrNotFound = errors.New("subscriber not found")
)

// Repository defines the data access contract for subscriber records.
// The email unique key is enforced by the store, not the workflow.
type Repository interface {
	// FindByEmail returns the subscriber for a canonical email, or nil
	// when no record exists.
	FindByEmail(ctx context.Context, email string) (*domain.Subscriber, error)

	// FindPendingByToken returns the subscriber whose confirmation token
	// matches AND whose status is pending, or nil. It must never match
	// confirmed or unsubscribed records.
	FindPendingByToken(ctx context.Context, token string) (*domain.Subscriber, error)

	// Insert creates a new subscriber. Returns ErrDuplicateEmail if the
	// email unique key conflicts.
	Insert(ctx context.Context, sub *domain.Subscriber) error

	// RefreshToken overwrites the stored confirmation token of a pending
	// record, invalidating the previous token.
	RefreshToken(ctx context.Context, email, token string, issuedAt time.Time) error

	// Reactivate moves an unsubscribed record back to pending with a
	// fresh token. Returns ErrNotFound if no unsubscribed row matches.
	Reactivate(ctx context.Context, email, token string, issuedAt time.Time) error

	// MarkConfirmed transitions the pending record holding this token to
	// confirmed in a single guarded update (token AND status=pending).
	// Returns false when no row matched, which is what makes a token
	// single-use: once the status leaves pending it can never match again.
	MarkConfirmed(ctx context.Context, token string, at time.Time) (bool, error)

	// MarkUnsubscribed transitions a confirmed record to unsubscribed.
	// Returns false when the email is absent or not confirmed; the
	// workflow treats that as a silent no-op.
	MarkUnsubscribed(ctx context.Context, email string, at time.Time) (bool, error)
}
