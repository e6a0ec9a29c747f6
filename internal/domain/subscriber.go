package domain

import "time"

// SubscriberStatus enumerates the lifecycle states of a newsletter subscriber.
// Transitions run pending → confirmed → unsubscribed; an unsubscribed record
// may re-enter pending when the address subscribes again.
type SubscriberStatus string

const (
	StatusPending      SubscriberStatus = "pending"
	StatusConfirmed    SubscriberStatus = "confirmed"
	StatusUnsubscribed SubscriberStatus = "unsubscribed"
)

// Subscriber is one newsletter recipient, keyed by canonical email
// (trimmed, lower-cased). ConfirmationToken is set only while the
// status is pending.
type Subscriber struct {
	ID                string           `json:"id" db:"id"`
	Email             string           `json:"email" db:"email"`
	Status            SubscriberStatus `json:"status" db:"status"`
	ConfirmationToken string           `json:"-" db:"confirmation_token"`
	TokenIssuedAt     *time.Time       `json:"-" db:"token_issued_at"`

	// Provenance captured at creation, immutable afterwards.
	IPAddress string `json:"ip_address" db:"ip_address"`
	UserAgent string `json:"user_agent" db:"user_agent"`

	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	ConfirmedAt    *time.Time `json:"confirmed_at" db:"confirmed_at"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at" db:"unsubscribed_at"`
}

// AnalyticsEvent is one append-only record of a lifecycle transition.
// Events are best-effort: the workflow never fails because one was lost.
type AnalyticsEvent struct {
	ID        string           `json:"id" db:"id"`
	Email     string           `json:"email" db:"email"`
	Status    SubscriberStatus `json:"status" db:"status"`
	UserAgent string           `json:"user_agent" db:"user_agent"`
	Timestamp time.Time        `json:"timestamp" db:"timestamp"`
}
