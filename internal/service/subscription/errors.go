package subscription

import (
	"errors"
	"fmt"
)

// Sentinel errors for the subscription service layer.
var (
	// ErrRateLimited means the client identifier exhausted its quota.
	ErrRateLimited = errors.New("too many requests")

	// ErrAlreadySubscribed means the email is already confirmed.
	ErrAlreadySubscribed = errors.New("email already subscribed")

	// ErrConfirmation means the token did not match a pending record:
	// never issued, already used, or expired.
	ErrConfirmation = errors.New("invalid or expired confirmation token")
)

// Rejection reasons carried by InvalidEmailError.
const (
	ReasonMalformed  = "malformed"
	ReasonDisposable = "disposable_domain"
	ReasonTooLong    = "too_long"
	ReasonSuspicious = "suspicious_pattern"
)

// InvalidEmailError reports why an email was rejected. Message is safe to
// show to the end user; Reason is stable for callers and tests.
type InvalidEmailError struct {
	Reason  string
	Message string
}

func (e *InvalidEmailError) Error() string {
	return fmt.Sprintf("invalid email (%s): %s", e.Reason, e.Message)
}

// StoreError wraps a transient storage failure. Safe to retry.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
