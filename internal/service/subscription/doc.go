// Package subscription implements the double-opt-in subscription workflow.
//
// This is the single source of truth for subscriber state. A subscribe
// request passes the rate-limit gate and email validation, then drives the
// state machine: absent records become pending with a fresh confirmation
// token, pending records get their token rotated and the email resent,
// confirmed records are rejected, and unsubscribed records re-enter pending.
//
// The service layer contains pure business logic and depends on the
// Repository interface defined in repository.go. It never imports
// net/http or database/sql directly.
package subscription
