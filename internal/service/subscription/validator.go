package subscription

import "strings"

// disposableDomains lists known throwaway email providers. Addresses on
// these domains never confirm, so they only pollute the list.
var disposableDomains = map[string]struct{}{
	"tempmail.org":           {},
	"guerrillamail.com":      {},
	"mailinator.com":         {},
	"10minutemail.com":       {},
	"throwaway.email":        {},
	"temp-mail.org":          {},
	"sharklasers.com":        {},
	"getairmail.com":         {},
	"temp-mail.io":           {},
	"guerrillamailblock.com": {},
	"pokemail.net":           {},
	"spam4.me":               {},
	"bccto.me":               {},
	"chacuo.net":             {},
	"dispostable.com":        {},
	"fakeinbox.com":          {},
}

// maxEmailLength is the RFC 5321 path limit.
const maxEmailLength = 254

// ValidateEmail canonicalizes a raw email (trim + lowercase) and runs the
// acceptance pipeline, short-circuiting on the first failure. On success it
// returns the canonical form used as the subscriber key; on failure it
// returns an *InvalidEmailError with a specific rejection reason.
func ValidateEmail(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", &InvalidEmailError{Reason: ReasonMalformed, Message: "Email is required"}
	}

	email := strings.ToLower(strings.TrimSpace(raw))

	local, dom, ok := splitAddress(email)
	if !ok || local == "" || dom == "" || !strings.Contains(dom, ".") {
		return "", &InvalidEmailError{Reason: ReasonMalformed, Message: "Please enter a valid email address"}
	}

	if _, bad := disposableDomains[dom]; bad {
		return "", &InvalidEmailError{Reason: ReasonDisposable, Message: "Disposable email addresses are not allowed"}
	}

	if len(email) > maxEmailLength {
		return "", &InvalidEmailError{Reason: ReasonTooLong, Message: "Email address is too long"}
	}

	// Cheap anti-abuse heuristic: real providers don't issue addresses
	// with doubled dots or dashes.
	if strings.Contains(email, "..") || strings.Contains(email, "--") {
		return "", &InvalidEmailError{Reason: ReasonSuspicious, Message: "Invalid email format"}
	}

	return email, nil
}

// splitAddress splits local@domain, rejecting whitespace and any address
// with more or fewer than exactly one "@".
func splitAddress(email string) (local, dom string, ok bool) {
	if strings.ContainsAny(email, " \t\n") {
		return "", "", false
	}
	at := strings.Index(email, "@")
	if at < 0 || strings.Contains(email[at+1:], "@") {
		return "", "", false
	}
	return email[:at], email[at+1:], true
}
