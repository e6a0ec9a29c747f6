package subscription

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// TokenIssuer produces opaque single-use confirmation tokens.
type TokenIssuer interface {
	Issue() (string, error)
}

// tokenBytes is the entropy per token. 32 bytes encodes to a 43-char
// URL-safe string; tokens are bearer credentials, so they must come from
// a CSPRNG, never math/rand.
const tokenBytes = 32

// RandomTokenIssuer issues tokens from crypto/rand.
type RandomTokenIssuer struct{}

// Issue returns a new high-entropy URL-safe token.
func (RandomTokenIssuer) Issue() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
