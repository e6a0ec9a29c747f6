package subscription

import "testing"

func TestRandomTokenIssuer_Issue(t *testing.T) {
	issuer := RandomTokenIssuer{}

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		token, err := issuer.Issue()
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if len(token) != 43 { // 32 bytes, base64 raw URL encoding
			t.Fatalf("unexpected token length %d: %q", len(token), token)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token issued: %q", token)
		}
		seen[token] = struct{}{}
	}
}

func TestRandomTokenIssuer_URLSafe(t *testing.T) {
	issuer := RandomTokenIssuer{}
	token, err := issuer.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	for _, c := range token {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			t.Fatalf("token contains non-URL-safe character %q", c)
		}
	}
}
