// Package auth verifies bearer tokens on API requests.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrMissingToken is returned when the Authorization header is absent or not a bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned when a token is not accepted.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Principal identifies the caller behind an accepted token.
type Principal struct {
	// Subject is a stable, non-secret identifier for the token.
	Subject string
}

// Verifier checks bearer tokens.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// StaticVerifier accepts a fixed set of API tokens.
type StaticVerifier struct {
	digests [][sha256.Size]byte
}

// NewStaticVerifier returns a verifier for tokens. Empty tokens are ignored.
func NewStaticVerifier(tokens []string) *StaticVerifier {
	v := &StaticVerifier{}
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		v.digests = append(v.digests, sha256.Sum256([]byte(t)))
	}
	return v
}

// Len returns the number of accepted tokens.
func (v *StaticVerifier) Len() int {
	return len(v.digests)
}

// Verify compares the token against every configured token in constant time.
func (v *StaticVerifier) Verify(ctx context.Context, token string) (*Principal, error) {
	got := sha256.Sum256([]byte(token))
	match := 0
	for i := range v.digests {
		match |= subtle.ConstantTimeCompare(got[:], v.digests[i][:])
	}
	if match != 1 {
		return nil, ErrInvalidToken
	}
	return &Principal{Subject: "token:" + hex.EncodeToString(got[:4])}, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(h[len(prefix):])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by the middleware, if any.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok
}

// Middleware rejects requests without an accepted bearer token. onError renders the failure;
// it receives ErrMissingToken or ErrInvalidToken. A nil verifier lets every request through.
func Middleware(v Verifier, onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if v == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				onError(w, r, err)
				return
			}
			p, err := v.Verify(r.Context(), token)
			if err != nil {
				if !errors.Is(err, ErrInvalidToken) {
					err = errors.Join(ErrInvalidToken, err)
				}
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
