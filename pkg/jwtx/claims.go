package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants for the cookie-session flows.
// These provide sensible security defaults but can be overridden per-service.
const (
	// DefaultAccessTTL is the default lifetime for access tokens.
	DefaultAccessTTL = 4 * time.Hour

	// DefaultRefreshTTL is the default lifetime for refresh tokens.
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Token use values carried in the "token_use" claim. A token only verifies
// through the function matching its use; the disjoint signing secrets make
// the claim defence in depth rather than the only barrier.
const (
	TokenUseAccess  = "access"
	TokenUseRefresh = "refresh"
)

// Claims are the payload embedded in both access and refresh tokens, we are
// keeping additive changes to preserve compatibility for later.
type Claims struct {
	jwt.RegisteredClaims

	// Username for the authenticated user
	Username string `json:"username,omitempty"`

	// Role is the subject's portfolio role (admin, editor, viewer)
	Role string `json:"role,omitempty"`

	// TokenUse distinguishes access from refresh tokens
	TokenUse string `json:"token_use"`

	// CSRF is the keyed hash of the session's CSRF token. Access tokens
	// only; the raw token lives in a script-readable cookie client-side.
	CSRF string `json:"csrf,omitempty"`
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

func newClaims(
	subject, username, role, tokenUse, csrfHash, issuer string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Username: username,
		Role:     role,
		TokenUse: tokenUse,
		CSRF:     csrfHash,
	}
}
