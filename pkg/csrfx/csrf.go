// Package csrfx implements the double-submit half of CSRF protection: a
// random token handed to the client in a script-readable cookie, and a keyed
// hash of that token embedded in the session's access-token claims. A
// mutating request is only accepted when the raw token echoed back in a
// header still hashes to the value bound inside the caller's own session.
package csrfx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/pixelgrove/lensgate/pkg/cryptox"
)

// TokenSize is the raw CSRF token entropy in bytes.
const TokenSize = cryptox.TokenSize256

// MinSecretLength is the smallest accepted hashing secret, in bytes.
const MinSecretLength = 16

// Guard generates CSRF tokens and validates them against their keyed hash.
type Guard struct {
	secret []byte
}

// New returns a Guard. The secret must be distinct from the token-signing
// secrets; the caller's config layer enforces that.
func New(secret []byte) (*Guard, error) {
	if len(secret) < MinSecretLength {
		return nil, errors.New("csrfx: secret too short")
	}
	return &Guard{secret: secret}, nil
}

// Generate returns a fresh random token (base64url, fixed length).
func (g *Guard) Generate() (string, error) {
	return cryptox.GenerateToken(TokenSize)
}

// Hash returns the HMAC-SHA256 of the raw token under the guard's secret.
// This is the value embedded in access-token claims.
func (g *Guard) Hash(raw string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Validate recomputes the hash of the client-supplied raw token and compares
// it in constant time against the hash from the caller's access token.
func (g *Guard) Validate(raw, wantHash string) bool {
	if raw == "" || wantHash == "" {
		return false
	}
	return hmac.Equal([]byte(g.Hash(raw)), []byte(wantHash))
}
