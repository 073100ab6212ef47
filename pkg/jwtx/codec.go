package jwtx

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the smallest accepted HMAC secret, in bytes.
const MinSecretLength = 32

var (
	// ErrExpired reports a signature-valid token past its expiry.
	ErrExpired = errors.New("jwtx: token expired")

	// ErrInvalid covers every other verification failure: bad signature,
	// wrong token use, wrong issuer, malformed input, algorithm confusion.
	ErrInvalid = errors.New("jwtx: invalid token")
)

// Config holds the codec's signing material and policy.
type Config struct {
	// AccessSecret and RefreshSecret are the HS256 keys. They must be at
	// least MinSecretLength bytes and must differ: an access key must
	// never validate a refresh token or vice versa.
	AccessSecret  []byte
	RefreshSecret []byte

	// Issuer is stamped into and required of every token.
	Issuer string

	// AccessTTL and RefreshTTL default to DefaultAccessTTL/DefaultRefreshTTL.
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Codec signs and verifies the service's access and refresh tokens.
// There is intentionally no decode-without-verify entry point; callers only
// ever see claims that came out of a Verify method.
type Codec struct {
	cfg Config
	now func() time.Time
}

// New validates the config and returns a ready Codec.
func New(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) < MinSecretLength {
		return nil, errors.New("jwtx: access secret too short")
	}
	if len(cfg.RefreshSecret) < MinSecretLength {
		return nil, errors.New("jwtx: refresh secret too short")
	}
	if len(cfg.AccessSecret) == len(cfg.RefreshSecret) &&
		subtle.ConstantTimeCompare(cfg.AccessSecret, cfg.RefreshSecret) == 1 {
		return nil, errors.New("jwtx: access and refresh secrets must differ")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("jwtx: issuer required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}

	return &Codec{cfg: cfg, now: time.Now}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.cfg.AccessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.cfg.RefreshTTL }

// IssueAccess mints an access token for the subject. csrfHash is the keyed
// hash of the session's CSRF token and travels inside the claims.
func (c *Codec) IssueAccess(subject, username, role, csrfHash string) (string, Claims, error) {
	claims := newClaims(
		subject, username, role,
		TokenUseAccess, csrfHash,
		c.cfg.Issuer, c.cfg.AccessTTL, c.now().UTC(),
	)
	signed, err := c.sign(claims, c.cfg.AccessSecret)
	return signed, claims, err
}

// IssueRefresh mints a refresh token for the subject, signed with the
// refresh secret.
func (c *Codec) IssueRefresh(subject, username, role string) (string, Claims, error) {
	claims := newClaims(
		subject, username, role,
		TokenUseRefresh, "",
		c.cfg.Issuer, c.cfg.RefreshTTL, c.now().UTC(),
	)
	signed, err := c.sign(claims, c.cfg.RefreshSecret)
	return signed, claims, err
}

// VerifyAccess checks signature (access secret), token use and expiry.
func (c *Codec) VerifyAccess(token string) (Claims, error) {
	return c.verify(token, c.cfg.AccessSecret, TokenUseAccess)
}

// VerifyRefresh checks signature (refresh secret), token use and expiry.
func (c *Codec) VerifyRefresh(token string) (Claims, error) {
	return c.verify(token, c.cfg.RefreshSecret, TokenUseRefresh)
}

func (c *Codec) sign(claims Claims, secret []byte) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func (c *Codec) verify(token string, secret []byte, wantUse string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)

	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		// The parser only reports expiry once the signature has checked
		// out, so ErrExpired here always means "authentic but stale".
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalid
	}

	if claims.TokenUse != wantUse {
		return Claims{}, ErrInvalid
	}

	return *claims, nil
}
