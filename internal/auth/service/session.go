package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pixelgrove/lensgate/internal/auth/domain"
	"github.com/pixelgrove/lensgate/internal/auth/guard"
	"github.com/pixelgrove/lensgate/internal/auth/store"
	"github.com/pixelgrove/lensgate/pkg/csrfx"
	"github.com/pixelgrove/lensgate/pkg/jwtx"
	"github.com/pixelgrove/lensgate/pkg/slogx"
	"github.com/pquerna/otp/totp"
)

// SessionService owns the login, refresh and logout flows. It composes the
// credential check, the brute-force guard, CSRF token minting and the JWT
// codec; handlers only translate its results onto cookies and JSON.
type SessionService struct {
	Store       store.Store
	Codec       *jwtx.Codec
	CSRF        *csrfx.Guard
	Guard       *guard.Guard
	Credentials *CredentialService
}

// LoginInput carries everything the login flow needs. ClientIP scopes the
// brute-force counter alongside the login identifier.
type LoginInput struct {
	Login    string
	Password string
	OTPCode  string
	ClientIP string
}

// LoginResult is handed back for both login and refresh. The token pair only
// ever travels to the client as cookies; the raw CSRF token is the one value
// the response body may carry besides the identity.
type LoginResult struct {
	Identity   domain.Identity
	Pair       domain.TokenPair
	CSRFToken  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Login runs the full authentication flow:
// guard check -> credential check -> TOTP (when enrolled) -> issue session.
//
// A failed password or OTP counts against the guard; a missing OTP for an
// enrolled account does not, since the caller has not actually guessed wrong
// yet.
func (s *SessionService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	now := time.Now()
	l := slogx.FromContext(ctx)
	key := guard.Key(in.ClientIP, in.Login)

	if st := s.Guard.CheckAllowed(key, now); !st.Allowed {
		l.Warn("login rejected by lockout",
			slog.String("client_ip", in.ClientIP),
		)
		return LoginResult{}, &LockoutError{RetryAfter: st.LockoutRemaining}
	}

	u, err := s.Credentials.Verify(ctx, in.Login, in.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return LoginResult{}, s.recordFailure(ctx, key, now, ErrInvalidCredentials)
		}
		return LoginResult{}, err
	}

	if u.TOTPEnrolled() {
		if in.OTPCode == "" {
			return LoginResult{}, ErrOTPRequired
		}
		if !totp.Validate(in.OTPCode, *u.TOTPSecret) {
			return LoginResult{}, s.recordFailure(ctx, key, now, ErrInvalidOTP)
		}
	}

	s.Guard.RecordSuccess(key)

	res, err := s.issue(u)
	if err != nil {
		return LoginResult{}, err
	}

	l.Info("session issued",
		slog.String("user_id", u.ID),
		slog.String("role", string(u.Role)),
	)
	return res, nil
}

// Refresh rotates a session: the presented refresh token is verified,
// checked against the denylist, revoked, and a fresh pair with a fresh CSRF
// token is issued. The user record is reloaded so a role change or deletion
// takes effect at the next rotation rather than at the refresh horizon.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (LoginResult, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.VerifyRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, jwtx.ErrInvalid) {
			l.Warn("refresh presented an invalid token")
		}
		return LoginResult{}, err
	}

	revoked, err := s.Store.RevokedTokens().IsRevoked(ctx, claims.ID)
	if err != nil {
		return LoginResult{}, err
	}
	if revoked {
		l.Warn("refresh presented a revoked token",
			slog.String("user_id", claims.Subject),
		)
		return LoginResult{}, jwtx.ErrInvalid
	}

	u, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, jwtx.ErrInvalid
		}
		return LoginResult{}, err
	}

	// Revoking before issuing makes rotation single-use: if two requests
	// race on the same token, exactly one revocation succeeds.
	err = s.Store.RevokedTokens().Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			l.Warn("refresh token replayed",
				slog.String("user_id", claims.Subject),
			)
			return LoginResult{}, jwtx.ErrInvalid
		}
		return LoginResult{}, err
	}

	return s.issue(u)
}

// Logout revokes the presented refresh token. It is best-effort: an expired,
// invalid or already-revoked token still logs the client out, since clearing
// the cookies is the handler's job either way.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) {
	l := slogx.FromContext(ctx)

	claims, err := s.Codec.VerifyRefresh(refreshToken)
	if err != nil {
		return
	}

	err = s.Store.RevokedTokens().Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
		l.Error("failed to revoke refresh token on logout",
			slog.Any("error", err),
			slog.String("user_id", claims.Subject),
		)
	}
}

// issue mints the CSRF token and the signed pair for an authenticated user.
func (s *SessionService) issue(u domain.User) (LoginResult, error) {
	csrfToken, err := s.CSRF.Generate()
	if err != nil {
		return LoginResult{}, err
	}

	access, _, err := s.Codec.IssueAccess(u.ID, u.Username, string(u.Role), s.CSRF.Hash(csrfToken))
	if err != nil {
		return LoginResult{}, err
	}
	refresh, _, err := s.Codec.IssueRefresh(u.ID, u.Username, string(u.Role))
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		Identity: u.Identity(),
		Pair: domain.TokenPair{
			AccessToken:  access,
			RefreshToken: refresh,
		},
		CSRFToken:  csrfToken,
		AccessTTL:  s.Codec.AccessTTL(),
		RefreshTTL: s.Codec.RefreshTTL(),
	}, nil
}

// recordFailure bumps the guard and decides which error the caller sees: the
// plain failure with its remaining-attempts count, or the lockout if this
// failure crossed the threshold.
func (s *SessionService) recordFailure(ctx context.Context, key string, now time.Time, cause error) error {
	st := s.Guard.RecordFailure(key, now)
	if !st.Allowed {
		slogx.FromContext(ctx).Warn("account locked after repeated failures")
		return &LockoutError{RetryAfter: st.LockoutRemaining}
	}
	if errors.Is(cause, ErrInvalidOTP) {
		return ErrInvalidOTP
	}
	return &CredentialsError{AttemptsRemaining: st.AttemptsRemaining}
}
