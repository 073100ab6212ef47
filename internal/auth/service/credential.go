package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/pixelgrove/lensgate/internal/auth/domain"
	"github.com/pixelgrove/lensgate/internal/auth/store"
	"github.com/pixelgrove/lensgate/pkg/cryptox"
)

// CredentialService resolves a login identifier (username or email) and
// verifies the password against the stored argon2 hash.
type CredentialService struct {
	Store store.Store

	dummyOnce sync.Once
	dummyHash string
}

// Verify returns the user when the credentials check out. Every failure
// surfaces as ErrInvalidCredentials; whether the account exists is never
// revealed, and an unknown login still pays for a full hash verification so
// the two cases are not distinguishable by timing.
func (s *CredentialService) Verify(ctx context.Context, login, password string) (domain.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	u, err := s.Store.Users().GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = cryptox.VerifyPassword(password, s.dummy())
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	return u, nil
}

// dummy is a throwaway hash verified against when the login does not resolve,
// computed once per process so the not-found path costs the same as a real
// mismatch.
func (s *CredentialService) dummy() string {
	s.dummyOnce.Do(func() {
		pw, err := cryptox.GenerateToken(cryptox.TokenSize128)
		if err != nil {
			pw = "lensgate-dummy"
		}
		hash, err := cryptox.HashPassword(pw)
		if err != nil {
			// VerifyPassword against a malformed hash still burns a parse;
			// acceptable degradation if hashing itself is broken.
			hash = ""
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
