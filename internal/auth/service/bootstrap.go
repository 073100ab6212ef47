package service

import (
	"context"
	"log/slog"

	"github.com/pixelgrove/lensgate/internal/auth/domain"
	"github.com/pixelgrove/lensgate/internal/auth/store"
	"github.com/pixelgrove/lensgate/pkg/cryptox"
	"github.com/pixelgrove/lensgate/pkg/idx"
	"github.com/pixelgrove/lensgate/pkg/slogx"
)

// EnsureAdmin creates the first admin account when the users table is empty,
// so a fresh deployment is immediately usable. When no password is
// configured one is generated and logged exactly once; it is not stored
// anywhere in recoverable form.
func EnsureAdmin(ctx context.Context, st store.Store, username, password string) error {
	l := slogx.FromContext(ctx)

	empty, err := st.Users().IsEmpty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}

	if username == "" {
		username = "admin"
	}

	generated := false
	if password == "" {
		password, err = cryptox.GeneratePassword()
		if err != nil {
			return err
		}
		generated = true
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return err
	}

	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        username + "@localhost",
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	}
	if err := st.Users().CreateUser(ctx, u); err != nil {
		return err
	}

	if generated {
		// The only time a credential is ever logged. Operators are expected
		// to change it on first login.
		l.Warn("bootstrapped admin user with generated password",
			slog.String("username", username),
			slog.String("password", password),
		)
	} else {
		l.Info("bootstrapped admin user",
			slog.String("username", username),
		)
	}
	return nil
}
