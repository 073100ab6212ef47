package service

import (
	"context"
	"strings"

	"github.com/pixelgrove/lensgate/internal/auth/domain"
	"github.com/pixelgrove/lensgate/internal/auth/store"
	"github.com/pixelgrove/lensgate/pkg/cryptox"
	"github.com/pixelgrove/lensgate/pkg/idx"
)

// UserService is the admin-facing user management surface.
type UserService struct {
	Store store.Store
}

// CreateUserInput is the admin create request after transport decoding.
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// CreateUser validates the role, hashes the password and inserts the user.
// Returns store.ErrAlreadyExists when the username or email is taken.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (domain.User, error) {
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return domain.User{}, ErrInvalidRole
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}

	u := domain.User{
		ID:           idx.New().String(),
		Username:     strings.ToLower(in.Username),
		Email:        strings.ToLower(in.Email),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// ListUsers returns all users, newest first.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}

// DeleteUser removes a user. Returns store.ErrNotFound for unknown ids.
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	return s.Store.Users().DeleteUser(ctx, userID)
}

// UpdatePassword replaces a user's password hash. Existing sessions keep
// working until their tokens expire or rotate.
func (s *UserService) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	if newPassword == "" {
		return ErrInvalidCredentials
	}
	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.Store.Users().UpdatePasswordHash(ctx, userID, hash)
}
