package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountLocked      = errors.New("account_locked")
	ErrOTPRequired        = errors.New("otp_required")
	ErrInvalidOTP         = errors.New("invalid_otp")
	ErrInvalidRole        = errors.New("invalid_role")
)

// LockoutError carries how long the caller must wait before the guard will
// accept another attempt. It matches ErrAccountLocked under errors.Is.
type LockoutError struct {
	RetryAfter time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("account_locked: retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *LockoutError) Unwrap() error { return ErrAccountLocked }

// CredentialsError is a failed credential check annotated with how many
// attempts remain before lockout. It matches ErrInvalidCredentials under
// errors.Is.
type CredentialsError struct {
	AttemptsRemaining int
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("invalid_credentials: %d attempts remaining", e.AttemptsRemaining)
}

func (e *CredentialsError) Unwrap() error { return ErrInvalidCredentials }
