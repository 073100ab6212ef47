package http

import "github.com/pixelgrove/lensgate/internal/auth/domain"

// ErrorResponse is the standard JSON error body.
type ErrorResponse struct {
	Error             string `json:"error"`
	ErrorDescription  string `json:"error_description"`
	AttemptsRemaining *int   `json:"attempts_remaining,omitempty"`
	RetryAfter        *int   `json:"retry_after,omitempty"`
}

// LoginRequest is the credential payload for POST /v1/session/login.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	OTPCode  string `json:"otp_code,omitempty"`
}

// SessionResponse is returned by login and refresh. Tokens travel only as
// cookies; the body carries the identity, the raw CSRF token for the
// frontend to echo in X-CSRF-Token, and the access lifetime in seconds.
type SessionResponse struct {
	User      domain.Identity `json:"user"`
	CSRFToken string          `json:"csrf_token"`
	ExpiresIn int             `json:"expires_in"`
}

// IdentityResponse is returned by GET /v1/session.
type IdentityResponse struct {
	User domain.Identity `json:"user"`
}

// MessageResponse is a bare confirmation body.
type MessageResponse struct {
	Message string `json:"message"`
}

// CreateUserRequest is the admin payload for POST /v1/users.
type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdatePasswordRequest is the payload for PUT /v1/users/{id}/password.
type UpdatePasswordRequest struct {
	Password string `json:"password"`
}

// UserResponse is a single user in admin listings.
type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// ListUsersResponse wraps the admin user listing.
type ListUsersResponse struct {
	Users []UserResponse `json:"users"`
}

// HealthResponse is returned by the health probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports per-dependency readiness.
type HealthChecks struct {
	Database string `json:"database"`
}
