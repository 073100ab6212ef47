package domain

import "time"

// User is the stored credential record. Owned by the user store; the auth
// core only reads it during authentication and admin user management.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string  // argon2 encoded
	Role         Role
	TOTPSecret   *string // base32 TOTP secret, nil unless a second factor is enrolled
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the authenticated subject carried in token claims and handed
// to downstream handlers. Never contains secret fields.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role"`
}

// Identity strips the user down to what may leave the auth core.
func (u User) Identity() Identity {
	return Identity{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}

// TOTPEnrolled reports whether login requires a one-time code.
func (u User) TOTPEnrolled() bool {
	return u.TOTPSecret != nil && *u.TOTPSecret != ""
}
