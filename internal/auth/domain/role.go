package domain

import (
	"errors"
	"fmt"
)

// Role is the closed set of portfolio roles. Anything outside this set fails
// Parse and fails closed at the request gate.
type Role string

const (
	// RoleAdmin can manage users and every portfolio resource.
	RoleAdmin Role = "admin"
	// RoleEditor can create and edit portfolio content.
	RoleEditor Role = "editor"
	// RoleViewer can only read.
	RoleViewer Role = "viewer"
)

// ErrUnknownRole reports a role string outside the closed set.
var ErrUnknownRole = errors.New("domain: unknown role")

// ParseRole validates a stored or transmitted role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleEditor, RoleViewer:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Permits reports whether a holder of r satisfies a requirement of want.
// Roles are strictly ordered: admin > editor > viewer.
func (r Role) Permits(want Role) bool {
	return r.rank() >= want.rank() && r.Valid() && want.Valid()
}

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleEditor:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

func (r Role) String() string { return string(r) }
