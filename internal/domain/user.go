package domain

import "time"

// Role represents the user's permission level in the system.
type Role string

const (
	// RoleCustomer grants standard storefront access.
	RoleCustomer Role = "customer"
	// RoleAdmin grants catalog, order, and user management access.
	RoleAdmin Role = "admin"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	return r == RoleCustomer || r == RoleAdmin
}

// User represents a registered account.
type User struct {
	Record
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialized
	Role         Role      `json:"role"`
	Disabled     bool      `json:"disabled,omitempty"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	LastLoginAt  time.Time `json:"last_login_at,omitzero"`
}

// IsAdmin returns true if the user has administrative privileges.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// FullName returns the user's full name, composed from first and last names.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Name returns the best available name to display for the user.
// Falls back to the email address when no name was provided.
func (u *User) Name() string {
	if full := u.FullName(); full != "" {
		return full
	}
	return u.Email
}
