package domain

import (
	"strings"
	"time"
)

// Role enumerates the mutually exclusive capability sets of an account.
type Role string

const (
	RoleUser    Role = "user"
	RoleSupport Role = "support"
	RoleAdmin   Role = "admin"
)

// Roles lists every known role.
var Roles = []Role{RoleUser, RoleSupport, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSupport, RoleAdmin:
		return true
	}
	return false
}

// ParseRole normalizes raw input into a Role.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.Valid()
}

// Account is an authenticated identity of any role.
type Account struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name the way search matches it.
func (a Account) FullName() string {
	return a.FirstName + " " + a.LastName
}
