package domain

import (
	"strings"
	"time"
)

// Role enumerates the roles an authenticated actor can hold.
type Role string

const (
	RoleUser    Role = "USER"
	RoleSupport Role = "SUPPORT"
	RoleManager Role = "MANAGER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSupport, RoleManager:
		return true
	}
	return false
}

// StaffCapable reports whether tickets may be assigned to an actor with this role.
func (r Role) StaffCapable() bool {
	return r == RoleSupport || r == RoleManager
}

// ParseRole normalizes and validates a role name.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	return role, role.Valid()
}

// Actor is the authenticated caller as supplied by the credential layer.
type Actor struct {
	ID   int64
	Role Role
}

// Account is the stored record behind an actor.
type Account struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Actor returns the identity view of the account.
func (a *Account) Actor() Actor {
	return Actor{ID: a.ID, Role: a.Role}
}
