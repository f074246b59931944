package domain

import (
	"slices"
	"time"
)

// Role is a workflow role tag attached to a user account.
type Role string

const (
	RoleRequester Role = "requester"
	RoleTreasury  Role = "treasury"
	RoleValidator Role = "validator"
	RoleSupplier  Role = "supplier"
	RoleAdmin     Role = "admin"
)

// AdminLogin is the distinguished account that can never be deleted and
// always carries RoleAdmin.
const AdminLogin = "admin"

// AssignableRoles is the allow-list of roles an administrator may grant.
var AssignableRoles = []Role{RoleRequester, RoleTreasury, RoleValidator, RoleSupplier, RoleAdmin}

// UserAccount is one application user, keyed by Login in the user document.
type UserAccount struct {
	Login        string `json:"login"`
	PasswordHash string `json:"passwordHash"`
	Email        string `json:"email"`
	Roles        []Role `json:"roles"` // stored sorted and deduplicated
}

// HasRole reports whether the account carries the given role. Admin
// accounts pass every role check.
func (u *UserAccount) HasRole(role Role) bool {
	return slices.Contains(u.Roles, role) || slices.Contains(u.Roles, RoleAdmin)
}

// NormalizeRoles sorts, deduplicates, and filters a role set against the
// assignable allow-list.
func NormalizeRoles(roles []Role) []Role {
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		if slices.Contains(AssignableRoles, r) && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	slices.Sort(out)
	return out
}

// PasswordResetCode is a transient single-use reset code issued for a login.
type PasswordResetCode struct {
	Login     string    `json:"login"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the code is no longer valid at the given instant.
func (c *PasswordResetCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
