package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is a capability carried in access tokens.
type Role string

const (
	RoleTenant   Role = "ROLE_TENANT"
	RoleLandlord Role = "ROLE_LANDLORD"
)

// User represents an application user record as stored in the `users`
// table.  Roles is persisted as a MySQL SET column and therefore read back
// as a comma separated string.
//
// Fields:
//  ID           – internal primary key.
//  PublicID     – identifier used in tokens and reservations.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Roles        – capabilities held by the user.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	PublicID     uuid.UUID // users.public_id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Roles        []Role    // users.roles
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is not stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// Principal is the authenticated caller of an engine operation.  Handlers
// build it from the access token and pass it down explicitly.
type Principal struct {
	UserID uuid.UUID
	Roles  []Role
}

// Has reports whether the principal carries role.
func (p Principal) Has(role Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsLandlord reports the landlord capability.
func (p Principal) IsLandlord() bool { return p.Has(RoleLandlord) }

// ParseRoles splits a comma separated role list, dropping unknown entries.
func ParseRoles(raw string) []Role {
	var out []Role
	for _, part := range strings.Split(raw, ",") {
		switch r := Role(strings.ToUpper(strings.TrimSpace(part))); r {
		case RoleTenant, RoleLandlord:
			out = append(out, r)
		}
	}
	return out
}

// JoinRoles is the inverse of ParseRoles.
func JoinRoles(roles []Role) string {
	parts := make([]string, 0, len(roles))
	for _, r := range roles {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ",")
}
