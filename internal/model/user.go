package model

import "time"

// Role names stored in users.role and carried in the access token's "role"
// claim.
const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	return r == RoleCustomer || r == RoleAdmin
}

// User represents an application user record as stored in the
// `users` table.  Users are never hard-deleted; an account is
// deactivated by clearing IsActive.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, lower-cased email address.
//  Name         – display name.
//  PasswordHash – argon2id (or legacy bcrypt) encoded hash.
//  Role         – CUSTOMER or ADMIN.
//  IsActive     – whether the account may log in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	Name         string    // users.name
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Profile returns the hash-free view of the user.
func (u User) Profile() UserProfile {
	return UserProfile{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		IsActive: u.IsActive,
	}
}

// UserProfile is the subset of a user that may leave the service and be
// stored in the session cache.  It never contains the password hash.
type UserProfile struct {
	ID       uint64 `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The signed token is not stored; only its
// SHA‑256 hash.
//
// Fields:
//  ID        – opaque record identifier (uuid), carried as the token's jti.
//  UserID    – owner of the token.
//  TokenHash – SHA‑256 hex digest of the signed token.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (nil if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        string     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// Revoked reports whether the record has been revoked.
func (t RefreshToken) Revoked() bool { return t.RevokedAt != nil }

// Active reports whether the record is neither revoked nor expired at now.
func (t RefreshToken) Active(now time.Time) bool {
	return !t.Revoked() && now.Before(t.ExpiresAt)
}
