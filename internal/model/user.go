package model

import "time"

// Role names an access level.  The permission each role carries lives in
// the policy table, not here.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents an application user record as stored in the `users`
// table.  Email is stored lower-cased and is unique.  IsVerified is kept
// for the account flow but not enforced at login.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	Phone        string    // users.phone
	PasswordHash string    // users.password_hash
	Role         Role      // users.role
	IsVerified   bool      // users.is_verified
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models the single live refresh credential of a user.  The
// plain token is never stored, only its SHA-256 hex digest.
type RefreshToken struct {
	UserID    uint64    // refresh_tokens.user_id (primary key)
	TokenHash string    // refresh_tokens.token_hash
	ExpiresAt time.Time // refresh_tokens.expires_at
	CreatedAt time.Time // refresh_tokens.created_at
}
