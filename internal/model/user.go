package model

import "time"

// Admin roles.  A superadmin may perform every action; an admin may
// not perform destructive ones (see internal/policy).
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// Admin represents an administrator account as stored in the `admins`
// table.  Handlers expose a trimmed view without the password hash.
//
// Fields:
//  ID           – UUID of the admin.
//  Email        – unique, lower-cased email address.
//  FullName     – display name.
//  PasswordHash – bcrypt hashed password.
//  Role         – admin or superadmin.
//  IsActive     – whether the account may log in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Admin struct {
	ID           string    // admins.id
	Email        string    // admins.email
	FullName     string    // admins.full_name
	PasswordHash string    // admins.password_hash
	Role         string    // admins.role
	IsActive     bool      // admins.is_active
	CreatedAt    time.Time // admins.created_at
	UpdatedAt    time.Time // admins.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  The
// plain token is never stored, only its SHA-256 hash.
type RefreshToken struct {
	AdminID   string     // refresh_tokens.admin_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
}
