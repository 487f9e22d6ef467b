package models

import (
	"time"
)

// Role is the access level of an IT staff user
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTechnician Role = "technician"
	RoleViewer     Role = "viewer"
)

// ValidRoles defines the available roles in the system
var ValidRoles = []Role{
	RoleAdmin,
	RoleTechnician,
	RoleViewer,
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	for _, validRole := range ValidRoles {
		if role == validRole {
			return true
		}
	}
	return false
}

// User represents an IT staff login
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // Never expose in JSON
	FullName     string     `json:"full_name"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// RegisterRequest represents the request body for self registration
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// UpdateUserRequest represents an admin change to a user
type UpdateUserRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Role     *Role   `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// LoginRequest accepts either the username or the email as login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChangePasswordRequest replaces the caller's own password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// LoginResponse represents the response body for successful login
type LoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// CanNotify reports whether the user receives warranty alerts
func (u *User) CanNotify() bool {
	return u.IsActive && (u.Role == RoleAdmin || u.Role == RoleTechnician)
}

// GetDisplayName returns the user's display name
func (u *User) GetDisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Redacted returns a copy of the user with sensitive fields removed
func (u *User) Redacted() User {
	out := *u
	out.PasswordHash = ""
	return out
}
