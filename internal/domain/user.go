package domain

import "time"

// AuthProvider represents an OAuth provider.
type AuthProvider string

const (
	AuthProviderGoogle AuthProvider = "google"
	AuthProviderGitHub AuthProvider = "github"
)

// User represents an authenticated user.
type User struct {
	ID          int64        `json:"id" db:"id"`
	Provider    AuthProvider `json:"provider" db:"provider"`
	ProviderID  string       `json:"provider_id" db:"provider_id"`
	Email       string       `json:"email" db:"email"`
	DisplayName string       `json:"display_name" db:"display_name"`
	AvatarURL   *string      `json:"avatar_url,omitempty" db:"avatar_url"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// Role is a user's role within an organization.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Membership links a user to an organization with a role.
type Membership struct {
	UserID         int64     `json:"user_id" db:"user_id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	Role           Role      `json:"role" db:"role"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Principal is the caller identity resolved from a session token.
// OrganizationID is empty when the session has no organization selected.
type Principal struct {
	UserID         int64
	OrganizationID string
	Role           Role
}

// HasOrg reports whether the principal carries an organization context.
func (p Principal) HasOrg() bool {
	return p.UserID != 0 && p.OrganizationID != ""
}

// IsOrgAdmin reports whether the principal administers orgID.
func (p Principal) IsOrgAdmin(orgID string) bool {
	return p.HasOrg() && p.OrganizationID == orgID && p.Role == RoleAdmin
}
