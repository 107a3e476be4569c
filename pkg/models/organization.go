package models

import "time"

// Organization is the tenant boundary: every item, category, transformation
// and reservation belongs to exactly one organization.
type Organization struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	OwnerID     string    `json:"owner_id" db:"owner_id"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// OrgMemberRole is a user's authorization level within one organization.
// The set is closed: owner, admin, member.
type OrgMemberRole string

const (
	RoleOwner  OrgMemberRole = "owner"
	RoleAdmin  OrgMemberRole = "admin"
	RoleMember OrgMemberRole = "member"
)

// Valid reports whether the role is one of the known values.
func (r OrgMemberRole) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// OrganizationMembership relates users to organizations with a role.
type OrganizationMembership struct {
	ID             string        `json:"id" db:"id"`
	OrganizationID string        `json:"organization_id" db:"organization_id"`
	UserID         string        `json:"user_id" db:"user_id"`
	Role           OrgMemberRole `json:"role" db:"role"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}
