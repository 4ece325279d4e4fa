package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role represents the available roles for the RBAC system.
type Role string

const (
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleAdmin      Role = "ADMIN"
	RolePrincipal  Role = "PRINCIPAL"
	RoleRegistrar  Role = "REGISTRAR"
	RoleTeacher    Role = "TEACHER"
)

// Profile represents an application user within one organization.
type Profile struct {
	ID             string    `db:"id" json:"id"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	SchoolID       *string   `db:"school_id" json:"school_id,omitempty"`
	FullName       string    `db:"full_name" json:"full_name"`
	Email          string    `db:"email" json:"email"`
	Role           Role      `db:"role" json:"role"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// IsSuperAdmin reports whether the profile has platform-level access that
// bypasses organization scoping.
func (p *Profile) IsSuperAdmin() bool {
	return p != nil && p.Role == RoleSuperAdmin
}

// JWTClaims represents the JWT payload for access tokens issued by the
// upstream auth service.
type JWTClaims struct {
	ProfileID      string `json:"profile_id"`
	OrganizationID string `json:"organization_id"`
	Role           Role   `json:"role"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
