package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin      UserRole = "ADMIN"
	RoleCoach      UserRole = "COACH"
	RoleSupervisor UserRole = "SUPERVISOR"
)

// JWTClaims represents the JWT payload for access tokens. Token issuance is
// external; the engine only parses and trusts the actor identity inside.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// StaffProfile is the engine's read-only view of organisational structure,
// maintained by the identity collaborator. Relationship checks for the
// supervisor/team/organization access tiers resolve against it.
type StaffProfile struct {
	UserID       string  `db:"user_id" json:"user_id"`
	TeamID       string  `db:"team_id" json:"team_id"`
	OrgID        string  `db:"org_id" json:"org_id"`
	SupervisorID *string `db:"supervisor_id" json:"supervisor_id,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}
