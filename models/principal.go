package models

import (
	"time"

	"github.com/google/uuid"
)

// PrincipalRole represents the role assigned to a principal
type PrincipalRole string

const (
	RoleAdmin  PrincipalRole = "admin"
	RoleMember PrincipalRole = "member"
)

// ValidPrincipalRole reports whether the given role is a known role
func ValidPrincipalRole(role PrincipalRole) bool {
	return role == RoleAdmin || role == RoleMember
}

// Principal represents an identity that can submit commands.
// Principals are never hard-deleted; command and audit history assumes
// the owning row stays around.
type Principal struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	Username   string        `json:"username" db:"username"`
	APIKeyHash string        `json:"-" db:"api_key_hash"` // Never serialized
	Role       PrincipalRole `json:"role" db:"role"`
	Credits    int           `json:"credits" db:"credits"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Principal model
func (Principal) TableName() string {
	return "principals"
}

// NewPrincipal creates a new Principal instance with the given starting balance
func NewPrincipal(username string, role PrincipalRole, apiKeyHash string, credits int) *Principal {
	return &Principal{
		ID:         uuid.New(),
		Username:   username,
		APIKeyHash: apiKeyHash,
		Role:       role,
		Credits:    credits,
		CreatedAt:  time.Now().UTC(),
	}
}

// IsAdmin reports whether the principal holds the admin role
func (p *Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
