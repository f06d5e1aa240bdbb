package types

import (
	"github.com/m-mizutani/goerr/v2"
)

// UserID represents a unique identifier for a user
type UserID string

// Validate checks if the UserID is valid
func (u UserID) Validate() error {
	if u == "" {
		return goerr.New("user ID cannot be empty")
	}
	return nil
}

// String returns the string representation of UserID
func (u UserID) String() string {
	return string(u)
}

// UserRole represents the role of a user in the compliance workflow
type UserRole string

const (
	UserRoleStaff          UserRole = "staff"
	UserRoleRiskOwner      UserRole = "risk_owner"
	UserRoleComplianceTeam UserRole = "compliance_team"
	UserRoleAdmin          UserRole = "admin"
)

// IsValid checks if the role is valid
func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleStaff,
		UserRoleRiskOwner,
		UserRoleComplianceTeam,
		UserRoleAdmin:
		return true
	default:
		return false
	}
}

// IsRiskOwner reports whether users with this role can own risks
func (r UserRole) IsRiskOwner() bool {
	return r == UserRoleRiskOwner
}

func (r UserRole) String() string {
	return string(r)
}
