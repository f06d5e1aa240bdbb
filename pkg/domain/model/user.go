package model

import (
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
)

// User is a reporting or owning actor
type User struct {
	ID          types.UserID
	Name        string
	Email       string
	Department  string // empty when unknown
	Role        types.UserRole
	SlackUserID string
}

// UserContext is the caller identity handed to the core by the
// authentication layer. Department is empty when the caller's department is
// not known yet; the core returns an updated UserContext instead of patching
// any session state.
type UserContext struct {
	UserID     types.UserID
	Department string
}

// WithDepartment returns a copy of the context with the department set
func (c UserContext) WithDepartment(department string) UserContext {
	c.Department = department
	return c
}
