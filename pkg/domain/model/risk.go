package model

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
)

// RiskID is a UUID-based identifier for a risk incident
type RiskID string

// NewRiskID generates a new UUID v4 RiskID
func NewRiskID() RiskID {
	return RiskID(uuid.New().String())
}

func (id RiskID) String() string {
	return string(id)
}

// DefaultDepartment is used when the reporter's department is unknown
const DefaultDepartment = "General"

// Risk represents a reported risk incident
type Risk struct {
	ID              RiskID
	Description     string
	Cause           string
	Categories      []types.Category
	CategoryDetails map[types.Category]string
	Department      string
	ReportedBy      types.UserID
	DocumentRef     string
	Status          types.RiskStatus
	Level           types.RiskLevel
	OwnerID         types.UserID // empty until auto-assignment succeeds

	// Assessment fields, maintained by the risk owner workflow
	ResidualRating    *int
	PlannedCompletion *time.Time
	ReportToBoard     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAssigned reports whether an owner reference has been written
func (r *Risk) IsAssigned() bool {
	return r.OwnerID != ""
}

// IsOverdue reports whether the planned completion date has passed while the
// risk is still not closed.
func (r *Risk) IsOverdue(now time.Time) bool {
	if r.PlannedCompletion == nil || r.Status.IsClosed() {
		return false
	}
	return r.PlannedCompletion.Before(now)
}

// DaysOpen returns the number of whole days since the risk was reported
func (r *Risk) DaysOpen(now time.Time) int {
	if now.Before(r.CreatedAt) {
		return 0
	}
	return int(now.Sub(r.CreatedAt).Hours() / 24)
}

// Copy returns a deep copy of the risk
func (r *Risk) Copy() *Risk {
	if r == nil {
		return nil
	}
	copied := *r
	copied.Categories = slices.Clone(r.Categories)
	if r.CategoryDetails != nil {
		copied.CategoryDetails = maps.Clone(r.CategoryDetails)
	}
	if r.ResidualRating != nil {
		v := *r.ResidualRating
		copied.ResidualRating = &v
	}
	if r.PlannedCompletion != nil {
		v := *r.PlannedCompletion
		copied.PlannedCompletion = &v
	}
	return &copied
}

// RiskSubmission is the staff-provided content of a new risk report
type RiskSubmission struct {
	Description     string
	Cause           string
	Categories      []types.Category
	CategoryDetails map[types.Category]string
	Document        *Document
}

// RiskAssessment carries the fields a risk owner may change after intake.
// Nil fields are left untouched.
type RiskAssessment struct {
	Status            *types.RiskStatus
	Level             *types.RiskLevel
	ResidualRating    *int
	PlannedCompletion *time.Time
	ReportToBoard     *bool
}

// Apply copies the set fields of the assessment onto the risk
func (a *RiskAssessment) Apply(r *Risk) {
	if a.Status != nil {
		r.Status = *a.Status
	}
	if a.Level != nil {
		r.Level = *a.Level
	}
	if a.ResidualRating != nil {
		v := *a.ResidualRating
		r.ResidualRating = &v
	}
	if a.PlannedCompletion != nil {
		v := *a.PlannedCompletion
		r.PlannedCompletion = &v
	}
	if a.ReportToBoard != nil {
		r.ReportToBoard = *a.ReportToBoard
	}
}
