package model

import (
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
)

// AssignmentResult is the outcome of an auto-assignment attempt
type AssignmentResult struct {
	Success bool
	OwnerID types.UserID
	Reason  types.AssignmentReason

	// Reporter is the caller context, with the department backfilled when it
	// had to be looked up.
	Reporter UserContext
}

// IsPending reports whether the risk is waiting for an owner to be designated
func (r *AssignmentResult) IsPending() bool {
	return r.Reason == types.AssignmentReasonNoOwnerAvailable
}

// IntakeResult is returned by risk submission
type IntakeResult struct {
	Risk       *Risk
	Assignment *AssignmentResult
}
