package types

// AssignmentReason explains the outcome of an auto-assignment attempt
type AssignmentReason string

const (
	// AssignmentReasonAssigned means this attempt wrote the owner reference
	AssignmentReasonAssigned AssignmentReason = "ASSIGNED"
	// AssignmentReasonAlreadyAssigned means an owner had already been written
	AssignmentReasonAlreadyAssigned AssignmentReason = "ALREADY_ASSIGNED"
	// AssignmentReasonNoOwnerAvailable means the department has no eligible risk owner
	AssignmentReasonNoOwnerAvailable AssignmentReason = "NO_OWNER_AVAILABLE"
	// AssignmentReasonStoreError means the store failed; the attempt can be retried
	AssignmentReasonStoreError AssignmentReason = "STORE_ERROR"
)

func (r AssignmentReason) String() string {
	return string(r)
}
