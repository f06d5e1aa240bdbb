package interfaces

import (
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
)

// ListRiskOptions holds filters for RiskRepository.List
type ListRiskOptions struct {
	ReportedBy types.UserID
	Status     types.RiskStatus
}

// ListRiskOption configures ListRiskOptions
type ListRiskOption func(*ListRiskOptions)

// WithReporter filters risks by reporting user
func WithReporter(userID types.UserID) ListRiskOption {
	return func(o *ListRiskOptions) {
		o.ReportedBy = userID
	}
}

// WithStatus filters risks by status
func WithStatus(status types.RiskStatus) ListRiskOption {
	return func(o *ListRiskOptions) {
		o.Status = status
	}
}

// BuildListRiskOptions applies options to a zero ListRiskOptions
func BuildListRiskOptions(opts ...ListRiskOption) ListRiskOptions {
	var o ListRiskOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Match reports whether the risk passes the filters
func (o ListRiskOptions) Match(r *model.Risk) bool {
	if o.ReportedBy != "" && r.ReportedBy != o.ReportedBy {
		return false
	}
	if o.Status != "" && r.Status.Normalize() != o.Status {
		return false
	}
	return true
}
