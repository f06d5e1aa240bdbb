package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
	"github.com/secmon-lab/riskdesk/pkg/usecase"
	"github.com/secmon-lab/riskdesk/pkg/utils/errutil"
)

type errorResponse struct {
	Error string `json:"error"`
}

// Assignment states shown to the reporter
const (
	assignmentStateAssigned = "assigned"
	assignmentStatePending  = "pending"
	assignmentStateError    = "error"
)

type riskResponse struct {
	ID                string            `json:"id"`
	Description       string            `json:"description"`
	Cause             string            `json:"cause"`
	Categories        []string          `json:"categories"`
	CategoryDetails   map[string]string `json:"category_details,omitempty"`
	Department        string            `json:"department"`
	ReportedBy        string            `json:"reported_by"`
	DocumentRef       string            `json:"document_ref,omitempty"`
	Status            string            `json:"status"`
	Level             string            `json:"level,omitempty"`
	OwnerID           *string           `json:"owner_id"`
	ResidualRating    *int              `json:"residual_rating,omitempty"`
	PlannedCompletion *time.Time        `json:"planned_completion,omitempty"`
	ReportToBoard     bool              `json:"report_to_board"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func toRiskResponse(r *model.Risk) *riskResponse {
	resp := &riskResponse{
		ID:                r.ID.String(),
		Description:       r.Description,
		Cause:             r.Cause,
		Categories:        make([]string, len(r.Categories)),
		Department:        r.Department,
		ReportedBy:        r.ReportedBy.String(),
		DocumentRef:       r.DocumentRef,
		Status:            r.Status.String(),
		Level:             r.Level.String(),
		ResidualRating:    r.ResidualRating,
		PlannedCompletion: r.PlannedCompletion,
		ReportToBoard:     r.ReportToBoard,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	for i, c := range r.Categories {
		resp.Categories[i] = c.String()
	}
	if len(r.CategoryDetails) > 0 {
		resp.CategoryDetails = make(map[string]string, len(r.CategoryDetails))
		for c, d := range r.CategoryDetails {
			resp.CategoryDetails[c.String()] = d
		}
	}
	if r.IsAssigned() {
		owner := r.OwnerID.String()
		resp.OwnerID = &owner
	}
	return resp
}

func toRiskResponses(risks []*model.Risk) []*riskResponse {
	resp := make([]*riskResponse, len(risks))
	for i, r := range risks {
		resp[i] = toRiskResponse(r)
	}
	return resp
}

type assignmentResponse struct {
	State   string  `json:"state"`
	Success bool    `json:"success"`
	OwnerID *string `json:"owner_id"`
	Reason  string  `json:"reason"`
}

func toAssignmentResponse(a *model.AssignmentResult) *assignmentResponse {
	if a == nil {
		return &assignmentResponse{State: assignmentStateError, Reason: types.AssignmentReasonStoreError.String()}
	}

	resp := &assignmentResponse{
		Success: a.Success,
		Reason:  a.Reason.String(),
	}
	switch {
	case a.Success:
		resp.State = assignmentStateAssigned
		owner := a.OwnerID.String()
		resp.OwnerID = &owner
	case a.IsPending():
		resp.State = assignmentStatePending
	default:
		resp.State = assignmentStateError
	}
	return resp
}

type intakeResponse struct {
	Risk       *riskResponse       `json:"risk"`
	Assignment *assignmentResponse `json:"assignment"`
	Error      string              `json:"error,omitempty"`
}

// writeJSON writes a JSON response with proper error handling
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		errutil.Handle(ctx, err, "failed to encode JSON response")
	}
}

// statusOf maps use case errors to HTTP status codes
func statusOf(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, usecase.ErrInvalidSubmission),
		errors.Is(err, usecase.ErrUnsupportedDocument):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrRiskNotFound),
		errors.Is(err, usecase.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrDocumentAlreadyAttached):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrDocumentStorageNotConfigured):
		return http.StatusNotImplemented
	case errors.Is(err, usecase.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as a JSON error body. Details of 5xx errors are
// logged and reported, never returned.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		errutil.Handle(ctx, err, "request failed")
		msg = http.StatusText(status)
	}
	writeJSON(ctx, w, status, errorResponse{Error: msg})
}
