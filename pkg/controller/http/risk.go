package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
	"github.com/secmon-lab/riskdesk/pkg/usecase"
	"github.com/secmon-lab/riskdesk/pkg/utils/errutil"
	"github.com/secmon-lab/riskdesk/pkg/utils/safe"
)

type submitRiskRequest struct {
	Description     string            `json:"description"`
	Cause           string            `json:"cause"`
	Categories      []string          `json:"categories"`
	CategoryDetails map[string]string `json:"category_details"`
}

func (req *submitRiskRequest) toSubmission() *model.RiskSubmission {
	sub := &model.RiskSubmission{
		Description: req.Description,
		Cause:       req.Cause,
		Categories:  make([]types.Category, len(req.Categories)),
	}
	for i, c := range req.Categories {
		sub.Categories[i] = types.Category(c)
	}
	if len(req.CategoryDetails) > 0 {
		sub.CategoryDetails = make(map[types.Category]string, len(req.CategoryDetails))
		for c, d := range req.CategoryDetails {
			sub.CategoryDetails[types.Category(c)] = d
		}
	}
	return sub
}

type assessmentRequest struct {
	Status            *string    `json:"status"`
	Level             *string    `json:"level"`
	ResidualRating    *int       `json:"residual_rating"`
	PlannedCompletion *time.Time `json:"planned_completion"`
	ReportToBoard     *bool      `json:"report_to_board"`
}

func (req *assessmentRequest) toAssessment() *model.RiskAssessment {
	a := &model.RiskAssessment{
		ResidualRating:    req.ResidualRating,
		PlannedCompletion: req.PlannedCompletion,
		ReportToBoard:     req.ReportToBoard,
	}
	if req.Status != nil {
		status := types.RiskStatus(*req.Status)
		a.Status = &status
	}
	if req.Level != nil {
		level := types.RiskLevel(*req.Level)
		a.Level = &level
	}
	return a
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return goerr.Wrap(errors.Join(usecase.ErrInvalidSubmission, err), "failed to decode request body")
	}
	return nil
}

func (s *Server) submitRisk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := userFromContext(ctx)

	var req submitRiskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := s.risk.SubmitRisk(ctx, user, req.toSubmission())
	if err != nil {
		if result == nil {
			writeError(ctx, w, err)
			return
		}

		// the risk is saved but assignment could not complete
		errutil.Handle(ctx, err, "auto-assignment failed after intake")
		writeJSON(ctx, w, http.StatusServiceUnavailable, intakeResponse{
			Risk:       toRiskResponse(result.Risk),
			Assignment: toAssignmentResponse(result.Assignment),
			Error:      "risk saved; owner assignment is temporarily unavailable",
		})
		return
	}

	writeJSON(ctx, w, http.StatusCreated, intakeResponse{
		Risk:       toRiskResponse(result.Risk),
		Assignment: toAssignmentResponse(result.Assignment),
	})
}

func (s *Server) listMyRisks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := userFromContext(ctx)

	risks, err := s.risk.ListMyRisks(ctx, user.UserID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toRiskResponses(risks))
}

func (s *Server) getRisk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	risk, err := s.risk.GetRisk(ctx, model.RiskID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toRiskResponse(risk))
}

func (s *Server) retryAssignment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := s.risk.RetryAssignment(ctx, model.RiskID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toAssignmentResponse(result))
}

func (s *Server) attachDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := model.RiskID(chi.URLParam(r, "id"))

	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentSize)
	file, header, err := r.FormFile("document")
	if err != nil {
		writeError(ctx, w, goerr.Wrap(errors.Join(usecase.ErrInvalidSubmission, err), "document field is required"))
		return
	}
	defer safe.Close(ctx, file)

	risk, err := s.risk.AttachDocument(ctx, id, &model.Document{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toRiskResponse(risk))
}

func (s *Server) updateAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req assessmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	risk, err := s.risk.UpdateAssessment(ctx, model.RiskID(chi.URLParam(r, "id")), req.toAssessment())
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toRiskResponse(risk))
}
