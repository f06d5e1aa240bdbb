package http

import (
	"net/http"
	"time"

	"github.com/secmon-lab/riskdesk/pkg/domain/model"
)

type similarityGroupResponse struct {
	GroupID     string          `json:"group_id"`
	DisplayID   int             `json:"display_id"`
	Key         string          `json:"key"`
	Categories  []string        `json:"categories"`
	ReportCount int             `json:"report_count"`
	Risks       []*riskResponse `json:"risks"`
}

func toSimilarityGroupResponses(groups []*model.SimilarityGroup) []*similarityGroupResponse {
	resp := make([]*similarityGroupResponse, len(groups))
	for i, g := range groups {
		categories := make([]string, len(g.Categories))
		for j, c := range g.Categories {
			categories[j] = c.String()
		}
		resp[i] = &similarityGroupResponse{
			GroupID:     g.GroupID,
			DisplayID:   g.DisplayID,
			Key:         g.Key,
			Categories:  categories,
			ReportCount: g.ReportCount,
			Risks:       toRiskResponses(g.Risks),
		}
	}
	return resp
}

type statsResponse struct {
	Total      int            `json:"total"`
	ByLevel    map[string]int `json:"by_level"`
	Open       int            `json:"open"`
	InProgress int            `json:"in_progress"`
	Closed     int            `json:"closed"`
	Board      int            `json:"board"`
	Aged       int            `json:"aged"`
	Overdue    int            `json:"overdue"`
	Unassigned int            `json:"unassigned"`
}

func toStatsResponse(s *model.ComplianceStats) *statsResponse {
	byLevel := make(map[string]int, len(s.ByLevel))
	for level, n := range s.ByLevel {
		byLevel[level.String()] = n
	}
	return &statsResponse{
		Total:      s.Total,
		ByLevel:    byLevel,
		Open:       s.Open,
		InProgress: s.InProgress,
		Closed:     s.Closed,
		Board:      s.Board,
		Aged:       s.Aged,
		Overdue:    s.Overdue,
		Unassigned: s.Unassigned,
	}
}

type departmentHealthResponse struct {
	Department      string   `json:"department"`
	Total           int      `json:"total"`
	Closed          int      `json:"closed"`
	Overdue         int      `json:"overdue"`
	AverageResidual *float64 `json:"average_residual"`
	Score           float64  `json:"score"`
}

func toDepartmentHealthResponses(health []*model.DepartmentHealth) []*departmentHealthResponse {
	resp := make([]*departmentHealthResponse, len(health))
	for i, h := range health {
		resp[i] = &departmentHealthResponse{
			Department:      h.Department,
			Total:           h.Total,
			Closed:          h.Closed,
			Overdue:         h.Overdue,
			AverageResidual: h.AverageResidual,
			Score:           h.Score,
		}
	}
	return resp
}

type upcomingReviewResponse struct {
	RiskID     string    `json:"risk_id"`
	Department string    `json:"department"`
	ReviewDate time.Time `json:"review_date"`
	ReviewType string    `json:"review_type"`
}

func toUpcomingReviewResponses(reviews []*model.UpcomingReview) []*upcomingReviewResponse {
	resp := make([]*upcomingReviewResponse, len(reviews))
	for i, r := range reviews {
		resp[i] = &upcomingReviewResponse{
			RiskID:     r.RiskID.String(),
			Department: r.Department,
			ReviewDate: r.ReviewDate,
			ReviewType: r.ReviewType,
		}
	}
	return resp
}

type matrixEntryResponse struct {
	ID         string    `json:"id"`
	RiskID     string    `json:"risk_id"`
	Title      string    `json:"title"`
	Categories []string  `json:"categories"`
	Level      string    `json:"level,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type summaryResponse struct {
	GeneratedAt          time.Time                   `json:"generated_at"`
	Stats                *statsResponse              `json:"stats"`
	DepartmentHealth     []*departmentHealthResponse `json:"department_health"`
	SimilarGroups        []*similarityGroupResponse  `json:"similar_groups"`
	UpcomingReviews      []*upcomingReviewResponse   `json:"upcoming_reviews"`
	Aging                map[string]string           `json:"aging"`
	UnstaffedDepartments []string                    `json:"unstaffed_departments"`
}

func (s *Server) dashboardSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := s.dashboard.Summary(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	aging := make(map[string]string, len(summary.Aging))
	for id, status := range summary.Aging {
		aging[id.String()] = string(status)
	}
	unstaffed := summary.UnstaffedDepartments
	if unstaffed == nil {
		unstaffed = []string{}
	}

	writeJSON(ctx, w, http.StatusOK, summaryResponse{
		GeneratedAt:          summary.GeneratedAt,
		Stats:                toStatsResponse(summary.Stats),
		DepartmentHealth:     toDepartmentHealthResponses(summary.DepartmentHealth),
		SimilarGroups:        toSimilarityGroupResponses(summary.SimilarGroups),
		UpcomingReviews:      toUpcomingReviewResponses(summary.UpcomingReviews),
		Aging:                aging,
		UnstaffedDepartments: unstaffed,
	})
}

func (s *Server) similarGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	groups, err := s.dashboard.SimilarGroups(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toSimilarityGroupResponses(groups))
}

func (s *Server) complianceStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := s.dashboard.Stats(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toStatsResponse(stats))
}

func (s *Server) departmentHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	health, err := s.dashboard.DepartmentHealth(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toDepartmentHealthResponses(health))
}

func (s *Server) upcomingReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reviews, err := s.dashboard.UpcomingReviews(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, toUpcomingReviewResponses(reviews))
}

func (s *Server) riskMatrix(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entries, err := s.dashboard.Matrix(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	resp := make([]*matrixEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = &matrixEntryResponse{
			ID:         e.ID,
			RiskID:     e.RiskID.String(),
			Title:      e.Title,
			Categories: e.Categories,
			Level:      e.Level.String(),
			CreatedAt:  e.CreatedAt,
		}
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}
