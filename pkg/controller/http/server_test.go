package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	server "github.com/secmon-lab/riskdesk/pkg/controller/http"
	"github.com/secmon-lab/riskdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
	"github.com/secmon-lab/riskdesk/pkg/repository/memory"
	"github.com/secmon-lab/riskdesk/pkg/service/storage"
	"github.com/secmon-lab/riskdesk/pkg/usecase"
)

func newRepository(t *testing.T) *memory.Memory {
	t.Helper()
	repo := memory.New()
	gt.NoError(t, repo.User().SaveMany(context.Background(), []*model.User{
		{ID: "staff-retail", Name: "Rita", Department: "Retail", Role: types.UserRoleStaff},
		{ID: "staff-legal", Name: "Lena", Department: "Legal", Role: types.UserRoleStaff},
		{ID: "owner-retail", Name: "Ann", Department: "Retail", Role: types.UserRoleRiskOwner},
	})).Required()
	return repo
}

func newServer(t *testing.T, repo interfaces.Repository, opts ...usecase.Option) *server.Server {
	t.Helper()
	uc := usecase.New(repo, opts...)
	return server.New(uc, server.WithMetrics(true))
}

func do(t *testing.T, srv http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		data, err := json.Marshal(v)
		gt.NoError(t, err).Required()
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(server.DefaultUserHeader, user)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

type intakeBody struct {
	Risk struct {
		ID         string   `json:"id"`
		Department string   `json:"department"`
		Status     string   `json:"status"`
		OwnerID    *string  `json:"owner_id"`
		Categories []string `json:"categories"`
	} `json:"risk"`
	Assignment struct {
		State   string  `json:"state"`
		Success bool    `json:"success"`
		OwnerID *string `json:"owner_id"`
		Reason  string  `json:"reason"`
	} `json:"assignment"`
	Error string `json:"error"`
}

var submission = map[string]any{
	"description": "Unreconciled supplier invoices",
	"cause":       "Manual reconciliation backlog",
	"categories":  []string{"Fraud", "Compliance"},
	"category_details": map[string]string{
		"Fraud": "duplicate invoice numbers",
	},
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &v)).Required()
	return v
}

func TestServer_Authentication(t *testing.T) {
	srv := newServer(t, newRepository(t))

	w := do(t, srv, http.MethodGet, "/api/risks", "", nil)
	gt.Value(t, w.Code).Equal(http.StatusUnauthorized)

	w = do(t, srv, http.MethodGet, "/health", "", nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
}

func TestServer_SubmitRisk(t *testing.T) {
	t.Run("assigned", func(t *testing.T) {
		srv := newServer(t, newRepository(t))

		w := do(t, srv, http.MethodPost, "/api/risks", "staff-retail", submission)
		gt.Value(t, w.Code).Equal(http.StatusCreated)

		body := decode[intakeBody](t, w)
		gt.Value(t, body.Risk.Status).Equal("open")
		gt.Value(t, body.Risk.Department).Equal("Retail")
		gt.Value(t, body.Risk.Categories).Equal([]string{"Compliance", "Fraud"})
		gt.Value(t, body.Assignment.State).Equal("assigned")
		gt.Value(t, body.Assignment.Reason).Equal("ASSIGNED")
		gt.Value(t, body.Assignment.OwnerID).NotNil()
		gt.Value(t, *body.Assignment.OwnerID).Equal("owner-retail")
		gt.Value(t, body.Risk.OwnerID).NotNil()
	})

	t.Run("pending", func(t *testing.T) {
		srv := newServer(t, newRepository(t))

		w := do(t, srv, http.MethodPost, "/api/risks", "staff-legal", submission)
		gt.Value(t, w.Code).Equal(http.StatusCreated)

		body := decode[intakeBody](t, w)
		gt.Value(t, body.Assignment.State).Equal("pending")
		gt.Value(t, body.Assignment.Reason).Equal("NO_OWNER_AVAILABLE")
		gt.Value(t, body.Assignment.OwnerID).Nil()
		gt.Value(t, body.Risk.OwnerID).Nil()
	})

	t.Run("department header overrides user store", func(t *testing.T) {
		srv := newServer(t, newRepository(t))

		data, err := json.Marshal(submission)
		gt.NoError(t, err).Required()
		req := httptest.NewRequest(http.MethodPost, "/api/risks", bytes.NewReader(data))
		req.Header.Set(server.DefaultUserHeader, "staff-legal")
		req.Header.Set(server.DefaultDepartmentHeader, "Retail")
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)

		gt.Value(t, w.Code).Equal(http.StatusCreated)
		body := decode[intakeBody](t, w)
		gt.Value(t, body.Risk.Department).Equal("Retail")
		gt.Value(t, body.Assignment.State).Equal("assigned")
	})

	t.Run("invalid submissions", func(t *testing.T) {
		srv := newServer(t, newRepository(t))

		w := do(t, srv, http.MethodPost, "/api/risks", "staff-retail", "{not json")
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)

		w = do(t, srv, http.MethodPost, "/api/risks", "staff-retail", map[string]any{
			"description": "",
			"cause":       "x",
			"categories":  []string{"Fraud"},
		})
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)

		w = do(t, srv, http.MethodPost, "/api/risks", "staff-retail", map[string]any{
			"description": "x",
			"cause":       "x",
			"categories":  []string{},
		})
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)

		w = do(t, srv, http.MethodGet, "/api/risks", "staff-retail", nil)
		gt.Value(t, w.Code).Equal(http.StatusOK)
		gt.Array(t, decode[[]map[string]any](t, w)).Length(0)
	})

	t.Run("oversized body", func(t *testing.T) {
		srv := newServer(t, newRepository(t))

		w := do(t, srv, http.MethodPost, "/api/risks", "staff-retail", map[string]any{
			"description": strings.Repeat("x", 2<<20),
			"cause":       "x",
			"categories":  []string{"Fraud"},
		})
		gt.Value(t, w.Code).Equal(http.StatusRequestEntityTooLarge)

		w = do(t, srv, http.MethodGet, "/api/risks", "staff-retail", nil)
		gt.Array(t, decode[[]map[string]any](t, w)).Length(0)
	})

	t.Run("unknown reporter", func(t *testing.T) {
		srv := newServer(t, newRepository(t))

		w := do(t, srv, http.MethodPost, "/api/risks", "ghost", submission)
		gt.Value(t, w.Code).Equal(http.StatusNotFound)
	})

	t.Run("store error after commit", func(t *testing.T) {
		repo := &failingRepository{Memory: newRepository(t), assignErr: errors.New("connection reset")}
		srv := newServer(t, repo)

		w := do(t, srv, http.MethodPost, "/api/risks", "staff-retail", submission)
		gt.Value(t, w.Code).Equal(http.StatusServiceUnavailable)

		body := decode[intakeBody](t, w)
		gt.Value(t, body.Risk.ID).NotEqual("")
		gt.Value(t, body.Assignment.State).Equal("error")
		gt.Value(t, body.Assignment.Reason).Equal("STORE_ERROR")
		gt.B(t, strings.Contains(body.Error, "connection reset")).False()
	})
}

func TestServer_RiskLifecycle(t *testing.T) {
	repo := newRepository(t)
	local, err := storage.NewLocal(t.TempDir())
	gt.NoError(t, err).Required()
	srv := newServer(t, repo, usecase.WithDocumentStorage(local))

	w := do(t, srv, http.MethodPost, "/api/risks", "staff-legal", submission)
	gt.Value(t, w.Code).Equal(http.StatusCreated)
	id := decode[intakeBody](t, w).Risk.ID

	t.Run("get", func(t *testing.T) {
		w := do(t, srv, http.MethodGet, "/api/risks/"+id, "staff-legal", nil)
		gt.Value(t, w.Code).Equal(http.StatusOK)

		w = do(t, srv, http.MethodGet, "/api/risks/"+model.NewRiskID().String(), "staff-legal", nil)
		gt.Value(t, w.Code).Equal(http.StatusNotFound)
	})

	t.Run("list mine", func(t *testing.T) {
		w := do(t, srv, http.MethodGet, "/api/risks", "staff-legal", nil)
		gt.Value(t, w.Code).Equal(http.StatusOK)
		gt.Array(t, decode[[]map[string]any](t, w)).Length(1)

		w = do(t, srv, http.MethodGet, "/api/risks", "staff-retail", nil)
		gt.Array(t, decode[[]map[string]any](t, w)).Length(0)
	})

	t.Run("attach document once", func(t *testing.T) {
		upload := func(name string) *httptest.ResponseRecorder {
			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			part, err := mw.CreateFormFile("document", name)
			gt.NoError(t, err).Required()
			_, err = part.Write([]byte("evidence"))
			gt.NoError(t, err).Required()
			gt.NoError(t, mw.Close()).Required()

			req := httptest.NewRequest(http.MethodPut, "/api/risks/"+id+"/document", &buf)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			req.Header.Set(server.DefaultUserHeader, "staff-legal")
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, req)
			return w
		}

		gt.Value(t, upload("malware.exe").Code).Equal(http.StatusBadRequest)
		gt.Value(t, upload("memo.txt").Code).Equal(http.StatusOK)
		gt.Value(t, upload("second.txt").Code).Equal(http.StatusConflict)
	})

	t.Run("assessment", func(t *testing.T) {
		w := do(t, srv, http.MethodPatch, "/api/risks/"+id+"/assessment", "owner-retail", map[string]any{
			"residual_rating": 150,
		})
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)

		w = do(t, srv, http.MethodPatch, "/api/risks/"+id+"/assessment", "owner-retail", map[string]any{
			"status":          "in-progress",
			"level":           "High",
			"residual_rating": 40,
			"report_to_board": true,
		})
		gt.Value(t, w.Code).Equal(http.StatusOK)
		body := decode[map[string]any](t, w)
		gt.Value(t, body["status"]).Equal("in-progress")
		gt.Value(t, body["level"]).Equal("High")
	})

	t.Run("retry assignment", func(t *testing.T) {
		gt.NoError(t, repo.User().SaveMany(context.Background(), []*model.User{
			{ID: "owner-legal", Department: "Legal", Role: types.UserRoleRiskOwner},
		})).Required()

		w := do(t, srv, http.MethodPost, "/api/risks/"+id+"/assign", "staff-legal", nil)
		gt.Value(t, w.Code).Equal(http.StatusOK)
		body := decode[map[string]any](t, w)
		gt.Value(t, body["state"]).Equal("assigned")
		gt.Value(t, body["owner_id"]).Equal("owner-legal")
	})
}

func TestServer_DocumentStorageDisabled(t *testing.T) {
	srv := newServer(t, newRepository(t))

	w := do(t, srv, http.MethodPost, "/api/risks", "staff-retail", submission)
	id := decode[intakeBody](t, w).Risk.ID

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("document", "memo.pdf")
	gt.NoError(t, err).Required()
	_, err = part.Write([]byte("%PDF"))
	gt.NoError(t, err).Required()
	gt.NoError(t, mw.Close()).Required()

	req := httptest.NewRequest(http.MethodPut, "/api/risks/"+id+"/document", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(server.DefaultUserHeader, "staff-retail")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	gt.Value(t, rec.Code).Equal(http.StatusNotImplemented)
}

func TestServer_Dashboard(t *testing.T) {
	srv := newServer(t, newRepository(t))

	for _, user := range []string{"staff-retail", "staff-retail", "staff-legal"} {
		w := do(t, srv, http.MethodPost, "/api/risks", user, submission)
		gt.Value(t, w.Code).Equal(http.StatusCreated)
	}

	t.Run("summary", func(t *testing.T) {
		w := do(t, srv, http.MethodGet, "/api/dashboard", "compliance", nil)
		gt.Value(t, w.Code).Equal(http.StatusOK)

		var body struct {
			Stats struct {
				Total      int `json:"total"`
				Open       int `json:"open"`
				Unassigned int `json:"unassigned"`
			} `json:"stats"`
			SimilarGroups []struct {
				Key         string `json:"key"`
				ReportCount int    `json:"report_count"`
			} `json:"similar_groups"`
			UnstaffedDepartments []string `json:"unstaffed_departments"`
		}
		gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &body)).Required()

		gt.Value(t, body.Stats.Total).Equal(3)
		gt.Value(t, body.Stats.Open).Equal(3)
		gt.Value(t, body.Stats.Unassigned).Equal(1)
		gt.Array(t, body.SimilarGroups).Length(1).Required()
		gt.Value(t, body.SimilarGroups[0].Key).Equal("Compliance|Fraud")
		gt.Value(t, body.SimilarGroups[0].ReportCount).Equal(3)
		gt.Value(t, body.UnstaffedDepartments).Equal([]string{"Legal"})
	})

	t.Run("individual views", func(t *testing.T) {
		for _, path := range []string{
			"/api/dashboard/groups",
			"/api/dashboard/stats",
			"/api/dashboard/health",
			"/api/dashboard/reviews",
			"/api/dashboard/matrix",
		} {
			w := do(t, srv, http.MethodGet, path, "compliance", nil)
			gt.Value(t, w.Code).Equal(http.StatusOK)
		}

		w := do(t, srv, http.MethodGet, "/api/dashboard/matrix", "compliance", nil)
		entries := decode[[]map[string]any](t, w)
		gt.Array(t, entries).Length(3).Required()
		gt.String(t, entries[0]["id"].(string)).Contains("RISK_")
	})

	t.Run("store unavailable", func(t *testing.T) {
		repo := &failingRepository{Memory: newRepository(t), listErr: errors.New("deadline exceeded")}
		srv := newServer(t, repo)

		w := do(t, srv, http.MethodGet, "/api/dashboard", "compliance", nil)
		gt.Value(t, w.Code).Equal(http.StatusServiceUnavailable)
		gt.B(t, strings.Contains(w.Body.String(), "deadline exceeded")).False()
	})
}

func TestServer_Metrics(t *testing.T) {
	srv := newServer(t, newRepository(t))

	w := do(t, srv, http.MethodPost, "/api/risks", "staff-retail", submission)
	gt.Value(t, w.Code).Equal(http.StatusCreated)

	w = do(t, srv, http.MethodGet, "/metrics", "", nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Body.String()).Contains("riskdesk_risk_submissions_total")
}

type failingRepository struct {
	*memory.Memory
	listErr   error
	assignErr error
}

func (f *failingRepository) Risk() interfaces.RiskRepository {
	return &failingRiskRepository{RiskRepository: f.Memory.Risk(), listErr: f.listErr, assignErr: f.assignErr}
}

type failingRiskRepository struct {
	interfaces.RiskRepository
	listErr   error
	assignErr error
}

func (r *failingRiskRepository) List(ctx context.Context, opts ...interfaces.ListRiskOption) ([]*model.Risk, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.RiskRepository.List(ctx, opts...)
}

func (r *failingRiskRepository) AssignOwner(ctx context.Context, id model.RiskID, ownerID types.UserID) (*model.Risk, bool, error) {
	if r.assignErr != nil {
		return nil, false, r.assignErr
	}
	return r.RiskRepository.AssignOwner(ctx, id, ownerID)
}
