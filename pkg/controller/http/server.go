package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/secmon-lab/riskdesk/pkg/usecase"
	"github.com/secmon-lab/riskdesk/pkg/utils/logging"
)

const (
	DefaultUserHeader       = "X-User-ID"
	DefaultDepartmentHeader = "X-User-Department"

	// maxDocumentSize limits multipart uploads
	maxDocumentSize = 10 << 20
	// maxJSONBodySize limits JSON request bodies
	maxJSONBodySize = 1 << 20
)

type Server struct {
	router           *chi.Mux
	risk             *usecase.RiskUseCase
	dashboard        *usecase.DashboardUseCase
	userHeader       string
	departmentHeader string
	enableMetrics    bool
}

type Options func(*Server)

// WithUserHeader sets the header carrying the authenticated user ID
func WithUserHeader(name string) Options {
	return func(s *Server) {
		s.userHeader = name
	}
}

// WithDepartmentHeader sets the header carrying the caller's department, if known
func WithDepartmentHeader(name string) Options {
	return func(s *Server) {
		s.departmentHeader = name
	}
}

// WithMetrics exposes Prometheus metrics at /metrics
func WithMetrics(enabled bool) Options {
	return func(s *Server) {
		s.enableMetrics = enabled
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:           r,
		risk:             uc.Risk,
		dashboard:        uc.Dashboard,
		userHeader:       DefaultUserHeader,
		departmentHeader: DefaultDepartmentHeader,
	}
	for _, opt := range opts {
		opt(s)
	}

	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.enableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(userMiddleware(s.userHeader, s.departmentHeader))

		r.Route("/risks", func(r chi.Router) {
			r.Post("/", s.submitRisk)
			r.Get("/", s.listMyRisks)
			r.Get("/{id}", s.getRisk)
			r.Post("/{id}/assign", s.retryAssignment)
			r.Put("/{id}/document", s.attachDocument)
			r.Patch("/{id}/assessment", s.updateAssessment)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/", s.dashboardSummary)
			r.Get("/groups", s.similarGroups)
			r.Get("/stats", s.complianceStats)
			r.Get("/health", s.departmentHealth)
			r.Get("/reviews", s.upcomingReviews)
			r.Get("/matrix", s.riskMatrix)
		})
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
