package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iso27001/tracker/internal/config"
	"github.com/iso27001/tracker/internal/models"
	"github.com/iso27001/tracker/internal/reports"
	"github.com/iso27001/tracker/internal/store"
)

// Store is the persistence the HTTP handlers need. *store.Store satisfies it.
type Store interface {
	Ping(ctx context.Context) error

	ListGapAssessments(ctx context.Context) ([]models.GapAssessment, error)
	GetGapAssessment(ctx context.Context, id int64) (*models.GapAssessment, error)
	CreateGapAssessment(ctx context.Context, a *models.GapAssessment) error
	UpdateGapAssessment(ctx context.Context, a *models.GapAssessment) error
	DeleteGapAssessment(ctx context.Context, id int64) error

	ListMaturityAssessments(ctx context.Context) ([]models.MaturityAssessment, error)
	GetMaturityAssessment(ctx context.Context, id int64) (*models.MaturityAssessment, error)
	CreateMaturityAssessment(ctx context.Context, a *models.MaturityAssessment) error
	UpdateMaturityAssessment(ctx context.Context, a *models.MaturityAssessment) error
	DeleteMaturityAssessment(ctx context.Context, id int64) error

	ListActionItems(ctx context.Context) ([]models.ActionItem, error)
	GetActionItem(ctx context.Context, id int64) (*models.ActionItem, error)
	CreateActionItem(ctx context.Context, item *models.ActionItem) error
	UpdateActionItem(ctx context.Context, item *models.ActionItem) error
	DeleteActionItem(ctx context.Context, id int64) error

	ListEvidence(ctx context.Context) ([]models.Evidence, error)
	GetEvidence(ctx context.Context, id int64) (*models.Evidence, error)
	CreateEvidence(ctx context.Context, e *models.Evidence) error
	UpdateEvidence(ctx context.Context, e *models.Evidence) error
	DeleteEvidence(ctx context.Context, id int64) error

	ListRisks(ctx context.Context) ([]models.RiskRegister, error)
	GetRisk(ctx context.Context, id int64) (*models.RiskRegister, error)
	CreateRisk(ctx context.Context, r *models.RiskRegister) error
	UpdateRisk(ctx context.Context, r *models.RiskRegister) error
	DeleteRisk(ctx context.Context, id int64) error

	FindClauseRecords(ctx context.Context, clause string) (*store.ClauseRecords, error)
}

type Server struct {
	cfg    *config.Config
	router *chi.Mux
	store  Store
	http   *http.Server
	logger *slog.Logger

	reportGenerator *reports.Generator
	jobs            JobRunner
	now             func() time.Time
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for server-set dates.
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) {
		s.now = now
	}
}

func NewServer(cfg *config.Config, st Store, opts ...ServerOption) *Server {
	s := &Server{
		cfg:    cfg,
		router: chi.NewRouter(),
		store:  st,
		logger: slog.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.reportGenerator = NewReportGenerator(st, cfg.Reports.Organization, s.now)

	s.setupMiddleware()
	s.setupRoutes()

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	timeout := s.cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(timeout))
	s.router.Use(metricsMiddleware)
	s.router.Use(s.corsMiddleware())
}

func (s *Server) corsMiddleware() func(http.Handler) http.Handler {
	allowOrigin := s.cfg.Server.CORSAllowOrigin
	if allowOrigin == "" {
		allowOrigin = "*"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.healthCheck)

		r.Route("/gap-assessments", func(r chi.Router) {
			r.Get("/", s.listGapAssessments)
			r.Post("/", s.createGapAssessment)
			r.Get("/{id}", s.getGapAssessment)
			r.Put("/{id}", s.updateGapAssessment)
			r.Delete("/{id}", s.deleteGapAssessment)
		})

		r.Route("/maturity-assessments", func(r chi.Router) {
			r.Get("/", s.listMaturityAssessments)
			r.Post("/", s.createMaturityAssessment)
			r.Get("/{id}", s.getMaturityAssessment)
			r.Put("/{id}", s.updateMaturityAssessment)
			r.Delete("/{id}", s.deleteMaturityAssessment)
		})

		r.Route("/action-items", func(r chi.Router) {
			r.Get("/", s.listActionItems)
			r.Post("/", s.createActionItem)
			r.Get("/{id}", s.getActionItem)
			r.Put("/{id}", s.updateActionItem)
			r.Delete("/{id}", s.deleteActionItem)
		})

		r.Route("/evidence", func(r chi.Router) {
			r.Get("/", s.listEvidence)
			r.Post("/", s.createEvidence)
			r.Get("/{id}", s.getEvidence)
			r.Put("/{id}", s.updateEvidence)
			r.Delete("/{id}", s.deleteEvidence)
		})

		r.Route("/risks", func(r chi.Router) {
			r.Get("/", s.listRisks)
			r.Post("/", s.createRisk)
			r.Get("/{id}", s.getRisk)
			r.Put("/{id}", s.updateRisk)
			r.Delete("/{id}", s.deleteRisk)
		})

		r.Get("/templates/clauses", s.listClauseTemplates)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.listJobs)
			r.Post("/{name}/run", s.runJobNow)
			r.Get("/{name}/executions", s.listJobExecutions)
		})

		r.Route("/generate", func(r chi.Router) {
			r.Get("/clause/{clause}", s.generateClauseDocument)
			r.Get("/soa", s.generateSoA)
			r.Get("/notion-export", s.generateNotionExport)
		})
	})
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// NewReportGenerator builds a document generator reading from st. The
// scheduler uses it for SoA snapshots as well.
func NewReportGenerator(st Store, organization string, now func() time.Time) *reports.Generator {
	opts := []reports.Option{reports.WithOrganization(organization)}
	if now != nil {
		opts = append(opts, reports.WithClock(now))
	}
	return reports.NewGenerator(&reportDataProvider{store: st}, opts...)
}

type reportDataProvider struct {
	store Store
}

func (p *reportDataProvider) GetClauseData(ctx context.Context, clause string) (*reports.ClauseData, error) {
	records, err := p.store.FindClauseRecords(ctx, clause)
	if err != nil {
		return nil, err
	}
	return &reports.ClauseData{
		Gap:         records.Gap,
		Maturity:    records.Maturity,
		ActionItems: records.ActionItems,
		Evidence:    records.Evidence,
		Risks:       records.Risks,
	}, nil
}

func (p *reportDataProvider) GetGapAssessments(ctx context.Context) ([]models.GapAssessment, error) {
	return p.store.ListGapAssessments(ctx)
}

func (p *reportDataProvider) GetMaturityAssessments(ctx context.Context) ([]models.MaturityAssessment, error) {
	return p.store.ListMaturityAssessments(ctx)
}

type apiErrorResponse struct {
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiErrorResponse{
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "db_unavailable", "Database not available")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
