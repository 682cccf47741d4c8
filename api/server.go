// Package api exposes the engine over REST. Routes are versioned under
// /v1; errors map onto HTTP statuses by class (404 not found, 409
// conflict, 400 invalid input).
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bamtlab/conductor/engine"
)

// Server is the HTTP layer over an engine.
type Server struct {
	engine *engine.Engine
	logger *slog.Logger
	router chi.Router
}

// NewServer builds the router. The engine must already be running.
func NewServer(eng *engine.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{engine: eng, logger: logger}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/templates", s.handleListTemplates)

		r.Route("/tenants", func(r chi.Router) {
			r.Post("/", s.handleCreateTenant)
			r.Get("/", s.handleListTenants)
			r.Get("/{tenantID}", s.handleGetTenant)
			r.Patch("/{tenantID}", s.handleUpdateTenant)
			r.Delete("/{tenantID}", s.handleDeleteTenant)
		})

		r.Route("/workflows", func(r chi.Router) {
			r.Post("/", s.handleCreateWorkflow)
			r.Get("/", s.handleListWorkflows)
			r.Get("/{workflowID}", s.handleGetWorkflow)
			r.Delete("/{workflowID}", s.handleDeleteWorkflow)
			r.Put("/{workflowID}/entry-branch", s.handleSetEntryBranch)
			r.Post("/{workflowID}/execute", s.handleExecuteWorkflow)
			r.Get("/{workflowID}/runs", s.handleListRuns)

			r.Route("/{workflowID}/branches", func(r chi.Router) {
				r.Post("/", s.handleCreateBranch)
				r.Get("/", s.handleListBranches)
				r.Delete("/{branch}", s.handleDeleteBranch)
				r.Post("/{branch}/jobs", s.handleAppendJobSpec)
				r.Get("/{branch}/jobs", s.handleListJobSpecs)
				r.Delete("/{branch}/jobs/{index}", s.handleDeleteJobSpec)
			})
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.handleListJobs)
			r.Get("/{jobID}", s.handleGetJob)
			r.Delete("/{jobID}", s.handleDeleteJob)
		})

		r.Get("/runs/{runID}", s.handleGetRun)

		r.Route("/scheduler", func(r chi.Router) {
			r.Get("/", s.handleSchedulerStatus)
			r.Post("/start", s.handleSchedulerStart)
			r.Post("/pause", s.handleSchedulerPause)
		})

		r.Route("/crons", func(r chi.Router) {
			r.Post("/", s.handleCreateCron)
			r.Get("/", s.handleListCrons)
			r.Get("/{cronID}", s.handleGetCron)
			r.Patch("/{cronID}", s.handleUpdateCron)
			r.Delete("/{cronID}", s.handleDeleteCron)
		})
	})

	s.router = r

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"templates": s.engine.Templates()})
}
