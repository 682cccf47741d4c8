package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bamtlab/conductor/id"
	"github.com/bamtlab/conductor/job"
	"github.com/bamtlab/conductor/workflow"
)

// ──────────────────────────────────────────────────
// Tenants
// ──────────────────────────────────────────────────

type createTenantRequest struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	MaxConcurrency int    `json:"max_concurrency"`
}

func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")

		return
	}

	t, err := s.engine.CreateTenant(r.Context(), req.ID, req.Name, req.MaxConcurrency)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.engine.ListTenants(r.Context())
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
}

func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := s.engine.GetTenant(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, t)
}

type updateTenantRequest struct {
	MaxConcurrency int `json:"max_concurrency"`
}

func (s *Server) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	var req updateTenantRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")

		return
	}

	t, err := s.engine.SetTenantConcurrency(r.Context(), chi.URLParam(r, "tenantID"), req.MaxConcurrency)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteTenant(r.Context(), chi.URLParam(r, "tenantID")); err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// ──────────────────────────────────────────────────
// Workflows and branches
// ──────────────────────────────────────────────────

type createWorkflowRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	TenantID string `json:"tenant_id"`
}

func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req createWorkflowRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")

		return
	}

	wf, err := s.engine.CreateWorkflow(r.Context(), req.TenantID, req.ID, req.Name)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, wf)
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := s.engine.ListWorkflows(r.Context(), r.URL.Query().Get("tenant_id"))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"workflows": workflows})
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := s.engine.GetWorkflow(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, wf)
}

func (s *Server) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteWorkflow(r.Context(), chi.URLParam(r, "workflowID")); err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

type entryBranchRequest struct {
	Branch string `json:"branch"`
}

func (s *Server) handleSetEntryBranch(w http.ResponseWriter, r *http.Request) {
	var req entryBranchRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")

		return
	}

	wf, err := s.engine.SetEntryBranch(r.Context(), chi.URLParam(r, "workflowID"), req.Branch)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, wf)
}

type createBranchRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateBranch(w http.ResponseWriter, r *http.Request) {
	var req createBranchRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")

		return
	}

	b, err := s.engine.CreateBranch(r.Context(), chi.URLParam(r, "workflowID"), req.Name)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := s.engine.ListBranches(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"branches": branches})
}

func (s *Server) handleDeleteBranch(w http.ResponseWriter, r *http.Request) {
	err := s.engine.DeleteBranch(r.Context(), chi.URLParam(r, "workflowID"), chi.URLParam(r, "branch"))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// ──────────────────────────────────────────────────
// Job specs
// ──────────────────────────────────────────────────

type appendJobSpecRequest struct {
	TemplateID   string          `json:"template_id"`
	InputPayload json.RawMessage `json:"input_payload"`
}

func (s *Server) handleAppendJobSpec(w http.ResponseWriter, r *http.Request) {
	var req appendJobSpecRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")

		return
	}

	pos, err := s.engine.AppendJobSpec(r.Context(),
		chi.URLParam(r, "workflowID"),
		chi.URLParam(r, "branch"),
		workflow.JobSpec{TemplateID: req.TemplateID, InputPayload: req.InputPayload},
	)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, map[string]int{"position": pos})
}

func (s *Server) handleListJobSpecs(w http.ResponseWriter, r *http.Request) {
	specs, err := s.engine.ListJobSpecs(r.Context(),
		chi.URLParam(r, "workflowID"), chi.URLParam(r, "branch"))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"jobs": specs})
}

func (s *Server) handleDeleteJobSpec(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		badRequest(w, "invalid spec index")

		return
	}

	err = s.engine.DeleteJobSpecAt(r.Context(),
		chi.URLParam(r, "workflowID"), chi.URLParam(r, "branch"), index)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// ──────────────────────────────────────────────────
// Execution, runs, and jobs
// ──────────────────────────────────────────────────

func (s *Server) handleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	run, err := s.engine.ExecuteWorkflow(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.engine.ListRuns(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := id.ParseRunID(chi.URLParam(r, "runID"))
	if err != nil {
		badRequest(w, "invalid run id")

		return
	}

	run, err := s.engine.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := job.ListOpts{
		TenantID:   q.Get("tenant_id"),
		WorkflowID: q.Get("workflow_id"),
		Status:     job.Status(q.Get("status")),
	}

	if opts.Status != "" && !opts.Status.Valid() {
		badRequest(w, "invalid status filter")

		return
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			badRequest(w, "invalid limit")

			return
		}

		opts.Limit = limit
	}

	if raw := q.Get("run_id"); raw != "" {
		runID, err := id.ParseRunID(raw)
		if err != nil {
			badRequest(w, "invalid run id filter")

			return
		}

		opts.RunID = runID
	}

	jobs, err := s.engine.ListJobs(r.Context(), opts)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := id.ParseJobID(chi.URLParam(r, "jobID"))
	if err != nil {
		badRequest(w, "invalid job id")

		return
	}

	inst, err := s.engine.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, inst)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := id.ParseJobID(chi.URLParam(r, "jobID"))
	if err != nil {
		badRequest(w, "invalid job id")

		return
	}

	if err := s.engine.DeleteJob(r.Context(), jobID); err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// ──────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────

type schedulerStatusResponse struct {
	Mode  string            `json:"mode"`
	Queue schedulerQueueDTO `json:"queue"`
}

type schedulerQueueDTO struct {
	Pending       int            `json:"pending"`
	Running       int            `json:"running"`
	MaxRunning    int            `json:"max_running"`
	RunningJobIDs []id.JobID     `json:"running_job_ids"`
	TenantActive  map[string]int `json:"tenant_active,omitempty"`
}

func (s *Server) schedulerStatus() schedulerStatusResponse {
	stats := s.engine.QueueStats()

	return schedulerStatusResponse{
		Mode: string(s.engine.SchedulerMode()),
		Queue: schedulerQueueDTO{
			Pending:       stats.Pending,
			Running:       stats.Running,
			MaxRunning:    stats.MaxRunning,
			RunningJobIDs: stats.RunningJobIDs,
			TenantActive:  stats.TenantActive,
		},
	}
}

func (s *Server) handleSchedulerStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.schedulerStatus())
}

func (s *Server) handleSchedulerStart(w http.ResponseWriter, r *http.Request) {
	s.engine.StartScheduler(r.Context())
	writeJSON(w, http.StatusOK, s.schedulerStatus())
}

func (s *Server) handleSchedulerPause(w http.ResponseWriter, r *http.Request) {
	s.engine.PauseScheduler(r.Context())
	writeJSON(w, http.StatusOK, s.schedulerStatus())
}

// ──────────────────────────────────────────────────
// Crons
// ──────────────────────────────────────────────────

type createCronRequest struct {
	WorkflowID string `json:"workflow_id"`
	Schedule   string `json:"schedule"`
}

func (s *Server) handleCreateCron(w http.ResponseWriter, r *http.Request) {
	var req createCronRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")

		return
	}

	entry, err := s.engine.RegisterCron(r.Context(), req.WorkflowID, req.Schedule)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleListCrons(w http.ResponseWriter, r *http.Request) {
	entries, err := s.engine.ListCrons(r.Context(), r.URL.Query().Get("workflow_id"))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"crons": entries})
}

func (s *Server) handleGetCron(w http.ResponseWriter, r *http.Request) {
	cronID, err := id.ParseCronID(chi.URLParam(r, "cronID"))
	if err != nil {
		badRequest(w, "invalid cron id")

		return
	}

	entry, err := s.engine.GetCron(r.Context(), cronID)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, entry)
}

type updateCronRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleUpdateCron(w http.ResponseWriter, r *http.Request) {
	cronID, err := id.ParseCronID(chi.URLParam(r, "cronID"))
	if err != nil {
		badRequest(w, "invalid cron id")

		return
	}

	var req updateCronRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid request body")

		return
	}

	entry, err := s.engine.SetCronEnabled(r.Context(), cronID, req.Enabled)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteCron(w http.ResponseWriter, r *http.Request) {
	cronID, err := id.ParseCronID(chi.URLParam(r, "cronID"))
	if err != nil {
		badRequest(w, "invalid cron id")

		return
	}

	if err := s.engine.RemoveCron(r.Context(), cronID); err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}
