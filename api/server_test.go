package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bamtlab/conductor"
	"github.com/bamtlab/conductor/api"
	"github.com/bamtlab/conductor/engine"
	"github.com/bamtlab/conductor/store/memory"
	"github.com/bamtlab/conductor/template"
)

func newTestServer(t *testing.T) *api.Server {
	t.Helper()

	reg := template.NewRegistry()
	if err := template.Register(reg, template.Echo()); err != nil {
		t.Fatalf("register echo: %v", err)
	}

	if err := template.Register(reg, template.FakeSleep()); err != nil {
		t.Fatalf("register fake_sleep: %v", err)
	}

	cfg := conductor.DefaultConfig()
	cfg.TickInterval = 10 * time.Millisecond

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	eng, err := engine.New(cfg, memory.New(), reg, engine.WithLogger(logger))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = eng.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return api.NewServer(eng, logger)
}

func doJSON(t *testing.T, s *api.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}

		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestTenantLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/v1/tenants", map[string]any{"id": "t1", "name": "One"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}

	// Duplicate conflicts.
	rec = doJSON(t, s, http.MethodPost, "/v1/tenants", map[string]any{"id": "t1"})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}

	// Empty ID is invalid.
	rec = doJSON(t, s, http.MethodPost, "/v1/tenants", map[string]any{"name": "no id"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/v1/tenants/t1", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/v1/tenants/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/v1/tenants/t1", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d: %s", rec.Code, rec.Body)
	}
}

func setupWorkflowHTTP(t *testing.T, s *api.Server) {
	t.Helper()

	rec := doJSON(t, s, http.MethodPost, "/v1/tenants", map[string]any{"id": "t1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create tenant: %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, s, http.MethodPost, "/v1/workflows", map[string]any{
		"id": "wf1", "name": "WF", "tenant_id": "t1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create workflow: %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, s, http.MethodPost, "/v1/workflows/wf1/branches", map[string]any{"name": "main"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create branch: %d: %s", rec.Code, rec.Body)
	}
}

func TestWorkflowExecuteFlow(t *testing.T) {
	s := newTestServer(t)
	setupWorkflowHTTP(t, s)

	rec := doJSON(t, s, http.MethodPost, "/v1/workflows/wf1/branches/main/jobs", map[string]any{
		"template_id":   "echo",
		"input_payload": map[string]string{"message": "hi"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("append spec: %d: %s", rec.Code, rec.Body)
	}

	var posResp map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &posResp); err != nil {
		t.Fatalf("decode position: %v", err)
	}

	if posResp["position"] != 0 {
		t.Errorf("expected position 0, got %d", posResp["position"])
	}

	// Unknown template is 404.
	rec = doJSON(t, s, http.MethodPost, "/v1/workflows/wf1/branches/main/jobs", map[string]any{
		"template_id": "nope",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown template, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/v1/workflows/wf1/execute", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("execute: %d: %s", rec.Code, rec.Body)
	}

	var run struct {
		ID     string   `json:"id"`
		JobIDs []string `json:"job_ids"`
	}

	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}

	if len(run.JobIDs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(run.JobIDs))
	}

	// The job is visible and PENDING while the scheduler is paused.
	rec = doJSON(t, s, http.MethodGet, "/v1/jobs/"+run.JobIDs[0], nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get job: %d", rec.Code)
	}

	var inst struct {
		Status string `json:"status"`
	}

	if err := json.Unmarshal(rec.Body.Bytes(), &inst); err != nil {
		t.Fatalf("decode job: %v", err)
	}

	if inst.Status != "PENDING" {
		t.Errorf("expected PENDING, got %s", inst.Status)
	}

	// The run is retrievable.
	rec = doJSON(t, s, http.MethodGet, "/v1/runs/"+run.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get run: %d", rec.Code)
	}
}

func TestSchedulerEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/v1/scheduler", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}

	var status struct {
		Mode string `json:"mode"`
	}

	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if status.Mode != "PAUSED" {
		t.Errorf("expected initial PAUSED, got %s", status.Mode)
	}

	rec = doJSON(t, s, http.MethodPost, "/v1/scheduler/start", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: %d", rec.Code)
	}

	_ = json.Unmarshal(rec.Body.Bytes(), &status)
	if status.Mode != "RUNNING" {
		t.Errorf("expected RUNNING after start, got %s", status.Mode)
	}

	rec = doJSON(t, s, http.MethodPost, "/v1/scheduler/pause", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pause: %d", rec.Code)
	}

	_ = json.Unmarshal(rec.Body.Bytes(), &status)
	if status.Mode != "PAUSED" {
		t.Errorf("expected PAUSED after pause, got %s", status.Mode)
	}
}

func TestSchedulerStatusRunningJobIDs(t *testing.T) {
	s := newTestServer(t)
	setupWorkflowHTTP(t, s)

	rec := doJSON(t, s, http.MethodPost, "/v1/workflows/wf1/branches/main/jobs", map[string]any{
		"template_id":   "fake_sleep",
		"input_payload": map[string]any{"seconds": 30},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("append spec: %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, s, http.MethodPost, "/v1/workflows/wf1/execute", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("execute: %d: %s", rec.Code, rec.Body)
	}

	var run struct {
		JobIDs []string `json:"job_ids"`
	}

	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}

	if len(run.JobIDs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(run.JobIDs))
	}

	rec = doJSON(t, s, http.MethodPost, "/v1/scheduler/start", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: %d", rec.Code)
	}

	var status struct {
		Queue struct {
			Running       int      `json:"running"`
			RunningJobIDs []string `json:"running_job_ids"`
		} `json:"queue"`
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec = doJSON(t, s, http.MethodGet, "/v1/scheduler", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status: %d", rec.Code)
		}

		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatalf("decode status: %v", err)
		}

		if len(status.Queue.RunningJobIDs) > 0 {
			break
		}

		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the job to be admitted")
		}

		time.Sleep(5 * time.Millisecond)
	}

	if status.Queue.Running != 1 {
		t.Errorf("expected running 1, got %d", status.Queue.Running)
	}

	if status.Queue.RunningJobIDs[0] != run.JobIDs[0] {
		t.Errorf("expected running job %s, got %s", run.JobIDs[0], status.Queue.RunningJobIDs[0])
	}
}

func TestSpecIndexShiftOverHTTP(t *testing.T) {
	s := newTestServer(t)
	setupWorkflowHTTP(t, s)

	for _, msg := range []string{"a", "b", "c"} {
		rec := doJSON(t, s, http.MethodPost, "/v1/workflows/wf1/branches/main/jobs", map[string]any{
			"template_id":   "echo",
			"input_payload": map[string]string{"message": msg},
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("append: %d", rec.Code)
		}
	}

	rec := doJSON(t, s, http.MethodDelete, "/v1/workflows/wf1/branches/main/jobs/1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete spec: %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, s, http.MethodGet, "/v1/workflows/wf1/branches/main/jobs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list specs: %d", rec.Code)
	}

	var resp struct {
		Jobs []struct {
			InputPayload map[string]string `json:"input_payload"`
		} `json:"jobs"`
	}

	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(resp.Jobs) != 2 {
		t.Fatalf("expected 2 specs, got %d", len(resp.Jobs))
	}

	if resp.Jobs[0].InputPayload["message"] != "a" || resp.Jobs[1].InputPayload["message"] != "c" {
		t.Errorf("expected [a c] after index shift, got %v", resp.Jobs)
	}

	// Out of range index.
	rec = doJSON(t, s, http.MethodDelete, "/v1/workflows/wf1/branches/main/jobs/9", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for out-of-range index, got %d", rec.Code)
	}
}

func TestCronEndpoints(t *testing.T) {
	s := newTestServer(t)
	setupWorkflowHTTP(t, s)

	rec := doJSON(t, s, http.MethodPost, "/v1/crons", map[string]any{
		"workflow_id": "wf1", "schedule": "@hourly",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create cron: %d: %s", rec.Code, rec.Body)
	}

	var entry struct {
		ID string `json:"id"`
	}

	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Invalid schedule.
	rec = doJSON(t, s, http.MethodPost, "/v1/crons", map[string]any{
		"workflow_id": "wf1", "schedule": "garbage",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad schedule, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPatch, "/v1/crons/"+entry.ID, map[string]any{"enabled": false})
	if rec.Code != http.StatusOK {
		t.Errorf("patch cron: %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, s, http.MethodDelete, "/v1/crons/"+entry.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete cron: %d", rec.Code)
	}
}

func TestInvalidJobID(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/v1/jobs/not-a-typeid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed job id, got %d", rec.Code)
	}
}
