package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bamtlab/conductor"
	"github.com/bamtlab/conductor/ext"
	"github.com/bamtlab/conductor/id"
	"github.com/bamtlab/conductor/job"
	"github.com/bamtlab/conductor/middleware"
	"github.com/bamtlab/conductor/template"
	"github.com/bamtlab/conductor/worker"
)

// fakeStore is a minimal in-memory job.Store for executor tests.
type fakeStore struct {
	mu   sync.Mutex
	jobs map[string]*job.Instance
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[string]*job.Instance)}
}

func (s *fakeStore) CreateJob(_ context.Context, inst *job.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *inst
	s.jobs[inst.ID.String()] = &cp

	return nil
}

func (s *fakeStore) GetJob(_ context.Context, jobID id.JobID) (*job.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.jobs[jobID.String()]
	if !ok {
		return nil, conductor.ErrJobNotFound
	}

	cp := *inst

	return &cp, nil
}

func (s *fakeStore) UpdateJob(_ context.Context, inst *job.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *inst
	s.jobs[inst.ID.String()] = &cp

	return nil
}

func (s *fakeStore) ListJobs(_ context.Context, _ job.ListOpts) ([]*job.Instance, error) {
	return nil, nil
}

func (s *fakeStore) CountJobs(_ context.Context, _ job.CountOpts) (int, error) {
	return 0, nil
}

func (s *fakeStore) DeleteJob(_ context.Context, jobID id.JobID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, jobID.String())

	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runningInstance(templateID string, input string) *job.Instance {
	now := time.Now().UTC()

	inst := &job.Instance{
		Entity:      conductor.NewEntity(),
		ID:          id.NewJobID(),
		TenantID:    "t1",
		WorkflowID:  "wf1",
		TemplateID:  templateID,
		Status:      job.StatusRunning,
		ScheduledAt: &now,
	}

	if input != "" {
		inst.InputPayload = json.RawMessage(input)
	}

	return inst
}

func newRegistry(t *testing.T) *template.Registry {
	t.Helper()

	reg := template.NewRegistry()
	if err := template.Register(reg, template.Echo()); err != nil {
		t.Fatalf("register echo: %v", err)
	}

	if err := template.Register(reg, template.FakeSleep()); err != nil {
		t.Fatalf("register fake_sleep: %v", err)
	}

	return reg
}

func TestExecuteSuccess(t *testing.T) {
	store := newFakeStore()
	reg := newRegistry(t)

	finished := make(chan id.JobID, 1)

	exec := worker.NewExecutor(worker.Options{
		Store:     store,
		Templates: reg,
		Logger:    testLogger(),
		OnFinish:  func(jobID id.JobID) { finished <- jobID },
	})

	inst := runningInstance("echo", `{"message":"hi"}`)
	if err := store.CreateJob(context.Background(), inst); err != nil {
		t.Fatalf("create job: %v", err)
	}

	exec.Dispatch(context.Background(), inst)
	exec.Wait()

	select {
	case got := <-finished:
		if got != inst.ID {
			t.Errorf("expected finish callback for %s, got %s", inst.ID, got)
		}
	default:
		t.Fatal("expected OnFinish to be called")
	}

	stored, err := store.GetJob(context.Background(), inst.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}

	if stored.Status != job.StatusSuccess {
		t.Fatalf("expected SUCCESS, got %s", stored.Status)
	}

	var out template.EchoOutput
	if err := json.Unmarshal(stored.OutputPayload, &out); err != nil {
		t.Fatalf("decode output: %v", err)
	}

	if out.Message != "hi" {
		t.Errorf("expected echoed message, got %q", out.Message)
	}

	if stored.StartedAt == nil || stored.FinishedAt == nil {
		t.Fatal("expected started and finished timestamps")
	}

	if stored.FinishedAt.Before(*stored.StartedAt) {
		t.Error("finished before started")
	}

	if stored.StartedAt.Before(*stored.ScheduledAt) {
		t.Error("started before scheduled")
	}
}

func TestExecuteHandlerError(t *testing.T) {
	store := newFakeStore()
	reg := template.NewRegistry()

	if err := template.Register(reg, template.Definition[struct{}]{
		Name:    "failing",
		Handler: func(_ context.Context, _ struct{}) (any, error) { return nil, errors.New("boom") },
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	exec := worker.NewExecutor(worker.Options{
		Store:     store,
		Templates: reg,
		Logger:    testLogger(),
	})

	inst := runningInstance("failing", "")
	_ = store.CreateJob(context.Background(), inst)

	exec.Dispatch(context.Background(), inst)
	exec.Wait()

	stored, _ := store.GetJob(context.Background(), inst.ID)
	if stored.Status != job.StatusFailed {
		t.Fatalf("expected FAILED, got %s", stored.Status)
	}

	var f job.Failure
	if err := json.Unmarshal(stored.OutputPayload, &f); err != nil {
		t.Fatalf("decode failure: %v", err)
	}

	if f.Error != "boom" {
		t.Errorf("expected error %q, got %q", "boom", f.Error)
	}

	if f.Timeout {
		t.Error("expected timeout flag to be unset")
	}
}

func TestExecuteTimeout(t *testing.T) {
	store := newFakeStore()
	reg := newRegistry(t)

	exec := worker.NewExecutor(worker.Options{
		Store:      store,
		Templates:  reg,
		Logger:     testLogger(),
		Middleware: []middleware.Middleware{middleware.Timeout(time.Second)},
	})

	inst := runningInstance("fake_sleep", `{"seconds":30}`)
	inst.Timeout = 30 * time.Millisecond
	_ = store.CreateJob(context.Background(), inst)

	exec.Dispatch(context.Background(), inst)
	exec.Wait()

	stored, _ := store.GetJob(context.Background(), inst.ID)
	if stored.Status != job.StatusFailed {
		t.Fatalf("expected FAILED after timeout, got %s", stored.Status)
	}

	var f job.Failure
	if err := json.Unmarshal(stored.OutputPayload, &f); err != nil {
		t.Fatalf("decode failure: %v", err)
	}

	if !f.Timeout {
		t.Error("expected timeout flag in failure payload")
	}
}

func TestExecuteUnknownTemplate(t *testing.T) {
	store := newFakeStore()

	exec := worker.NewExecutor(worker.Options{
		Store:     store,
		Templates: template.NewRegistry(),
		Logger:    testLogger(),
	})

	inst := runningInstance("nonexistent", "")
	_ = store.CreateJob(context.Background(), inst)

	exec.Dispatch(context.Background(), inst)
	exec.Wait()

	stored, _ := store.GetJob(context.Background(), inst.ID)
	if stored.Status != job.StatusFailed {
		t.Fatalf("expected FAILED for unknown template, got %s", stored.Status)
	}
}

// hookRecorder captures terminal events.
type hookRecorder struct {
	mu        sync.Mutex
	succeeded int
	failed    int
}

func (h *hookRecorder) Name() string { return "recorder" }

func (h *hookRecorder) OnJobSucceeded(_ context.Context, _ *job.Instance) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.succeeded++
}

func (h *hookRecorder) OnJobFailed(_ context.Context, _ *job.Instance) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failed++
}

func TestExecuteFiresExtensions(t *testing.T) {
	store := newFakeStore()
	reg := newRegistry(t)

	exts := ext.NewRegistry()
	recorder := &hookRecorder{}
	exts.Register(recorder)

	exec := worker.NewExecutor(worker.Options{
		Store:      store,
		Templates:  reg,
		Extensions: exts,
		Logger:     testLogger(),
	})

	inst := runningInstance("echo", `{"message":"x"}`)
	_ = store.CreateJob(context.Background(), inst)

	exec.Dispatch(context.Background(), inst)
	exec.Wait()

	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	if recorder.succeeded != 1 {
		t.Errorf("expected 1 succeeded event, got %d", recorder.succeeded)
	}

	if recorder.failed != 0 {
		t.Errorf("expected 0 failed events, got %d", recorder.failed)
	}
}
