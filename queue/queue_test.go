package queue_test

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bamtlab/conductor/id"
	"github.com/bamtlab/conductor/queue"
)

func TestEnqueueAndAdmitFIFO(t *testing.T) {
	m := queue.NewManager(queue.Limits{MaxRunning: 10, MaxTenantConcurrency: 10})

	a := id.NewJobID()
	b := id.NewJobID()
	c := id.NewJobID()

	m.Enqueue(a, "t1")
	m.Enqueue(b, "t1")
	m.Enqueue(c, "t2")

	for i, want := range []id.JobID{a, b, c} {
		got, _, ok := m.NextAdmissible()
		if !ok {
			t.Fatalf("admission %d: expected a job", i)
		}

		if got != want {
			t.Errorf("admission %d: expected %s, got %s", i, want, got)
		}
	}

	if _, _, ok := m.NextAdmissible(); ok {
		t.Error("expected empty queue after draining")
	}
}

func TestGlobalCeiling(t *testing.T) {
	m := queue.NewManager(queue.Limits{MaxRunning: 2, MaxTenantConcurrency: 10})

	jobs := make([]id.JobID, 3)
	for i := range jobs {
		jobs[i] = id.NewJobID()
		m.Enqueue(jobs[i], "t1")
	}

	if _, _, ok := m.NextAdmissible(); !ok {
		t.Fatal("expected first admission")
	}

	if _, _, ok := m.NextAdmissible(); !ok {
		t.Fatal("expected second admission")
	}

	if _, _, ok := m.NextAdmissible(); ok {
		t.Error("expected global ceiling to block third admission")
	}

	m.Release(jobs[0])

	got, _, ok := m.NextAdmissible()
	if !ok {
		t.Fatal("expected admission after release")
	}

	if got != jobs[2] {
		t.Errorf("expected %s after release, got %s", jobs[2], got)
	}
}

func TestTenantFairnessOverridesFIFO(t *testing.T) {
	m := queue.NewManager(queue.Limits{MaxRunning: 10, MaxTenantConcurrency: 1})

	t1a := id.NewJobID()
	t1b := id.NewJobID()
	t2a := id.NewJobID()

	m.Enqueue(t1a, "t1")
	m.Enqueue(t1b, "t1")
	m.Enqueue(t2a, "t2")

	got, tenant, ok := m.NextAdmissible()
	if !ok || got != t1a {
		t.Fatalf("expected %s first, got %s (ok=%v)", t1a, got, ok)
	}

	if tenant != "t1" {
		t.Errorf("expected tenant t1, got %s", tenant)
	}

	// t1 is saturated; its second job must not block t2's.
	got, tenant, ok = m.NextAdmissible()
	if !ok {
		t.Fatal("expected fairness to admit t2's job")
	}

	if got != t2a || tenant != "t2" {
		t.Errorf("expected t2's job %s, got %s for tenant %s", t2a, got, tenant)
	}

	// Both admissible tenants saturated now.
	if _, _, ok := m.NextAdmissible(); ok {
		t.Error("expected no admission while both tenants are saturated")
	}

	// Releasing t1's job readmits its skipped one, preserving order.
	m.Release(t1a)

	got, _, ok = m.NextAdmissible()
	if !ok || got != t1b {
		t.Errorf("expected skipped job %s after release, got %s (ok=%v)", t1b, got, ok)
	}
}

func TestPerTenantOverride(t *testing.T) {
	m := queue.NewManager(queue.Limits{MaxRunning: 10, MaxTenantConcurrency: 1})
	m.SetTenantConfig("t1", queue.TenantConfig{MaxConcurrency: 2})

	a := id.NewJobID()
	b := id.NewJobID()
	c := id.NewJobID()

	m.Enqueue(a, "t1")
	m.Enqueue(b, "t1")
	m.Enqueue(c, "t1")

	if _, _, ok := m.NextAdmissible(); !ok {
		t.Fatal("expected first admission")
	}

	if _, _, ok := m.NextAdmissible(); !ok {
		t.Fatal("expected second admission under override limit 2")
	}

	if _, _, ok := m.NextAdmissible(); ok {
		t.Error("expected override limit 2 to block third admission")
	}
}

func TestSetTenantConfigPreservesActive(t *testing.T) {
	m := queue.NewManager(queue.Limits{MaxRunning: 10, MaxTenantConcurrency: 5})

	a := id.NewJobID()
	m.Enqueue(a, "t1")

	if _, _, ok := m.NextAdmissible(); !ok {
		t.Fatal("expected admission")
	}

	// Tightening the limit below the active count must not lose the
	// in-flight job's accounting.
	m.SetTenantConfig("t1", queue.TenantConfig{MaxConcurrency: 1})

	b := id.NewJobID()
	m.Enqueue(b, "t1")

	if _, _, ok := m.NextAdmissible(); ok {
		t.Error("expected tightened limit to block admission with one job in flight")
	}

	m.Release(a)

	if _, _, ok := m.NextAdmissible(); !ok {
		t.Error("expected admission after release")
	}
}

func TestRemove(t *testing.T) {
	m := queue.NewManager(queue.Limits{MaxRunning: 10, MaxTenantConcurrency: 10})

	a := id.NewJobID()
	b := id.NewJobID()

	m.Enqueue(a, "t1")
	m.Enqueue(b, "t1")

	if !m.Remove(a) {
		t.Error("expected Remove to find the pending job")
	}

	if m.Remove(a) {
		t.Error("expected second Remove to miss")
	}

	got, _, ok := m.NextAdmissible()
	if !ok || got != b {
		t.Errorf("expected %s after removal, got %s (ok=%v)", b, got, ok)
	}
}

func TestReleaseUnknownJob(t *testing.T) {
	m := queue.NewManager(queue.Limits{MaxRunning: 1, MaxTenantConcurrency: 1})

	// Must not panic or corrupt accounting.
	m.Release(id.NewJobID())

	a := id.NewJobID()
	m.Enqueue(a, "t1")

	if _, _, ok := m.NextAdmissible(); !ok {
		t.Error("expected admission to be unaffected")
	}
}

func TestSnapshot(t *testing.T) {
	m := queue.NewManager(queue.Limits{MaxRunning: 5, MaxTenantConcurrency: 5})

	a := id.NewJobID()
	b := id.NewJobID()

	m.Enqueue(a, "t1")
	m.Enqueue(b, "t2")

	if _, _, ok := m.NextAdmissible(); !ok {
		t.Fatal("expected admission")
	}

	stats := m.Snapshot()
	if stats.Pending != 1 {
		t.Errorf("expected 1 pending, got %d", stats.Pending)
	}

	if stats.Running != 1 {
		t.Errorf("expected 1 running, got %d", stats.Running)
	}

	if stats.TenantActive["t1"] != 1 {
		t.Errorf("expected t1 active 1, got %d", stats.TenantActive["t1"])
	}
}

func TestSnapshotRunningJobIDs(t *testing.T) {
	m := queue.NewManager(queue.Limits{MaxRunning: 5, MaxTenantConcurrency: 5})

	a := id.NewJobID()
	b := id.NewJobID()

	m.Enqueue(a, "t1")
	m.Enqueue(b, "t2")

	for range 2 {
		if _, _, ok := m.NextAdmissible(); !ok {
			t.Fatal("expected admission")
		}
	}

	ids := m.Snapshot().RunningJobIDs
	if len(ids) != 2 {
		t.Fatalf("expected 2 running job IDs, got %d", len(ids))
	}

	// Sorted; K-sortable IDs put a before b.
	if ids[0] != a || ids[1] != b {
		t.Errorf("expected [%s %s], got [%s %s]", a, b, ids[0], ids[1])
	}

	m.Release(a)

	ids = m.Snapshot().RunningJobIDs
	if len(ids) != 1 || ids[0] != b {
		t.Errorf("expected [%s] after release, got %v", b, ids)
	}
}

func TestSetLimits(t *testing.T) {
	m := queue.NewManager(queue.Limits{MaxRunning: 1, MaxTenantConcurrency: 10})

	a := id.NewJobID()
	b := id.NewJobID()

	m.Enqueue(a, "t1")
	m.Enqueue(b, "t1")

	if _, _, ok := m.NextAdmissible(); !ok {
		t.Fatal("expected admission")
	}

	if _, _, ok := m.NextAdmissible(); ok {
		t.Fatal("expected ceiling 1 to block")
	}

	m.SetLimits(queue.Limits{MaxRunning: 2, MaxTenantConcurrency: 10})

	if _, _, ok := m.NextAdmissible(); !ok {
		t.Error("expected raised ceiling to admit")
	}
}

func TestAdmissionRateLimit(t *testing.T) {
	m := queue.NewManager(queue.Limits{MaxRunning: 10, MaxTenantConcurrency: 10})
	m.SetTenantConfig("t1", queue.TenantConfig{AdmissionsPerSecond: 0.001, AdmissionBurst: 1})

	a := id.NewJobID()
	b := id.NewJobID()

	m.Enqueue(a, "t1")
	m.Enqueue(b, "t1")

	if _, _, ok := m.NextAdmissible(); !ok {
		t.Fatal("expected first admission from burst")
	}

	// Bucket exhausted; second admission waits for refill.
	if _, _, ok := m.NextAdmissible(); ok {
		t.Error("expected rate limit to defer second admission")
	}
}

func TestConcurrentAdmissionInvariants(t *testing.T) {
	const (
		maxRunning = 4
		maxTenant  = 2
		producers  = 8
		jobsEach   = 25
	)

	m := queue.NewManager(queue.Limits{MaxRunning: maxRunning, MaxTenantConcurrency: maxTenant})

	tenants := []string{"t1", "t2", "t3"}

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range jobsEach {
				m.Enqueue(id.NewJobID(), tenants[(p+i)%len(tenants)])
			}
		}()
	}

	var (
		violations atomic.Int32
		admitted   atomic.Int32
		done       atomic.Bool
	)

	observe := func() {
		stats := m.Snapshot()
		if stats.Running > maxRunning {
			violations.Add(1)
		}

		for _, active := range stats.TenantActive {
			if active > maxTenant {
				violations.Add(1)
			}
		}
	}

	for range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for !done.Load() {
				jobID, _, ok := m.NextAdmissible()
				if !ok {
					observe()

					runtime.Gosched()

					continue
				}

				admitted.Add(1)
				observe()
				m.Release(jobID)
			}
		}()
	}

	deadline := time.Now().Add(5 * time.Second)
	for admitted.Load() < producers*jobsEach && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	done.Store(true)
	wg.Wait()

	if got := admitted.Load(); got != producers*jobsEach {
		t.Errorf("expected %d admissions, got %d", producers*jobsEach, got)
	}

	if n := violations.Load(); n != 0 {
		t.Errorf("observed %d ceiling violations under concurrent load", n)
	}

	if stats := m.Snapshot(); stats.Pending != 0 || stats.Running != 0 {
		t.Errorf("expected drained queue, got %d pending %d running", stats.Pending, stats.Running)
	}
}
