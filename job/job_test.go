package job_test

import (
	"encoding/json"
	"testing"

	"github.com/bamtlab/conductor/job"
)

func TestStatusValid(t *testing.T) {
	valid := []job.Status{job.StatusPending, job.StatusRunning, job.StatusSuccess, job.StatusFailed}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}

	if job.Status("pending").Valid() {
		t.Error("lowercase status should not be valid")
	}

	if job.Status("").Valid() {
		t.Error("empty status should not be valid")
	}
}

func TestStatusTerminal(t *testing.T) {
	if job.StatusPending.Terminal() || job.StatusRunning.Terminal() {
		t.Error("active statuses must not be terminal")
	}

	if !job.StatusSuccess.Terminal() || !job.StatusFailed.Terminal() {
		t.Error("SUCCESS and FAILED must be terminal")
	}
}

func TestStatusActive(t *testing.T) {
	if !job.StatusPending.Active() || !job.StatusRunning.Active() {
		t.Error("PENDING and RUNNING must be active")
	}

	if job.StatusSuccess.Active() || job.StatusFailed.Active() {
		t.Error("terminal statuses must not be active")
	}
}

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		from, to job.Status
		want     bool
	}{
		{job.StatusPending, job.StatusRunning, true},
		{job.StatusRunning, job.StatusSuccess, true},
		{job.StatusRunning, job.StatusFailed, true},
		{job.StatusPending, job.StatusSuccess, false},
		{job.StatusPending, job.StatusFailed, false},
		{job.StatusRunning, job.StatusPending, false},
		{job.StatusSuccess, job.StatusRunning, false},
		{job.StatusSuccess, job.StatusFailed, false},
		{job.StatusFailed, job.StatusPending, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestFailurePayload(t *testing.T) {
	raw := job.FailurePayload("handler exploded", true)

	var f job.Failure
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("decode failure payload: %v", err)
	}

	if f.Error != "handler exploded" {
		t.Errorf("expected error message, got %q", f.Error)
	}

	if !f.Timeout {
		t.Error("expected timeout flag to be set")
	}
}
