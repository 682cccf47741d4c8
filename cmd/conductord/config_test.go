package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Listen != ":8080" {
		t.Errorf("expected default listen :8080, got %q", cfg.Listen)
	}

	if cfg.Store.Backend != "memory" {
		t.Errorf("expected default backend memory, got %q", cfg.Store.Backend)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conductord.yaml")

	content := `
listen: ":9090"
log:
  level: debug
  format: json
store:
  backend: redis
  redis:
    addr: "redis:6379"
    db: 2
scheduler:
  max_running: 20
  max_tenant_concurrency: 5
  tick_interval: 500ms
`

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Listen != ":9090" {
		t.Errorf("listen: got %q", cfg.Listen)
	}

	if cfg.Store.Backend != "redis" || cfg.Store.Redis.Addr != "redis:6379" || cfg.Store.Redis.DB != 2 {
		t.Errorf("redis config mismatch: %+v", cfg.Store)
	}

	if cfg.Scheduler.MaxRunning != 20 || cfg.Scheduler.TickInterval != 500*time.Millisecond {
		t.Errorf("scheduler config mismatch: %+v", cfg.Scheduler)
	}

	eng := engineConfig(cfg)
	if eng.MaxRunning != 20 || eng.MaxTenantConcurrency != 5 {
		t.Errorf("engine config mismatch: %+v", eng)
	}

	// Unset fields keep engine defaults.
	if eng.DefaultJobTimeout != 5*time.Minute {
		t.Errorf("expected default job timeout, got %v", eng.DefaultJobTimeout)
	}
}

func TestLoadConfigUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")

	if err := os.WriteFile(path, []byte("store:\n  backend: mongo\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := loadConfig(path); err == nil {
		t.Error("expected error for unknown backend")
	}
}
