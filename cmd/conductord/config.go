package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML configuration for conductord.
type fileConfig struct {
	Listen string `yaml:"listen"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Store struct {
		Backend string `yaml:"backend"` // "memory" or "redis"

		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"store"`

	Scheduler struct {
		MaxRunning           int           `yaml:"max_running"`
		MaxTenantConcurrency int           `yaml:"max_tenant_concurrency"`
		TickInterval         time.Duration `yaml:"tick_interval"`
		DefaultJobTimeout    time.Duration `yaml:"default_job_timeout"`
		ShutdownTimeout      time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"scheduler"`

	Cron struct {
		TickInterval time.Duration `yaml:"tick_interval"`
	} `yaml:"cron"`
}

func defaultFileConfig() fileConfig {
	var cfg fileConfig
	cfg.Listen = ":8080"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Store.Backend = "memory"
	cfg.Store.Redis.Addr = "localhost:6379"

	return cfg
}

func loadConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	switch cfg.Store.Backend {
	case "memory", "redis":
	default:
		return cfg, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	return cfg, nil
}
