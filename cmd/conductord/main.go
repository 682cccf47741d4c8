// Command conductord serves the conductor engine over REST. It wires a
// store backend, the built-in job templates, and the HTTP API into one
// process.
//
// Usage:
//
//	conductord -config conductord.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/bamtlab/conductor"
	"github.com/bamtlab/conductor/api"
	"github.com/bamtlab/conductor/engine"
	"github.com/bamtlab/conductor/ext"
	"github.com/bamtlab/conductor/middleware"
	"github.com/bamtlab/conductor/observability"
	"github.com/bamtlab/conductor/store"
	"github.com/bamtlab/conductor/store/memory"
	"github.com/bamtlab/conductor/store/redis"
	"github.com/bamtlab/conductor/template"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "conductord:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	st, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	registry := template.NewRegistry()
	if err := template.Register(registry, template.FakeSleep()); err != nil {
		return err
	}

	if err := template.Register(registry, template.Echo()); err != nil {
		return err
	}

	exts := ext.NewRegistry()
	exts.Register(observability.NewMetricsExtension())

	eng, err := engine.New(engineConfig(cfg), st, registry,
		engine.WithLogger(logger),
		engine.WithExtensions(exts),
		engine.WithMiddleware(
			middleware.Recover(logger),
			middleware.Logging(logger),
			middleware.Tracing(),
			middleware.Metrics(),
		),
		engine.WithCronTick(cfg.Cron.TickInterval),
	)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: api.NewServer(eng, logger),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return eng.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Listen, "backend", cfg.Store.Backend)

		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), engineConfig(cfg).ShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLogger(cfg fileConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func newStore(cfg fileConfig) (store.Store, error) {
	switch cfg.Store.Backend {
	case "redis":
		return redis.New(redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		}), nil
	default:
		return memory.New(), nil
	}
}

func engineConfig(cfg fileConfig) conductor.Config {
	out := conductor.DefaultConfig()

	if cfg.Scheduler.MaxRunning > 0 {
		out.MaxRunning = cfg.Scheduler.MaxRunning
	}

	if cfg.Scheduler.MaxTenantConcurrency > 0 {
		out.MaxTenantConcurrency = cfg.Scheduler.MaxTenantConcurrency
	}

	if cfg.Scheduler.TickInterval > 0 {
		out.TickInterval = cfg.Scheduler.TickInterval
	}

	if cfg.Scheduler.DefaultJobTimeout > 0 {
		out.DefaultJobTimeout = cfg.Scheduler.DefaultJobTimeout
	}

	if cfg.Scheduler.ShutdownTimeout > 0 {
		out.ShutdownTimeout = cfg.Scheduler.ShutdownTimeout
	}

	return out
}
