// Package main is the entrypoint for the ShortForge API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kiranshivaraju/shortforge/internal/api"
	"github.com/kiranshivaraju/shortforge/internal/api/handler"
	mw "github.com/kiranshivaraju/shortforge/internal/api/middleware"
	"github.com/kiranshivaraju/shortforge/internal/cache"
	"github.com/kiranshivaraju/shortforge/internal/capability/fetch"
	"github.com/kiranshivaraju/shortforge/internal/capability/ffmpeg"
	"github.com/kiranshivaraju/shortforge/internal/capability/health"
	"github.com/kiranshivaraju/shortforge/internal/capability/imagesearch"
	"github.com/kiranshivaraju/shortforge/internal/capability/selector"
	"github.com/kiranshivaraju/shortforge/internal/config"
	"github.com/kiranshivaraju/shortforge/internal/jobs"
	"github.com/kiranshivaraju/shortforge/internal/pipeline"
	"github.com/kiranshivaraju/shortforge/internal/store"
)

const (
	shutdownTimeout = 30 * time.Second
	imageCacheSize  = 128
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, failing fast on invalid values
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(newLogger(cfg.SlogLevel()))
	slog.Info("config loaded", "env", cfg.Server.Env, "output_dir", cfg.Paths.OutputDir)
	if cfg.Admin.APIKeyHash == "" {
		slog.Warn("ADMIN_API_KEY_HASH not set, admin routes are open")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Job store
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// 3. Optional Redis cache
	c, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	if err := pipeline.EnsureOutputDirs(cfg.Paths.OutputDir); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Paths.TempDir, 0o755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}

	// 4. Capabilities and pipeline
	downloader := fetch.New(fetch.WithHTTPClient(&http.Client{Timeout: cfg.Timeouts.Download}))
	sel := selector.New(config.LoadCapabilities, selector.WithDownloader(downloader))

	assembler, err := ffmpeg.New(cfg.Media)
	if err != nil {
		return fmt.Errorf("create media assembler: %w", err)
	}

	imageCache, err := imagesearch.NewResultCache(imageCacheSize)
	if err != nil {
		return fmt.Errorf("create image cache: %w", err)
	}

	orch := pipeline.New(st, sel, assembler, pipeline.ConfigFrom(cfg),
		pipeline.WithImageCache(imageCache),
		pipeline.WithMetrics(pipeline.DefaultMetrics()),
		pipeline.WithDownloader(downloader),
		pipeline.WithStatusObserver(jobs.StatusMirror(c, cfg.Jobs.MaxAge, slog.Default())),
	)

	jobOpts := []jobs.Option{jobs.WithLogger(slog.Default())}
	if c != nil {
		jobOpts = append(jobOpts, jobs.WithCache(c))
	}
	svc := jobs.NewService(st, orch, jobs.ConfigFrom(cfg), jobOpts...)

	sweeper := jobs.NewSweeper(st, c, cfg.Paths.TempDir, cfg.Jobs.MaxAge, cfg.Jobs.SweepInterval, slog.Default())
	go sweeper.Run(ctx)

	// 5. Build router with dependencies
	router := api.NewRouter(newDependencies(cfg, st, c, svc, orch, health.NewChecker(sel, cfg.Timeouts.HealthCheck)))

	// 6. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 5 * time.Minute,
		// Media endpoints run ffmpeg synchronously.
		WriteTimeout: cfg.Timeouts.Assembly + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := svc.Shutdown(shutdownCtx); err != nil {
		slog.Warn("jobs still running at shutdown were cancelled", "error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

// openStore returns the Postgres store when DATABASE_URL is set, otherwise an in-memory
// store.
func openStore(ctx context.Context, cfg *config.Config) (store.JobStore, error) {
	if cfg.Database.URL == "" {
		slog.Info("DATABASE_URL not set, using in-memory job store")
		return store.NewMemoryStore(cfg.Jobs.LogCap), nil
	}

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	slog.Info("database connected")

	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	return store.NewPostgresStore(pool, cfg.Jobs.LogCap), nil
}

// openCache connects to Redis when REDIS_URL is set. The returned cache is a nil
// interface when Redis is disabled.
func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, func(), error) {
	if cfg.Redis.URL == "" {
		slog.Info("REDIS_URL not set, status mirroring and rate limiting disabled")
		return nil, func() {}, nil
	}

	rc, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("create redis cache: %w", err)
	}
	if err := rc.Ping(ctx); err != nil {
		rc.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")
	return rc, func() { rc.Close() }, nil
}

func newDependencies(cfg *config.Config, st store.JobStore, c cache.Cache, svc *jobs.Service,
	orch *pipeline.Orchestrator, checker *health.Checker) api.Dependencies {
	var cachePinger handler.Pinger
	if c != nil {
		cachePinger = c
	}

	limits := handler.DurationLimits{
		Min:     cfg.Jobs.MinDuration,
		Max:     cfg.Jobs.MaxDuration,
		Default: cfg.Jobs.DefaultDuration,
	}
	return api.Dependencies{
		Auth:      mw.NewAuth(cfg.Admin.APIKeyHash),
		RateLimit: mw.NewRateLimit(c, cfg.Server.RateLimitPerMinute),

		HealthHandler:       handler.NewHealthHandler(st, cachePinger),
		MetricsHandler:      promhttp.Handler(),
		CreateJobHandler:    handler.NewCreateJobHandler(svc),
		JobStatusHandler:    handler.NewJobStatusHandler(svc),
		CancelJobHandler:    handler.NewCancelJobHandler(svc),
		CleanupJobHandler:   handler.NewCleanupJobHandler(svc),
		BulkCleanupHandler:  handler.NewBulkCleanupHandler(svc),
		DownloadHandler:     handler.NewDownloadHandler(cfg.Paths.OutputDir),
		CapabilitiesHandler: handler.NewCapabilitiesHandler(checker),
		ScriptHandler:       handler.NewScriptHandler(orch, limits),
		ImageSearchHandler:  handler.NewImageSearchHandler(orch),
		ReplaceVoiceHandler: handler.NewReplaceVoiceHandler(orch, cfg.Paths.OutputDir, cfg.Paths.TempDir),
		PiPHandler:          handler.NewPictureInPictureHandler(orch, cfg.Paths.TempDir),
		RegenerateHandler:   handler.NewRegenerateHandler(orch, limits, cfg.Paths.TempDir),
	}
}
