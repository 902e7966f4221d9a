// Package jobs is the submission side of the pipeline: it validates and stores new jobs,
// runs each one in its own goroutine, and serves status, cancellation and cleanup.
package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/shortforge/internal/cache"
	"github.com/kiranshivaraju/shortforge/internal/config"
	"github.com/kiranshivaraju/shortforge/internal/pipeline"
	"github.com/kiranshivaraju/shortforge/internal/store"
	"github.com/kiranshivaraju/shortforge/pkg/models"
	"golang.org/x/sync/semaphore"
)

const progressWaiting = "waiting for a free worker"

// Runner drives one job to a terminal status.
type Runner interface {
	Run(ctx context.Context, id uuid.UUID) error
}

// Config bounds submissions and locates job files.
type Config struct {
	MinDuration     int
	MaxDuration     int
	DefaultDuration int
	DefaultMode     string
	// MaxConcurrent caps running pipelines. Zero means unbounded.
	MaxConcurrent int
	TempMaxAge    time.Duration
	StatusTTL     time.Duration
	OutputDir     string
	TempDir       string
}

func ConfigFrom(cfg *config.Config) Config {
	return Config{
		MinDuration:     cfg.Jobs.MinDuration,
		MaxDuration:     cfg.Jobs.MaxDuration,
		DefaultDuration: cfg.Jobs.DefaultDuration,
		DefaultMode:     models.ModeDraft,
		MaxConcurrent:   cfg.Jobs.MaxConcurrent,
		TempMaxAge:      cfg.Jobs.TempMaxAge,
		StatusTTL:       cfg.Jobs.MaxAge,
		OutputDir:       cfg.Paths.OutputDir,
		TempDir:         cfg.Paths.TempDir,
	}
}

// CreateRequest is a job submission. A nil Duration selects the default.
type CreateRequest struct {
	Topic    string
	Duration *int
	Mode     string
	Options  json.RawMessage
}

// Service owns job submission and the goroutines running them.
type Service struct {
	store  store.JobStore
	runner Runner
	cache  cache.Cache
	sem    *semaphore.Weighted
	cfg    Config
	logger *slog.Logger

	baseCtx context.Context
	stop    context.CancelFunc

	mu      sync.Mutex
	running map[uuid.UUID]context.CancelFunc
	wg      sync.WaitGroup
}

type Option func(*Service)

// WithCache mirrors job statuses into c.
func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service. runner is usually a *pipeline.Orchestrator.
func NewService(st store.JobStore, runner Runner, cfg Config, opts ...Option) *Service {
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = models.ModeDraft
	}
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = 24 * time.Hour
	}
	ctx, stop := context.WithCancel(context.Background())
	s := &Service{
		store:   st,
		runner:  runner,
		cfg:     cfg,
		logger:  slog.Default(),
		baseCtx: ctx,
		stop:    stop,
		running: make(map[uuid.UUID]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.MaxConcurrent > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	return s
}

// Create validates req, stores a pending job and starts its pipeline in the background.
// It returns without waiting for the pipeline.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Job, error) {
	job, err := s.newJob(req)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}
	s.mirror(ctx, job.ID, job.Status)
	s.logger.Info("job created", "job_id", job.ID, "mode", job.Mode, "duration", job.Duration)

	s.dispatch(job.ID)
	return job, nil
}

func (s *Service) newJob(req CreateRequest) (*models.Job, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, invalid("topic", "is required")
	}

	duration := s.cfg.DefaultDuration
	if req.Duration != nil {
		duration = *req.Duration
	}
	if duration < s.cfg.MinDuration || duration > s.cfg.MaxDuration {
		return nil, invalid("duration", "must be between %d and %d seconds, got %d",
			s.cfg.MinDuration, s.cfg.MaxDuration, duration)
	}

	mode := strings.TrimSpace(req.Mode)
	if mode == "" {
		mode = s.cfg.DefaultMode
	}
	if !models.IsValidMode(mode) {
		return nil, invalid("mode", "must be one of %s, got %q", strings.Join(models.ValidModes, ", "), mode)
	}

	options, err := validateOptions(req.Options)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &models.Job{
		ID:        uuid.New(),
		Topic:     topic,
		Duration:  duration,
		Mode:      mode,
		Options:   options,
		Status:    models.JobStatusPending,
		Progress:  "Job queued",
		Logs:      []models.LogEntry{{Timestamp: now, Level: models.LogLevelInfo, Message: "Job created"}},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func validateOptions(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}
	if trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, invalid("options", "must be a JSON object")
	}

	opts, err := models.ParseJobOptions(trimmed)
	if err != nil {
		return nil, invalid("options", "malformed: %v", err)
	}
	if opts.Script != nil && strings.TrimSpace(opts.Script.Body) == "" && strings.TrimSpace(opts.Script.FullText) == "" {
		return nil, invalid("options.script", "must contain body text")
	}
	for i, raw := range opts.ImageURLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, invalid(fmt.Sprintf("options.image_urls[%d]", i), "must be an http(s) URL")
		}
	}
	return append(json.RawMessage(nil), trimmed...), nil
}

func (s *Service) dispatch(id uuid.UUID) {
	ctx, cancel := context.WithCancel(s.baseCtx)
	s.mu.Lock()
	s.running[id] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx, cancel, id)
}

// run executes one job. It recovers from panics and always leaves the job terminal.
func (s *Service) run(ctx context.Context, cancel context.CancelFunc, id uuid.UUID) {
	defer s.wg.Done()
	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.running, id)
		s.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in job", "error", r, "job_id", id)
			s.markFailed(id, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if s.sem != nil {
		if !s.sem.TryAcquire(1) {
			if err := s.store.UpdateJob(context.WithoutCancel(ctx), id, store.WithProgress(progressWaiting)); err != nil {
				s.logger.Warn("failed to update progress", "job_id", id, "error", err)
			}
			if err := s.sem.Acquire(ctx, 1); err != nil {
				s.markFailed(id, pipeline.ErrCancelled.Error())
				return
			}
		}
		defer s.sem.Release(1)
	}

	if err := s.runner.Run(ctx, id); err != nil {
		s.logger.Debug("job ended with error", "job_id", id, "error", err)
	}
}

// markFailed moves a job that the pipeline never finished into error.
func (s *Service) markFailed(id uuid.UUID, msg string) {
	ctx := context.Background()
	if err := s.store.UpdateJob(ctx, id,
		store.WithStatus(models.JobStatusError),
		store.WithProgress("Failed: "+msg),
		store.WithError(msg),
	); err != nil {
		if !errors.Is(err, store.ErrInvalidTransition) {
			s.logger.Error("failed to mark job failed", "job_id", id, "error", err)
		}
		return
	}
	if err := s.store.AppendLog(ctx, id, models.LogLevelError, msg); err != nil {
		s.logger.Warn("failed to append job log", "job_id", id, "error", err)
	}
	s.mirror(ctx, id, models.JobStatusError)
}

// Get returns the stored job.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return s.store.GetJob(ctx, id)
}

// Status returns the client-facing projection of the job.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (StatusView, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return StatusView{}, err
	}
	return Project(job, 0), nil
}

// Cancel stops a job. A job that this process is running has its context cancelled and
// the pipeline records the cancellation; any other non-terminal job is marked failed here.
// When the status mirror shows such a job mid-pipeline, another process owns it and stops
// at its next stage transition, which the store rejects.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if models.IsTerminalStatus(job.Status) {
		return fmt.Errorf("%w: job is %s", ErrJobFinished, job.Status)
	}

	s.mu.Lock()
	cancel, ok := s.running[id]
	s.mu.Unlock()
	if ok {
		cancel()
		s.logger.Info("job cancellation requested", "job_id", id)
		return nil
	}

	if stage, ok := s.remoteStage(ctx, id); ok {
		s.logger.Info("cancelling job owned by another process", "job_id", id, "stage", stage)
		if err := s.store.AppendLog(ctx, id, models.LogLevelWarn,
			fmt.Sprintf("Cancellation requested while another worker was %s", stage)); err != nil {
			s.logger.Warn("failed to append job log", "job_id", id, "error", err)
		}
	}
	s.markFailed(id, pipeline.ErrCancelled.Error())
	return nil
}

// remoteStage reads the status mirror for a job this process is not running. It reports
// the mirrored stage when that stage is past pending and not terminal.
func (s *Service) remoteStage(ctx context.Context, id uuid.UUID) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	status, found, err := s.cache.GetJobStatus(ctx, id)
	if err != nil {
		s.logger.Debug("failed to read mirrored job status", "job_id", id, "error", err)
		return "", false
	}
	if !found || status == models.JobStatusPending || models.IsTerminalStatus(status) {
		return "", false
	}
	return status, true
}

// Running reports whether this process is executing the job.
func (s *Service) Running(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[id]
	return ok
}

// CleanupJob removes the job's workspace and output artifacts and returns how many were
// deleted. Removal is best effort; failures are logged and not counted.
func (s *Service) CleanupJob(ctx context.Context, id uuid.UUID) (int, error) {
	if s.Running(id) {
		return 0, ErrJobRunning
	}

	paths := pipeline.JobArtifactPaths(s.cfg.OutputDir, id)
	if job, err := s.store.GetJob(ctx, id); err == nil {
		for _, a := range job.Result.Artifacts() {
			if a.Path != "" {
				paths = append(paths, a.Path)
			}
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}

	deleted := 0
	if removeIfExists(s.logger, pipeline.WorkspaceDir(s.cfg.TempDir, id), os.RemoveAll) {
		deleted++
	}
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		if removeIfExists(s.logger, p, os.Remove) {
			deleted++
		}
	}
	s.logger.Info("job artifacts cleaned up", "job_id", id, "deleted", deleted)
	return deleted, nil
}

// CleanupTemp removes entries under the temp directory older than the configured age.
// Workspaces of jobs running in this process are kept.
func (s *Service) CleanupTemp(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.cfg.TempDir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading temp dir: %w", err)
	}

	cutoff := time.Now().Add(-s.cfg.TempMaxAge)
	deleted := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if id, err := uuid.Parse(e.Name()); err == nil && s.Running(id) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if removeIfExists(s.logger, filepath.Join(s.cfg.TempDir, e.Name()), os.RemoveAll) {
			deleted++
		}
	}
	s.logger.Info("temp files cleaned up", "deleted", deleted)
	return deleted, nil
}

func removeIfExists(logger *slog.Logger, path string, remove func(string) error) bool {
	if _, err := os.Lstat(path); err != nil {
		return false
	}
	if err := remove(path); err != nil {
		logger.Warn("failed to remove file", "path", path, "error", err)
		return false
	}
	return true
}

// Wait blocks until every job started by this service has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Shutdown waits for in-flight jobs until ctx is done, then cancels the rest and waits
// for them to record their cancellation.
func (s *Service) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.stop()
		<-done
		return ctx.Err()
	}
}

func (s *Service) mirror(ctx context.Context, id uuid.UUID, status string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJobStatus(ctx, id, status, s.cfg.StatusTTL); err != nil {
		s.logger.Warn("failed to mirror job status", "job_id", id, "error", err)
	}
}

// StatusMirror returns a pipeline observer that mirrors every status change into c.
// A nil cache yields a nil observer.
func StatusMirror(c cache.Cache, ttl time.Duration, logger *slog.Logger) pipeline.StatusObserver {
	if c == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, id uuid.UUID, status string) {
		if err := c.SetJobStatus(ctx, id, status, ttl); err != nil {
			logger.Warn("failed to mirror job status", "job_id", id, "error", err)
		}
	}
}
