package jobs

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/kiranshivaraju/shortforge/internal/cache"
	"github.com/kiranshivaraju/shortforge/internal/pipeline"
	"github.com/kiranshivaraju/shortforge/internal/store"
)

// Sweeper periodically drops jobs older than the retention age. Failures are logged and
// never surface to clients.
type Sweeper struct {
	store    store.JobStore
	cache    cache.Cache
	tempDir  string
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper. c may be nil.
func NewSweeper(st store.JobStore, c cache.Cache, tempDir string, maxAge, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:    st,
		cache:    c,
		tempDir:  tempDir,
		maxAge:   maxAge,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce removes expired jobs along with their workspaces and status mirrors, and
// returns how many jobs were removed.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	removed, err := s.store.Sweep(ctx, s.maxAge)
	if err != nil {
		s.logger.Error("job sweep failed", "error", err)
		return 0
	}

	for _, job := range removed {
		if err := os.RemoveAll(pipeline.WorkspaceDir(s.tempDir, job.ID)); err != nil {
			s.logger.Warn("failed to remove swept job workspace", "job_id", job.ID, "error", err)
		}
		if s.cache != nil {
			if err := s.cache.DeleteJobStatus(ctx, job.ID); err != nil {
				s.logger.Warn("failed to delete job status mirror", "job_id", job.ID, "error", err)
			}
		}
	}
	if len(removed) > 0 {
		s.logger.Info("expired jobs swept", "count", len(removed))
	}
	return len(removed)
}
