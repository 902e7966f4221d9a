package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/shortforge/pkg/models"
)

// MemoryStore implements JobStore with a mutex-guarded map. Jobs are lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	jobs   map[uuid.UUID]*models.Job
	logCap int
	now    func() time.Time
}

var _ JobStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore that keeps at most logCap log entries per job.
func NewMemoryStore(logCap int) *MemoryStore {
	if logCap <= 0 {
		logCap = DefaultLogCap
	}
	return &MemoryStore{
		jobs:   make(map[uuid.UUID]*models.Job),
		logCap: logCap,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) CreateJob(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return ErrDuplicateKey
	}
	stored := job.Clone()
	stored.Logs = capLogs(stored.Logs, s.logCap)
	s.jobs[job.ID] = stored
	return nil
}

func (s *MemoryStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job.Clone(), nil
}

func (s *MemoryStore) UpdateJob(ctx context.Context, id uuid.UUID, opts ...JobUpdateOption) error {
	params := buildParams(opts)

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil
	}

	next, err := checkUpdate(job.Status, params)
	if err != nil {
		return err
	}

	job.Status = next
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.Result != nil {
		r := params.Result.Clone()
		job.Result = &r
	}
	if params.Error != nil {
		msg := *params.Error
		job.Error = &msg
	}
	job.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) AppendLog(ctx context.Context, id uuid.UUID, level, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil
	}
	now := s.now()
	job.Logs = capLogs(append(job.Logs, models.LogEntry{
		Timestamp: now,
		Level:     level,
		Message:   message,
	}), s.logCap)
	job.UpdatedAt = now
	return nil
}

func (s *MemoryStore) Sweep(ctx context.Context, maxAge time.Duration) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed []*models.Job
	for id, job := range s.jobs {
		if now.Sub(job.CreatedAt) >= maxAge {
			removed = append(removed, job)
			delete(s.jobs, id)
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() {}

// Len returns the number of stored jobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
