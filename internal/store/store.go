package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/shortforge/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid job status transition")

// DefaultLogCap bounds a job's log when the caller passes a non-positive cap.
const DefaultLogCap = 100

// JobStore is the job registry. Every job mutation goes through here.
type JobStore interface {
	Ping(ctx context.Context) error
	CreateJob(ctx context.Context, job *models.Job) error
	// GetJob returns a snapshot; mutating it does not affect the stored job.
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	// UpdateJob merges the given fields. A missing job is a silent no-op.
	UpdateJob(ctx context.Context, id uuid.UUID, opts ...JobUpdateOption) error
	// AppendLog adds a timestamped entry, evicting the oldest beyond the cap.
	// A missing job is a silent no-op.
	AppendLog(ctx context.Context, id uuid.UUID, level, message string) error
	// Sweep removes every job whose age is at least maxAge and returns the removed jobs.
	Sweep(ctx context.Context, maxAge time.Duration) ([]*models.Job, error)
	Close()
}

type jobUpdateParams struct {
	Status   *string
	Progress *string
	Result   *models.Result
	Error    *string
}

type JobUpdateOption func(*jobUpdateParams)

func WithStatus(status string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.Status = &status
	}
}

func WithProgress(progress string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.Progress = &progress
	}
}

// WithResult is only accepted together with WithStatus(completed).
func WithResult(result models.Result) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.Result = &result
	}
}

// WithError is only accepted together with WithStatus(error).
func WithError(msg string) JobUpdateOption {
	return func(p *jobUpdateParams) {
		p.Error = &msg
	}
}

func buildParams(opts []JobUpdateOption) *jobUpdateParams {
	params := &jobUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}
	return params
}

var validTransitions = map[string][]string{
	models.JobStatusPending:    {models.JobStatusScripting, models.JobStatusError},
	models.JobStatusScripting:  {models.JobStatusVoicing, models.JobStatusError},
	models.JobStatusVoicing:    {models.JobStatusImaging, models.JobStatusError},
	models.JobStatusImaging:    {models.JobStatusAssembling, models.JobStatusError},
	models.JobStatusAssembling: {models.JobStatusMuxing, models.JobStatusError},
	models.JobStatusMuxing:     {models.JobStatusCompleted, models.JobStatusError},
}

// checkUpdate validates params against the job's current status and returns the status
// the job will have after the update.
func checkUpdate(current string, p *jobUpdateParams) (string, error) {
	if models.IsTerminalStatus(current) {
		return "", fmt.Errorf("%w: job is already %s", ErrInvalidTransition, current)
	}

	next := current
	if p.Status != nil && *p.Status != current {
		allowed := false
		for _, s := range validTransitions[current] {
			if s == *p.Status {
				allowed = true
				break
			}
		}
		if !allowed {
			return "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, *p.Status)
		}
		next = *p.Status
	}

	if p.Result != nil && next != models.JobStatusCompleted {
		return "", fmt.Errorf("%w: result requires status %s", ErrInvalidTransition, models.JobStatusCompleted)
	}
	if p.Error != nil && next != models.JobStatusError {
		return "", fmt.Errorf("%w: error requires status %s", ErrInvalidTransition, models.JobStatusError)
	}
	if next == models.JobStatusCompleted && p.Result == nil {
		return "", fmt.Errorf("%w: completed requires a result", ErrInvalidTransition)
	}
	if next == models.JobStatusError && p.Error == nil {
		return "", fmt.Errorf("%w: error requires a message", ErrInvalidTransition)
	}
	return next, nil
}

// capLogs keeps the newest limit entries in order.
func capLogs(logs []models.LogEntry, limit int) []models.LogEntry {
	if len(logs) <= limit {
		return logs
	}
	return append([]models.LogEntry(nil), logs[len(logs)-limit:]...)
}
