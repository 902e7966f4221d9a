package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/shortforge/internal/api/response"
	"github.com/kiranshivaraju/shortforge/internal/jobs"
	"github.com/kiranshivaraju/shortforge/pkg/models"
)

// JobService defines the job operations the handlers depend on. *jobs.Service satisfies it.
type JobService interface {
	Create(ctx context.Context, req jobs.CreateRequest) (*models.Job, error)
	Status(ctx context.Context, id uuid.UUID) (jobs.StatusView, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	CleanupJob(ctx context.Context, id uuid.UUID) (int, error)
	CleanupTemp(ctx context.Context) (int, error)
}

type createJobRequest struct {
	Topic    string          `json:"topic"`
	Duration *int            `json:"duration"`
	Mode     string          `json:"mode"`
	Options  json.RawMessage `json:"options"`
}

type createJobResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Status string    `json:"status"`
	Mode   string    `json:"mode"`
}

// NewCreateJobHandler returns an http.HandlerFunc for POST /api/v1/jobs.
func NewCreateJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := svc.Create(r.Context(), jobs.CreateRequest{
			Topic:    req.Topic,
			Duration: req.Duration,
			Mode:     req.Mode,
			Options:  req.Options,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		response.AcceptedAt(w, "/api/v1/jobs/"+job.ID.String(), createJobResponse{
			JobID:  job.ID,
			Status: job.Status,
			Mode:   job.Mode,
		})
	}
}

// NewJobStatusHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewJobStatusHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := jobIDParam(w, r)
		if !ok {
			return
		}
		view, err := svc.Status(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, view)
	}
}

// NewCancelJobHandler returns an http.HandlerFunc for POST /api/v1/jobs/{jobID}/cancel.
func NewCancelJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := jobIDParam(w, r)
		if !ok {
			return
		}
		if err := svc.Cancel(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		response.Accepted(w, map[string]any{
			"job_id":    id,
			"cancelled": true,
		})
	}
}

// NewCleanupJobHandler returns an http.HandlerFunc for POST /api/v1/jobs/{jobID}/cleanup.
func NewCleanupJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := jobIDParam(w, r)
		if !ok {
			return
		}
		n, err := svc.CleanupJob(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, map[string]any{
			"job_id":        id,
			"deleted_count": n,
		})
	}
}

// NewBulkCleanupHandler returns an http.HandlerFunc for POST /api/v1/cleanup.
func NewBulkCleanupHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := svc.CleanupTemp(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, map[string]int{"deleted_count": n})
	}
}

// jobIDParam parses the jobID URL parameter. A malformed id cannot name a job, so it is
// reported as not found.
func jobIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
		return uuid.Nil, false
	}
	return id, true
}
