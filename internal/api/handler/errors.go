package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/shortforge/internal/api/response"
	"github.com/kiranshivaraju/shortforge/internal/capability"
	"github.com/kiranshivaraju/shortforge/internal/jobs"
	"github.com/kiranshivaraju/shortforge/internal/store"
)

// writeError maps service and capability errors onto the API error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *jobs.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(),
			map[string]string{"field": verr.Field})
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
	case errors.Is(err, jobs.ErrJobFinished):
		response.Error(w, http.StatusConflict, "JOB_FINISHED", err.Error(), nil)
	case errors.Is(err, jobs.ErrJobRunning):
		response.Error(w, http.StatusConflict, "JOB_RUNNING", "Job is still running", nil)
	case errors.Is(err, capability.ErrNotConfigured):
		response.Error(w, http.StatusServiceUnavailable, "CAPABILITY_NOT_CONFIGURED", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded), capability.ReasonOf(err) == capability.ReasonTimeout:
		response.Error(w, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT",
			"The upstream service took too long to respond", nil)
	case isUpstream(err):
		response.Error(w, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error(),
			map[string]string{"reason": string(capability.ReasonOf(err))})
	case errors.Is(err, capability.ErrAssemblyFailed):
		slog.Error("media assembly failed", "path", r.URL.Path, "error", err)
		response.Error(w, http.StatusInternalServerError, "ASSEMBLY_FAILED", err.Error(), nil)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}

func isUpstream(err error) bool {
	var pe *capability.ProviderError
	return errors.As(err, &pe)
}
