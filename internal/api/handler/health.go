package handler

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/shortforge/internal/api/response"
	"github.com/kiranshivaraju/shortforge/internal/capability/health"
)

// Pinger is a backend whose connectivity the health endpoint reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health. A nil cache is
// reported as disabled rather than degraded.
func NewHealthHandler(db Pinger, c Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := db.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if c == nil {
			checks["cache"] = "disabled"
		} else if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] == "degraded" || checks["cache"] == "degraded"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}

// HealthChecker produces a capability health report. *health.Checker satisfies it.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// NewCapabilitiesHandler returns an http.HandlerFunc for GET /api/v1/capabilities.
func NewCapabilitiesHandler(hc HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, hc.Check(r.Context()))
	}
}
