package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/shortforge/internal/api/middleware"
	"github.com/kiranshivaraju/shortforge/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler       http.HandlerFunc
	MetricsHandler      http.Handler
	CreateJobHandler    http.HandlerFunc
	JobStatusHandler    http.HandlerFunc
	CancelJobHandler    http.HandlerFunc
	CleanupJobHandler   http.HandlerFunc
	BulkCleanupHandler  http.HandlerFunc
	DownloadHandler     http.HandlerFunc
	CapabilitiesHandler http.HandlerFunc
	ScriptHandler       http.HandlerFunc
	ImageSearchHandler  http.HandlerFunc
	ReplaceVoiceHandler http.HandlerFunc
	PiPHandler          http.HandlerFunc
	RegenerateHandler   http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.Identify)

	auth := deps.Auth
	if auth == nil {
		auth = mw.NewAuth("")
	}
	limit := func(h http.Handler) http.Handler { return h }
	if deps.RateLimit != nil {
		limit = deps.RateLimit.Limit
	}

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", orNotImplemented(deps.HealthHandler))
		if deps.MetricsHandler != nil {
			r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
		}

		r.Get("/jobs/{jobID}", orNotImplemented(deps.JobStatusHandler))
		r.Post("/jobs/{jobID}/cancel", orNotImplemented(deps.CancelJobHandler))
		r.Post("/jobs/{jobID}/cleanup", orNotImplemented(deps.CleanupJobHandler))
		r.Get("/downloads/{category}/{filename}", orNotImplemented(deps.DownloadHandler))

		// Cost-bearing routes
		r.Group(func(r chi.Router) {
			r.Use(limit)

			r.Post("/jobs", orNotImplemented(deps.CreateJobHandler))
			r.Post("/scripts", orNotImplemented(deps.ScriptHandler))
			r.Post("/images/search", orNotImplemented(deps.ImageSearchHandler))
			r.Post("/media/replace-voice", orNotImplemented(deps.ReplaceVoiceHandler))
			r.Post("/media/pip", orNotImplemented(deps.PiPHandler))
			r.Post("/media/regenerate", orNotImplemented(deps.RegenerateHandler))
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)

			r.Post("/cleanup", orNotImplemented(deps.BulkCleanupHandler))
			r.Get("/capabilities", orNotImplemented(deps.CapabilitiesHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
