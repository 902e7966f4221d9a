package handler

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/shortforge/internal/api/response"
	"github.com/kiranshivaraju/shortforge/internal/pipeline"
)

// NewDownloadHandler returns an http.HandlerFunc for
// GET /api/v1/downloads/{category}/{filename}. Files are served only from the category
// directories under outputDir.
func NewDownloadHandler(outputDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, ok := pipeline.ArtifactPath(outputDir, chi.URLParam(r, "category"), chi.URLParam(r, "filename"))
		if !ok {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Unknown artifact category", nil)
			return
		}

		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "File not found", nil)
			return
		}

		w.Header().Set("Content-Disposition", `attachment; filename="`+info.Name()+`"`)
		http.ServeFile(w, r, path)
	}
}
