package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/shortforge/pkg/models"
)

// categoryDirs maps an artifact category to its directory under the output root.
var categoryDirs = map[string]string{
	models.ArtifactFinal:   "videos",
	models.ArtifactDraft:   "draft",
	models.ArtifactNoVoice: "no_voice",
	models.ArtifactScripts: "scripts",
}

// CategoryDir returns the output subdirectory for category and whether it is known.
func CategoryDir(category string) (string, bool) {
	d, ok := categoryDirs[category]
	return d, ok
}

// EnsureOutputDirs creates every category directory under outputDir.
func EnsureOutputDirs(outputDir string) error {
	for _, dir := range categoryDirs {
		if err := os.MkdirAll(filepath.Join(outputDir, dir), 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	return nil
}

// ArtifactPath resolves a category and filename to its location under outputDir.
// filename is reduced to its base name so it cannot escape the category directory.
func ArtifactPath(outputDir, category, filename string) (string, bool) {
	dir, ok := CategoryDir(category)
	if !ok {
		return "", false
	}
	base := filepath.Base(filepath.Clean("/" + filename))
	if base == "/" || base == "." || base == ".." {
		return "", false
	}
	return filepath.Join(outputDir, dir, base), true
}

// Output filenames for a job.
func finalFilename(id uuid.UUID) string      { return "video_" + id.String() + ".mp4" }
func draftFilename(id uuid.UUID) string      { return "video_" + id.String() + "_draft.mp4" }
func noVoiceFilename(id uuid.UUID) string    { return "video_" + id.String() + "_no_voice.mp4" }
func transcriptFilename(id uuid.UUID) string { return "video_" + id.String() + "_script.txt" }

// JobArtifactPaths lists every output path a job may have produced, whether or not the
// files exist.
func JobArtifactPaths(outputDir string, id uuid.UUID) []string {
	var out []string
	for category, name := range map[string]string{
		models.ArtifactFinal:   finalFilename(id),
		models.ArtifactDraft:   draftFilename(id),
		models.ArtifactNoVoice: noVoiceFilename(id),
		models.ArtifactScripts: transcriptFilename(id),
	} {
		if p, ok := ArtifactPath(outputDir, category, name); ok {
			out = append(out, p)
		}
	}
	return out
}

func (o *Orchestrator) artifact(category, filename string) models.Artifact {
	path, _ := ArtifactPath(o.cfg.OutputDir, category, filename)
	return models.Artifact{
		Category: category,
		Filename: filename,
		URL:      o.cfg.PublicBaseURL + "/api/v1/downloads/" + category + "/" + filename,
		Path:     path,
	}
}
