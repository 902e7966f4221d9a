package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kiranshivaraju/shortforge/internal/api/response"
	"github.com/kiranshivaraju/shortforge/internal/capability"
	"github.com/kiranshivaraju/shortforge/internal/pipeline"
	"github.com/kiranshivaraju/shortforge/pkg/models"
)

const (
	maxUploadBytes   = 512 << 20
	multipartMemory  = 32 << 20
	defaultPiPScale  = 0.3
	defaultPosition  = models.PositionBottomRight
	uploadsSubdir    = "uploads"
	maxSearchResults = 10
	maxRegenImages   = 10
)

// MediaService defines the stand-alone media operations. *pipeline.Orchestrator satisfies it.
type MediaService interface {
	GenerateScript(ctx context.Context, topic string, duration int) (models.Script, error)
	SearchImages(ctx context.Context, topic string, keywords []string, max int) ([]models.ImageInfo, error)
	ReplaceVoice(ctx context.Context, video, audio string) (models.Artifact, error)
	PictureInPicture(ctx context.Context, req models.PictureInPictureRequest) (models.Artifact, error)
	Regenerate(ctx context.Context, req models.RegenerateRequest) (models.Artifact, error)
}

// DurationLimits bounds the duration accepted by the script endpoint.
type DurationLimits struct {
	Min     int
	Max     int
	Default int
}

// NewScriptHandler returns an http.HandlerFunc for POST /api/v1/scripts.
func NewScriptHandler(svc MediaService, limits DurationLimits) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Topic    string `json:"topic"`
			Duration *int   `json:"duration"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		topic := strings.TrimSpace(req.Topic)
		if topic == "" {
			validationError(w, "topic", "topic is required")
			return
		}
		duration := limits.Default
		if req.Duration != nil {
			duration = *req.Duration
		}
		if duration < limits.Min || duration > limits.Max {
			validationError(w, "duration",
				fmt.Sprintf("duration must be between %d and %d seconds", limits.Min, limits.Max))
			return
		}

		s, err := svc.GenerateScript(r.Context(), topic, duration)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, map[string]any{
			"topic":    topic,
			"duration": duration,
			"script":   s,
		})
	}
}

// NewImageSearchHandler returns an http.HandlerFunc for POST /api/v1/images/search.
func NewImageSearchHandler(svc MediaService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Topic     string   `json:"topic"`
			Keywords  []string `json:"keywords"`
			MaxImages int      `json:"max_images"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if strings.TrimSpace(req.Topic) == "" && len(req.Keywords) == 0 {
			validationError(w, "topic", "topic or keywords is required")
			return
		}
		if req.MaxImages < 0 || req.MaxImages > maxSearchResults {
			validationError(w, "max_images",
				fmt.Sprintf("max_images must be between 0 and %d (0 uses the default)", maxSearchResults))
			return
		}

		images, err := svc.SearchImages(r.Context(), req.Topic, req.Keywords, req.MaxImages)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if images == nil {
			images = []models.ImageInfo{}
		}
		response.JSON(w, map[string]any{
			"images": images,
			"count":  len(images),
		})
	}
}

// NewReplaceVoiceHandler returns an http.HandlerFunc for POST /api/v1/media/replace-voice.
// The form names an existing video artifact in "video" and uploads the new voice in "audio".
func NewReplaceVoiceHandler(svc MediaService, outputDir, tempDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !parseUpload(w, r) {
			return
		}
		defer r.MultipartForm.RemoveAll()

		video, ok := findVideoArtifact(outputDir, r.FormValue("video"))
		if !ok {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Video artifact not found", nil)
			return
		}

		audio, err := saveUpload(r, "audio", tempDir)
		if err != nil {
			uploadError(w, r, "audio", err)
			return
		}
		defer os.Remove(audio)

		art, err := svc.ReplaceVoice(r.Context(), video, audio)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Created(w, art)
	}
}

// NewPictureInPictureHandler returns an http.HandlerFunc for POST /api/v1/media/pip.
func NewPictureInPictureHandler(svc MediaService, tempDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !parseUpload(w, r) {
			return
		}
		defer r.MultipartForm.RemoveAll()

		position := r.FormValue("position")
		if position == "" {
			position = defaultPosition
		}
		if !validPosition(position) {
			validationError(w, "position", "unknown overlay position")
			return
		}

		scale := defaultPiPScale
		if v := r.FormValue("scale"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f <= 0 || f > 1 {
				validationError(w, "scale", "scale must be a number in (0, 1]")
				return
			}
			scale = f
		}

		chromaKey := false
		if v := r.FormValue("chroma_key"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				validationError(w, "chroma_key", "chroma_key must be a boolean")
				return
			}
			chromaKey = b
		}

		background, err := saveUpload(r, "background", tempDir)
		if err != nil {
			uploadError(w, r, "background", err)
			return
		}
		defer os.Remove(background)

		overlay, err := saveUpload(r, "overlay", tempDir)
		if err != nil {
			uploadError(w, r, "overlay", err)
			return
		}
		defer os.Remove(overlay)

		art, err := svc.PictureInPicture(r.Context(), models.PictureInPictureRequest{
			Background: background,
			Overlay:    overlay,
			Position:   position,
			Scale:      scale,
			ChromaKey:  chromaKey,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Created(w, art)
	}
}

// NewRegenerateHandler returns an http.HandlerFunc for POST /api/v1/media/regenerate.
// The form uploads one or more "images", an optional "audio" voice track, an optional
// "captions" JSON array and an optional "duration" in seconds.
func NewRegenerateHandler(svc MediaService, limits DurationLimits, tempDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !parseUpload(w, r) {
			return
		}
		defer r.MultipartForm.RemoveAll()

		duration := limits.Default
		if v := r.FormValue("duration"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < limits.Min || n > limits.Max {
				validationError(w, "duration",
					fmt.Sprintf("duration must be between %d and %d seconds", limits.Min, limits.Max))
				return
			}
			duration = n
		}

		var captions []models.Caption
		if v := strings.TrimSpace(r.FormValue("captions")); v != "" {
			if err := json.Unmarshal([]byte(v), &captions); err != nil {
				validationError(w, "captions", "captions must be a JSON array of {text, start, duration}")
				return
			}
			for _, c := range captions {
				if strings.TrimSpace(c.Text) == "" || c.Start < 0 || c.Duration <= 0 {
					validationError(w, "captions", "each caption needs text, a start >= 0 and a positive duration")
					return
				}
			}
		}

		headers := r.MultipartForm.File["images"]
		if len(headers) == 0 {
			validationError(w, "images", errMissingUpload.Error())
			return
		}
		if len(headers) > maxRegenImages {
			validationError(w, "images", fmt.Sprintf("at most %d images are allowed", maxRegenImages))
			return
		}

		images := make([]string, 0, len(headers))
		defer func() {
			for _, p := range images {
				os.Remove(p)
			}
		}()
		for _, h := range headers {
			p, err := saveFile(h, "images", tempDir)
			if err != nil {
				writeError(w, r, err)
				return
			}
			images = append(images, p)
		}

		var audio string
		if len(r.MultipartForm.File["audio"]) > 0 {
			p, err := saveUpload(r, "audio", tempDir)
			if err != nil {
				uploadError(w, r, "audio", err)
				return
			}
			defer os.Remove(p)
			audio = p
		}

		art, err := svc.Regenerate(r.Context(), models.RegenerateRequest{
			Images:   images,
			Audio:    audio,
			Captions: captions,
			Duration: float64(duration),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Created(w, art)
	}
}

func validationError(w http.ResponseWriter, field, message string) {
	response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", field+": "+message,
		map[string]string{"field": field})
}

var errMissingUpload = errors.New("file is required")

func parseUpload(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE",
				"Upload exceeds the size limit", nil)
			return false
		}
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Expected a multipart form", nil)
		return false
	}
	return true
}

func uploadError(w http.ResponseWriter, r *http.Request, field string, err error) {
	if errors.Is(err, errMissingUpload) {
		validationError(w, field, err.Error())
		return
	}
	writeError(w, r, err)
}

// saveUpload copies the named form file into tempDir/uploads under a fresh name and
// returns its path. The client filename contributes only its extension.
func saveUpload(r *http.Request, field, tempDir string) (string, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return "", errMissingUpload
	}
	return saveFile(r.MultipartForm.File[field][0], field, tempDir)
}

func saveFile(header *multipart.FileHeader, field, tempDir string) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("read upload %s: %w", field, err)
	}
	defer file.Close()

	dir := filepath.Join(tempDir, uploadsSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(dir, capability.TempName("upload_"+field, uploadExt(header)))

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("write upload %s: %w", field, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close upload %s: %w", field, err)
	}
	return path, nil
}

func uploadExt(h *multipart.FileHeader) string {
	ext := strings.ToLower(filepath.Ext(h.Filename))
	if len(ext) < 2 || len(ext) > 6 {
		return ".bin"
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ".bin"
		}
	}
	return ext
}

// findVideoArtifact looks up filename in the video categories in order.
func findVideoArtifact(outputDir, filename string) (string, bool) {
	if strings.TrimSpace(filename) == "" {
		return "", false
	}
	for _, category := range []string{models.ArtifactFinal, models.ArtifactDraft, models.ArtifactNoVoice} {
		path, ok := pipeline.ArtifactPath(outputDir, category, filename)
		if !ok {
			continue
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func validPosition(p string) bool {
	switch p {
	case models.PositionBottomRight, models.PositionBottomLeft, models.PositionTopRight,
		models.PositionTopLeft, models.PositionCenterBottom:
		return true
	}
	return false
}
