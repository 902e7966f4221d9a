package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/shortforge/internal/capability"
	"github.com/kiranshivaraju/shortforge/internal/capability/imagesearch"
	"github.com/kiranshivaraju/shortforge/internal/script"
	"github.com/kiranshivaraju/shortforge/pkg/models"
)

// GenerateScript runs the first configured script generator outside of a job.
func (o *Orchestrator) GenerateScript(ctx context.Context, topic string, duration int) (models.Script, error) {
	set := o.resolver.Resolve()
	if len(set.Scripts) == 0 {
		return models.Script{}, capability.NewProviderError(capability.ErrNotConfigured, "script",
			capability.ReasonAuth, "no script generator configured", nil)
	}

	callCtx, cancel := withTimeout(ctx, o.cfg.Timeouts.Script)
	defer cancel()
	s, err := set.Scripts[0].Generate(callCtx, topic, duration)
	if err != nil {
		return models.Script{}, err
	}
	return script.Normalize(s, topic, duration), nil
}

// SearchImages runs a composite search for client-side image selection. Without
// keywords the topic is searched.
func (o *Orchestrator) SearchImages(ctx context.Context, topic string, keywords []string, max int) ([]models.ImageInfo, error) {
	if max <= 0 || max > o.cfg.MaxImages {
		max = o.cfg.MaxImages
	}
	set := o.resolver.Resolve()
	composite := imagesearch.New(set.Images,
		imagesearch.WithCache(o.cache), imagesearch.WithLogger(o.logger))

	callCtx, cancel := withTimeout(ctx, o.cfg.Timeouts.ImageSearch)
	defer cancel()
	return composite.Search(callCtx, models.SearchRequest{
		Keywords:   script.NormalizeKeywords(keywords, topic),
		Topic:      strings.TrimSpace(topic),
		PerKeyword: o.cfg.ImagesPerKeyword,
		Max:        max,
	})
}

// ReplaceVoice swaps the audio track of video for audio, padding or trimming the audio to
// the video length. The result is a new final artifact.
func (o *Orchestrator) ReplaceVoice(ctx context.Context, video, audio string) (models.Artifact, error) {
	out, err := o.newFinalArtifact("video_replaced")
	if err != nil {
		return models.Artifact{}, err
	}

	callCtx, cancel := withTimeout(ctx, o.cfg.Timeouts.Assembly)
	defer cancel()
	if _, err := o.assembler.ReplaceAudio(callCtx, models.ReplaceAudioRequest{
		Video:  video,
		Audio:  audio,
		Output: out.Path,
	}); err != nil {
		_ = os.Remove(out.Path)
		return models.Artifact{}, err
	}
	return out, nil
}

// PictureInPicture overlays req.Overlay on req.Background. req.Output is ignored; the
// result is a new final artifact.
func (o *Orchestrator) PictureInPicture(ctx context.Context, req models.PictureInPictureRequest) (models.Artifact, error) {
	out, err := o.newFinalArtifact("video_pip")
	if err != nil {
		return models.Artifact{}, err
	}
	req.Output = out.Path

	callCtx, cancel := withTimeout(ctx, o.cfg.Timeouts.Assembly)
	defer cancel()
	if _, err := o.assembler.PictureInPicture(callCtx, req); err != nil {
		_ = os.Remove(out.Path)
		return models.Artifact{}, err
	}
	return out, nil
}

// Regenerate renders req.Images as a fresh slideshow and lays the uploaded voice and
// captions over it. No job is read or changed; the result is a new final artifact.
func (o *Orchestrator) Regenerate(ctx context.Context, req models.RegenerateRequest) (models.Artifact, error) {
	if len(req.Images) == 0 {
		return models.Artifact{}, errors.New("regenerate: at least one image is required")
	}
	if req.Duration <= 0 {
		return models.Artifact{}, fmt.Errorf("regenerate: invalid duration %v", req.Duration)
	}

	out, err := o.newFinalArtifact("video_regenerated")
	if err != nil {
		return models.Artifact{}, err
	}
	ws, err := NewWorkspace(o.cfg.TempDir, uuid.New())
	if err != nil {
		return models.Artifact{}, err
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			o.logger.Warn("failed to remove regenerate workspace", "dir", ws.Dir(), "error", err)
		}
	}()

	callCtx, cancel := withTimeout(ctx, o.cfg.Timeouts.Assembly)
	defer cancel()

	finishing := req.Audio != "" || len(req.Captions) > 0
	slideshow := out.Path
	if finishing {
		slideshow = ws.Path("slideshow.mp4")
	}
	if _, err := o.assembler.AssembleSlideshow(callCtx, models.SlideshowRequest{
		Segments:      PlanSegments(req.Images, req.Duration),
		TotalDuration: req.Duration,
		Output:        slideshow,
	}); err != nil {
		_ = os.Remove(out.Path)
		return models.Artifact{}, err
	}

	switch {
	case req.Audio != "":
		_, err = o.assembler.MuxAudioVideo(callCtx, models.MuxRequest{
			Video:    slideshow,
			Audio:    req.Audio,
			Captions: req.Captions,
			Output:   out.Path,
		})
	case len(req.Captions) > 0:
		_, err = o.assembler.BurnCaptions(callCtx, models.CaptionRequest{
			Video:    slideshow,
			Captions: req.Captions,
			Output:   out.Path,
		})
	}
	if err != nil {
		_ = os.Remove(out.Path)
		return models.Artifact{}, err
	}

	o.logger.Info("video regenerated", "file", out.Filename, "images", len(req.Images),
		"audio", req.Audio != "", "captions", len(req.Captions))
	return out, nil
}

func (o *Orchestrator) newFinalArtifact(prefix string) (models.Artifact, error) {
	if err := EnsureOutputDirs(o.cfg.OutputDir); err != nil {
		return models.Artifact{}, fmt.Errorf("prepare output: %w", err)
	}
	return o.artifact(models.ArtifactFinal, capability.TempName(prefix, ".mp4")), nil
}

// OutputDir returns the root under which artifacts are written.
func (o *Orchestrator) OutputDir() string { return o.cfg.OutputDir }

// TempDir returns the root of per-job workspaces and uploads.
func (o *Orchestrator) TempDir() string { return o.cfg.TempDir }
