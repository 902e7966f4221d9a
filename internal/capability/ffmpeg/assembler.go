// Package ffmpeg implements models.MediaAssembler by shelling out to the ffmpeg binary.
// Filter syntax comes from pkg/ffgraph; this package only sequences commands.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kiranshivaraju/shortforge/internal/capability"
	"github.com/kiranshivaraju/shortforge/internal/config"
	"github.com/kiranshivaraju/shortforge/pkg/ffgraph"
	"github.com/kiranshivaraju/shortforge/pkg/models"
)

// Assembly stage names carried by capability.AssemblyError.
const (
	StageSegment      = "segment"
	StageConcat       = "concat"
	StagePlaceholder  = "placeholder"
	StageMux          = "mux"
	StageCaptions     = "captions"
	StageReplaceAudio = "replace_audio"
	StagePiP          = "picture_in_picture"
)

const maxCommandOutput = 2048

type Assembler struct {
	bin    string
	fps    int
	graph  ffgraph.Builder
	style  ffgraph.CaptionStyle
	preset Preset
	runner CommandRunner
	logger *slog.Logger
}

var _ models.MediaAssembler = (*Assembler)(nil)

type Option func(*Assembler)

// WithRunner replaces the exec-based runner, mainly for tests.
func WithRunner(r CommandRunner) Option {
	return func(a *Assembler) { a.runner = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) { a.logger = l }
}

func WithPreset(p Preset) Option {
	return func(a *Assembler) { a.preset = p }
}

// New builds an Assembler from media config, loading the configured encoder preset.
func New(cfg config.MediaConfig, opts ...Option) (*Assembler, error) {
	preset, err := SelectPreset(cfg.PresetFile, cfg.Preset)
	if err != nil {
		return nil, err
	}
	a := &Assembler{
		bin:    cfg.FFmpegPath,
		fps:    cfg.FPS,
		graph:  ffgraph.Builder{Width: cfg.Width, Height: cfg.Height},
		style:  ffgraph.CaptionStyle{FontFile: cfg.FontFile},
		preset: preset,
		runner: execRunner{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// AssembleSlideshow renders every segment as its own clip, then joins them with the
// concat demuxer trimmed to the total duration.
func (a *Assembler) AssembleSlideshow(ctx context.Context, req models.SlideshowRequest) (string, error) {
	if len(req.Segments) == 0 {
		return "", &capability.AssemblyError{Stage: StageSegment, Message: "no segments to assemble"}
	}
	dir := filepath.Dir(req.Output)

	clips := make([]string, 0, len(req.Segments))
	defer func() {
		for _, c := range clips {
			_ = os.Remove(c)
		}
	}()

	for i, seg := range req.Segments {
		clip := filepath.Join(dir, capability.TempName("segment", ".mp4"))
		dur := ffgraph.FormatSeconds(seg.Duration)
		args := []string{
			"-loop", "1",
			"-framerate", strconv.Itoa(a.fps),
			"-t", dur,
			"-i", seg.Image,
			"-vf", a.graph.KenBurns(seg.Effect),
		}
		args = append(args, a.preset.videoArgs()...)
		args = append(args, "-r", strconv.Itoa(a.fps), "-t", dur, "-movflags", "+faststart", clip)

		if err := a.run(ctx, StageSegment, clip, args); err != nil {
			var ae *capability.AssemblyError
			if errors.As(err, &ae) {
				ae.Message = fmt.Sprintf("segment %d (%s): %s", i+1, seg.Effect, ae.Message)
			}
			return "", err
		}
		clips = append(clips, clip)
	}

	var list strings.Builder
	for _, c := range clips {
		abs, err := filepath.Abs(c)
		if err != nil {
			abs = c
		}
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	listPath, err := capability.WriteFile(dir, "concat", ".txt", []byte(list.String()))
	if err != nil {
		return "", &capability.AssemblyError{Stage: StageConcat, Message: "write concat list", Err: err}
	}
	defer os.Remove(listPath)

	args := []string{
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-t", ffgraph.FormatSeconds(req.TotalDuration),
		req.Output,
	}
	if err := a.run(ctx, StageConcat, req.Output, args); err != nil {
		return "", err
	}
	return req.Output, nil
}

func (a *Assembler) Placeholder(ctx context.Context, req models.PlaceholderRequest) (string, error) {
	args := []string{"-f", "lavfi", "-i", a.graph.ColorSource(req.Color, req.Duration, a.fps)}
	args = append(args, a.preset.videoArgs()...)
	args = append(args, "-t", ffgraph.FormatSeconds(req.Duration), req.Output)

	if err := a.run(ctx, StagePlaceholder, req.Output, args); err != nil {
		return "", err
	}
	return req.Output, nil
}

// MuxAudioVideo combines video and narration and burns captions. The output ends with
// the shorter stream. Without audio it degrades to BurnCaptions.
func (a *Assembler) MuxAudioVideo(ctx context.Context, req models.MuxRequest) (string, error) {
	if req.Audio == "" {
		return a.BurnCaptions(ctx, models.CaptionRequest{Video: req.Video, Captions: req.Captions, Output: req.Output})
	}

	args := []string{"-i", req.Video, "-i", req.Audio}
	if chain := a.graph.Captions(req.Captions, a.style); chain != "" {
		args = append(args, "-vf", chain)
		args = append(args, a.preset.videoArgs()...)
	} else {
		args = append(args, "-c:v", "copy")
	}
	args = append(args, a.preset.audioArgs()...)
	args = append(args, "-map", "0:v:0", "-map", "1:a:0", "-shortest", req.Output)

	if err := a.run(ctx, StageMux, req.Output, args); err != nil {
		return "", err
	}
	return req.Output, nil
}

// BurnCaptions renders captions into the video and drops any audio track.
func (a *Assembler) BurnCaptions(ctx context.Context, req models.CaptionRequest) (string, error) {
	args := []string{"-i", req.Video}
	if chain := a.graph.Captions(req.Captions, a.style); chain != "" {
		args = append(args, "-vf", chain)
		args = append(args, a.preset.videoArgs()...)
	} else {
		args = append(args, "-c:v", "copy")
	}
	args = append(args, "-an", req.Output)

	if err := a.run(ctx, StageCaptions, req.Output, args); err != nil {
		return "", err
	}
	return req.Output, nil
}

// ReplaceAudio swaps the audio track, padding short narration with silence and trimming
// long narration to the video length.
func (a *Assembler) ReplaceAudio(ctx context.Context, req models.ReplaceAudioRequest) (string, error) {
	args := []string{
		"-i", req.Video,
		"-i", req.Audio,
		"-filter_complex", a.graph.PadAudio(),
		"-map", "0:v", "-map", "[outa]",
		"-c:v", "copy",
	}
	args = append(args, a.preset.audioArgs()...)
	args = append(args, "-shortest", req.Output)

	if err := a.run(ctx, StageReplaceAudio, req.Output, args); err != nil {
		return "", err
	}
	return req.Output, nil
}

// PictureInPicture scales the overlay, places it over the background and keeps the
// background's audio when it has one.
func (a *Assembler) PictureInPicture(ctx context.Context, req models.PictureInPictureRequest) (string, error) {
	graph := a.graph.Overlay(ffgraph.OverlayParams{
		Position:  req.Position,
		Scale:     req.Scale,
		ChromaKey: req.ChromaKey,
	})
	args := []string{
		"-i", req.Background,
		"-i", req.Overlay,
		"-filter_complex", graph,
		"-map", "[outv]", "-map", "0:a?",
	}
	args = append(args, a.preset.videoArgs()...)
	args = append(args, a.preset.audioArgs()...)
	args = append(args, "-shortest", req.Output)

	if err := a.run(ctx, StagePiP, req.Output, args); err != nil {
		return "", err
	}
	return req.Output, nil
}

// run executes one ffmpeg command writing output and checks that output exists afterwards.
func (a *Assembler) run(ctx context.Context, stage, output string, args []string) error {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return &capability.AssemblyError{Stage: stage, Message: "create output dir", Err: err}
	}

	full := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	cmd := capability.CommandLog{Command: a.bin + " " + strings.Join(full, " ")}
	a.logger.Debug("running ffmpeg", "stage", stage, "command", cmd.Command)

	out, err := a.runner.Run(ctx, a.bin, full...)
	cmd.Output = tail(string(out), maxCommandOutput)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return &capability.AssemblyError{Stage: stage, Message: "ffmpeg failed", Command: cmd, Err: err}
	}

	info, statErr := os.Stat(output)
	if statErr != nil || info.Size() == 0 {
		return &capability.AssemblyError{Stage: stage, Message: "output was not created", Command: cmd, Err: statErr}
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
