// Package models contains shared data models used across the shortforge codebase.
package models

import "context"

// ScriptGenerator turns a topic into a timed narration script.
// Never call a vendor client directly from the pipeline; always inject this interface.
type ScriptGenerator interface {
	// Generate returns a script sized for durationSeconds of narration.
	Generate(ctx context.Context, topic string, durationSeconds int) (Script, error)
	// Name returns the adapter identifier (e.g., "openai").
	Name() string
}

// VoiceSynthesizer converts narration text into an audio file.
type VoiceSynthesizer interface {
	// Synthesize writes the audio into outputDir and returns the file path.
	Synthesize(ctx context.Context, text, outputDir string) (string, error)
	Name() string
}

// ImageSource searches for and downloads stock images.
type ImageSource interface {
	Search(ctx context.Context, req SearchRequest) ([]ImageInfo, error)
	// Download fetches url into outputDir and returns the file path.
	Download(ctx context.Context, url, outputDir string) (string, error)
	Name() string
}

// MediaAssembler renders and combines media. Each operation writes req.Output and
// returns its path.
type MediaAssembler interface {
	AssembleSlideshow(ctx context.Context, req SlideshowRequest) (string, error)
	MuxAudioVideo(ctx context.Context, req MuxRequest) (string, error)
	BurnCaptions(ctx context.Context, req CaptionRequest) (string, error)
	// Placeholder renders a solid-colour video used when no images are available.
	Placeholder(ctx context.Context, req PlaceholderRequest) (string, error)
	ReplaceAudio(ctx context.Context, req ReplaceAudioRequest) (string, error)
	PictureInPicture(ctx context.Context, req PictureInPictureRequest) (string, error)
}

// Pinger is implemented by adapters that can verify their credentials cheaply.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CapabilitySet holds the candidate adapters for one job, each list in priority order.
// Empty lists mean the capability is not configured.
type CapabilitySet struct {
	Scripts []ScriptGenerator
	Voices  []VoiceSynthesizer
	Images  []ImageSource
}
