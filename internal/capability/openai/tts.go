package openai

import (
	"context"

	"github.com/kiranshivaraju/shortforge/internal/capability"
	"github.com/kiranshivaraju/shortforge/internal/config"
	"github.com/kiranshivaraju/shortforge/pkg/models"
)

// Synthesizer implements models.VoiceSynthesizer with the audio speech endpoint.
type Synthesizer struct {
	client
	model string
	voice string
}

var _ models.VoiceSynthesizer = (*Synthesizer)(nil)
var _ models.Pinger = (*Synthesizer)(nil)

func NewSynthesizer(cfg config.OpenAIConfig, opts ...Option) *Synthesizer {
	return &Synthesizer{client: newClient(cfg, opts), model: cfg.TTSModel, voice: cfg.TTSVoice}
}

func (s *Synthesizer) Name() string { return "openai-tts" }

func (s *Synthesizer) Ping(ctx context.Context) error {
	return s.ping(ctx, capability.ErrSynthesisFailed)
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

func (s *Synthesizer) Synthesize(ctx context.Context, text, outputDir string) (string, error) {
	req := speechRequest{Model: s.model, Input: text, Voice: s.voice, ResponseFormat: "mp3"}

	audio, err := capability.Retry(ctx, s.retry, func(ctx context.Context) ([]byte, error) {
		return s.post(ctx, capability.ErrSynthesisFailed, "/v1/audio/speech", req)
	})
	if err != nil {
		return "", err
	}
	if len(audio) == 0 {
		return "", capability.NewProviderError(capability.ErrSynthesisFailed, s.Name(),
			capability.ReasonInvalidResponse, "empty audio", nil)
	}
	return capability.WriteFile(outputDir, "voice", ".mp3", audio)
}
