package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kiranshivaraju/shortforge/internal/capability"
	"github.com/kiranshivaraju/shortforge/internal/config"
	"github.com/kiranshivaraju/shortforge/pkg/models"
)

const providerName = "elevenlabs"

// Synthesizer implements models.VoiceSynthesizer using the ElevenLabs text-to-speech API.
type Synthesizer struct {
	apiKey  string
	baseURL string
	voiceID string
	model   string
	client  *http.Client
	retry   capability.RetryPolicy
}

var _ models.VoiceSynthesizer = (*Synthesizer)(nil)
var _ models.Pinger = (*Synthesizer)(nil)

type Option func(*Synthesizer)

func WithHTTPClient(hc *http.Client) Option {
	return func(s *Synthesizer) { s.client = hc }
}

func WithRetryPolicy(p capability.RetryPolicy) Option {
	return func(s *Synthesizer) { s.retry = p }
}

func NewSynthesizer(cfg config.ElevenLabsConfig, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		voiceID: cfg.VoiceID,
		model:   cfg.Model,
		client:  http.DefaultClient,
		retry:   capability.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synthesizer) Name() string { return providerName }

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// errorResponse is the ElevenLabs error envelope.
type errorResponse struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

func (s *Synthesizer) Synthesize(ctx context.Context, text, outputDir string) (string, error) {
	payload, err := json.Marshal(ttsRequest{
		Text:          text,
		ModelID:       s.model,
		VoiceSettings: voiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	audio, err := capability.Retry(ctx, s.retry, func(ctx context.Context) ([]byte, error) {
		u := fmt.Sprintf("%s/v1/text-to-speech/%s", s.baseURL, url.PathEscape(s.voiceID))
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		s.setHeaders(req)
		req.Header.Set("Accept", "audio/mpeg")
		req.Header.Set("Content-Type", "application/json")
		return s.do(req)
	})
	if err != nil {
		return "", err
	}
	if len(audio) == 0 {
		return "", capability.NewProviderError(capability.ErrSynthesisFailed, providerName,
			capability.ReasonInvalidResponse, "empty audio", nil)
	}
	return capability.WriteFile(outputDir, "voice", ".mp3", audio)
}

// Ping lists voices, which verifies the key without consuming character quota.
func (s *Synthesizer) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/voices", nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	s.setHeaders(req)
	_, err = s.do(req)
	return err
}

func (s *Synthesizer) setHeaders(req *http.Request) {
	req.Header.Set("xi-api-key", s.apiKey)
}

func (s *Synthesizer) do(req *http.Request) ([]byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, capability.ClassifyTransport(capability.ErrSynthesisFailed, providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, capability.ClassifyTransport(capability.ErrSynthesisFailed, providerName, err)
	}
	return data, nil
}

// classifyError reads the detail envelope so quota exhaustion surfaces as its own reason.
func classifyError(resp *http.Response) error {
	pe := capability.ClassifyResponse(capability.ErrSynthesisFailed, providerName, resp)

	var env errorResponse
	if json.Unmarshal([]byte(pe.Message), &env) == nil {
		switch {
		case env.Detail.Status == "quota_exceeded":
			pe.Reason = capability.ReasonQuota
		case env.Detail.Status == "detected_unusual_activity" || env.Detail.Status == "invalid_api_key":
			pe.Reason = capability.ReasonAuth
		}
		if env.Detail.Message != "" {
			pe.Message = env.Detail.Status + ": " + env.Detail.Message
		} else if env.Detail.Status != "" {
			pe.Message = env.Detail.Status
		}
	}
	return pe
}
