// Package googletts implements a voice synthesizer on the Google Cloud Text-to-Speech REST API.
package googletts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kiranshivaraju/shortforge/internal/capability"
	"github.com/kiranshivaraju/shortforge/internal/config"
	"github.com/kiranshivaraju/shortforge/pkg/models"
)

const providerName = "google-tts"

type Synthesizer struct {
	apiKey       string
	baseURL      string
	languageCode string
	client       *http.Client
	retry        capability.RetryPolicy
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

func NewSynthesizer(cfg config.GoogleTTSConfig, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		languageCode: cfg.LanguageCode,
		client:       http.DefaultClient,
		retry:        capability.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synthesizer) Name() string { return providerName }

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		SSMLGender   string `json:"ssmlGender"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (s *Synthesizer) Synthesize(ctx context.Context, text, outputDir string) (string, error) {
	audio, err := capability.Retry(ctx, s.retry, func(ctx context.Context) ([]byte, error) {
		return s.synthesize(ctx, text)
	})
	if err != nil {
		return "", err
	}
	return capability.WriteFile(outputDir, "voice", ".mp3", audio)
}

// Ping synthesizes a single word. The API has no cheaper authenticated endpoint for key-only access.
func (s *Synthesizer) Ping(ctx context.Context) error {
	_, err := s.synthesize(ctx, "Test")
	return err
}

func (s *Synthesizer) synthesize(ctx context.Context, text string) ([]byte, error) {
	var body synthesizeRequest
	body.Input.Text = text
	body.Voice.LanguageCode = s.languageCode
	body.Voice.SSMLGender = "NEUTRAL"
	body.AudioConfig.AudioEncoding = "MP3"

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	u := s.baseURL + "/v1/text:synthesize?key=" + url.QueryEscape(s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, capability.ClassifyTransport(capability.ErrSynthesisFailed, providerName, redactKey(err, s.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		pe := capability.ClassifyResponse(capability.ErrSynthesisFailed, providerName, resp)
		var env errorResponse
		if json.Unmarshal([]byte(pe.Message), &env) == nil && env.Error.Message != "" {
			pe.Message = env.Error.Message
			if env.Error.Status == "RESOURCE_EXHAUSTED" && strings.Contains(strings.ToLower(env.Error.Message), "quota") {
				pe.Reason = capability.ReasonQuota
			}
		}
		return nil, pe
	}

	var out synthesizeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<20)).Decode(&out); err != nil {
		return nil, capability.NewProviderError(capability.ErrSynthesisFailed, providerName,
			capability.ReasonInvalidResponse, "decode response", err)
	}
	audio, err := base64.StdEncoding.DecodeString(out.AudioContent)
	if err != nil {
		return nil, capability.NewProviderError(capability.ErrSynthesisFailed, providerName,
			capability.ReasonInvalidResponse, "decode audio content", err)
	}
	if len(audio) == 0 {
		return nil, capability.NewProviderError(capability.ErrSynthesisFailed, providerName,
			capability.ReasonInvalidResponse, "empty audio", nil)
	}
	return audio, nil
}

// redactKey keeps the API key, which travels in the query string, out of transport errors.
func redactKey(err error, key string) error {
	var ue *url.Error
	if key == "" || !errors.As(err, &ue) {
		return err
	}
	return &url.Error{Op: ue.Op, URL: strings.ReplaceAll(ue.URL, url.QueryEscape(key), "REDACTED"), Err: ue.Err}
}
