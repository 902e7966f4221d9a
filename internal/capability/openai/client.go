// Package openai implements the script generator (chat completions in JSON mode) and a
// speech synthesizer on the OpenAI HTTP API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/shortforge/internal/capability"
	"github.com/kiranshivaraju/shortforge/internal/config"
)

const providerName = "openai"

// Option configures a client.
type Option func(*client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.http = hc }
}

// WithRetryPolicy replaces the default retry policy for transient failures.
func WithRetryPolicy(p capability.RetryPolicy) Option {
	return func(c *client) { c.retry = p }
}

type client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	retry   capability.RetryPolicy
}

func newClient(cfg config.OpenAIConfig, opts []Option) client {
	c := client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    http.DefaultClient,
		retry:   capability.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c *client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

// post sends body as JSON and returns the raw response body of a 2xx reply.
func (c *client) post(ctx context.Context, kind error, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, kind, http.MethodPost, path, payload)
}

func (c *client) do(ctx context.Context, kind error, method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, capability.ClassifyTransport(kind, providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		pe := capability.ClassifyResponse(kind, providerName, resp)
		if pe.StatusCode == http.StatusTooManyRequests && strings.Contains(pe.Message, "insufficient_quota") {
			pe.Reason = capability.ReasonQuota
		}
		return nil, pe
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, capability.ClassifyTransport(kind, providerName, err)
	}
	return data, nil
}

// ping lists models, which succeeds for any valid key without spending tokens.
func (c *client) ping(ctx context.Context, kind error) error {
	if c.apiKey == "" {
		return capability.NewProviderError(capability.ErrNotConfigured, providerName, capability.ReasonAuth, "api key not set", nil)
	}
	_, err := c.do(ctx, kind, http.MethodGet, "/v1/models", nil)
	return err
}
