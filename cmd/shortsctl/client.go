package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// apiError is the error envelope returned by the server.
type apiError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// client talks to the ShortForge HTTP API.
type client struct {
	baseURL  string
	adminKey string
	http     *http.Client
}

func newClient(baseURL, adminKey string) *client {
	return &client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		adminKey: adminKey,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// do sends a JSON request and decodes the data field of the response envelope into out.
func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.adminKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.adminKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env struct {
		Data  json.RawMessage `json:"data"`
		Error *apiError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if env.Error != nil {
		env.Error.Status = resp.StatusCode
		return env.Error
	}
	if resp.StatusCode >= 300 {
		return &apiError{Status: resp.StatusCode, Code: "HTTP_ERROR", Message: resp.Status}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

type createResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

// jobStatus is the subset of the status view the CLI acts on; the full view is printed
// as received.
type jobStatus struct {
	JobID    string  `json:"job_id"`
	Status   string  `json:"status"`
	Progress string  `json:"progress"`
	Error    *string `json:"error"`
}

func (s jobStatus) terminal() bool {
	return s.Status == "completed" || s.Status == "error"
}

func (c *client) createJob(ctx context.Context, topic string, duration int, mode string) (createResponse, error) {
	body := map[string]any{"topic": topic}
	if duration > 0 {
		body["duration"] = duration
	}
	if mode != "" {
		body["mode"] = mode
	}
	var out createResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/jobs", body, &out)
	return out, err
}

func (c *client) status(ctx context.Context, id string) (jobStatus, json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+id, nil, &raw); err != nil {
		return jobStatus{}, nil, err
	}
	var s jobStatus
	if err := json.Unmarshal(raw, &s); err != nil {
		return jobStatus{}, nil, err
	}
	return s, raw, nil
}

// wait polls the job until it reaches a terminal status. onProgress is called whenever
// the status or progress text changes.
func (c *client) wait(ctx context.Context, id string, interval time.Duration, onProgress func(jobStatus)) (jobStatus, json.RawMessage, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last jobStatus
	for {
		s, raw, err := c.status(ctx, id)
		if err != nil {
			return s, nil, err
		}
		if onProgress != nil && (s.Status != last.Status || s.Progress != last.Progress) {
			onProgress(s)
		}
		last = s
		if s.terminal() {
			return s, raw, nil
		}

		select {
		case <-ctx.Done():
			return s, raw, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *client) capabilities(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.do(ctx, http.MethodGet, "/api/v1/capabilities", nil, &raw)
	return raw, err
}
