// Package fetch downloads remote images into a job workspace. Image sources share one
// Downloader so retry and size policy are identical across vendors.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kiranshivaraju/shortforge/internal/capability"
)

const (
	// DefaultMinSize rejects error pages and truncated bodies served with a 200.
	DefaultMinSize = 1024
	DefaultMaxSize = 25 << 20
)

type Downloader struct {
	client  *http.Client
	retry   capability.RetryPolicy
	minSize int64
	maxSize int64
}

type Option func(*Downloader)

func WithHTTPClient(hc *http.Client) Option {
	return func(d *Downloader) { d.client = hc }
}

func WithRetryPolicy(p capability.RetryPolicy) Option {
	return func(d *Downloader) { d.retry = p }
}

// WithSizeLimits overrides the accepted body size range in bytes.
func WithSizeLimits(minSize, maxSize int64) Option {
	return func(d *Downloader) {
		d.minSize = minSize
		d.maxSize = maxSize
	}
}

func New(opts ...Option) *Downloader {
	d := &Downloader{
		client:  &http.Client{Timeout: 60 * time.Second},
		retry:   capability.DefaultRetryPolicy(),
		minSize: DefaultMinSize,
		maxSize: DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches rawURL into outputDir as image_<random>.jpg. provider names the image
// source in returned errors.
func (d *Downloader) Download(ctx context.Context, provider, rawURL, outputDir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", capability.NewProviderError(capability.ErrDownloadFailed, provider,
			capability.ReasonInvalidResponse, fmt.Sprintf("invalid image url %q", rawURL), err)
	}

	data, err := capability.Retry(ctx, d.retry, func(ctx context.Context) ([]byte, error) {
		return d.get(ctx, provider, u.String())
	})
	if err != nil {
		return "", err
	}
	return capability.WriteFile(outputDir, "image", ".jpg", data)
}

func (d *Downloader) get(ctx context.Context, provider, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, capability.ClassifyTransport(capability.ErrDownloadFailed, provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, capability.ClassifyResponse(capability.ErrDownloadFailed, provider, resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxSize+1))
	if err != nil {
		return nil, capability.ClassifyTransport(capability.ErrDownloadFailed, provider, err)
	}
	size := int64(len(data))
	if size > d.maxSize {
		return nil, capability.NewProviderError(capability.ErrDownloadFailed, provider,
			capability.ReasonInvalidResponse, fmt.Sprintf("image exceeds %d bytes", d.maxSize), nil)
	}
	if size < d.minSize {
		// Short bodies are usually a CDN hiccup; treat as transient so Retry tries again.
		return nil, capability.NewProviderError(capability.ErrDownloadFailed, provider,
			capability.ReasonUnavailable, fmt.Sprintf("image too small (%d bytes)", size), nil)
	}
	return data, nil
}
