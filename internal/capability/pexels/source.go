// Package pexels implements an image source on the Pexels search API.
package pexels

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kiranshivaraju/shortforge/internal/capability"
	"github.com/kiranshivaraju/shortforge/internal/capability/fetch"
	"github.com/kiranshivaraju/shortforge/internal/config"
	"github.com/kiranshivaraju/shortforge/pkg/models"
)

const providerName = "pexels"

type Source struct {
	apiKey     string
	baseURL    string
	client     *http.Client
	retry      capability.RetryPolicy
	downloader *fetch.Downloader
}

var _ models.ImageSource = (*Source)(nil)
var _ models.Pinger = (*Source)(nil)

type Option func(*Source)

func WithHTTPClient(hc *http.Client) Option {
	return func(s *Source) { s.client = hc }
}

func WithRetryPolicy(p capability.RetryPolicy) Option {
	return func(s *Source) { s.retry = p }
}

func WithDownloader(d *fetch.Downloader) Option {
	return func(s *Source) { s.downloader = d }
}

func New(cfg config.PexelsConfig, opts ...Option) *Source {
	s := &Source{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  http.DefaultClient,
		retry:   capability.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.downloader == nil {
		s.downloader = fetch.New(fetch.WithRetryPolicy(s.retry))
	}
	return s
}

func (s *Source) Name() string { return providerName }

type searchResponse struct {
	Photos []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		URL          string `json:"url"`
		Photographer string `json:"photographer"`
		Src          struct {
			Large  string `json:"large"`
			Medium string `json:"medium"`
		} `json:"src"`
	} `json:"photos"`
}

func (s *Source) Search(ctx context.Context, req models.SearchRequest) ([]models.ImageInfo, error) {
	return capability.SearchKeywords(ctx, req, func(ctx context.Context, query string, count int) ([]models.ImageInfo, error) {
		return capability.Retry(ctx, s.retry, func(ctx context.Context) ([]models.ImageInfo, error) {
			return s.search(ctx, query, count)
		})
	})
}

func (s *Source) Download(ctx context.Context, rawURL, outputDir string) (string, error) {
	return s.downloader.Download(ctx, providerName, rawURL, outputDir)
}

func (s *Source) Ping(ctx context.Context) error {
	_, err := s.search(ctx, "nature", 1)
	return err
}

func (s *Source) search(ctx context.Context, query string, count int) ([]models.ImageInfo, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(count))
	params.Set("orientation", "portrait")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, capability.ClassifyTransport(capability.ErrSearchFailed, providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, capability.ClassifyResponse(capability.ErrSearchFailed, providerName, resp)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, capability.NewProviderError(capability.ErrSearchFailed, providerName,
			capability.ReasonInvalidResponse, "decode response", err)
	}

	images := make([]models.ImageInfo, 0, len(out.Photos))
	for _, p := range out.Photos {
		if p.Src.Large == "" {
			continue
		}
		images = append(images, models.ImageInfo{
			URL:          p.Src.Large,
			ThumbnailURL: p.Src.Medium,
			Source:       providerName,
			Author:       p.Photographer,
			SourceURL:    p.URL,
			Width:        p.Width,
			Height:       p.Height,
		})
	}
	return images, nil
}
