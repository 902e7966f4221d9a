// Package imagesearch combines several image sources behind one models.ImageSource.
package imagesearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kiranshivaraju/shortforge/internal/capability"
	"github.com/kiranshivaraju/shortforge/pkg/models"
)

// ResultCache holds recent composite search results. It is safe to share across
// composites, which are built per job.
type ResultCache struct {
	lru *lru.Cache[string, []models.ImageInfo]
}

// NewResultCache returns a cache holding at most size results.
func NewResultCache(size int) (*ResultCache, error) {
	c, err := lru.New[string, []models.ImageInfo](size)
	if err != nil {
		return nil, fmt.Errorf("create image search cache: %w", err)
	}
	return &ResultCache{lru: c}, nil
}

func (c *ResultCache) get(key string) ([]models.ImageInfo, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return append([]models.ImageInfo(nil), v...), true
}

func (c *ResultCache) add(key string, images []models.ImageInfo) {
	c.lru.Add(key, append([]models.ImageInfo(nil), images...))
}

// Len returns the number of cached results.
func (c *ResultCache) Len() int {
	return c.lru.Len()
}

// Composite queries its sources in priority order and deduplicates hits by URL.
type Composite struct {
	sources []models.ImageSource
	cache   *ResultCache
	logger  *slog.Logger

	mu     sync.Mutex
	origin map[string]models.ImageSource
}

var _ models.ImageSource = (*Composite)(nil)

type Option func(*Composite)

func WithCache(c *ResultCache) Option {
	return func(cs *Composite) { cs.cache = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(cs *Composite) { cs.logger = l }
}

func New(sources []models.ImageSource, opts ...Option) *Composite {
	c := &Composite{
		sources: sources,
		logger:  slog.Default(),
		origin:  make(map[string]models.ImageSource),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Composite) Name() string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return "composite(" + strings.Join(names, ",") + ")"
}

// Search returns up to req.Max deduplicated hits. A failing source is logged and skipped;
// an error is returned only when every source failed and nothing was found.
func (c *Composite) Search(ctx context.Context, req models.SearchRequest) ([]models.ImageInfo, error) {
	if len(c.sources) == 0 {
		return nil, capability.NewProviderError(capability.ErrNotConfigured, "composite",
			capability.ReasonAuth, "no image source configured", nil)
	}

	key := c.cacheKey(req)
	if c.cache != nil {
		if hits, ok := c.cache.get(key); ok {
			c.remember(hits, nil)
			return hits, nil
		}
	}

	var (
		out  []models.ImageInfo
		seen = make(map[string]bool)
		errs []error
	)
	for _, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sub := req
		if req.Max > 0 {
			sub.Max = req.Max - len(out)
		}
		hits, err := src.Search(ctx, sub)
		if err != nil {
			c.logger.Warn("image source failed", "source", src.Name(), "error", err)
			errs = append(errs, err)
			continue
		}

		var added []models.ImageInfo
		for _, h := range hits {
			if h.URL == "" || seen[h.URL] {
				continue
			}
			seen[h.URL] = true
			added = append(added, h)
			if req.Max > 0 && len(out)+len(added) >= req.Max {
				break
			}
		}
		c.remember(added, src)
		out = append(out, added...)
		if req.Max > 0 && len(out) >= req.Max {
			break
		}
	}

	if len(out) == 0 && len(errs) == len(c.sources) {
		return nil, errors.Join(errs...)
	}
	if c.cache != nil && len(out) > 0 {
		c.cache.add(key, out)
	}
	return out, nil
}

// Download uses the source that returned url, or each source in order when the url came
// from elsewhere (a cached result or a client selection).
func (c *Composite) Download(ctx context.Context, url, outputDir string) (string, error) {
	c.mu.Lock()
	src, ok := c.origin[url]
	c.mu.Unlock()
	if ok {
		return src.Download(ctx, url, outputDir)
	}

	if len(c.sources) == 0 {
		return "", capability.NewProviderError(capability.ErrNotConfigured, "composite",
			capability.ReasonAuth, "no image source configured", nil)
	}
	var errs []error
	for _, s := range c.sources {
		path, err := s.Download(ctx, url, outputDir)
		if err == nil {
			return path, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return "", errors.Join(errs...)
}

// remember records which source produced each hit. A nil src resolves by the hit's
// Source name.
func (c *Composite) remember(hits []models.ImageInfo, src models.ImageSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, h := range hits {
		s := src
		if s == nil {
			for _, candidate := range c.sources {
				if candidate.Name() == h.Source {
					s = candidate
					break
				}
			}
		}
		if s != nil {
			c.origin[h.URL] = s
		}
	}
}

func (c *Composite) cacheKey(req models.SearchRequest) string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return fmt.Sprintf("%s|%s|%s|%d|%d",
		strings.Join(names, ","), strings.Join(req.Keywords, ","), req.Topic, req.PerKeyword, req.Max)
}
