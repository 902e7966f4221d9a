package capability

import (
	"context"
	"strings"

	"github.com/kiranshivaraju/shortforge/pkg/models"
)

// DefaultPerKeyword is the number of hits requested per keyword when a request leaves it unset.
const DefaultPerKeyword = 2

// QueryFunc runs one vendor search for query, asking for at most count hits.
type QueryFunc func(ctx context.Context, query string, count int) ([]models.ImageInfo, error)

// SearchKeywords runs query once per keyword (the topic when there are none), dedups hits
// by URL and stops at req.Max. A failing keyword is skipped; its error is returned only
// when nothing was found. Auth and quota failures abort at once since every later
// keyword would fail the same way.
func SearchKeywords(ctx context.Context, req models.SearchRequest, query QueryFunc) ([]models.ImageInfo, error) {
	perKeyword := req.PerKeyword
	if perKeyword <= 0 {
		perKeyword = DefaultPerKeyword
	}

	queries := make([]string, 0, len(req.Keywords))
	for _, k := range req.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			queries = append(queries, k)
		}
	}
	if len(queries) == 0 && strings.TrimSpace(req.Topic) != "" {
		queries = append(queries, strings.TrimSpace(req.Topic))
	}

	var (
		out      []models.ImageInfo
		seen     = make(map[string]bool)
		firstErr error
	)
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		hits, err := query(ctx, q, perKeyword)
		if err != nil {
			switch ReasonOf(err) {
			case ReasonAuth, ReasonQuota, ReasonCanceled:
				return nil, err
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, h := range hits {
			if h.URL == "" || seen[h.URL] {
				continue
			}
			seen[h.URL] = true
			out = append(out, h)
			if req.Max > 0 && len(out) >= req.Max {
				return out, nil
			}
		}
	}
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
