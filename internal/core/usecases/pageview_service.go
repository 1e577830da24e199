package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"go.uber.org/atomic"

	"github.com/samirrijal/data512/internal/core/domain"
	"github.com/samirrijal/data512/internal/core/ports"
	"github.com/samirrijal/data512/internal/pkg/metrics"
)

// FetchStats counts the outcome of a batch of per-item requests.
type FetchStats struct {
	Requested int
	Succeeded int
	Failed    int
}

// PageviewService fetches pageviews for a list of articles.
type PageviewService struct {
	source      ports.PageviewSource
	concurrency int
}

// NewPageviewService creates a new PageviewService.
func NewPageviewService(source ports.PageviewSource, concurrency int) *PageviewService {
	return &PageviewService{source: source, concurrency: concurrency}
}

// Fetch requests pageviews for every title, then retries the failed titles
// once. Titles that fail twice are left out of the result and counted.
func (s *PageviewService) Fetch(ctx context.Context, titles []string, access string) (domain.PageviewSet, FetchStats, error) {
	out := make(domain.PageviewSet, len(titles))
	stats := FetchStats{Requested: len(titles)}

	failed, err := s.pass(ctx, titles, access, out)
	if err != nil {
		return nil, stats, err
	}
	if len(failed) > 0 {
		slog.Info("retrying failed pageview requests", "access", access, "count", len(failed))
		if failed, err = s.pass(ctx, failed, access, out); err != nil {
			return nil, stats, err
		}
	}

	stats.Failed = len(failed)
	stats.Succeeded = stats.Requested - stats.Failed
	metrics.RecordsFailed.WithLabelValues("pageviews").Add(float64(stats.Failed))
	slog.Info("pageviews fetched", "access", access, "articles", len(out), "failed", stats.Failed)
	return out, stats, nil
}

// pass fetches titles into out and returns the titles that failed, in input order.
func (s *PageviewService) pass(ctx context.Context, titles []string, access string, out domain.PageviewSet) ([]string, error) {
	items := make([][]domain.PageviewItem, len(titles))
	ok := make([]bool, len(titles))
	done := atomic.NewInt64(0)

	err := forEach(ctx, len(titles), s.concurrency, func(ctx context.Context, i int) {
		res, err := s.source.ArticlePageviews(ctx, titles[i], access)
		if err != nil {
			slog.Warn("pageview request failed", "title", titles[i], "access", access, "error", err)
			return
		}
		items[i], ok[i] = res, true
		if n := done.Inc(); n%100 == 0 {
			slog.Info("pageview requests progress", "succeeded", n, "total", len(titles))
		}
	})
	if err != nil {
		return nil, err
	}

	var failed []string
	for i, title := range titles {
		if ok[i] {
			out[title] = items[i]
		} else {
			failed = append(failed, title)
		}
	}
	return failed, nil
}

// PageviewsPath is where the pageview artifact for one access type is stored.
func PageviewsPath(dataDir, prefix, access, start, end string) string {
	return filepath.Join(dataDir, fmt.Sprintf("%s_monthly_%s_%s-%s.json", prefix, access, start, end))
}

// MergePageviews combines two pageview sets of different access types. For
// every title of first, the items of both sets are summed per timestamp;
// project, granularity and agent come from the first item seen for that
// timestamp, and timestamps keep first-seen order. Titles only present in
// second are not included.
func MergePageviews(first, second domain.PageviewSet) domain.PageviewSet {
	out := make(domain.PageviewSet, len(first))
	for title, items := range first {
		var (
			merged []domain.PageviewItem
			index  = make(map[string]int)
		)
		for _, list := range [][]domain.PageviewItem{items, second[title]} {
			for _, item := range list {
				if i, ok := index[item.Timestamp]; ok {
					merged[i].Views += item.Views
					continue
				}
				index[item.Timestamp] = len(merged)
				merged = append(merged, domain.PageviewItem{
					Project:     item.Project,
					Article:     title,
					Granularity: item.Granularity,
					Timestamp:   item.Timestamp,
					Agent:       item.Agent,
					Views:       item.Views,
				})
			}
		}
		if merged == nil {
			merged = []domain.PageviewItem{}
		}
		out[title] = merged
	}
	return out
}
