package usecases

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/samirrijal/data512/internal/core/domain"
	"github.com/samirrijal/data512/internal/core/ports"
	"github.com/samirrijal/data512/internal/pkg/metrics"
)

// PageInfoStats counts the outcome of a page info batch.
type PageInfoStats struct {
	FetchStats
	NoRevision int
}

// PageInfoService resolves article titles to their latest revision.
type PageInfoService struct {
	source      ports.PageInfoSource
	concurrency int
}

// NewPageInfoService creates a new PageInfoService.
func NewPageInfoService(source ports.PageInfoSource, concurrency int) *PageInfoService {
	return &PageInfoService{source: source, concurrency: concurrency}
}

// Resolve looks up every title. Results keep input order; titles whose
// request failed or that have no revision are counted and left out.
func (s *PageInfoService) Resolve(ctx context.Context, titles []string) ([]domain.PageInfo, PageInfoStats, error) {
	infos := make([]*domain.PageInfo, len(titles))
	errs := make([]error, len(titles))

	err := forEach(ctx, len(titles), s.concurrency, func(ctx context.Context, i int) {
		infos[i], errs[i] = s.source.LatestRevision(ctx, titles[i])
	})
	if err != nil {
		return nil, PageInfoStats{}, err
	}

	stats := PageInfoStats{FetchStats: FetchStats{Requested: len(titles)}}
	out := make([]domain.PageInfo, 0, len(titles))
	for i, info := range infos {
		switch {
		case errs[i] == nil && info != nil:
			out = append(out, *info)
		case errors.Is(errs[i], domain.ErrNoRevision):
			stats.NoRevision++
			slog.Info("no revision id available", "title", titles[i])
		default:
			stats.Failed++
			slog.Warn("page info request failed", "title", titles[i], "error", errs[i])
		}
	}
	stats.Succeeded = len(out)

	metrics.RecordsFailed.WithLabelValues("pageinfo").Add(float64(stats.Failed))
	slog.Info("page info resolved",
		"titles", stats.Requested,
		"resolved", stats.Succeeded,
		"failed", stats.Failed,
		"no_revision", stats.NoRevision,
	)
	return out, stats, nil
}

// PageInfoHeader is the header of the revision id CSV artifact.
var PageInfoHeader = []string{"article_title", "revision_id"}

// PageInfoRows renders infos as CSV records matching PageInfoHeader.
func PageInfoRows(infos []domain.PageInfo) [][]string {
	rows := make([][]string, len(infos))
	for i, p := range infos {
		rows[i] = []string{p.Title, strconv.FormatInt(p.RevisionID, 10)}
	}
	return rows
}
