package ports

import (
	"context"

	"github.com/samirrijal/data512/internal/core/domain"
)

// DailySummaryQuery selects AQS daily summaries for one county and one calendar year.
type DailySummaryQuery struct {
	Params    string // comma separated parameter codes, at most 5
	BeginDate string // YYYYMMDD
	EndDate   string // YYYYMMDD, same year as BeginDate
	State     string
	County    string
}

// AirQualitySource fetches daily air-quality summaries.
type AirQualitySource interface {
	DailySummary(ctx context.Context, q DailySummaryQuery) (*domain.AQSResponse, error)
}

// PageviewSource fetches monthly per-article pageviews for one access type.
type PageviewSource interface {
	ArticlePageviews(ctx context.Context, title, access string) ([]domain.PageviewItem, error)
}

// PageInfoSource resolves an article title to its latest revision.
type PageInfoSource interface {
	LatestRevision(ctx context.Context, title string) (*domain.PageInfo, error)
}

// QualitySource scores a revision with an article-quality model.
type QualitySource interface {
	ArticleQuality(ctx context.Context, revisionID int64) (*domain.QualityScore, error)
}
