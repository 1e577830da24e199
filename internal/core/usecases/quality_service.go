package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/samirrijal/data512/internal/core/domain"
	"github.com/samirrijal/data512/internal/core/ports"
	"github.com/samirrijal/data512/internal/pkg/metrics"
)

// QualityService scores revisions with an article quality model.
type QualityService struct {
	source      ports.QualitySource
	concurrency int
}

// NewQualityService creates a new QualityService.
func NewQualityService(source ports.QualitySource, concurrency int) *QualityService {
	return &QualityService{source: source, concurrency: concurrency}
}

// Score predicts the quality of every revision. Results keep input order;
// failed requests are counted and left out.
func (s *QualityService) Score(ctx context.Context, revisionIDs []int64) ([]domain.QualityScore, FetchStats, error) {
	scores := make([]*domain.QualityScore, len(revisionIDs))

	err := forEach(ctx, len(revisionIDs), s.concurrency, func(ctx context.Context, i int) {
		score, err := s.source.ArticleQuality(ctx, revisionIDs[i])
		if err != nil {
			slog.Warn("quality request failed", "revision_id", revisionIDs[i], "error", err)
			return
		}
		scores[i] = score
	})
	if err != nil {
		return nil, FetchStats{}, err
	}

	stats := FetchStats{Requested: len(revisionIDs)}
	out := make([]domain.QualityScore, 0, len(revisionIDs))
	for _, score := range scores {
		if score != nil {
			out = append(out, *score)
		}
	}
	stats.Succeeded = len(out)
	stats.Failed = stats.Requested - stats.Succeeded

	metrics.RecordsFailed.WithLabelValues("ores").Add(float64(stats.Failed))
	slog.Info("revisions scored", "revisions", stats.Requested, "failed", stats.Failed)
	return out, stats, nil
}

// ParseRevisionIDs converts CSV values to revision ids. Values written as
// whole floats ("1234.0") are accepted.
func ParseRevisionIDs(values []string) ([]int64, error) {
	ids := make([]int64, 0, len(values))
	for i, v := range values {
		v = strings.TrimSpace(v)
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(v, 64)
			if ferr != nil || f != math.Trunc(f) || f > math.MaxInt64 {
				return nil, fmt.Errorf("row %d: invalid revision id %q", i+1, v)
			}
			id = int64(f)
		}
		if id <= 0 {
			return nil, fmt.Errorf("row %d: invalid revision id %q", i+1, v)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// QualityHeader is the header of the quality CSV artifact.
var QualityHeader = []string{"revision_id", "article_quality"}

// QualityRows renders scores as CSV records matching QualityHeader.
func QualityRows(scores []domain.QualityScore) [][]string {
	rows := make([][]string, len(scores))
	for i, s := range scores {
		rows[i] = []string{strconv.FormatInt(s.RevisionID, 10), s.Prediction}
	}
	return rows
}
