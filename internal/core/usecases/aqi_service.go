package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/data512/internal/core/domain"
	"github.com/samirrijal/data512/internal/core/ports"
	"github.com/samirrijal/data512/internal/pkg/metrics"
)

const aqsDateLayout = "2006-01-02"

// AQIConfig selects the county, pollutants, years and season to summarise.
type AQIConfig struct {
	State             string
	County            string
	GaseousParams     string
	ParticulateParams string
	StartYear         int    // inclusive
	EndYear           int    // exclusive
	SeasonStart       string // MM-DD, inclusive
	SeasonEnd         string // MM-DD, inclusive
	Concurrency       int
}

// AQIService builds a daily AQI series for one county from AQS daily summaries.
type AQIService struct {
	source ports.AirQualitySource
	cfg    AQIConfig
}

// NewAQIService creates a new AQIService.
func NewAQIService(source ports.AirQualitySource, cfg AQIConfig) *AQIService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.SeasonStart == "" {
		cfg.SeasonStart = "05-01"
	}
	if cfg.SeasonEnd == "" {
		cfg.SeasonEnd = "10-31"
	}
	return &AQIService{source: source, cfg: cfg}
}

// Run fetches every year from EndYear-1 down to StartYear and returns the
// consolidated days, most recent year first. Years without usable data are
// skipped.
func (s *AQIService) Run(ctx context.Context) ([]domain.DailyAQI, error) {
	if s.cfg.StartYear >= s.cfg.EndYear {
		return nil, fmt.Errorf("year range [%d, %d) is empty", s.cfg.StartYear, s.cfg.EndYear)
	}

	years := make([]int, 0, s.cfg.EndYear-s.cfg.StartYear)
	for y := s.cfg.EndYear - 1; y >= s.cfg.StartYear; y-- {
		years = append(years, y)
	}
	perYear := make([][]domain.DailyAQI, len(years))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, year := range years {
		g.Go(func() error {
			days, err := s.Year(gctx, year)
			if err != nil {
				return err
			}
			perYear[i] = days
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []domain.DailyAQI
	for _, days := range perYear {
		out = append(out, days...)
	}
	slog.Info("aqi series built", "years", len(years), "days", len(out))
	return out, nil
}

// Year fetches both pollutant classes for one year and consolidates them.
// Only cancellation of ctx is returned as an error.
func (s *AQIService) Year(ctx context.Context, year int) ([]domain.DailyAQI, error) {
	var obs []domain.AQSObservation
	for _, params := range []string{s.cfg.GaseousParams, s.cfg.ParticulateParams} {
		if params == "" {
			continue
		}
		resp, err := s.source.DailySummary(ctx, ports.DailySummaryQuery{
			Params:    params,
			BeginDate: fmt.Sprintf("%d0101", year),
			EndDate:   fmt.Sprintf("%d1231", year),
			State:     s.cfg.State,
			County:    s.cfg.County,
		})
		switch {
		case err == nil:
			obs = append(obs, resp.Data...)
			slog.Info("aqs pull succeeded", "year", year, "params", params, "rows", len(resp.Data))
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, domain.ErrNoData):
			slog.Info("aqs pull returned no data", "year", year, "params", params)
		default:
			metrics.RecordsFailed.WithLabelValues("aqi").Inc()
			slog.Warn("aqs pull failed", "year", year, "params", params, "error", err)
		}
	}

	days, err := Consolidate(obs, year, s.cfg.SeasonStart, s.cfg.SeasonEnd)
	if err != nil {
		slog.Warn("aqi consolidation failed", "year", year, "error", err)
		return nil, nil
	}
	if len(days) == 0 {
		slog.Info("no usable aqi for year", "year", year)
	}
	return days, nil
}

// Consolidate reduces daily summary rows to one AQI per day: rows outside the
// season or without an AQI are dropped, AQI is averaged per day and pollutant
// across monitors, and the day's value is the maximum over pollutants. Days
// are returned in date order.
func Consolidate(obs []domain.AQSObservation, year int, seasonStart, seasonEnd string) ([]domain.DailyAQI, error) {
	lo, err := time.Parse(aqsDateLayout, fmt.Sprintf("%04d-%s", year, seasonStart))
	if err != nil {
		return nil, fmt.Errorf("season start %q: %w", seasonStart, err)
	}
	hi, err := time.Parse(aqsDateLayout, fmt.Sprintf("%04d-%s", year, seasonEnd))
	if err != nil {
		return nil, fmt.Errorf("season end %q: %w", seasonEnd, err)
	}

	type key struct{ date, parameter string }
	type acc struct {
		sum float64
		n   int
	}
	means := make(map[key]*acc)
	for _, o := range obs {
		if o.AQI == nil {
			continue
		}
		d, err := time.Parse(aqsDateLayout, o.DateLocal)
		if err != nil {
			return nil, fmt.Errorf("date_local %q: %w", o.DateLocal, err)
		}
		if d.Before(lo) || d.After(hi) {
			continue
		}
		k := key{o.DateLocal, o.Parameter}
		a, ok := means[k]
		if !ok {
			a = &acc{}
			means[k] = a
		}
		a.sum += *o.AQI
		a.n++
	}

	daily := make(map[string]float64)
	for k, a := range means {
		mean := a.sum / float64(a.n)
		if cur, ok := daily[k.date]; !ok || mean > cur {
			daily[k.date] = mean
		}
	}

	out := make([]domain.DailyAQI, 0, len(daily))
	for date, aqi := range daily {
		out = append(out, domain.DailyAQI{Date: date, AQI: aqi, Year: year})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// AQIRows renders days as CSV records matching AQIHeader.
func AQIRows(days []domain.DailyAQI) [][]string {
	rows := make([][]string, len(days))
	for i, d := range days {
		rows[i] = []string{d.Date, strconv.FormatFloat(d.AQI, 'f', -1, 64), strconv.Itoa(d.Year)}
	}
	return rows
}

// AQIHeader is the header of the AQI CSV artifact.
var AQIHeader = []string{"date", "aqi", "year"}
