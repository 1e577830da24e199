package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/atomic"

	"github.com/samirrijal/data512/internal/core/domain"
	"github.com/samirrijal/data512/internal/core/ports"
	"github.com/samirrijal/data512/internal/pkg/geospatial"
	"github.com/samirrijal/data512/internal/pkg/metrics"
	"github.com/samirrijal/data512/internal/pkg/telemetry"
)

// ErrMissingYear is returned when a feature has no usable fire year attribute.
var ErrMissingYear = errors.New("fire year attribute missing or not an integer")

// WildfireConfig is the read-only configuration of the wildfire filter.
type WildfireConfig struct {
	Reference        domain.ReferencePoint
	MinYear          int // inclusive
	MaxYear          int // exclusive
	MaxDistanceMiles float64
	YearField        string
	NameFields       []string
	DistanceField    string
	Workers          int
	ProgressEvery    int
}

// WildfireReport summarises a filter run. Included keeps input order.
type WildfireReport struct {
	Total      int
	Included   []map[string]any
	Excluded   map[domain.ExclusionReason]int
	Perimeters *geojson.FeatureCollection
}

// Errors returns the number of features dropped because of an error.
func (r WildfireReport) Errors() int {
	return r.Excluded[domain.ReasonError]
}

// WildfireService filters wildfire perimeters by fire year and by distance to a reference point.
type WildfireService struct {
	cfg         WildfireConfig
	reprojector ports.BoundaryReprojector
}

// NewWildfireService creates a WildfireService. Boundaries are reprojected with reprojector.
func NewWildfireService(cfg WildfireConfig, reprojector ports.BoundaryReprojector) (*WildfireService, error) {
	ref := cfg.Reference.Point
	if math.IsNaN(ref.Lat) || math.IsNaN(ref.Lon) || ref.Lat < -90 || ref.Lat > 90 || ref.Lon < -180 || ref.Lon > 180 {
		return nil, fmt.Errorf("%w: (%v, %v)", geospatial.ErrInvalidReference, ref.Lat, ref.Lon)
	}
	if cfg.MinYear >= cfg.MaxYear {
		return nil, fmt.Errorf("year range [%d, %d) is empty", cfg.MinYear, cfg.MaxYear)
	}
	if cfg.MaxDistanceMiles < 0 || math.IsNaN(cfg.MaxDistanceMiles) {
		return nil, fmt.Errorf("distance threshold %v must not be negative", cfg.MaxDistanceMiles)
	}
	if reprojector == nil {
		return nil, errors.New("reprojector is required")
	}
	if cfg.YearField == "" {
		cfg.YearField = "fire_year"
	}
	if cfg.DistanceField == "" {
		cfg.DistanceField = "distance_to_reference_miles"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 10000
	}
	return &WildfireService{cfg: cfg, reprojector: reprojector}, nil
}

// FilterFeature decides whether one feature is kept. Failures, including
// panics, become an exclusion with ReasonError; they never propagate.
func (s *WildfireService) FilterFeature(f domain.Feature) (result domain.FilterResult) {
	name := s.featureName(f)
	defer func() {
		if r := recover(); r != nil {
			result = s.exclude(name, domain.ReasonError, fmt.Errorf("panic: %v", r))
		}
	}()

	ring, err := f.Geometry.FirstRing()
	if errors.Is(err, domain.ErrMissingBoundaryField) {
		return s.exclude(name, domain.ReasonMissingBoundary, err)
	}
	if err != nil {
		return s.exclude(name, domain.ReasonError, err)
	}

	year, err := s.fireYear(f)
	if err != nil {
		return s.exclude(name, domain.ReasonError, err)
	}
	if year < s.cfg.MinYear || year >= s.cfg.MaxYear {
		return s.exclude(name, domain.ReasonOutsideYearRange, nil)
	}

	boundary, err := s.reprojector.Reproject(ring)
	if err != nil {
		return s.exclude(name, domain.ReasonError, fmt.Errorf("reproject: %w", err))
	}
	proximity, err := geospatial.ShortestDistance(s.cfg.Reference.Point, boundary)
	if err != nil {
		return s.exclude(name, domain.ReasonError, fmt.Errorf("proximity: %w", err))
	}

	if proximity.DistanceMiles > s.cfg.MaxDistanceMiles {
		return s.exclude(name, domain.ReasonBeyondDistance, nil)
	}

	attrs := make(map[string]any, len(f.Attributes)+1)
	for k, v := range f.Attributes {
		attrs[k] = v
	}
	attrs[s.cfg.DistanceField] = proximity.DistanceMiles

	slog.Info("fire included", "fire", name, "year", year, "distance_miles", proximity.DistanceMiles)
	return domain.FilterResult{
		Feature:   &domain.Feature{Attributes: attrs, Geometry: f.Geometry},
		Boundary:  boundary,
		Proximity: proximity,
	}
}

func (s *WildfireService) exclude(name string, reason domain.ExclusionReason, err error) domain.FilterResult {
	switch reason {
	case domain.ReasonError:
		slog.Warn("fire excluded", "fire", name, "reason", reason, "error", err)
	default:
		slog.Debug("fire excluded", "fire", name, "reason", reason)
	}
	return domain.FilterResult{
		Exclusion: &domain.Exclusion{FeatureName: name, Reason: reason, Err: err},
	}
}

// Run filters every feature. Features are processed by up to cfg.Workers
// goroutines; results keep input order. Only cancellation of ctx fails the run.
func (s *WildfireService) Run(ctx context.Context, features []domain.Feature) (WildfireReport, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanWildfireRun)
	defer span.End()

	results := make([]domain.FilterResult, len(features))
	processed := atomic.NewInt64(0)

	err := forEach(ctx, len(features), s.cfg.Workers, func(_ context.Context, i int) {
		results[i] = s.FilterFeature(features[i])
		if n := processed.Inc(); n%int64(s.cfg.ProgressEvery) == 0 {
			slog.Info("wildfire filter progress", "processed", n, "total", len(features))
		}
	})
	if err != nil {
		return WildfireReport{}, err
	}

	report := WildfireReport{
		Total:      len(features),
		Excluded:   make(map[domain.ExclusionReason]int),
		Perimeters: geojson.NewFeatureCollection(),
	}
	for _, r := range results {
		if !r.Included() {
			report.Excluded[r.Exclusion.Reason]++
			metrics.FeatureOutcomes.WithLabelValues(string(r.Exclusion.Reason)).Inc()
			continue
		}
		metrics.FeatureOutcomes.WithLabelValues("included").Inc()
		report.Included = append(report.Included, r.Feature.Attributes)
		report.Perimeters.Append(perimeter(r))
	}

	span.SetAttributes(
		attribute.Int(telemetry.AttrFeatureCount, report.Total),
		attribute.Int(telemetry.AttrIncluded, len(report.Included)),
	)
	slog.Info("wildfire filter finished",
		"total", report.Total,
		"included", len(report.Included),
		"excluded", report.Total-len(report.Included)-report.Errors(),
		"errors", report.Errors(),
	)
	return report, nil
}

// perimeter converts an included result into a WGS84 GeoJSON polygon.
func perimeter(r domain.FilterResult) *geojson.Feature {
	ring := make(orb.Ring, 0, len(r.Boundary)+1)
	for _, p := range r.Boundary {
		ring = append(ring, orb.Point{p.Lon, p.Lat})
	}
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	f := geojson.NewFeature(orb.Polygon{ring})
	for k, v := range r.Feature.Attributes {
		f.Properties[k] = v
	}
	f.Properties["closest_point"] = []float64{r.Proximity.ClosestPoint.Lon, r.Proximity.ClosestPoint.Lat}
	return f
}

func (s *WildfireService) fireYear(f domain.Feature) (int, error) {
	v, ok := f.Attribute(s.cfg.YearField)
	if !ok || v == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingYear, s.cfg.YearField)
	}
	year, err := toInt(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%v", ErrMissingYear, s.cfg.YearField, v)
	}
	return year, nil
}

func (s *WildfireService) featureName(f domain.Feature) string {
	for _, field := range s.cfg.NameFields {
		if v, ok := f.Attribute(field); ok && v != nil {
			if name := strings.TrimSpace(fmt.Sprint(v)); name != "" {
				return name
			}
		}
	}
	if v, ok := f.Attribute("OBJECTID"); ok {
		return fmt.Sprintf("OBJECTID %v", v)
	}
	return "unnamed"
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		return wholeFloat(f)
	case float64:
		return wholeFloat(n)
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func wholeFloat(f float64) (int, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%v is not a whole number", f)
	}
	return int(f), nil
}
