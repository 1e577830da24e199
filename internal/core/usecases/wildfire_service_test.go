package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/data512/internal/core/domain"
	"github.com/samirrijal/data512/internal/core/usecases"
	"github.com/samirrijal/data512/internal/pkg/geospatial"
)

var dearborn = domain.ReferencePoint{Name: "Dearborn, MI", Point: domain.GeoPoint{Lat: 42.322262, Lon: -83.176315}}

func newReprojector(t *testing.T) *geospatial.Reprojector {
	t.Helper()
	r, err := geospatial.NewReprojector(geospatial.NorthAmericaAlbers)
	require.NoError(t, err)
	return r
}

func newWildfireService(t *testing.T, mutate func(*usecases.WildfireConfig)) *usecases.WildfireService {
	t.Helper()
	cfg := usecases.WildfireConfig{
		Reference:        dearborn,
		MinYear:          1961,
		MaxYear:          2022,
		MaxDistanceMiles: 1800,
		YearField:        "fire_year",
		NameFields:       []string{"name", "Listed_Fire_Names"},
		DistanceField:    "distance_to_reference_miles",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := usecases.NewWildfireService(cfg, newReprojector(t))
	require.NoError(t, err)
	return svc
}

// squareAround returns a projected ring of a small square centred on lat/lon.
func squareAround(t *testing.T, lat, lon float64) orb.Ring {
	t.Helper()
	r := newReprojector(t)
	var ring orb.Ring
	for _, d := range [][2]float64{{-0.05, -0.05}, {-0.05, 0.05}, {0.05, 0.05}, {0.05, -0.05}, {-0.05, -0.05}} {
		p, err := r.Project(domain.GeoPoint{Lat: lat + d[0], Lon: lon + d[1]})
		require.NoError(t, err)
		ring = append(ring, p)
	}
	return ring
}

func fire(name string, year any, ring orb.Ring) domain.Feature {
	return domain.Feature{
		Attributes: map[string]any{"Listed_Fire_Names": name, "Fire_Year": year},
		Geometry:   &domain.Geometry{Rings: []orb.Ring{ring}},
	}
}

func TestWildfireService_FilterFeature_Included(t *testing.T) {
	svc := newWildfireService(t, nil)

	// central Ohio, well within range
	f := fire("Columbus Fire", json.Number("2015"), squareAround(t, 40.0, -83.0))
	res := svc.FilterFeature(f)

	require.True(t, res.Included(), "exclusion: %+v", res.Exclusion)
	assert.Nil(t, res.Exclusion)
	assert.Len(t, res.Boundary, 5)

	d, ok := res.Feature.Attributes["distance_to_reference_miles"].(float64)
	require.True(t, ok)
	assert.InDelta(t, 157, d, 5)
	assert.Equal(t, d, res.Proximity.DistanceMiles)

	// the input is not annotated in place
	_, annotated := f.Attributes["distance_to_reference_miles"]
	assert.False(t, annotated)
}

func TestWildfireService_FilterFeature_YearBounds(t *testing.T) {
	svc := newWildfireService(t, nil)
	ring := squareAround(t, 40.0, -83.0)

	tests := []struct {
		year any
		want bool
	}{
		{json.Number("1960"), false},
		{json.Number("1961"), true},
		{2021.0, true},
		{json.Number("2022"), false},
		{"1990", true},
	}
	for _, tt := range tests {
		res := svc.FilterFeature(fire("Fire", tt.year, ring))
		assert.Equal(t, tt.want, res.Included(), "year %v", tt.year)
		if !tt.want {
			require.NotNil(t, res.Exclusion)
			assert.Equal(t, domain.ReasonOutsideYearRange, res.Exclusion.Reason)
		}
	}
}

func TestWildfireService_FilterFeature_ThresholdBoundary(t *testing.T) {
	ring := squareAround(t, 45.0, -100.0)

	boundary, err := newReprojector(t).Reproject(ring)
	require.NoError(t, err)
	prox, err := geospatial.ShortestDistance(dearborn.Point, boundary)
	require.NoError(t, err)

	atThreshold := newWildfireService(t, func(c *usecases.WildfireConfig) { c.MaxDistanceMiles = prox.DistanceMiles })
	res := atThreshold.FilterFeature(fire("Edge Fire", json.Number("2000"), ring))
	assert.True(t, res.Included(), "distance equal to the threshold is included")

	below := newWildfireService(t, func(c *usecases.WildfireConfig) {
		c.MaxDistanceMiles = math.Nextafter(prox.DistanceMiles, 0)
	})
	res = below.FilterFeature(fire("Edge Fire", json.Number("2000"), ring))
	require.False(t, res.Included())
	assert.Equal(t, domain.ReasonBeyondDistance, res.Exclusion.Reason)
}

func TestWildfireService_FilterFeature_Distant(t *testing.T) {
	svc := newWildfireService(t, nil)

	// Anchorage, AK is about 3000 miles away
	res := svc.FilterFeature(fire("Far Fire", json.Number("2010"), squareAround(t, 61.2, -149.9)))
	require.False(t, res.Included())
	assert.Equal(t, domain.ReasonBeyondDistance, res.Exclusion.Reason)
	assert.Equal(t, "Far Fire", res.Exclusion.FeatureName)
}

func TestWildfireService_FilterFeature_CurveRings(t *testing.T) {
	svc := newWildfireService(t, nil)

	raw := []byte(`{"attributes":{"name":"Curvy","Fire_Year":2001},"geometry":{"curveRings":[[[0,0],{"c":[[10000,0],[5000,5000]]},[0,0]]]}}`)
	var f domain.Feature
	require.NoError(t, json.Unmarshal(raw, &f))

	res := svc.FilterFeature(f)
	require.True(t, res.Included())
	assert.Len(t, res.Boundary, 3)
}

func TestWildfireService_FilterFeature_MissingBoundary(t *testing.T) {
	svc := newWildfireService(t, nil)

	for _, geom := range []*domain.Geometry{nil, {}} {
		f := domain.Feature{Attributes: map[string]any{"name": "No Ring", "fire_year": 2000}, Geometry: geom}
		res := svc.FilterFeature(f)
		require.False(t, res.Included())
		assert.Equal(t, domain.ReasonMissingBoundary, res.Exclusion.Reason)
		assert.Equal(t, "No Ring", res.Exclusion.FeatureName)
	}
}

func TestWildfireService_FilterFeature_Errors(t *testing.T) {
	svc := newWildfireService(t, nil)
	good := squareAround(t, 40.0, -83.0)

	tests := map[string]domain.Feature{
		"empty rings": {
			Attributes: map[string]any{"fire_year": 2000},
			Geometry:   &domain.Geometry{Rings: []orb.Ring{}},
		},
		"empty first ring": fire("Empty", 2000, orb.Ring{}),
		"no year": {
			Attributes: map[string]any{"name": "Yearless"},
			Geometry:   &domain.Geometry{Rings: []orb.Ring{good}},
		},
		"fractional year":  fire("Odd", 2000.5, good),
		"non-finite point": fire("Broken", 2000, orb.Ring{{math.NaN(), 0}}),
		"beyond the pole":  fire("Broken", 2000, orb.Ring{{0, 1e9}}),
	}
	for name, f := range tests {
		t.Run(name, func(t *testing.T) {
			res := svc.FilterFeature(f)
			require.False(t, res.Included())
			assert.Equal(t, domain.ReasonError, res.Exclusion.Reason)
			assert.Error(t, res.Exclusion.Err)
		})
	}

	res := svc.FilterFeature(fire("Broken", 2000, orb.Ring{{math.Inf(1), 0}}))
	assert.True(t, errors.Is(res.Exclusion.Err, geospatial.ErrInvalidCoordinate))

	res = svc.FilterFeature(tests["no year"])
	assert.True(t, errors.Is(res.Exclusion.Err, usecases.ErrMissingYear))
}

func TestWildfireService_Run_MalformedGeometryIsIsolated(t *testing.T) {
	good, err := json.Marshal(fire("Columbus Fire", 2015, squareAround(t, 40.0, -83.0)))
	require.NoError(t, err)

	raw := `{"features":[` + string(good) + `,
		{"attributes":{"name":"Short","Fire_Year":2015},"geometry":{"rings":[[[950000],[960000,255000]]]}},
		{"attributes":{"name":"Null","Fire_Year":2015},"geometry":{"rings":[[[null,250000],[1,2]]]}},
		{"attributes":{"name":"Text","Fire_Year":2015},"geometry":{"rings":[[["x",250000],[1,2]]]}},
		{"attributes":{"name":"Scalar","Fire_Year":2015},"geometry":5}
	]}`
	var fc domain.FeatureCollection
	require.NoError(t, json.Unmarshal([]byte(raw), &fc))
	require.Len(t, fc.Features, 5)

	svc := newWildfireService(t, nil)
	report, err := svc.Run(context.Background(), fc.Features)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Total)
	require.Len(t, report.Included, 1)
	assert.Equal(t, "Columbus Fire", report.Included[0]["Listed_Fire_Names"])
	assert.Equal(t, 4, report.Errors())

	for _, f := range fc.Features[1:] {
		res := svc.FilterFeature(f)
		require.False(t, res.Included())
		assert.Equal(t, domain.ReasonError, res.Exclusion.Reason)
		assert.ErrorIs(t, res.Exclusion.Err, domain.ErrMalformedGeometry)
	}
}

func TestWildfireService_FilterFeature_Deterministic(t *testing.T) {
	svc := newWildfireService(t, nil)
	f := fire("Repeat", json.Number("1999"), squareAround(t, 38.6, -90.2))

	a := svc.FilterFeature(f)
	b := svc.FilterFeature(f)
	require.True(t, a.Included())
	assert.Equal(t, math.Float64bits(a.Proximity.DistanceMiles), math.Float64bits(b.Proximity.DistanceMiles))
	assert.Equal(t, a.Boundary, b.Boundary)
}

func TestWildfireService_Run(t *testing.T) {
	near := squareAround(t, 40.0, -83.0)
	far := squareAround(t, 61.2, -149.9)

	var features []domain.Feature
	for i := 0; i < 50; i++ {
		switch i % 5 {
		case 0:
			features = append(features, fire("far", 2000, far))
		case 1:
			features = append(features, fire("old", 1950, near))
		case 2:
			features = append(features, domain.Feature{Attributes: map[string]any{"fire_year": 2000, "seq": i}})
		case 3:
			features = append(features, fire("broken", 2000, orb.Ring{}))
		default:
			f := fire("near", 2000, near)
			f.Attributes["seq"] = i
			features = append(features, f)
		}
	}

	for _, workers := range []int{1, 4} {
		svc := newWildfireService(t, func(c *usecases.WildfireConfig) {
			c.Workers = workers
			c.ProgressEvery = 7
		})
		report, err := svc.Run(context.Background(), features)
		require.NoError(t, err)

		assert.Equal(t, 50, report.Total)
		require.Len(t, report.Included, 10)
		for j, attrs := range report.Included {
			assert.Equal(t, 4+5*j, attrs["seq"], "workers=%d keeps input order", workers)
			assert.Contains(t, attrs, "distance_to_reference_miles")
		}
		assert.Equal(t, 10, report.Excluded[domain.ReasonBeyondDistance])
		assert.Equal(t, 10, report.Excluded[domain.ReasonOutsideYearRange])
		assert.Equal(t, 10, report.Excluded[domain.ReasonMissingBoundary])
		assert.Equal(t, 10, report.Errors())

		require.Len(t, report.Perimeters.Features, 10)
		poly, ok := report.Perimeters.Features[0].Geometry.(orb.Polygon)
		require.True(t, ok)
		assert.True(t, poly[0].Closed())
		assert.InDelta(t, -83.0, poly[0][0][0], 0.1)
	}
}

func TestWildfireService_Run_Canceled(t *testing.T) {
	svc := newWildfireService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, []domain.Feature{fire("x", 2000, squareAround(t, 40, -83))})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewWildfireService_Validation(t *testing.T) {
	r := newReprojector(t)
	base := usecases.WildfireConfig{Reference: dearborn, MinYear: 1961, MaxYear: 2022, MaxDistanceMiles: 1800}

	bad := base
	bad.Reference.Point.Lat = 91
	_, err := usecases.NewWildfireService(bad, r)
	assert.ErrorIs(t, err, geospatial.ErrInvalidReference)

	bad = base
	bad.MaxYear = 1961
	_, err = usecases.NewWildfireService(bad, r)
	assert.Error(t, err)

	bad = base
	bad.MaxDistanceMiles = -1
	_, err = usecases.NewWildfireService(bad, r)
	assert.Error(t, err)

	_, err = usecases.NewWildfireService(base, nil)
	assert.Error(t, err)
}
