//go:build gdal

package geospatial_test

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/data512/internal/pkg/geospatial"
)

func newGDALReprojector(t *testing.T) *geospatial.GDALReprojector {
	t.Helper()
	r, err := geospatial.NewGDALReprojector(geospatial.NorthAmericaAlbers)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestGDALReprojector_MatchesClosedForm(t *testing.T) {
	viaProj := newGDALReprojector(t)
	closed := newReprojector(t)

	for x := -3e6; x <= 3e6; x += 5e5 {
		for y := -2e6; y <= 3e6; y += 5e5 {
			p := orb.Point{x, y}
			want, err := viaProj.Inverse(p)
			require.NoError(t, err, "gdal %v", p)
			got, err := closed.Inverse(p)
			require.NoError(t, err, "closed form %v", p)

			assert.InDelta(t, want.Lat, got.Lat, 1e-7, "lat at %v", p)
			assert.InDelta(t, want.Lon, got.Lon, 1e-7, "lon at %v", p)
		}
	}
}

func TestGDALReprojector_Reproject(t *testing.T) {
	r := newGDALReprojector(t)

	out, err := r.Reproject(orb.Ring{{0, 0}, {850000, 120000}, {0, 0}})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.InDelta(t, 40.0, out[0].Lat, 1e-7)
	assert.InDelta(t, -96.0, out[0].Lon, 1e-7)
	assert.Equal(t, out[0], out[2])

	_, err = r.Reproject(orb.Ring{{0, 0}, {math.NaN(), 0}})
	assert.ErrorIs(t, err, geospatial.ErrInvalidCoordinate)
}

func TestNewBoundaryReprojector_UsesGDAL(t *testing.T) {
	r, release, err := geospatial.NewBoundaryReprojector(geospatial.NorthAmericaAlbers)
	require.NoError(t, err)
	defer release()

	assert.Equal(t, "gdal", geospatial.Backend)
	assert.IsType(t, &geospatial.GDALReprojector{}, r)
}
