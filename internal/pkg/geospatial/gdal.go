//go:build gdal

package geospatial

import (
	"fmt"
	"sync"

	"github.com/lukeroth/gdal"
	"github.com/paulmach/orb"

	"github.com/samirrijal/data512/internal/core/domain"
	"github.com/samirrijal/data512/internal/core/ports"
)

// Backend names the reprojection implementation compiled into this binary.
const Backend = "gdal"

// wgs84Proj4 is the geographic target system, longitude first.
const wgs84Proj4 = "+proj=longlat +datum=WGS84 +no_defs"

// GDALReprojector reprojects through GDAL's OGR/PROJ bindings. One point
// geometry is reused for every vertex, so calls are serialised.
type GDALReprojector struct {
	mu    sync.Mutex
	from  gdal.SpatialReference
	to    gdal.SpatialReference
	point gdal.Geometry
}

// NewGDALReprojector builds a transformer from p to WGS84. Call Close to free
// the GDAL handles.
func NewGDALReprojector(p AlbersParams) (*GDALReprojector, error) {
	r := &GDALReprojector{
		from:  gdal.CreateSpatialReference(""),
		to:    gdal.CreateSpatialReference(""),
		point: gdal.Create(gdal.GT_Point),
	}
	if err := r.from.FromProj4(p.Proj4()); err != nil {
		r.Close()
		return nil, fmt.Errorf("gdal source srs: %w", err)
	}
	if err := r.to.FromProj4(wgs84Proj4); err != nil {
		r.Close()
		return nil, fmt.Errorf("gdal target srs: %w", err)
	}
	return r, nil
}

// Inverse converts one projected point to latitude/longitude.
func (r *GDALReprojector) Inverse(p orb.Point) (domain.GeoPoint, error) {
	if !finite(p[0]) || !finite(p[1]) {
		return domain.GeoPoint{}, fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinate, p[0], p[1])
	}

	r.mu.Lock()
	r.point.SetSpatialReference(r.from)
	r.point.SetPoint2D(0, p[0], p[1])
	err := r.point.TransformTo(r.to)
	lon, lat := r.point.X(0), r.point.Y(0)
	r.mu.Unlock()

	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: (%v, %v): %v", ErrInvalidCoordinate, p[0], p[1], err)
	}
	g := domain.GeoPoint{Lat: lat, Lon: lon}
	if !validLatLon(g) {
		return domain.GeoPoint{}, fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinate, p[0], p[1])
	}
	return g, nil
}

// Reproject converts every vertex of ring, keeping order and length. The
// first invalid vertex fails the whole ring.
func (r *GDALReprojector) Reproject(ring orb.Ring) ([]domain.GeoPoint, error) {
	out := make([]domain.GeoPoint, len(ring))
	for i, p := range ring {
		g, err := r.Inverse(p)
		if err != nil {
			return nil, fmt.Errorf("vertex %d: %w", i, err)
		}
		out[i] = g
	}
	return out, nil
}

// Close frees the GDAL handles.
func (r *GDALReprojector) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.point.Destroy()
	r.from.Destroy()
	r.to.Destroy()
}

// NewBoundaryReprojector returns the GDAL-backed reprojector and its release func.
func NewBoundaryReprojector(p AlbersParams) (ports.BoundaryReprojector, func(), error) {
	r, err := NewGDALReprojector(p)
	if err != nil {
		return nil, nil, err
	}
	return r, r.Close, nil
}
