package geospatial

import (
	"fmt"

	"github.com/tidwall/geodesic"

	"github.com/samirrijal/data512/internal/core/domain"
)

// MetersToMiles is the conversion factor applied to geodesic distances. It is
// kept at this precision so distances match previously published outputs.
const MetersToMiles = 0.00062137

// GeodesicMeters returns the WGS84 ellipsoidal distance between two points.
func GeodesicMeters(a, b domain.GeoPoint) float64 {
	var s12 float64
	geodesic.WGS84.Inverse(a.Lat, a.Lon, b.Lat, b.Lon, &s12, nil, nil)
	return s12
}

// ShortestDistance scans every vertex of boundary and returns the one closest
// to reference, in statute miles. A later vertex replaces the current minimum
// only when strictly closer, so ties resolve to the earliest vertex.
func ShortestDistance(reference domain.GeoPoint, boundary []domain.GeoPoint) (domain.ProximityResult, error) {
	if !validLatLon(reference) {
		return domain.ProximityResult{}, fmt.Errorf("%w: (%v, %v)", ErrInvalidReference, reference.Lat, reference.Lon)
	}
	if len(boundary) == 0 {
		return domain.ProximityResult{}, ErrEmptyBoundary
	}

	best := domain.ProximityResult{
		DistanceMiles: GeodesicMeters(reference, boundary[0]) * MetersToMiles,
		ClosestPoint:  boundary[0],
	}
	for _, vertex := range boundary[1:] {
		d := GeodesicMeters(reference, vertex) * MetersToMiles
		if d < best.DistanceMiles {
			best = domain.ProximityResult{DistanceMiles: d, ClosestPoint: vertex}
		}
	}
	return best, nil
}

func validLatLon(p domain.GeoPoint) bool {
	return p.Lat >= -90 && p.Lat <= 90 &&
		p.Lon >= -180 && p.Lon <= 180
}
