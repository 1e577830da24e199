package domain

// GeoPoint represents a geographic coordinate (WGS 84, decimal degrees).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ReferencePoint is the fixed place that wildfire perimeters are measured against.
type ReferencePoint struct {
	Name  string   `json:"name"`
	Point GeoPoint `json:"point"`
}

// ProximityResult is the shortest geodesic distance from a reference point to
// any vertex of a boundary, and the vertex that achieved it.
type ProximityResult struct {
	DistanceMiles float64  `json:"distance_miles"`
	ClosestPoint  GeoPoint `json:"closest_point"`
}
