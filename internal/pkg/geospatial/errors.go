package geospatial

import "errors"

var (
	// ErrInvalidCoordinate is returned for projected input outside the
	// projection's domain (NaN, Inf, or beyond the pole).
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrEmptyBoundary is returned when there are no vertices to scan.
	ErrEmptyBoundary = errors.New("empty boundary")

	// ErrInvalidReference is returned when the reference point is not a valid latitude/longitude.
	ErrInvalidReference = errors.New("invalid reference point")
)
