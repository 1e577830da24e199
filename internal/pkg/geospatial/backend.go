//go:build !gdal

package geospatial

import "github.com/samirrijal/data512/internal/core/ports"

// Backend names the reprojection implementation compiled into this binary.
const Backend = "closed-form"

// NewBoundaryReprojector returns the closed-form Albers inverse. Build with
// -tags gdal to reproject through GDAL/PROJ instead.
func NewBoundaryReprojector(p AlbersParams) (ports.BoundaryReprojector, func(), error) {
	r, err := NewReprojector(p)
	if err != nil {
		return nil, nil, err
	}
	return r, func() {}, nil
}
