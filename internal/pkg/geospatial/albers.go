package geospatial

import (
	"fmt"
	"math"
	"strconv"

	"github.com/paulmach/orb"

	"github.com/samirrijal/data512/internal/core/domain"
)

// AlbersParams describes an Albers Equal Area Conic projection on an ellipsoid.
type AlbersParams struct {
	SemiMajor     float64 // metres
	InvFlattening float64
	LatOrigin     float64 // degrees
	LonOrigin     float64 // degrees, central meridian
	StdParallel1  float64 // degrees
	StdParallel2  float64 // degrees
	FalseEasting  float64 // metres
	FalseNorthing float64 // metres
}

// NorthAmericaAlbers is ESRI:102008 (North America Albers Equal Area Conic, NAD83).
// NAD83 to WGS84 is taken as the null transformation.
var NorthAmericaAlbers = AlbersParams{
	SemiMajor:     6378137.0,
	InvFlattening: 298.257222101, // GRS80
	LatOrigin:     40,
	LonOrigin:     -96,
	StdParallel1:  20,
	StdParallel2:  60,
}

// Proj4 renders p as a PROJ definition. The datum shift to WGS84 is the null
// transformation, matching Inverse.
func (p AlbersParams) Proj4() string {
	return fmt.Sprintf("+proj=aea +lat_0=%s +lon_0=%s +lat_1=%s +lat_2=%s +x_0=%s +y_0=%s +a=%s +rf=%s +towgs84=0,0,0,0,0,0,0 +units=m +no_defs",
		ftoa(p.LatOrigin), ftoa(p.LonOrigin), ftoa(p.StdParallel1), ftoa(p.StdParallel2),
		ftoa(p.FalseEasting), ftoa(p.FalseNorthing), ftoa(p.SemiMajor), ftoa(p.InvFlattening))
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi

	latTolerance  = 1e-12
	maxIterations = 25
)

// Reprojector converts ring coordinates between an Albers projection and
// geographic coordinates. Constants are computed once and never mutated.
type Reprojector struct {
	a, e, e2 float64
	lon0     float64
	fe, fn   float64
	n, c     float64
	rho0     float64
	qPole    float64
}

// NewReprojector precomputes the projection constants (Snyder, Map Projections
// - A Working Manual, eqs. 14-3..14-6).
func NewReprojector(p AlbersParams) (*Reprojector, error) {
	if p.SemiMajor <= 0 || p.InvFlattening <= 0 {
		return nil, fmt.Errorf("albers: invalid ellipsoid a=%v 1/f=%v", p.SemiMajor, p.InvFlattening)
	}
	if p.StdParallel1 == -p.StdParallel2 {
		return nil, fmt.Errorf("albers: standard parallels %v and %v are symmetric about the equator", p.StdParallel1, p.StdParallel2)
	}

	f := 1 / p.InvFlattening
	r := &Reprojector{
		a:    p.SemiMajor,
		e2:   2*f - f*f,
		lon0: p.LonOrigin * deg2rad,
		fe:   p.FalseEasting,
		fn:   p.FalseNorthing,
	}
	r.e = math.Sqrt(r.e2)

	phi0 := p.LatOrigin * deg2rad
	phi1 := p.StdParallel1 * deg2rad
	phi2 := p.StdParallel2 * deg2rad

	m1 := r.m(phi1)
	m2 := r.m(phi2)
	q0 := r.q(phi0)
	q1 := r.q(phi1)
	q2 := r.q(phi2)

	if math.Abs(phi1-phi2) < latTolerance {
		r.n = math.Sin(phi1)
	} else {
		r.n = (m1*m1 - m2*m2) / (q2 - q1)
	}
	r.c = m1*m1 + r.n*q1
	r.rho0 = r.a * math.Sqrt(r.c-r.n*q0) / r.n
	r.qPole = r.q(math.Pi / 2)

	return r, nil
}

func (r *Reprojector) m(phi float64) float64 {
	sin := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-r.e2*sin*sin)
}

func (r *Reprojector) q(phi float64) float64 {
	sin := math.Sin(phi)
	es := r.e * sin
	return (1 - r.e2) * (sin/(1-r.e2*sin*sin) - 1/(2*r.e)*math.Log((1-es)/(1+es)))
}

// Reproject converts every vertex of ring to geographic coordinates, keeping
// order and length. The first invalid vertex fails the whole ring.
func (r *Reprojector) Reproject(ring orb.Ring) ([]domain.GeoPoint, error) {
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

// Inverse converts one projected point to latitude/longitude (Snyder eqs.
// 14-10, 14-11, 14-19, 14-21, 14-22, with 3-16 iterated for latitude).
func (r *Reprojector) Inverse(p orb.Point) (domain.GeoPoint, error) {
	x, y := p[0]-r.fe, p[1]-r.fn
	if !finite(x) || !finite(y) {
		return domain.GeoPoint{}, fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinate, p[0], p[1])
	}

	n, rho0 := r.n, r.rho0
	dy := rho0 - y
	if n < 0 {
		x, dy = -x, -dy
	}
	rho := math.Hypot(x, dy)
	theta := math.Atan2(x, dy)
	if n < 0 {
		rho = -rho
	}

	q := (r.c - rho*rho*n*n/(r.a*r.a)) / n

	var phi float64
	switch {
	case math.Abs(math.Abs(q)-r.qPole) < 1e-12:
		phi = math.Copysign(math.Pi/2, q)
	case math.Abs(q) > r.qPole:
		return domain.GeoPoint{}, fmt.Errorf("%w: (%v, %v) lies beyond the pole", ErrInvalidCoordinate, p[0], p[1])
	default:
		var err error
		if phi, err = r.latitudeFromQ(q); err != nil {
			return domain.GeoPoint{}, fmt.Errorf("%w: (%v, %v): %v", ErrInvalidCoordinate, p[0], p[1], err)
		}
	}

	lon := normalizeLon((r.lon0 + theta/n) * rad2deg)
	lat := phi * rad2deg
	if !finite(lat) || !finite(lon) {
		return domain.GeoPoint{}, fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinate, p[0], p[1])
	}
	return domain.GeoPoint{Lat: lat, Lon: lon}, nil
}

func (r *Reprojector) latitudeFromQ(q float64) (float64, error) {
	phi := math.Asin(q / 2)
	for i := 0; i < maxIterations; i++ {
		sin, cos := math.Sincos(phi)
		es := r.e * sin
		om := 1 - r.e2*sin*sin
		dphi := om * om / (2 * cos) *
			(q/(1-r.e2) - sin/om + 1/(2*r.e)*math.Log((1-es)/(1+es)))
		phi += dphi
		if math.Abs(dphi) < latTolerance {
			return phi, nil
		}
	}
	return 0, fmt.Errorf("latitude did not converge for q=%v", q)
}

// Project is the forward transform, geographic to projected (Snyder eqs. 14-1, 14-2).
func (r *Reprojector) Project(g domain.GeoPoint) (orb.Point, error) {
	if !validLatLon(g) {
		return orb.Point{}, fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinate, g.Lat, g.Lon)
	}
	phi := g.Lat * deg2rad
	dlon := normalizeLon(g.Lon-r.lon0*rad2deg) * deg2rad

	rho := r.a * math.Sqrt(r.c-r.n*r.q(phi)) / r.n
	theta := r.n * dlon
	x := rho*math.Sin(theta) + r.fe
	y := r.rho0 - rho*math.Cos(theta) + r.fn
	return orb.Point{x, y}, nil
}

func normalizeLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
