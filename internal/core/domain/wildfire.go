package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/paulmach/orb"
)

// ErrMissingBoundaryField is returned when a geometry carries neither rings nor curveRings.
var ErrMissingBoundaryField = errors.New("geometry has neither rings nor curveRings")

// ErrMalformedGeometry is returned by FirstRing when the input geometry could not be decoded.
var ErrMalformedGeometry = errors.New("malformed geometry")

// FeatureCollection is an Esri JSON feature set as exported by the USGS wildfire dataset.
type FeatureCollection struct {
	Features []Feature `json:"features"`
}

// Feature is a single wildfire record. Attributes are kept as decoded so the
// retained records can be written back with every source field intact.
type Feature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   *Geometry      `json:"geometry"`
}

// Geometry holds polygon rings in the source projected system (ESRI:102008).
// A nil slice means the field was absent from the input.
type Geometry struct {
	Rings      []orb.Ring `json:"rings,omitempty"`
	CurveRings []orb.Ring `json:"curveRings,omitempty"`

	// set when the input geometry was malformed; reported by FirstRing
	decodeErr error
}

// FirstRing returns the first ring of rings, or of curveRings when rings is absent.
func (g *Geometry) FirstRing() (orb.Ring, error) {
	if g == nil {
		return nil, ErrMissingBoundaryField
	}
	if g.decodeErr != nil {
		return nil, g.decodeErr
	}
	switch {
	case g.Rings != nil:
		if len(g.Rings) == 0 {
			return nil, errors.New("rings field is empty")
		}
		return g.Rings[0], nil
	case g.CurveRings != nil:
		if len(g.CurveRings) == 0 {
			return nil, errors.New("curveRings field is empty")
		}
		return g.CurveRings[0], nil
	default:
		return nil, ErrMissingBoundaryField
	}
}

// UnmarshalJSON decodes Esri polygon geometry. Curve segments inside
// curveRings ({"c":[end,control]}, {"a":[end,...]}, {"b":[end,...]}) contribute
// their end point. Malformed geometry never fails decoding: the error is kept
// on g and returned by FirstRing.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	*g = Geometry{}
	var raw struct {
		Rings      [][]json.RawMessage `json:"rings"`
		CurveRings [][]json.RawMessage `json:"curveRings"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		g.decodeErr = fmt.Errorf("%w: %v", ErrMalformedGeometry, err)
		return nil
	}

	var err error
	if raw.Rings != nil {
		if g.Rings, err = decodeRings(raw.Rings); err != nil {
			g.decodeErr = fmt.Errorf("%w: rings: %v", ErrMalformedGeometry, err)
			return nil
		}
	}
	if raw.CurveRings != nil {
		if g.CurveRings, err = decodeRings(raw.CurveRings); err != nil {
			g.decodeErr = fmt.Errorf("%w: curveRings: %v", ErrMalformedGeometry, err)
			return nil
		}
	}
	return nil
}

func decodeRings(raw [][]json.RawMessage) ([]orb.Ring, error) {
	rings := make([]orb.Ring, 0, len(raw))
	for i, r := range raw {
		ring := make(orb.Ring, 0, len(r))
		for j, elem := range r {
			p, err := decodeVertex(elem)
			if err != nil {
				return nil, fmt.Errorf("ring %d vertex %d: %w", i, j, err)
			}
			ring = append(ring, p)
		}
		rings = append(rings, ring)
	}
	return rings, nil
}

func decodeVertex(elem json.RawMessage) (orb.Point, error) {
	trimmed := bytes.TrimSpace(elem)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var segment map[string][]json.RawMessage
		if err := json.Unmarshal(trimmed, &segment); err != nil {
			return orb.Point{}, err
		}
		for _, key := range []string{"c", "a", "b"} {
			if parts, ok := segment[key]; ok && len(parts) > 0 {
				return decodeVertex(parts[0])
			}
		}
		return orb.Point{}, errors.New("unsupported curve segment")
	}

	var coords []*float64
	if err := json.Unmarshal(trimmed, &coords); err != nil {
		return orb.Point{}, err
	}
	if len(coords) < 2 {
		return orb.Point{}, fmt.Errorf("need at least 2 ordinates, got %d", len(coords))
	}
	if coords[0] == nil || coords[1] == nil {
		return orb.Point{}, errors.New("null ordinate")
	}
	return orb.Point{*coords[0], *coords[1]}, nil
}

// Attribute looks up an attribute by name, falling back to a case-insensitive
// match. When several keys differ only in case, the lexically smallest wins.
func (f Feature) Attribute(name string) (any, bool) {
	if v, ok := f.Attributes[name]; ok {
		return v, true
	}
	var matches []string
	for k := range f.Attributes {
		if strings.EqualFold(k, name) {
			matches = append(matches, k)
		}
	}
	if len(matches) == 0 {
		return nil, false
	}
	sort.Strings(matches)
	return f.Attributes[matches[0]], true
}

// ExclusionReason says why a feature was dropped by the wildfire filter.
type ExclusionReason string

const (
	ReasonMissingBoundary  ExclusionReason = "missing_boundary"
	ReasonOutsideYearRange ExclusionReason = "outside_year_range"
	ReasonBeyondDistance   ExclusionReason = "beyond_distance"
	ReasonError            ExclusionReason = "error"
)

// Exclusion is a structured record of a dropped feature.
type Exclusion struct {
	FeatureName string          `json:"feature_name"`
	Reason      ExclusionReason `json:"reason"`
	Err         error           `json:"-"`
}

// FilterResult is either an included feature or an exclusion, never both.
type FilterResult struct {
	Feature   *Feature
	Boundary  []GeoPoint
	Proximity ProximityResult
	Exclusion *Exclusion
}

// Included reports whether the feature survived the filter.
func (r FilterResult) Included() bool {
	return r.Exclusion == nil && r.Feature != nil
}
