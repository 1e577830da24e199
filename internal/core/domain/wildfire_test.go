package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/data512/internal/core/domain"
)

func decodeGeometry(t *testing.T, raw string) *domain.Geometry {
	t.Helper()
	var f domain.Feature
	require.NoError(t, json.Unmarshal([]byte(`{"geometry":`+raw+`}`), &f))
	require.NotNil(t, f.Geometry)
	return f.Geometry
}

func TestGeometry_FirstRing(t *testing.T) {
	g := decodeGeometry(t, `{"rings":[[[1,2],[3,4,5]],[[9,9]]]}`)
	ring, err := g.FirstRing()
	require.NoError(t, err)
	assert.Equal(t, orb.Ring{{1, 2}, {3, 4}}, ring)

	g = decodeGeometry(t, `{"curveRings":[[[0,0],{"a":[[7,8],[1,1],0,1]},{"b":[[5,6],[1,1],[2,2]]}]]}`)
	ring, err = g.FirstRing()
	require.NoError(t, err)
	assert.Equal(t, orb.Ring{{0, 0}, {7, 8}, {5, 6}}, ring)

	_, err = decodeGeometry(t, `{}`).FirstRing()
	assert.ErrorIs(t, err, domain.ErrMissingBoundaryField)
}

func TestGeometry_MalformedOrdinates(t *testing.T) {
	tests := map[string]string{
		"one ordinate":      `{"rings":[[[950000],[960000,255000]]]}`,
		"null x":            `{"rings":[[[null,250000],[1,2]]]}`,
		"null y":            `{"rings":[[[1,2],[250000,null]]]}`,
		"string ordinate":   `{"rings":[[["1",2]]]}`,
		"unknown curve":     `{"curveRings":[[[0,0],{"z":[[1,1]]}]]}`,
		"rings not array":   `{"rings":"none"}`,
		"geometry not json": `7`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			ring, err := decodeGeometry(t, raw).FirstRing()
			assert.ErrorIs(t, err, domain.ErrMalformedGeometry)
			assert.Nil(t, ring)
		})
	}
}

func TestFeatureCollection_MalformedFeatureDoesNotFailDecode(t *testing.T) {
	raw := `{"features":[
		{"attributes":{"OBJECTID":1},"geometry":{"rings":[[[0,0],[1,0],[0,0]]]}},
		{"attributes":{"OBJECTID":2},"geometry":{"rings":[[[950000],[960000,255000]]]}}
	]}`
	var fc domain.FeatureCollection
	require.NoError(t, json.Unmarshal([]byte(raw), &fc))
	require.Len(t, fc.Features, 2)

	_, err := fc.Features[0].Geometry.FirstRing()
	assert.NoError(t, err)
	_, err = fc.Features[1].Geometry.FirstRing()
	assert.ErrorIs(t, err, domain.ErrMalformedGeometry)
}

func TestFeature_Attribute(t *testing.T) {
	f := domain.Feature{Attributes: map[string]any{
		"fire_year": 1,
		"Fire_Year": 2,
		"FIRE_YEAR": 3,
		"Fire_year": 4,
	}}

	v, ok := f.Attribute("fire_year")
	require.True(t, ok)
	assert.Equal(t, 1, v, "exact match wins")

	delete(f.Attributes, "fire_year")
	for i := 0; i < 20; i++ {
		v, ok = f.Attribute("fire_year")
		require.True(t, ok)
		assert.Equal(t, 3, v, "lexically smallest case variant wins")
	}

	_, ok = f.Attribute("acres")
	assert.False(t, ok)
}
