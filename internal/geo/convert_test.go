package geo

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometryJSON(t *testing.T) {
	t.Run("line string", func(t *testing.T) {
		var g Geometry
		err := json.Unmarshal([]byte(`{"type":"LineString","coordinates":[[101.5,1.55],[101.6,1.56]]}`), &g)
		require.NoError(t, err)
		assert.False(t, g.Multi)
		require.Len(t, g.Paths, 1)
		assert.Equal(t, Coordinate{Lat: 1.55, Lon: 101.5}, g.Paths[0][0])
	})

	t.Run("multi line string", func(t *testing.T) {
		var g Geometry
		err := json.Unmarshal([]byte(`{"type":"MultiLineString","coordinates":[[[0,0],[0,1]],[[1,1],[1,2]]]}`), &g)
		require.NoError(t, err)
		assert.True(t, g.Multi)
		assert.Equal(t, 4, g.NumPoints())
		assert.Len(t, g.Flatten(), 4)
	})

	t.Run("unsupported", func(t *testing.T) {
		var g Geometry
		err := json.Unmarshal([]byte(`{"type":"Point","coordinates":[0,0]}`), &g)
		assert.Error(t, err)
	})

	t.Run("encode", func(t *testing.T) {
		g := Line(Path{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}})
		b, err := json.Marshal(g)
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"LineString","coordinates":[[2,1],[4,3]]}`, string(b))
	})
}

func TestFromOrb(t *testing.T) {
	g, err := FromOrb(orb.LineString{{1, 2}, {3, 4}})
	require.NoError(t, err)
	assert.Equal(t, Path{{Lat: 2, Lon: 1}, {Lat: 4, Lon: 3}}, g.Paths[0])

	_, err = FromOrb(orb.Polygon{})
	assert.Error(t, err)
}

func TestEncodedPolyline(t *testing.T) {
	// example from the Google polyline algorithm documentation
	p, err := DecodePath("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	require.NoError(t, err)
	require.Len(t, p, 3)
	assert.InDelta(t, 38.5, p[0].Lat, 1e-6)
	assert.InDelta(t, -120.2, p[0].Lon, 1e-6)
	assert.InDelta(t, 43.252, p[2].Lat, 1e-6)

	assert.Equal(t, "_p~iF~ps|U_ulLnnqC_mqNvxq`@", EncodePath(p))
}

func TestPathHelpers(t *testing.T) {
	p := Path{{Lat: 0}, {Lat: 1}}
	assert.Equal(t, Path{{Lat: 1}, {Lat: 0}}, p.Reversed())
	assert.InDelta(t, 111194.9, p.Length(), 0.5)
	assert.InDelta(t, 0, Bearing(p[0], p[1]), 1e-9)
	assert.InDelta(t, 90, Bearing(Coordinate{}, Coordinate{Lon: 1}), 1e-9)
	assert.InDelta(t, 270, Bearing(Coordinate{}, Coordinate{Lon: -1}), 1e-9)

	g := Geometry{Multi: true, Paths: []Path{{{Lat: 0}, {Lat: 1}}, {{Lat: 2}, {Lat: 3}}}}
	r := g.Reversed()
	assert.Equal(t, Path{{Lat: 3}, {Lat: 2}}, r.Paths[0])
	assert.Equal(t, Path{{Lat: 1}, {Lat: 0}}, r.Paths[1])
}
