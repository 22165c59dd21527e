package graph

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoJSONLayers(t *testing.T) {
	nodes := []RawNode{rawAt("gate", 0, 0), rawAt("", 10, 0), rawAt("", 10, 10)}
	obstacles := []Obstacle{{Ring: squareAt(4, 4, 6, 6), Kind: KindBuilding, Name: "bat 1"}}
	g := Build(nodes, obstacles, nil)

	data, err := json.Marshal(GeoJSON(g))
	require.NoError(t, err)

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)

	layers := map[string]int{}
	for _, f := range fc.Features {
		layers[f.Properties.MustString("layer")]++
	}
	assert.Equal(t, map[string]int{"node": 3, "edge": 2, "obstacle": 1}, layers)

	first := fc.Features[0]
	assert.Equal(t, "A", first.Properties.MustString("id"))
	assert.Equal(t, "gate", first.Properties.MustString("name"))
	assert.Equal(t, "building", fc.Features[len(fc.Features)-1].Properties.MustString("kind"))
}
