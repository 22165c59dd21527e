package motion

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotJSON(t *testing.T) {
	a := NewAgent("P3", Pedestrian)
	a.RestartRoute([]orb.Point{{0, 0}, {0, 1}}, []string{"B", "E"})

	b, err := json.Marshal(a.Snapshot())
	require.NoError(t, err)
	assert.Contains(t, string(b), `"kind":"pedestrian"`)
	assert.Contains(t, string(b), `"state":"traveling"`)

	var got Snapshot
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, a.Snapshot(), got)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"tram"}`), &got))
	assert.Error(t, json.Unmarshal([]byte(`{"state":"lost"}`), &got))
}

func TestRouteFrom(t *testing.T) {
	assert.Empty(t, Route{}.From())

	r := Route{Waypoints: make([]orb.Point, 3), Nodes: []string{"A", "B", "C"}, Segment: 1}
	assert.Equal(t, "B", r.From())

	// Resumed route: the leading waypoint is the agent's own position.
	r = Route{Waypoints: make([]orb.Point, 3), Nodes: []string{"B", "A"}}
	assert.Equal(t, "B", r.From())
	r.Segment = 1
	assert.Equal(t, "B", r.From())

	// Idle with nodes only.
	assert.Equal(t, "C", Route{Nodes: []string{"C"}}.From())
}
