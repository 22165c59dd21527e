package motion

import (
	"math/rand"
	"testing"
	"time"

	"campus_nav/pkg/graph"
	"campus_nav/pkg/routing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedPicker returns a fixed plan per start node and records calls.
type scriptedPicker struct {
	plans map[string]Plan
	fail  bool
	calls []string
}

func (p *scriptedPicker) PickRoute(from string) (Plan, bool) {
	p.calls = append(p.calls, from)
	if p.fail {
		return Plan{}, false
	}
	plan, ok := p.plans[from]
	return plan, ok
}

func TestCrowdRearmsFromArrivalNode(t *testing.T) {
	picker := &scriptedPicker{plans: map[string]Plan{
		"":  {Nodes: []string{"A", "B"}, Waypoints: []orb.Point{{0, 0}, {0, 0.1}}},
		"B": {Nodes: []string{"B", "C"}, Waypoints: []orb.Point{{0, 0.1}, {1, 0.1}}},
	}}
	c := NewCrowd(1, picker, DefaultPedestrianConfig(), DefaultAvoidanceConfig())
	c.Spawn()

	a := c.Agents[0]
	require.Equal(t, "P0", a.ID)
	require.Equal(t, Traveling, a.State)
	assert.Equal(t, orb.Point{0, 0}, a.Position)

	for i := 0; i < 2000 && len(picker.calls) < 2; i++ {
		c.Step(frame)
	}

	require.Equal(t, []string{"", "B"}, picker.calls)
	assert.Equal(t, Traveling, a.State)
	assert.Equal(t, orb.Point{0, 0.1}, a.Position, "snapped onto the new route start")
	assert.Equal(t, []string{"B", "C"}, a.Route.Nodes)
	assert.Zero(t, a.Route.Segment)
	assert.Zero(t, a.Route.Progress)
}

func TestCrowdRetriesAndAdvisesOnce(t *testing.T) {
	picker := &scriptedPicker{fail: true}
	cfg := DefaultPedestrianConfig()
	cfg.RetryInterval = time.Second
	cfg.AdvisoryAfter = 3
	c := NewCrowd(1, picker, cfg, DefaultAvoidanceConfig())

	var advisories []int
	c.OnAdvisory(func(id string, failures int) {
		assert.Equal(t, "P0", id)
		advisories = append(advisories, failures)
	})

	c.Spawn()
	a := c.Agents[0]
	assert.Equal(t, Idle, a.State)
	assert.Len(t, picker.calls, 1)

	c.Step(0.5)
	assert.Len(t, picker.calls, 1, "no retry before the interval")
	c.Step(0.5)
	assert.Len(t, picker.calls, 2)
	c.Step(1)
	assert.Len(t, picker.calls, 3)
	assert.Equal(t, []int{3}, advisories)

	c.Step(1)
	c.Step(1)
	assert.Len(t, picker.calls, 5)
	assert.Equal(t, []int{3}, advisories, "advisory raised once")

	// Recovery clears the failure streak.
	picker.fail = false
	picker.plans = map[string]Plan{"": {Nodes: []string{"A", "B"}, Waypoints: []orb.Point{{0, 0}, {0, 1}}}}
	c.Step(1)
	assert.Equal(t, Traveling, a.State)
	assert.Zero(t, a.failures)
	assert.False(t, a.advised)
}

func TestCrowdSnapshots(t *testing.T) {
	picker := &scriptedPicker{plans: map[string]Plan{
		"": {Nodes: []string{"A", "B"}, Waypoints: []orb.Point{{0, 0}, {0, 1}}},
	}}
	c := NewCrowd(3, picker, DefaultPedestrianConfig(), DefaultAvoidanceConfig())
	c.Spawn()
	c.Step(frame)

	snaps := c.Snapshots()
	require.Len(t, snaps, 3)
	for i, s := range snaps {
		assert.Equal(t, c.Agents[i].ID, s.ID)
		assert.Equal(t, Pedestrian, s.Kind)
		assert.Equal(t, Traveling, s.State)
		assert.Equal(t, "B", s.Target)
	}
}

func pickerGraph(t *testing.T) *routing.Engine {
	t.Helper()
	// A-B-C connected, D isolated.
	nodes := []graph.Node{
		{Lat: 45.0000, Lon: 4.0000},
		{Lat: 45.0000, Lon: 4.0010},
		{Lat: 45.0010, Lon: 4.0010},
		{Lat: 45.0050, Lon: 4.0050},
	}
	g := graph.FromEdges(nodes, []graph.Edge{
		{From: 0, To: 1, Weight: 79},
		{From: 1, To: 2, Weight: 111},
	})
	return routing.NewEngine(g, nil)
}

func TestRandomPicker(t *testing.T) {
	eng := pickerGraph(t)
	ids := []string{"A", "B", "C", "D"}

	p := NewRandomPicker(eng, ids, rand.New(rand.NewSource(3)), 30)
	for range 20 {
		plan, ok := p.PickRoute("A")
		require.True(t, ok)
		require.GreaterOrEqual(t, len(plan.Nodes), 2)
		assert.Equal(t, "A", plan.Nodes[0])
		assert.NotEqual(t, "A", plan.Nodes[len(plan.Nodes)-1])
		assert.NotEqual(t, "D", plan.Nodes[len(plan.Nodes)-1])
		assert.Len(t, plan.Waypoints, len(plan.Nodes))
	}

	_, ok := p.PickRoute("D")
	assert.False(t, ok, "isolated start never yields a route")
}

func TestRandomPickerDeterministic(t *testing.T) {
	eng := pickerGraph(t)
	ids := []string{"A", "B", "C", "D"}

	p1 := NewRandomPicker(eng, ids, rand.New(rand.NewSource(42)), 30)
	p2 := NewRandomPicker(eng, ids, rand.New(rand.NewSource(42)), 30)
	for range 10 {
		a, okA := p1.PickRoute("")
		b, okB := p2.PickRoute("")
		assert.Equal(t, okA, okB)
		assert.Equal(t, a, b)
	}
}

func TestRandomPickerNoNodes(t *testing.T) {
	p := NewRandomPicker(pickerGraph(t), nil, rand.New(rand.NewSource(1)), 0)
	_, ok := p.PickRoute("A")
	assert.False(t, ok)
}
