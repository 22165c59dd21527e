package routing

import (
	"math"
	"math/rand"
	"testing"

	"campus_nav/pkg/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineGraph builds A(0,0) B(10,0) C(10,10) with A-B and B-C only; the
// direct A-C link is blocked.
func lineGraph() *graph.Graph {
	return graph.FromEdges(make([]graph.Node, 3), []graph.Edge{
		{From: 0, To: 1, Weight: 10},
		{From: 1, To: 2, Weight: 10},
	})
}

// floyd computes all-pairs shortest distances as a reference.
func floyd(g *graph.Graph) [][]float64 {
	n := g.NumNodes()
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
		for j := range d[i] {
			if i != j {
				d[i][j] = math.Inf(1)
			}
		}
	}
	for _, e := range g.Edges {
		d[e.From][e.To] = math.Min(d[e.From][e.To], e.Weight)
		d[e.To][e.From] = d[e.From][e.To]
	}
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if d[i][k]+d[k][j] < d[i][j] {
					d[i][j] = d[i][k] + d[k][j]
				}
			}
		}
	}
	return d
}

func randomGraph(rng *rand.Rand, n int, density float64) *graph.Graph {
	var edges []graph.Edge
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rng.Float64() < density {
				edges = append(edges, graph.Edge{From: i, To: j, Weight: float64(1 + rng.Intn(50))})
			}
		}
	}
	return graph.FromEdges(make([]graph.Node, n), edges)
}

func TestShortestPathExample(t *testing.T) {
	g := lineGraph()

	path := ShortestPath(g, "A", "C")
	assert.Equal(t, []string{"A", "B", "C"}, path)

	total, ok := PathLength(g, path)
	require.True(t, ok)
	assert.Equal(t, 20.0, total)
}

func TestShortestPathSameNode(t *testing.T) {
	g := lineGraph()
	for _, n := range g.Nodes {
		assert.LessOrEqual(t, len(ShortestPath(g, n.ID, n.ID)), 1)
	}
	assert.Equal(t, []string{"B"}, ShortestPath(g, "B", "B"))
}

func TestShortestPathUnknownNode(t *testing.T) {
	g := lineGraph()
	assert.Nil(t, ShortestPath(g, "A", "ZZ"))
	assert.Nil(t, ShortestPath(g, "ZZ", "A"))
}

func TestShortestPathDisconnected(t *testing.T) {
	// A-B and C-D are two islands.
	g := graph.FromEdges(make([]graph.Node, 4), []graph.Edge{
		{From: 0, To: 1, Weight: 3},
		{From: 2, To: 3, Weight: 4},
	})

	assert.Equal(t, []string{"C"}, ShortestPath(g, "A", "C"))
	assert.Equal(t, []string{"D"}, ShortestPath(g, "B", "D"))

	qs := search(g, 0, 2)
	assert.LessOrEqual(t, qs.Pops, g.NumNodes()+len(g.Head))
	assert.True(t, math.IsInf(qs.Dist[2], 1))
}

func TestShortestPathTieBreak(t *testing.T) {
	// Two equal routes A-B-D and A-C-D; the lower index wins.
	g := graph.FromEdges(make([]graph.Node, 4), []graph.Edge{
		{From: 0, To: 2, Weight: 1},
		{From: 2, To: 3, Weight: 1},
		{From: 0, To: 1, Weight: 1},
		{From: 1, To: 3, Weight: 1},
	})

	for range 10 {
		assert.Equal(t, []string{"A", "B", "D"}, ShortestPath(g, "A", "D"))
	}
	assert.Equal(t, []string{"D", "B", "A"}, ShortestPath(g, "D", "A"))
}

func TestShortestPathOptimal(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		g := randomGraph(rng, 12, 0.25)
		ref := floyd(g)

		for s := 0; s < g.NumNodes(); s++ {
			for d := 0; d < g.NumNodes(); d++ {
				if s == d {
					continue
				}
				path := ShortestPath(g, g.Nodes[s].ID, g.Nodes[d].ID)
				if math.IsInf(ref[s][d], 1) {
					assert.Len(t, path, 1, "round %d %d->%d should be unreachable", round, s, d)
					continue
				}
				require.GreaterOrEqual(t, len(path), 2)
				assert.Equal(t, g.Nodes[s].ID, path[0])
				assert.Equal(t, g.Nodes[d].ID, path[len(path)-1])

				total, ok := PathLength(g, path)
				require.True(t, ok, "path %v uses a missing edge", path)
				assert.InDelta(t, ref[s][d], total, 1e-9, "round %d %d->%d", round, s, d)
			}
		}
	}
}

func TestPathLengthBrokenPath(t *testing.T) {
	g := lineGraph()
	_, ok := PathLength(g, []string{"A", "C"})
	assert.False(t, ok)
	_, ok = PathLength(g, []string{"A", "nope"})
	assert.False(t, ok)

	total, ok := PathLength(g, []string{"A"})
	assert.True(t, ok)
	assert.Zero(t, total)
}

func TestMinHeap(t *testing.T) {
	var h MinHeap

	h.Push(1, 30)
	h.Push(2, 10)
	h.Push(3, 20)
	h.Push(0, 20)

	assert.Equal(t, 10.0, h.PeekDist())

	assert.Equal(t, PQItem{Node: 2, Dist: 10}, h.Pop())
	assert.Equal(t, PQItem{Node: 0, Dist: 20}, h.Pop(), "equal distances pop lowest node first")
	assert.Equal(t, PQItem{Node: 3, Dist: 20}, h.Pop())
	assert.Equal(t, PQItem{Node: 1, Dist: 30}, h.Pop())
	assert.Zero(t, h.Len())
	assert.True(t, math.IsInf(h.PeekDist(), 1))
}

func BenchmarkShortestPath(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	g := randomGraph(rng, 80, 0.3)
	for b.Loop() {
		ShortestPath(g, "A", g.Nodes[g.NumNodes()-1].ID)
	}
}
