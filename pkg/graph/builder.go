package graph

import (
	"sort"

	"campus_nav/pkg/geo"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/rtree"
)

var log = logrus.WithField("module", "graph")

// Build computes the visibility graph over nodes. Nodes are labelled in
// input order. Two nodes are linked iff the straight segment between them
// does not cross the boundary of any obstacle ring; touching a ring exactly
// at a node is allowed. conv projects nodes into the scene frame; nil derives
// a converter from the first node.
func Build(nodes []RawNode, obstacles []Obstacle, conv *geo.Converter) *Graph {
	if conv == nil && len(nodes) > 0 {
		conv = geo.NewConverter(nodes[0].Lat, nodes[0].Lon, geo.DefaultScale)
	}

	g := &Graph{
		Nodes:     make([]Node, len(nodes)),
		Obstacles: obstacles,
		Index:     make(map[string]int, len(nodes)),
	}
	for i, rn := range nodes {
		id := Label(i)
		g.Nodes[i] = Node{
			ID:    id,
			Name:  rn.Name,
			Lat:   rn.Lat,
			Lon:   rn.Lon,
			Local: conv.ToScene(rn.Lat, rn.Lon),
		}
		g.Index[id] = i
	}

	// Index obstacle bounds so each pair only tests nearby rings.
	var tr rtree.RTreeG[int]
	for i, o := range obstacles {
		if len(o.Ring) < 2 {
			continue
		}
		b := o.Ring.Bound()
		tr.Insert(b.Min, b.Max, i)
	}

	var tested, blocked int
	for i := 0; i < len(g.Nodes); i++ {
		for j := i + 1; j < len(g.Nodes); j++ {
			a, b := g.Nodes[i].Point(), g.Nodes[j].Point()
			seg := orb.MultiPoint{a, b}.Bound()

			hit := false
			tr.Search(seg.Min, seg.Max, func(_, _ [2]float64, oi int) bool {
				tested++
				hit = geo.SegmentIntersectsRing(a, b, obstacles[oi].Ring)
				return !hit
			})
			if hit {
				blocked++
				continue
			}
			g.Edges = append(g.Edges, Edge{
				From:   i,
				To:     j,
				Weight: geo.DistanceMeters(a, b),
			})
		}
	}

	g.buildAdjacency()

	log.Debugf("Visibility: %d pairs blocked, %d ring tests", blocked, tested)
	log.Infof("Built graph: %d nodes, %d edges, %d obstacles", len(g.Nodes), len(g.Edges), len(obstacles))
	return g
}

// buildAdjacency fills the CSR arrays from Edges. Edges are generated in
// (From, To) order, so each adjacency list ends up sorted by head index.
func (g *Graph) buildAdjacency() {
	n := len(g.Nodes)
	firstOut := make([]int, n+1)
	for _, e := range g.Edges {
		firstOut[e.From+1]++
		firstOut[e.To+1]++
	}
	// Prefix sum.
	for i := 1; i <= n; i++ {
		firstOut[i] += firstOut[i-1]
	}

	head := make([]int, 2*len(g.Edges))
	weight := make([]float64, 2*len(g.Edges))
	pos := make([]int, n)
	copy(pos, firstOut[:n])
	for _, e := range g.Edges {
		head[pos[e.From]] = e.To
		weight[pos[e.From]] = e.Weight
		pos[e.From]++
		head[pos[e.To]] = e.From
		weight[pos[e.To]] = e.Weight
		pos[e.To]++
	}

	g.FirstOut = firstOut
	g.Head = head
	g.Weight = weight
}

// FromEdges assembles a graph from explicit nodes and edges without any
// visibility test. Edge endpoints are node indices; From/To are normalized
// so that From < To. Self-loops and duplicates are dropped.
func FromEdges(nodes []Node, edges []Edge) *Graph {
	g := &Graph{
		Nodes: nodes,
		Index: make(map[string]int, len(nodes)),
	}
	for i := range g.Nodes {
		if g.Nodes[i].ID == "" {
			g.Nodes[i].ID = Label(i)
		}
		g.Index[g.Nodes[i].ID] = i
	}

	seen := make(map[[2]int]bool, len(edges))
	for _, e := range edges {
		if e.From == e.To {
			continue
		}
		if e.From > e.To {
			e.From, e.To = e.To, e.From
		}
		k := [2]int{e.From, e.To}
		if seen[k] {
			continue
		}
		seen[k] = true
		g.Edges = append(g.Edges, e)
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].From != g.Edges[j].From {
			return g.Edges[i].From < g.Edges[j].From
		}
		return g.Edges[i].To < g.Edges[j].To
	})
	g.buildAdjacency()
	return g
}
