package graph

import (
	"strings"

	"github.com/paulmach/orb"
)

// ObstacleKind classifies an obstacle polygon by its source name.
type ObstacleKind string

const (
	KindBuilding ObstacleKind = "building"
	KindLawn     ObstacleKind = "lawn"
	KindBoundary ObstacleKind = "boundary"
	KindOther    ObstacleKind = "other"
)

// ClassifyObstacle derives the kind of a polygon from its placemark name.
// Unnamed and "sans titre" polygons are lawns.
func ClassifyObstacle(name string) ObstacleKind {
	n := strings.ToLower(strings.TrimSpace(name))
	switch {
	case n == "" || strings.Contains(n, "sans titre"):
		return KindLawn
	case strings.Contains(n, "bat"):
		return KindBuilding
	case strings.Contains(n, "limite"):
		return KindBoundary
	}
	return KindOther
}

// RawNode is a named point of interest as produced by a loader.
type RawNode struct {
	Name string
	Lat  float64
	Lon  float64
}

// Node is a graph vertex. ID is the enumeration label (A, B, ..., AA, ...).
type Node struct {
	ID    string
	Name  string
	Lat   float64
	Lon   float64
	Local orb.Point // scene frame {x, z}
}

// Point returns the node position as [lon, lat].
func (n Node) Point() orb.Point {
	return orb.Point{n.Lon, n.Lat}
}

// Obstacle is an immutable polygon ring of [lon, lat] points.
type Obstacle struct {
	Ring orb.Ring
	Kind ObstacleKind
	Name string
}

// Edge is an undirected visibility edge between two node indices, From < To.
type Edge struct {
	From   int
	To     int
	Weight float64 // great-circle meters
}

// Graph is an undirected visibility graph. Every edge in Edges appears twice
// in the CSR adjacency (FirstOut/Head/Weight), once per direction.
type Graph struct {
	Nodes     []Node
	Obstacles []Obstacle
	Edges     []Edge

	FirstOut []int     // len: len(Nodes)+1
	Head     []int     // len: 2*len(Edges)
	Weight   []float64 // len: 2*len(Edges)

	Index map[string]int // node ID -> index
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int {
	return len(g.Nodes)
}

// EdgesFrom returns the range of adjacency slots for node u.
func (g *Graph) EdgesFrom(u int) (start, end int) {
	return g.FirstOut[u], g.FirstOut[u+1]
}

// Lookup resolves a node ID to its index.
func (g *Graph) Lookup(id string) (int, bool) {
	i, ok := g.Index[id]
	return i, ok
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.Index[id]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// EdgeWeight returns the weight of edge u-v if it exists.
func (g *Graph) EdgeWeight(u, v int) (float64, bool) {
	start, end := g.EdgesFrom(u)
	for e := start; e < end; e++ {
		if g.Head[e] == v {
			return g.Weight[e], true
		}
	}
	return 0, false
}

// HasEdge reports whether the two named nodes are directly connected.
func (g *Graph) HasEdge(a, b string) bool {
	u, ok := g.Index[a]
	if !ok {
		return false
	}
	v, ok := g.Index[b]
	if !ok {
		return false
	}
	_, ok = g.EdgeWeight(u, v)
	return ok
}

// Label returns the identifier of the i-th node: 0 -> A, 25 -> Z, 26 -> AA.
func Label(i int) string {
	var buf []byte
	for n := i; n >= 0; n = n/26 - 1 {
		buf = append([]byte{byte('A' + n%26)}, buf...)
	}
	return string(buf)
}
