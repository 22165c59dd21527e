package routing

import (
	"errors"
	"math"

	"campus_nav/pkg/geo"
	"campus_nav/pkg/graph"

	"github.com/tidwall/rtree"
)

// ErrPointTooFar is returned when the query point is farther than the
// snapper's limit from every node.
var ErrPointTooFar = errors.New("point too far from any node")

// ErrEmptyGraph is returned when snapping against a graph with no nodes.
var ErrEmptyGraph = errors.New("graph has no nodes")

// SnapResult represents a point snapped to a graph node.
type SnapResult struct {
	Index int
	ID    string
	Dist  float64 // meters from the query point
}

// Snapper finds the nearest node through an R-tree. Points are indexed as
// (lon·cos(lat0), lat) so that planar box distance orders candidates the
// same way as ground distance around the site.
type Snapper struct {
	tr     rtree.RTreeG[int]
	g      *graph.Graph
	cosLat float64

	// MaxDistMeters rejects snaps farther than this. Zero means unlimited.
	MaxDistMeters float64
}

// NewSnapper indexes every node of g.
func NewSnapper(g *graph.Graph) *Snapper {
	s := &Snapper{g: g, cosLat: 1}
	if g.NumNodes() > 0 {
		s.cosLat = math.Cos(g.Nodes[0].Lat * math.Pi / 180)
	}
	for i, n := range g.Nodes {
		p := s.key(n.Lat, n.Lon)
		s.tr.Insert(p, p, i)
	}
	return s
}

func (s *Snapper) key(lat, lon float64) [2]float64 {
	return [2]float64{lon * s.cosLat, lat}
}

// Snap returns the node nearest to (lat, lon). Equidistant nodes resolve
// to the lowest index.
func (s *Snapper) Snap(lat, lon float64) (SnapResult, error) {
	if s.tr.Len() == 0 {
		return SnapResult{}, ErrEmptyGraph
	}

	q := s.key(lat, lon)
	best := noNode
	bestDist := math.Inf(1)
	s.tr.Nearby(
		rtree.BoxDist[float64, int](q, q, nil),
		func(_, _ [2]float64, i int, dist float64) bool {
			if best != noNode && dist > bestDist {
				return false
			}
			if best == noNode || dist < bestDist || i < best {
				best, bestDist = i, dist
			}
			return true
		},
	)

	n := s.g.Nodes[best]
	d := geo.Haversine(lat, lon, n.Lat, n.Lon)
	if s.MaxDistMeters > 0 && d > s.MaxDistMeters {
		return SnapResult{}, ErrPointTooFar
	}
	return SnapResult{Index: best, ID: n.ID, Dist: d}, nil
}
