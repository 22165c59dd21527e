package routing

import (
	"context"
	"errors"
	"fmt"

	"campus_nav/pkg/geo"
	"campus_nav/pkg/graph"

	"github.com/paulmach/orb"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "routing")

// ErrNoRoute is returned when no route exists between the two nodes.
var ErrNoRoute = errors.New("no route found")

// ErrUnknownNode is returned when a node ID is not in the graph.
var ErrUnknownNode = errors.New("unknown node")

// LatLng represents a geographic coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RouteResult is the output of a route query.
type RouteResult struct {
	Nodes               []string    // node IDs, start first
	Waypoints           []orb.Point // scene frame, one per node
	Geometry            []LatLng
	TotalDistanceMeters float64
}

// Router is the interface for route queries.
type Router interface {
	Route(ctx context.Context, start, end string) (*RouteResult, error)
}

// Engine implements Router over a visibility graph.
type Engine struct {
	g       *graph.Graph
	conv    *geo.Converter
	snapper *Snapper
}

// NewEngine creates a routing engine. conv must be the converter the graph
// was built with; nil derives one from node A.
func NewEngine(g *graph.Graph, conv *geo.Converter) *Engine {
	if conv == nil && g.NumNodes() > 0 {
		conv = geo.NewConverter(g.Nodes[0].Lat, g.Nodes[0].Lon, geo.DefaultScale)
	}
	return &Engine{
		g:       g,
		conv:    conv,
		snapper: NewSnapper(g),
	}
}

// Graph returns the underlying graph.
func (e *Engine) Graph() *graph.Graph { return e.g }

// Converter returns the scene projection.
func (e *Engine) Converter() *geo.Converter { return e.conv }

// Route computes the shortest path between two node IDs.
func (e *Engine) Route(ctx context.Context, start, end string) (*RouteResult, error) {
	if _, ok := e.g.Lookup(start); !ok {
		return nil, fmt.Errorf("start %q: %w", start, ErrUnknownNode)
	}
	if _, ok := e.g.Lookup(end); !ok {
		return nil, fmt.Errorf("end %q: %w", end, ErrUnknownNode)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := ShortestPath(e.g, start, end)
	if len(ids) < 2 {
		log.Debugf("No route %s -> %s", start, end)
		return nil, ErrNoRoute
	}
	return e.Path(ids), nil
}

// Reverse returns the route that retraces r from its end to its start.
func (e *Engine) Reverse(r *RouteResult) *RouteResult {
	return e.Path(lo.Reverse(append([]string(nil), r.Nodes...)))
}

// Path builds the result for a node sequence that is already known to be
// walkable, such as a slice of an earlier route. ids must exist in the graph.
func (e *Engine) Path(ids []string) *RouteResult {
	nodes := lo.Map(ids, func(id string, _ int) graph.Node {
		n, _ := e.g.Node(id)
		return n
	})
	total, _ := PathLength(e.g, ids)
	return &RouteResult{
		Nodes: ids,
		Waypoints: lo.Map(nodes, func(n graph.Node, _ int) orb.Point {
			return e.conv.ToScene(n.Lat, n.Lon)
		}),
		Geometry: lo.Map(nodes, func(n graph.Node, _ int) LatLng {
			return LatLng{Lat: n.Lat, Lng: n.Lon}
		}),
		TotalDistanceMeters: total,
	}
}

// SetMaxSnapDistance makes Nearest reject points farther than meters from
// every node. Zero disables the limit. Call it before sharing the engine.
func (e *Engine) SetMaxSnapDistance(meters float64) {
	e.snapper.MaxDistMeters = meters
}

// Nearest returns the ID of the node closest to the given coordinate.
func (e *Engine) Nearest(lat, lon float64) (string, error) {
	snap, err := e.snapper.Snap(lat, lon)
	if err != nil {
		return "", err
	}
	return snap.ID, nil
}
