// Package site loads a site description from GeoJSON: Point features are
// points of interest, Polygon and MultiPolygon features are obstacles.
package site

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"campus_nav/pkg/geo"
	"campus_nav/pkg/graph"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "site")

// ErrNoOrigin is returned when a site has no point features to anchor the
// scene frame.
var ErrNoOrigin = errors.New("site has no point features")

// Site is the raw input to graph construction.
type Site struct {
	Nodes     []graph.RawNode
	Obstacles []graph.Obstacle
}

// Load reads and parses a GeoJSON FeatureCollection.
func Load(path string) (*Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read site: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a FeatureCollection. Nodes keep feature order.
func Parse(data []byte) (*Site, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}

	s := &Site{}
	var skipped int
	for _, f := range fc.Features {
		name := stringProp(f.Properties, "name")
		switch geom := f.Geometry.(type) {
		case orb.Point:
			s.Nodes = append(s.Nodes, graph.RawNode{Name: name, Lat: geom.Lat(), Lon: geom.Lon()})
		case orb.Polygon:
			s.addPolygon(name, f.Properties, geom)
		case orb.MultiPolygon:
			for _, p := range geom {
				s.addPolygon(name, f.Properties, p)
			}
		default:
			skipped++
		}
	}
	if skipped > 0 {
		log.Debugf("Skipped %d features with unsupported geometry", skipped)
	}
	log.Infof("Site: %d nodes, %d obstacles", len(s.Nodes), len(s.Obstacles))
	return s, nil
}

func (s *Site) addPolygon(name string, props geojson.Properties, p orb.Polygon) {
	if len(p) == 0 || len(p[0]) < 3 {
		return
	}
	kind := graph.ClassifyObstacle(name)
	if k := stringProp(props, "kind"); k != "" {
		kind = graph.ObstacleKind(k)
	}
	s.Obstacles = append(s.Obstacles, graph.Obstacle{Ring: p[0], Kind: kind, Name: name})
}

// stringProp returns a string property, or "" when absent or not a string.
func stringProp(props geojson.Properties, key string) string {
	v, _ := props[key].(string)
	return v
}

// Converter returns the scene projection anchored at the first node.
func (s *Site) Converter(scale float64) (*geo.Converter, error) {
	if len(s.Nodes) == 0 {
		return nil, ErrNoOrigin
	}
	return geo.NewConverter(s.Nodes[0].Lat, s.Nodes[0].Lon, scale), nil
}

// Build constructs the navigation graph for the site.
func (s *Site) Build(scale float64) (*graph.Graph, *geo.Converter, error) {
	conv, err := s.Converter(scale)
	if err != nil {
		return nil, nil, err
	}
	start := time.Now()
	g := graph.Build(s.Nodes, s.Obstacles, conv)
	log.Infof("Graph built in %s", time.Since(start).Round(time.Microsecond))
	return g, conv, nil
}

// Loader returns a graph loader for the GeoJSON file at path.
func Loader(path string, scale float64) func(context.Context) (*graph.Graph, *geo.Converter, error) {
	return func(ctx context.Context) (*graph.Graph, *geo.Converter, error) {
		s, err := Load(path)
		if err != nil {
			return nil, nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		return s.Build(scale)
	}
}
