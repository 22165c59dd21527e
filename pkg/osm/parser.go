package osm

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"campus_nav/pkg/graph"
	"campus_nav/pkg/site"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "osm")

// Format selects the OSM encoding.
type Format int

const (
	FormatPBF Format = iota
	FormatXML
)

// FormatFor guesses the encoding from a file name: .osm and .xml are XML,
// anything else is PBF.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".osm", ".xml":
		return FormatXML
	}
	return FormatPBF
}

// lawnValues lists landuse/leisure values treated as lawns.
var lawnValues = map[string]bool{
	"grass":         true,
	"park":          true,
	"garden":        true,
	"pitch":         true,
	"meadow":        true,
	"village_green": true,
}

// obstacleKind returns the obstacle kind for a closed way, or false if the
// way does not block walking.
func obstacleKind(tags osm.Tags) (graph.ObstacleKind, bool) {
	if b := tags.Find("building"); b != "" && b != "no" {
		return graph.KindBuilding, true
	}
	if lawnValues[tags.Find("landuse")] || lawnValues[tags.Find("leisure")] {
		return graph.KindLawn, true
	}
	switch tags.Find("barrier") {
	case "wall", "fence", "hedge", "retaining_wall":
		return graph.KindBoundary, true
	}
	switch tags.Find("natural") {
	case "water", "wood", "scrub":
		return graph.KindOther, true
	}
	return "", false
}

// isPointOfInterest returns true for nodes that become navigation nodes.
func isPointOfInterest(tags osm.Tags) bool {
	return tags.Find("name") != "" || tags.Find("entrance") != ""
}

// wayInfo holds an obstacle way collected during pass 1.
type wayInfo struct {
	NodeIDs []osm.NodeID
	Kind    graph.ObstacleKind
	Name    string
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only nodes and obstacles fully inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	Format Format
	BBox   BBox
}

func newScanner(ctx context.Context, r io.Reader, format Format, skipNodes, skipWays bool) osm.Scanner {
	if format == FormatXML {
		return osmxml.New(ctx, r)
	}
	s := osmpbf.New(ctx, r, 1)
	s.SkipNodes = skipNodes
	s.SkipWays = skipWays
	s.SkipRelations = true
	return s
}

// Parse reads OSM data into a site: points of interest become nodes in file
// order, closed obstacle ways become obstacle rings. The reader is consumed
// twice, so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*site.Site, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	useBBox := !opt.BBox.IsZero()

	// Pass 1: closed obstacle ways and the nodes they reference.
	referenced := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner := newScanner(ctx, rs, opt.Format, true, false)
	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if len(w.Nodes) < 4 || w.Nodes[0].ID != w.Nodes[len(w.Nodes)-1].ID {
			continue
		}
		kind, ok := obstacleKind(w.Tags)
		if !ok {
			continue
		}
		ids := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			ids[i] = wn.ID
			referenced[wn.ID] = struct{}{}
		}
		ways = append(ways, wayInfo{NodeIDs: ids, Kind: kind, Name: w.Tags.Find("name")})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	log.Infof("Pass 1 complete: %d obstacle ways, %d referenced nodes", len(ways), len(referenced))

	// Pass 2: coordinates for ring nodes, plus the points of interest.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	coords := make(map[osm.NodeID]orb.Point, len(referenced))
	s := &site.Site{}
	var outside int

	scanner = newScanner(ctx, rs, opt.Format, false, true)
	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referenced[n.ID]; needed {
			coords[n.ID] = orb.Point{n.Lon, n.Lat}
		}
		if !isPointOfInterest(n.Tags) {
			continue
		}
		if useBBox && !opt.BBox.Contains(n.Lat, n.Lon) {
			outside++
			continue
		}
		s.Nodes = append(s.Nodes, graph.RawNode{Name: n.Tags.Find("name"), Lat: n.Lat, Lon: n.Lon})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Infof("Pass 2 complete: %d points of interest, %d ring coordinates", len(s.Nodes), len(coords))

	var incomplete int
	for _, w := range ways {
		ring := make(orb.Ring, 0, len(w.NodeIDs))
		for _, id := range w.NodeIDs {
			p, ok := coords[id]
			if !ok {
				break
			}
			ring = append(ring, p)
		}
		if len(ring) != len(w.NodeIDs) {
			incomplete++
			continue
		}
		if useBBox && !ringInside(ring, opt.BBox) {
			outside++
			continue
		}
		s.Obstacles = append(s.Obstacles, graph.Obstacle{Ring: ring, Kind: w.Kind, Name: w.Name})
	}

	if incomplete > 0 {
		log.Warnf("Skipped %d obstacles with missing node coordinates", incomplete)
	}
	if outside > 0 {
		log.Infof("Filtered %d features outside bounding box", outside)
	}
	log.Infof("Parsed %d nodes, %d obstacles", len(s.Nodes), len(s.Obstacles))
	return s, nil
}

func ringInside(r orb.Ring, b BBox) bool {
	for _, p := range r {
		if !b.Contains(p.Lat(), p.Lon()) {
			return false
		}
	}
	return true
}

// Load opens path and parses it, picking the format from the extension.
func Load(ctx context.Context, path string, bbox BBox) (*site.Site, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open osm: %w", err)
	}
	defer f.Close()
	return Parse(ctx, f, ParseOptions{Format: FormatFor(path), BBox: bbox})
}

// ParseBBox parses "minLat,minLng,maxLat,maxLng". An empty string is the
// zero box.
func ParseBBox(s string) (BBox, error) {
	if s == "" {
		return BBox{}, nil
	}
	var b BBox
	if _, err := fmt.Sscanf(s, "%f,%f,%f,%f", &b.MinLat, &b.MinLng, &b.MaxLat, &b.MaxLng); err != nil {
		return BBox{}, fmt.Errorf("invalid bbox %q (expected minLat,minLng,maxLat,maxLng): %w", s, err)
	}
	if b.MinLat > b.MaxLat || b.MinLng > b.MaxLng {
		return BBox{}, fmt.Errorf("invalid bbox %q: min exceeds max", s)
	}
	return b, nil
}
