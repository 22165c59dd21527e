package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"campus_nav/pkg/geo"
	"campus_nav/pkg/graph"
	osmparser "campus_nav/pkg/osm"
	"campus_nav/pkg/routing"
	"campus_nav/pkg/site"

	"github.com/sirupsen/logrus"
	easy "github.com/t-tomalak/logrus-easy-formatter"
)

var log = logrus.WithField("module", "preprocess")

func main() {
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})

	sitePath := flag.String("site", "", "Path to site GeoJSON")
	osmPath := flag.String("osm", "", "Path to .osm or .osm.pbf (alternative to -site)")
	bbox := flag.String("bbox", "", "OSM bounding box filter: minLat,minLng,maxLat,maxLng")
	scale := flag.Float64("scale", geo.DefaultScale, "Scene units per meter")
	output := flag.String("output", "", "Write the graph as GeoJSON to this path")
	from := flag.String("from", "", "Optional route start node (e.g. A)")
	to := flag.String("to", "", "Optional route end node")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if (*sitePath == "") == (*osmPath == "") {
		fmt.Fprintln(os.Stderr, "Usage: preprocess (-site <file.geojson> | -osm <file.osm[.pbf]> [-bbox ...]) [-output graph.geojson] [-from A -to F]")
		os.Exit(1)
	}

	start := time.Now()

	// Step 1: Load the site.
	var s *site.Site
	var err error
	if *sitePath != "" {
		log.Infof("Loading site %s...", *sitePath)
		s, err = site.Load(*sitePath)
	} else {
		var box osmparser.BBox
		box, err = osmparser.ParseBBox(*bbox)
		if err == nil {
			log.Infof("Parsing OSM data %s...", *osmPath)
			s, err = osmparser.Load(context.Background(), *osmPath, box)
		}
	}
	if err != nil {
		log.Fatalf("Failed to load site: %v", err)
	}

	// Step 2: Build the visibility graph.
	g, conv, err := s.Build(*scale)
	if err != nil {
		log.Fatalf("Failed to build graph: %v", err)
	}
	st := graph.ComputeStats(g)
	log.Infof("Graph: %d nodes, %d edges, %d obstacles", st.Nodes, st.Edges, st.Obstacles)
	log.Infof("Components: %d (largest %d nodes), isolated: %v", st.Components, st.LargestComponent, graph.Isolated(g))

	// Step 3: Optional route check.
	if *from != "" && *to != "" {
		eng := routing.NewEngine(g, conv)
		res, err := eng.Route(context.Background(), *from, *to)
		if err != nil {
			log.Errorf("Route %s -> %s: %v", *from, *to, err)
		} else {
			log.Infof("Route %s -> %s: %v (%.1f m)", *from, *to, res.Nodes, res.TotalDistanceMeters)
		}
	}

	// Step 4: Export.
	if *output != "" {
		data, err := json.MarshalIndent(graph.GeoJSON(g), "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode GeoJSON: %v", err)
		}
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			log.Fatalf("Failed to write %s: %v", *output, err)
		}
		log.Infof("Wrote %s (%.1f KB)", *output, float64(len(data))/1024)
	}

	log.Infof("Done in %s", time.Since(start).Round(time.Millisecond))
}
