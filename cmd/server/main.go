package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"campus_nav/pkg/api"
	"campus_nav/pkg/feed"
	"campus_nav/pkg/geo"
	"campus_nav/pkg/graph"
	"campus_nav/pkg/nav"
	osmparser "campus_nav/pkg/osm"
	"campus_nav/pkg/routing"
	"campus_nav/pkg/site"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	easy "github.com/t-tomalak/logrus-easy-formatter"
)

var logLevels = map[string]logrus.Level{
	"debug": logrus.DebugLevel,
	"info":  logrus.InfoLevel,
	"warn":  logrus.WarnLevel,
	"error": logrus.ErrorLevel,
}

var log = logrus.WithField("module", "main")

// envOr returns the CAMPUS_NAV_<key> environment variable, or def.
func envOr(key, def string) string {
	if v, ok := os.LookupEnv("CAMPUS_NAV_" + key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(envOr(key, "")); err == nil {
		return v
	}
	return def
}

func main() {
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using environment and flags")
	}

	sitePath := flag.String("site", envOr("SITE", ""), "Path to site GeoJSON (points = nodes, polygons = obstacles)")
	osmPath := flag.String("osm", envOr("OSM", ""), "Path to .osm or .osm.pbf (alternative to -site)")
	bbox := flag.String("bbox", envOr("BBOX", ""), "OSM bounding box filter: minLat,minLng,maxLat,maxLng")
	scale := flag.Float64("scale", geo.DefaultScale, "Scene units per meter")
	port := flag.Int("port", envInt("PORT", 8080), "HTTP port")
	corsOrigin := flag.String("cors-origin", envOr("CORS_ORIGIN", ""), "CORS allowed origin (empty = same-origin)")
	relayURL := flag.String("relay", envOr("RELAY_URL", ""), "Live feed websocket URL (empty = disabled)")
	telemetryURL := flag.String("telemetry-url", envOr("TELEMETRY_URL", ""), "HTTP endpoint receiving vehicle telemetry")
	pedestrians := flag.Int("pedestrians", envInt("PEDESTRIANS", 40), "Number of simulated pedestrians")
	seed := flag.Int64("seed", int64(envInt("SEED", 1)), "Random seed for pedestrian routes")
	fps := flag.Int("fps", envInt("FPS", 60), "Simulation frames per second")
	maxTarget := flag.Int("max-target-meters", envInt("MAX_TARGET_METERS", 0), "Ignore reported positions farther than this from every node (0 = no limit)")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "log level [debug, info, warn, error]")
	flag.Parse()

	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Fatalf("Invalid log level: %s", *logLevel)
	}
	if (*sitePath == "") == (*osmPath == "") {
		fmt.Fprintln(os.Stderr, "Usage: server (-site <file.geojson> | -osm <file.osm[.pbf]> [-bbox ...]) [-port 8080] [-relay ws://...]")
		os.Exit(1)
	}
	if *fps <= 0 {
		log.Fatalf("Invalid fps: %d", *fps)
	}

	var loader nav.Loader
	if *sitePath != "" {
		loader = site.Loader(*sitePath, *scale)
	} else {
		box, err := osmparser.ParseBBox(*bbox)
		if err != nil {
			log.Fatalf("%v", err)
		}
		path := *osmPath
		loader = func(ctx context.Context) (*graph.Graph, *geo.Converter, error) {
			s, err := osmparser.Load(ctx, path, box)
			if err != nil {
				return nil, nil, err
			}
			return s.Build(*scale)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := nav.DefaultConfig()
	cfg.Pedestrians = *pedestrians
	cfg.Seed = *seed
	cfg.MaxTargetMeters = float64(*maxTarget)
	session := nav.NewContext(cfg)

	session.OnGraphReady(func(eng *routing.Engine) {
		st := graph.ComputeStats(eng.Graph())
		log.Infof("Graph: %d nodes, %d edges, %d obstacles, %d components", st.Nodes, st.Edges, st.Obstacles, st.Components)
		if st.Isolated > 0 {
			log.Warnf("%d nodes have no visible neighbour", st.Isolated)
		}
	})
	session.OnRouteComputed(func(ev nav.RouteEvent) {
		log.Infof("Route (%s): %v", ev.Kind, ev.Route.Nodes)
	})
	session.OnAdvisory(func(agentID string, failures int) {
		log.Warnf("Advisory: %s could not find a route (%d attempts)", agentID, failures)
	})

	// Live feed relay.
	var client *feed.Client
	if *relayURL != "" {
		client = feed.NewClient(feed.DefaultClientConfig(*relayURL))
		client.OnEvent(session.HandleEvent)
		go client.Run(ctx)
	}
	if *telemetryURL != "" || client != nil {
		pub := feed.NewPublisher(*telemetryURL, client)
		session.OnTelemetry(pub.Publish)
		defer pub.Wait()
	}

	errCh := session.LoadAsync(ctx, loader)
	go func() {
		if err := <-errCh; err != nil {
			log.Fatalf("Failed to load graph: %v", err)
		}
	}()

	go runFrames(ctx, session, *fps)

	srvCfg := api.DefaultConfig(fmt.Sprintf(":%d", *port))
	srvCfg.CORSOrigin = *corsOrigin
	srv := api.NewServer(srvCfg, api.NewHandlers(session))

	if err := api.Serve(ctx, srv); err != nil {
		log.Errorf("Server stopped: %v", err)
		os.Exit(1)
	}
}

// runFrames drives session.Tick at fps with the measured frame delta.
func runFrames(ctx context.Context, session *nav.Context, fps int) {
	const maxDelta = 0.1

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			delta := min(now.Sub(last).Seconds(), maxDelta)
			last = now
			session.Tick(delta)
		}
	}
}
