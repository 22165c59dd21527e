// Package nav owns the navigation session: the shared graph, the vehicle,
// the pedestrian crowd and the commands that re-target them between frames.
package nav

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"campus_nav/pkg/feed"
	"campus_nav/pkg/geo"
	"campus_nav/pkg/graph"
	"campus_nav/pkg/motion"
	"campus_nav/pkg/routing"

	"github.com/paulmach/orb"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "nav")

var (
	// ErrGraphNotReady is returned for route requests before the graph is loaded.
	ErrGraphNotReady = errors.New("graph not ready")
	// ErrNoLastRoute is returned by Return when nothing was dispatched yet.
	ErrNoLastRoute = errors.New("no dispatched route to retrace")
)

// VehicleID identifies the controllable vehicle in snapshots.
const VehicleID = "V"

// Config holds the session settings.
type Config struct {
	Home              string // dispatch origin
	Pedestrians       int
	Seed              int64
	Vehicle           motion.Config
	Pedestrian        motion.PedestrianConfig
	Avoidance         motion.AvoidanceConfig
	TelemetryInterval time.Duration
	MaxTargetMeters   float64 // reported positions farther from every node are ignored; 0 = no limit
}

// DefaultConfig returns the session defaults.
func DefaultConfig() Config {
	return Config{
		Home:              "A",
		Pedestrians:       40,
		Seed:              1,
		Vehicle:           motion.DefaultVehicleConfig(),
		Pedestrian:        motion.DefaultPedestrianConfig(),
		Avoidance:         motion.DefaultAvoidanceConfig(),
		TelemetryInterval: time.Second,
	}
}

// RouteKind tells route observers why a route was computed.
type RouteKind string

const (
	RouteDispatch RouteKind = "dispatch"
	RouteReturn   RouteKind = "return"
	RouteGuide    RouteKind = "guide"
)

// RouteEvent is delivered to OnRouteComputed observers.
type RouteEvent struct {
	Kind  RouteKind
	Route *routing.RouteResult
}

// Status summarizes the session after the last tick.
type Status struct {
	Ready    bool            `json:"ready"`
	Ticks    uint64          `json:"ticks"`
	Vehicle  motion.Snapshot `json:"vehicle"`
	Reported *routing.LatLng `json:"reported,omitempty"`
	Guide    []string        `json:"guide,omitempty"`
}

// Option configures a Context.
type Option func(*Context)

// WithClock replaces time.Now for telemetry throttling.
func WithClock(now func() time.Time) Option {
	return func(c *Context) { c.now = now }
}

type command func(*Context)

// Context is the long-lived navigation session. Tick must be called from a
// single goroutine; every other method is safe for concurrent use.
type Context struct {
	cfg Config
	now func() time.Time

	engMu     *xsync.RBMutex
	eng       *routing.Engine
	ready     chan struct{}
	readyOnce sync.Once

	obsMu       sync.Mutex
	onGraph     []func(*routing.Engine)
	onRoute     []func(RouteEvent)
	onAdvisory  []func(agentID string, failures int)
	onTelemetry []func(feed.Telemetry)

	cmdMu   sync.Mutex
	pending []command

	lastMu sync.Mutex
	last   *routing.RouteResult

	// Owned by the ticking goroutine.
	vehicle  *motion.Agent
	crowd    *motion.Crowd
	composer *TelemetryComposer
	reported *routing.LatLng
	guide    []string
	ticks    uint64

	snaps  *xsync.MapOf[string, motion.Snapshot]
	status atomic.Pointer[Status]
}

// NewContext creates an empty session. The graph arrives later through
// SetGraph or LoadAsync.
func NewContext(cfg Config, opts ...Option) *Context {
	if cfg.Home == "" {
		cfg.Home = "A"
	}
	if cfg.Pedestrians < 0 {
		cfg.Pedestrians = 0
	}
	if cfg.TelemetryInterval <= 0 {
		cfg.TelemetryInterval = time.Second
	}
	c := &Context{
		cfg:   cfg,
		now:   time.Now,
		engMu: xsync.NewRBMutex(),
		ready: make(chan struct{}),
		snaps: xsync.NewMapOf[string, motion.Snapshot](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Loader produces the graph and its scene projection.
type Loader func(ctx context.Context) (*graph.Graph, *geo.Converter, error)

// LoadAsync runs load in the background and publishes its graph. The
// returned channel yields the load error (nil on success) and closes.
func (c *Context) LoadAsync(ctx context.Context, load Loader) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		start := time.Now()
		g, conv, err := load(ctx)
		if err != nil {
			log.Errorf("Graph load failed: %v", err)
			errCh <- fmt.Errorf("load graph: %w", err)
			return
		}
		c.SetGraph(g, conv)
		log.Infof("Graph ready in %s", time.Since(start).Round(time.Millisecond))
		errCh <- nil
	}()
	return errCh
}

// SetGraph publishes g. Only the first call takes effect.
func (c *Context) SetGraph(g *graph.Graph, conv *geo.Converter) {
	var eng *routing.Engine
	var observers []func(*routing.Engine)
	c.readyOnce.Do(func() {
		eng = routing.NewEngine(g, conv)
		eng.SetMaxSnapDistance(c.cfg.MaxTargetMeters)
		c.obsMu.Lock()
		c.engMu.Lock()
		c.eng = eng
		c.engMu.Unlock()
		observers = append(observers, c.onGraph...)
		c.obsMu.Unlock()
		close(c.ready)
	})
	if eng == nil {
		log.Warn("Graph already set, ignoring")
		return
	}
	log.Infof("Graph published: %d nodes, %d edges", g.NumNodes(), len(g.Edges))
	for _, fn := range observers {
		fn(eng)
	}
}

// Ready is closed once the graph is published.
func (c *Context) Ready() <-chan struct{} {
	return c.ready
}

// Engine returns the routing engine, or nil before the graph is ready.
func (c *Context) Engine() *routing.Engine {
	t := c.engMu.RLock()
	defer c.engMu.RUnlock(t)
	return c.eng
}

// OnGraphReady registers fn; it runs immediately if the graph is ready.
func (c *Context) OnGraphReady(fn func(*routing.Engine)) {
	c.obsMu.Lock()
	eng := c.Engine()
	if eng == nil {
		c.onGraph = append(c.onGraph, fn)
	}
	c.obsMu.Unlock()
	if eng != nil {
		fn(eng)
	}
}

// OnRouteComputed registers fn for dispatch, return and guide routes.
func (c *Context) OnRouteComputed(fn func(RouteEvent)) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.onRoute = append(c.onRoute, fn)
}

// OnAdvisory registers fn for persistent routing failures.
func (c *Context) OnAdvisory(fn func(agentID string, failures int)) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.onAdvisory = append(c.onAdvisory, fn)
}

// OnTelemetry registers fn for throttled vehicle telemetry.
func (c *Context) OnTelemetry(fn func(feed.Telemetry)) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.onTelemetry = append(c.onTelemetry, fn)
}

func (c *Context) notifyRoute(ev RouteEvent) {
	c.obsMu.Lock()
	observers := slices.Clone(c.onRoute)
	c.obsMu.Unlock()
	for _, fn := range observers {
		fn(ev)
	}
}

func (c *Context) advise(agentID string, failures int) {
	c.obsMu.Lock()
	observers := slices.Clone(c.onAdvisory)
	c.obsMu.Unlock()
	for _, fn := range observers {
		fn(agentID, failures)
	}
}

func (c *Context) notifyTelemetry(t feed.Telemetry) {
	c.obsMu.Lock()
	observers := slices.Clone(c.onTelemetry)
	c.obsMu.Unlock()
	for _, fn := range observers {
		fn(t)
	}
}

// Route computes a shortest path between two nodes.
func (c *Context) Route(ctx context.Context, start, end string) (*routing.RouteResult, error) {
	eng := c.Engine()
	if eng == nil {
		return nil, ErrGraphNotReady
	}
	return eng.Route(ctx, start, end)
}

func (c *Context) enqueue(cmd command) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	c.pending = append(c.pending, cmd)
}

func (c *Context) drain() []command {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	cmds := c.pending
	c.pending = nil
	return cmds
}

// AssignVehicle queues a new vehicle route. With restart the vehicle snaps
// to the first waypoint; otherwise it heads there from where it stands.
func (c *Context) AssignVehicle(waypoints []orb.Point, nodes []string, restart bool) {
	wps := append([]orb.Point(nil), waypoints...)
	ids := append([]string(nil), nodes...)
	c.enqueue(func(c *Context) {
		if restart {
			c.vehicle.RestartRoute(wps, ids)
		} else {
			c.vehicle.AssignRoute(wps, ids)
		}
		c.composer.Reset()
	})
}

// Dispatch routes the vehicle from home to node. The route is returned at
// once and applied on the next tick.
func (c *Context) Dispatch(ctx context.Context, node string) (*routing.RouteResult, error) {
	res, err := c.Route(ctx, c.cfg.Home, node)
	if err != nil {
		return nil, err
	}
	c.lastMu.Lock()
	c.last = res
	c.lastMu.Unlock()

	log.Infof("Dispatch %s -> %s: %d nodes, %.0f m", c.cfg.Home, node, len(res.Nodes), res.TotalDistanceMeters)
	c.AssignVehicle(res.Waypoints, res.Nodes, true)
	c.notifyRoute(RouteEvent{Kind: RouteDispatch, Route: res})
	return res, nil
}

// Return sends the vehicle back to home along the last dispatched route. A
// vehicle still on its way turns back at the node its current segment
// started from, so it stays on graph edges. The dispatched route is kept and
// repeated calls retrace the same path.
func (c *Context) Return() (*routing.RouteResult, error) {
	eng := c.Engine()
	if eng == nil {
		return nil, ErrGraphNotReady
	}
	c.lastMu.Lock()
	last := c.last
	c.lastMu.Unlock()
	if last == nil {
		return nil, ErrNoLastRoute
	}

	v, _ := c.Snapshot(VehicleID)
	res := retrace(eng, last, turnNode(v.State, v.From, v.Target))
	log.Infof("Return %s -> %s", res.Nodes[0], res.Nodes[len(res.Nodes)-1])
	c.enqueue(func(c *Context) {
		// Commands queued ahead of this one may have moved the vehicle on.
		plan := res
		r := c.vehicle.Route
		if node := turnNode(c.vehicle.State, r.From(), r.Destination()); node != turnNode(v.State, v.From, v.Target) {
			plan = retrace(eng, last, node)
		}
		wps := plan.Waypoints
		if len(wps) == 1 && c.vehicle.Position != wps[0] {
			wps = []orb.Point{c.vehicle.Position, wps[0]}
		}
		c.vehicle.AssignRoute(wps, plan.Nodes)
		c.composer.Reset()
	})
	c.notifyRoute(RouteEvent{Kind: RouteReturn, Route: res})
	return res, nil
}

// turnNode is the graph node a returning vehicle heads back through first:
// the start of its current segment, or where it arrived.
func turnNode(state motion.State, from, target string) string {
	switch state {
	case motion.Traveling:
		return from
	case motion.Arrived:
		return target
	}
	return ""
}

// retrace reverses last from node back to its start, or all of last when
// node is not on it.
func retrace(eng *routing.Engine, last *routing.RouteResult, node string) *routing.RouteResult {
	if i := slices.Index(last.Nodes, node); i >= 0 {
		return eng.Path(lo.Reverse(slices.Clone(last.Nodes[:i+1])))
	}
	return eng.Reverse(last)
}

// Target records a reported vehicle position. On the next tick a guide route
// from home to the nearest node is computed; the vehicle itself is not moved.
func (c *Context) Target(lat, lon float64) {
	c.enqueue(func(c *Context) {
		c.reported = &routing.LatLng{Lat: lat, Lng: lon}
		eng := c.Engine()
		nearest, err := eng.Nearest(lat, lon)
		if err != nil {
			log.Debugf("Target %.6f,%.6f: %v", lat, lon, err)
			c.guide = nil
			return
		}
		res, err := eng.Route(context.Background(), c.cfg.Home, nearest)
		if err != nil {
			log.Debugf("Guide %s -> %s: %v", c.cfg.Home, nearest, err)
			c.guide = nil
			return
		}
		c.guide = res.Nodes
		c.notifyRoute(RouteEvent{Kind: RouteGuide, Route: res})
	})
}

// HandleEvent applies a decoded relay event.
func (c *Context) HandleEvent(ev feed.Event) {
	switch ev.Type {
	case feed.EventTarget:
		c.Target(ev.Lat, ev.Lon)
	case feed.EventDispatch:
		if _, err := c.Dispatch(context.Background(), ev.Node); err != nil {
			log.Warnf("Dispatch to %s: %v", ev.Node, err)
		}
	case feed.EventReturn:
		if _, err := c.Return(); err != nil {
			log.Warnf("Return: %v", err)
		}
	default:
		log.Debugf("Ignoring relay event %q", ev.Type)
	}
}

// Tick advances the session by delta seconds. Before the graph is ready it
// does nothing and queued commands wait.
func (c *Context) Tick(delta float64) {
	eng := c.Engine()
	if eng == nil {
		return
	}
	if delta < 0 {
		delta = 0
	}
	if c.vehicle == nil {
		c.start(eng)
	}

	for _, cmd := range c.drain() {
		cmd(c)
	}

	if motion.Tick(c.vehicle, delta, c.cfg.Vehicle) {
		log.Infof("Vehicle arrived at %s", c.vehicle.Route.Destination())
	}
	c.crowd.Step(delta)
	c.ticks++
	c.publish()
}

// start places the vehicle at home and spawns the crowd.
func (c *Context) start(eng *routing.Engine) {
	g := eng.Graph()
	conv := eng.Converter()

	c.vehicle = motion.NewAgent(VehicleID, motion.Vehicle)
	if home, ok := g.Node(c.cfg.Home); ok {
		c.vehicle.Position = conv.ToScene(home.Lat, home.Lon)
	} else {
		log.Warnf("Home node %q not in graph, vehicle starts at the scene origin", c.cfg.Home)
	}
	c.composer = NewTelemetryComposer(conv, c.cfg.TelemetryInterval)

	ids := lo.Map(g.Nodes, func(n graph.Node, _ int) string { return n.ID })
	picker := motion.NewRandomPicker(eng, ids, rand.New(rand.NewSource(c.cfg.Seed)), c.cfg.Pedestrian.MaxAttempts)
	c.crowd = motion.NewCrowd(c.cfg.Pedestrians, picker, c.cfg.Pedestrian, c.cfg.Avoidance)
	c.crowd.OnAdvisory(c.advise)
	c.crowd.Spawn()
	log.Infof("Simulation started: %d pedestrians", c.cfg.Pedestrians)
}

func (c *Context) publish() {
	vs := c.vehicle.Snapshot()
	c.snaps.Store(vs.ID, vs)
	for _, s := range c.crowd.Snapshots() {
		c.snaps.Store(s.ID, s)
	}

	c.status.Store(&Status{
		Ready:    true,
		Ticks:    c.ticks,
		Vehicle:  vs,
		Reported: c.reported,
		Guide:    c.guide,
	})

	if t, ok := c.composer.Sample(c.now(), vs); ok {
		c.notifyTelemetry(t)
	}
}

// Snapshots returns the latest agent states, vehicle first.
func (c *Context) Snapshots() []motion.Snapshot {
	out := make([]motion.Snapshot, 0, c.snaps.Size())
	c.snaps.Range(func(_ string, s motion.Snapshot) bool {
		out = append(out, s)
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind != b.Kind {
			return a.Kind == motion.Vehicle
		}
		if len(a.ID) != len(b.ID) {
			return len(a.ID) < len(b.ID)
		}
		return a.ID < b.ID
	})
	return out
}

// Snapshot returns the latest state of one agent.
func (c *Context) Snapshot(id string) (motion.Snapshot, bool) {
	return c.snaps.Load(id)
}

// Status returns the summary published by the last tick.
func (c *Context) Status() Status {
	if s := c.status.Load(); s != nil {
		return *s
	}
	return Status{}
}
