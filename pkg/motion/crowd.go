package motion

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"campus_nav/pkg/routing"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "motion")

// Plan is a route ready to be handed to an agent.
type Plan struct {
	Nodes     []string
	Waypoints []orb.Point
}

// RoutePicker chooses a new route for a pedestrian starting at from. An
// empty from lets the picker choose the start as well.
type RoutePicker interface {
	PickRoute(from string) (Plan, bool)
}

// RandomPicker draws random destinations until one is reachable.
type RandomPicker struct {
	router      routing.Router
	nodes       []string
	rng         *rand.Rand
	maxAttempts int
}

// NewRandomPicker creates a picker over the given node IDs. rng must not be
// shared with other goroutines.
func NewRandomPicker(router routing.Router, nodes []string, rng *rand.Rand, maxAttempts int) *RandomPicker {
	if maxAttempts <= 0 {
		maxAttempts = DefaultPedestrianConfig().MaxAttempts
	}
	return &RandomPicker{
		router:      router,
		nodes:       nodes,
		rng:         rng,
		maxAttempts: maxAttempts,
	}
}

// PickRoute draws up to maxAttempts destinations, skipping self-loops and
// unreachable ones.
func (p *RandomPicker) PickRoute(from string) (Plan, bool) {
	if len(p.nodes) == 0 {
		return Plan{}, false
	}
	start := from
	if start == "" {
		start = p.nodes[p.rng.Intn(len(p.nodes))]
	}

	for range p.maxAttempts {
		end := p.nodes[p.rng.Intn(len(p.nodes))]
		if end == start {
			continue
		}
		res, err := p.router.Route(context.Background(), start, end)
		if err != nil {
			if !errors.Is(err, routing.ErrNoRoute) {
				log.Debugf("Pick %s -> %s: %v", start, end, err)
			}
			continue
		}
		if len(res.Nodes) < 2 {
			continue
		}
		return Plan{Nodes: res.Nodes, Waypoints: res.Waypoints}, true
	}
	return Plan{}, false
}

// Crowd owns the pedestrian agents and steps them together.
type Crowd struct {
	Agents []*Agent

	picker   RoutePicker
	cfg      PedestrianConfig
	avoid    AvoidanceConfig
	advisory func(agentID string, failures int)
}

// NewCrowd creates n idle pedestrians named P0..Pn-1.
func NewCrowd(n int, picker RoutePicker, cfg PedestrianConfig, avoid AvoidanceConfig) *Crowd {
	c := &Crowd{
		picker: picker,
		cfg:    cfg,
		avoid:  avoid,
	}
	for i := range n {
		c.Agents = append(c.Agents, NewAgent(fmt.Sprintf("P%d", i), Pedestrian))
	}
	return c
}

// OnAdvisory registers fn to be called once per pedestrian that keeps
// failing to find a route.
func (c *Crowd) OnAdvisory(fn func(agentID string, failures int)) {
	c.advisory = fn
}

// Spawn gives every pedestrian its first route from a random start.
func (c *Crowd) Spawn() {
	for _, a := range c.Agents {
		c.rearm(a)
	}
}

// Step advances the crowd by delta seconds.
func (c *Crowd) Step(delta float64) {
	Avoid(c.Agents, c.avoid)

	for _, a := range c.Agents {
		if Tick(a, delta, c.cfg.Motion) {
			c.rearm(a)
		}
	}

	Relax(c.Agents, delta, c.avoid)

	// Idle pedestrians retry on their own clock.
	for _, a := range c.Agents {
		if a.State != Idle {
			continue
		}
		a.retryIn -= delta
		if a.retryIn <= 0 {
			c.rearm(a)
		}
	}
}

// rearm picks a route from the agent's last destination and restarts it on
// the first waypoint, or leaves it idle until the next retry.
func (c *Crowd) rearm(a *Agent) {
	plan, ok := c.picker.PickRoute(a.Route.Destination())
	if ok {
		a.RestartRoute(plan.Waypoints, plan.Nodes)
		a.failures = 0
		a.advised = false
		return
	}

	a.State = Idle
	a.retryIn = c.cfg.RetryInterval.Seconds()
	a.failures++
	if a.failures >= c.cfg.AdvisoryAfter && !a.advised {
		a.advised = true
		log.Warnf("Pedestrian %s found no route after %d attempts", a.ID, a.failures)
		if c.advisory != nil {
			c.advisory(a.ID, a.failures)
		}
	}
}

// Snapshots returns the current state of every pedestrian.
func (c *Crowd) Snapshots() []Snapshot {
	out := make([]Snapshot, len(c.Agents))
	for i, a := range c.Agents {
		out[i] = a.Snapshot()
	}
	return out
}
