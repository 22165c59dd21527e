package motion

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Kind distinguishes the controllable vehicle from crowd pedestrians.
type Kind int

const (
	Vehicle Kind = iota
	Pedestrian
)

func (k Kind) String() string {
	switch k {
	case Vehicle:
		return "vehicle"
	case Pedestrian:
		return "pedestrian"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "vehicle":
		*k = Vehicle
	case "pedestrian":
		*k = Pedestrian
	default:
		return fmt.Errorf("unknown agent kind %q", b)
	}
	return nil
}

// State is the path-following state of an agent.
type State int

const (
	Idle State = iota
	Traveling
	Arrived
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Traveling:
		return "traveling"
	case Arrived:
		return "arrived"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = Idle
	case "traveling":
		*s = Traveling
	case "arrived":
		*s = Arrived
	default:
		return fmt.Errorf("unknown agent state %q", b)
	}
	return nil
}

// Route is an agent's current plan. It is only ever replaced as a whole so
// that Segment and Progress always refer to the Waypoints they travel with.
type Route struct {
	Waypoints []orb.Point // scene frame
	Nodes     []string    // graph nodes the waypoints were planned through
	Segment   int         // index of the segment start in Waypoints
	Progress  float64     // fraction of the current segment, in [0, 1]
}

// Destination returns the last planned node, or "".
func (r Route) Destination() string {
	if len(r.Nodes) == 0 {
		return ""
	}
	return r.Nodes[len(r.Nodes)-1]
}

// From returns the graph node the current segment starts at, or "". A
// leading waypoint that is not a graph node counts as the first node.
func (r Route) From() string {
	if len(r.Nodes) == 0 {
		return ""
	}
	i := r.Segment - max(len(r.Waypoints)-len(r.Nodes), 0)
	return r.Nodes[min(max(i, 0), len(r.Nodes)-1)]
}

// Agent is a simulated vehicle or pedestrian.
type Agent struct {
	ID       string
	Kind     Kind
	Position orb.Point // scene frame {x, z}
	Heading  float64   // radians from +z
	State    State
	Route    Route

	// Pedestrian-only transients, driven by Avoid and Relax.
	Avoid       orb.Point
	SpeedFactor float64
	AvoidTimer  float64

	retryIn  float64 // seconds until the next route attempt while idle
	failures int     // consecutive failed route attempts
	advised  bool
}

// NewAgent creates an idle agent at the scene origin.
func NewAgent(id string, kind Kind) *Agent {
	return &Agent{ID: id, Kind: kind, SpeedFactor: 1}
}

// Active reports whether the agent holds a followable route.
func (a *Agent) Active() bool {
	return len(a.Route.Waypoints) >= 2
}

// AssignRoute re-targets the agent without moving it: when the agent is not
// already on the first waypoint, its current position becomes the start of
// the new route. Fewer than two waypoints leave the agent idle.
func (a *Agent) AssignRoute(waypoints []orb.Point, nodes []string) {
	if len(waypoints) < 2 {
		a.Route = Route{Nodes: nodes}
		a.State = Idle
		return
	}
	wps := make([]orb.Point, 0, len(waypoints)+1)
	if a.Position != waypoints[0] {
		wps = append(wps, a.Position)
	}
	wps = append(wps, waypoints...)
	a.Route = Route{Waypoints: wps, Nodes: nodes}
	a.State = Traveling
}

// RestartRoute re-targets the agent and snaps it onto the first waypoint.
func (a *Agent) RestartRoute(waypoints []orb.Point, nodes []string) {
	if len(waypoints) < 2 {
		a.Route = Route{Nodes: nodes}
		a.State = Idle
		return
	}
	a.Position = waypoints[0]
	a.Route = Route{Waypoints: append([]orb.Point(nil), waypoints...), Nodes: nodes}
	a.State = Traveling
}

// Snapshot is the per-tick view of an agent shared with renderers and
// telemetry.
type Snapshot struct {
	ID       string  `json:"id"`
	Kind     Kind    `json:"kind"`
	X        float64 `json:"x"`
	Z        float64 `json:"z"`
	Heading  float64 `json:"heading"`
	State    State   `json:"state"`
	Segment  int     `json:"segment"`
	Progress float64 `json:"progress"`
	From     string  `json:"from,omitempty"`
	Target   string  `json:"target,omitempty"`
}

// Snapshot captures the agent's current state.
func (a *Agent) Snapshot() Snapshot {
	return Snapshot{
		ID:       a.ID,
		Kind:     a.Kind,
		X:        a.Position[0],
		Z:        a.Position[1],
		Heading:  a.Heading,
		State:    a.State,
		Segment:  a.Route.Segment,
		Progress: a.Route.Progress,
		From:     a.Route.From(),
		Target:   a.Route.Destination(),
	}
}
