package motion

import (
	"math"

	"campus_nav/pkg/geo"

	"github.com/paulmach/orb"
)

// maxTurnSlowdown caps how much an upcoming turn reduces speed.
const maxTurnSlowdown = 0.7

// Tick advances a along its route by delta seconds and reports whether it
// arrived at the end of the route during this tick. Only Traveling agents
// move; progress overshoot past a segment end is dropped.
func Tick(a *Agent, delta float64, cfg Config) bool {
	if !a.Active() {
		a.State = Idle
		return false
	}
	r := &a.Route
	n := len(r.Waypoints)
	if a.State != Traveling || delta <= 0 {
		return false
	}

	seg := min(r.Segment, n-2)
	p1, p2 := r.Waypoints[seg], r.Waypoints[seg+1]
	d := sub(p2, p1)
	segLen := length(d)
	dir := normalize(d)

	turnFactor := 1.0
	if seg+2 < n {
		next := normalize(sub(r.Waypoints[seg+2], p2))
		if segLen > 0 && next != (orb.Point{}) {
			angle := angleBetween(dir, next)
			turnFactor = 1 - math.Min(angle/math.Pi, maxTurnSlowdown)
		}
	}

	step := cfg.BaseSpeed * (0.5 + 0.5*turnFactor) * delta * nominalFPS
	if a.Kind == Pedestrian {
		step *= a.SpeedFactor
	}

	arrived := false
	progress := r.Progress + step
	if progress >= 1 || segLen == 0 {
		if seg < n-2 {
			r.Segment = seg + 1
			r.Progress = 0
		} else {
			r.Progress = 1
			a.State = Arrived
			arrived = true
		}
		progress = 1
	} else {
		r.Progress = progress
	}

	heading := dir
	if a.Kind == Pedestrian {
		final := normalize(add(dir, a.Avoid))
		if final == (orb.Point{}) {
			final = dir
		}
		a.Position = add(a.Position, scale(final, step*segLen))
		if a.AvoidTimer <= 0 && cfg.RecenterBlend > 0 {
			proj, _ := geo.PointToSegment(a.Position, p1, p2)
			a.Position = lerp(a.Position, proj, perFrame(cfg.RecenterBlend, delta))
		}
		heading = final
	} else {
		a.Position = lerp(p1, p2, progress)
	}

	if heading != (orb.Point{}) {
		rotRate := cfg.BaseRotRate * (0.6 + 0.4*turnFactor)
		diff := wrapAngle(headingOf(heading) - a.Heading)
		a.Heading = wrapAngle(a.Heading + diff*perFrame(rotRate, delta))
	}

	return arrived
}
