package nav

import (
	"math"
	"time"

	"campus_nav/pkg/feed"
	"campus_nav/pkg/geo"
	"campus_nav/pkg/motion"

	"github.com/paulmach/orb"
)

// TelemetryComposer turns vehicle snapshots into throttled telemetry.
type TelemetryComposer struct {
	conv     *geo.Converter
	interval time.Duration

	last    time.Time
	lastPos orb.Point
	primed  bool
}

// NewTelemetryComposer emits at most one sample per interval.
func NewTelemetryComposer(conv *geo.Converter, interval time.Duration) *TelemetryComposer {
	return &TelemetryComposer{conv: conv, interval: interval}
}

// Reset forgets the previous sample so the next one is emitted at once,
// without a speed estimate.
func (c *TelemetryComposer) Reset() {
	c.primed = false
}

// Sample returns telemetry for s if the interval has elapsed since the last
// emitted sample.
func (c *TelemetryComposer) Sample(now time.Time, s motion.Snapshot) (feed.Telemetry, bool) {
	if c.primed && now.Sub(c.last) < c.interval {
		return feed.Telemetry{}, false
	}

	pos := orb.Point{s.X, s.Z}
	lat, lon := c.conv.FromScene(pos)
	t := feed.Telemetry{
		X:       lat,
		Y:       lon,
		Heading: normalizeDegrees(s.Heading * 180 / math.Pi),
	}
	if c.primed {
		if dt := now.Sub(c.last).Seconds(); dt > 0 {
			speed := math.Hypot(pos[0]-c.lastPos[0], pos[1]-c.lastPos[1]) / dt
			t.Speed = &speed
		}
	}

	c.last = now
	c.lastPos = pos
	c.primed = true
	return t, true
}

func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}
