package motion

import (
	"math"

	"github.com/paulmach/orb"
)

// Scene vectors are orb.Points holding {x, z}.

func add(a, b orb.Point) orb.Point { return orb.Point{a[0] + b[0], a[1] + b[1]} }

func sub(a, b orb.Point) orb.Point { return orb.Point{a[0] - b[0], a[1] - b[1]} }

func scale(a orb.Point, k float64) orb.Point { return orb.Point{a[0] * k, a[1] * k} }

func length(a orb.Point) float64 { return math.Hypot(a[0], a[1]) }

// normalize returns the unit vector of a, or the zero vector.
func normalize(a orb.Point) orb.Point {
	l := length(a)
	if l == 0 {
		return orb.Point{}
	}
	return orb.Point{a[0] / l, a[1] / l}
}

func lerp(a, b orb.Point, t float64) orb.Point {
	return orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}

// angleBetween returns the unsigned angle in [0, π] between unit vectors.
func angleBetween(a, b orb.Point) float64 {
	c := a[0]*b[0] + a[1]*b[1]
	return math.Acos(math.Max(-1, math.Min(1, c)))
}

// wrapAngle maps an angle into (-π, π].
func wrapAngle(a float64) float64 {
	return math.Atan2(math.Sin(a), math.Cos(a))
}

// headingOf returns the heading of a direction, measured from the +z axis.
func headingOf(dir orb.Point) float64 {
	return math.Atan2(dir[0], dir[1])
}

// nominalFPS is the frame rate all per-frame rates are expressed at.
const nominalFPS = 60

// perFrame converts a per-nominal-frame blend rate into the blend for a
// tick of delta seconds.
func perFrame(rate, delta float64) float64 {
	return 1 - math.Pow(1-rate, delta*nominalFPS)
}
