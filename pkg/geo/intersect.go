package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// paramEps is the tolerance on the dimensionless segment parameters.
const paramEps = 1e-9

// SegmentIntersectsRing reports whether segment ab crosses or overlaps the
// boundary of ring. A contact located exactly at a or b does not count, so a
// node sitting on a wall can still see along or away from it.
func SegmentIntersectsRing(a, b orb.Point, ring orb.Ring) bool {
	n := len(ring)
	if n < 2 {
		return false
	}
	for i := 0; i < n; i++ {
		j := i + 1
		if j == n {
			if ring.Closed() {
				break
			}
			j = 0
		}
		if segmentsIntersect(a, b, ring[i], ring[j]) {
			return true
		}
	}
	return false
}

// SegmentIntersectsPolygon tests ab against every ring of the polygon
// (outer boundary and holes).
func SegmentIntersectsPolygon(a, b orb.Point, poly orb.Polygon) bool {
	for _, r := range poly {
		if SegmentIntersectsRing(a, b, r) {
			return true
		}
	}
	return false
}

// segmentsIntersect tests segment p (p1→p2) against segment q (q1→q2),
// ignoring contacts at p's endpoints.
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	r := sub(p2, p1)
	s := sub(q2, q1)
	rr := dot(r, r)
	if rr == 0 {
		return false
	}

	denom := cross(r, s)
	qp := sub(q1, p1)

	if math.Abs(denom) <= paramEps*math.Sqrt(rr*dot(s, s)) {
		// Parallel. Only collinear segments can still touch.
		if math.Abs(cross(qp, r)) > paramEps*rr {
			return false
		}
		t0 := dot(qp, r) / rr
		t1 := dot(sub(q2, p1), r) / rr
		lo := math.Max(0, math.Min(t0, t1))
		hi := math.Min(1, math.Max(t0, t1))
		if lo > hi+paramEps {
			return false
		}
		if hi-lo > paramEps {
			return true
		}
		return !atEndpoint(lo)
	}

	t := cross(qp, s) / denom
	u := cross(qp, r) / denom
	if t < -paramEps || t > 1+paramEps || u < -paramEps || u > 1+paramEps {
		return false
	}
	return !atEndpoint(t)
}

func atEndpoint(t float64) bool {
	return t <= paramEps || t >= 1-paramEps
}

func sub(a, b orb.Point) orb.Point { return orb.Point{a[0] - b[0], a[1] - b[1]} }

func dot(a, b orb.Point) float64 { return a[0]*b[0] + a[1]*b[1] }

func cross(a, b orb.Point) float64 { return a[0]*b[1] - a[1]*b[0] }
