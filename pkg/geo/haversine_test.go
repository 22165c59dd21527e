package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name             string
		lat1, lon1       float64
		lat2, lon2       float64
		wantMeters       float64
		tolerancePercent float64
	}{
		{
			name: "Same point",
			lat1: 48.8566, lon1: 2.3522,
			lat2: 48.8566, lon2: 2.3522,
			wantMeters:       0,
			tolerancePercent: 0,
		},
		{
			name: "London to Paris",
			lat1: 51.5074, lon1: -0.1278,
			lat2: 48.8566, lon2: 2.3522,
			wantMeters:       343_500,
			tolerancePercent: 1,
		},
		{
			name: "One thousandth of a degree of latitude",
			lat1: 45.0000, lon1: 4.0000,
			lat2: 45.0010, lon2: 4.0000,
			wantMeters:       111.2,
			tolerancePercent: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if tt.wantMeters == 0 {
				assert.Zero(t, got)
				return
			}
			diff := math.Abs(got-tt.wantMeters) / tt.wantMeters * 100
			assert.LessOrEqualf(t, diff, tt.tolerancePercent, "Haversine = %f m, want ~%f m", got, tt.wantMeters)
		})
	}
}

func TestDistanceMetersMatchesHaversine(t *testing.T) {
	a := orb.Point{2.3522, 48.8566}
	b := orb.Point{2.3622, 48.8600}
	assert.InDelta(t, Haversine(48.8566, 2.3522, 48.8600, 2.3622), DistanceMeters(a, b), 1e-9)
	assert.InDelta(t, DistanceMeters(a, b), DistanceMeters(b, a), 1e-9)
}

func TestPointToSegment(t *testing.T) {
	tests := []struct {
		name      string
		p, a, b   orb.Point
		want      orb.Point
		wantRatio float64
	}{
		{"at start", orb.Point{0, 0}, orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{0, 0}, 0},
		{"at end", orb.Point{10, 0}, orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{10, 0}, 1},
		{"perpendicular midpoint", orb.Point{5, 3}, orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{5, 0}, 0.5},
		{"clamped before start", orb.Point{-4, 1}, orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{0, 0}, 0},
		{"clamped past end", orb.Point{14, -1}, orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{10, 0}, 1},
		{"degenerate segment", orb.Point{3, 3}, orb.Point{1, 1}, orb.Point{1, 1}, orb.Point{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ratio := PointToSegment(tt.p, tt.a, tt.b)
			assert.InDelta(t, tt.want[0], got[0], 1e-12)
			assert.InDelta(t, tt.want[1], got[1], 1e-12)
			assert.InDelta(t, tt.wantRatio, ratio, 1e-12)
		})
	}
}

func BenchmarkHaversine(b *testing.B) {
	for b.Loop() {
		Haversine(48.8566, 2.3522, 48.8600, 2.3622)
	}
}
