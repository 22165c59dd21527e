package nav

import (
	"math"
	"testing"
	"time"

	"campus_nav/pkg/geo"
	"campus_nav/pkg/motion"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelemetryComposer(t *testing.T) {
	conv := geo.NewConverter(45, 4, geo.DefaultScale)
	tc := NewTelemetryComposer(conv, time.Second)
	t0 := time.Unix(1700000000, 0)

	first, ok := tc.Sample(t0, motion.Snapshot{Heading: -math.Pi / 2})
	require.True(t, ok)
	assert.InDelta(t, 45, first.X, 1e-12)
	assert.InDelta(t, 4, first.Y, 1e-12)
	assert.InDelta(t, 270, first.Heading, 1e-9)
	assert.Nil(t, first.Speed)

	_, ok = tc.Sample(t0.Add(200*time.Millisecond), motion.Snapshot{X: 1})
	assert.False(t, ok)

	second, ok := tc.Sample(t0.Add(2*time.Second), motion.Snapshot{X: 3, Z: 4, Heading: math.Pi})
	require.True(t, ok)
	require.NotNil(t, second.Speed)
	assert.InDelta(t, 2.5, *second.Speed, 1e-12)
	assert.InDelta(t, 180, second.Heading, 1e-9)

	lat, lon := conv.FromScene([2]float64{3, 4})
	assert.InDelta(t, lat, second.X, 1e-12)
	assert.InDelta(t, lon, second.Y, 1e-12)

	tc.Reset()
	third, ok := tc.Sample(t0.Add(2100*time.Millisecond), motion.Snapshot{X: 3, Z: 4})
	require.True(t, ok)
	assert.Nil(t, third.Speed)
}

func TestNormalizeDegrees(t *testing.T) {
	assert.Equal(t, 0.0, normalizeDegrees(0))
	assert.Equal(t, 90.0, normalizeDegrees(450))
	assert.Equal(t, 350.0, normalizeDegrees(-10))
}
