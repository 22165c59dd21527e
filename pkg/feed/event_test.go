package feed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTarget(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"target","data":{"x":45.78,"y":4.87}}`))
	require.NoError(t, err)
	assert.Equal(t, EventTarget, ev.Type)
	assert.Equal(t, 45.78, ev.Lat)
	assert.Equal(t, 4.87, ev.Lon)
}

func TestDecodeDispatchAndReturn(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"dispatch","data":{"node":"F"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventDispatch, ev.Type)
	assert.Equal(t, "F", ev.Node)

	ev, err = Decode([]byte(`{"type":"return"}`))
	require.NoError(t, err)
	assert.Equal(t, EventReturn, ev.Type)
}

func TestDecodeUnknownTypePassesThrough(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"weather","data":{"rain":true}}`))
	require.NoError(t, err)
	assert.Equal(t, EventType("weather"), ev.Type)
}

func TestDecodeMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `nope`},
		{"no type", `{"data":{"x":1,"y":2}}`},
		{"target without data", `{"type":"target"}`},
		{"target missing y", `{"type":"target","data":{"x":45.0}}`},
		{"target string coords", `{"type":"target","data":{"x":"45","y":"4"}}`},
		{"target null coords", `{"type":"target","data":{"x":null,"y":4}}`},
		{"target lat out of range", `{"type":"target","data":{"x":91,"y":4}}`},
		{"target lon out of range", `{"type":"target","data":{"x":45,"y":-181}}`},
		{"dispatch without node", `{"type":"dispatch","data":{}}`},
		{"dispatch numeric node", `{"type":"dispatch","data":{"node":3}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.raw))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestTelemetryJSON(t *testing.T) {
	b, err := json.Marshal(Telemetry{X: 45.1, Y: 4.2, Heading: 90})
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":45.1,"y":4.2,"heading":90,"speed":null}`, string(b))

	speed := 0.5
	b, err = encode(EventTelemetry, Telemetry{X: 45.1, Y: 4.2, Heading: 90, Speed: &speed})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"telemetry","data":{"x":45.1,"y":4.2,"heading":90,"speed":0.5}}`, string(b))
}

func TestBackoff(t *testing.T) {
	base, limit := 500*time.Millisecond, 10*time.Second
	assert.Equal(t, 500*time.Millisecond, Backoff(0, base, limit))
	assert.Equal(t, time.Second, Backoff(1, base, limit))
	assert.Equal(t, 2*time.Second, Backoff(2, base, limit))
	assert.Equal(t, 8*time.Second, Backoff(4, base, limit))
	assert.Equal(t, limit, Backoff(5, base, limit))
	assert.Equal(t, limit, Backoff(60, base, limit))
}
