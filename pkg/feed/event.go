package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "feed")

// ErrMalformed is returned for events that cannot be decoded. Such events
// are dropped without any state change.
var ErrMalformed = errors.New("malformed event")

// EventType is the "type" field of a relay envelope.
type EventType string

const (
	EventTarget    EventType = "target"
	EventDispatch  EventType = "dispatch"
	EventReturn    EventType = "return"
	EventPing      EventType = "ping"
	EventPong      EventType = "pong"
	EventHello     EventType = "hello"
	EventTelemetry EventType = "telemetry"
)

// Event is a decoded inbound relay message.
type Event struct {
	Type EventType
	Lat  float64 // target
	Lon  float64 // target
	Node string  // dispatch
}

// Envelope is the wire shape of every relay message.
type Envelope struct {
	Type   EventType       `json:"type"`
	Data   json.RawMessage `json:"data,omitempty"`
	Client string          `json:"client,omitempty"`
	T      int64           `json:"t,omitempty"`
}

// targetData carries a reported position as {x: lat, y: lon}.
type targetData struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

type dispatchData struct {
	Node string `json:"node"`
}

// Decode parses one relay message. Unknown types decode to an Event with
// just the Type set; callers ignore what they do not handle.
func Decode(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return Event{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	ev := Event{Type: env.Type}
	switch env.Type {
	case EventTarget:
		var d targetData
		if len(env.Data) == 0 {
			return Event{}, fmt.Errorf("%w: target without data", ErrMalformed)
		}
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return Event{}, fmt.Errorf("%w: target data: %v", ErrMalformed, err)
		}
		if d.X == nil || d.Y == nil {
			return Event{}, fmt.Errorf("%w: target needs x and y", ErrMalformed)
		}
		if !validCoord(*d.X, 90) || !validCoord(*d.Y, 180) {
			return Event{}, fmt.Errorf("%w: target out of range", ErrMalformed)
		}
		ev.Lat, ev.Lon = *d.X, *d.Y

	case EventDispatch:
		var d dispatchData
		if len(env.Data) == 0 {
			return Event{}, fmt.Errorf("%w: dispatch without data", ErrMalformed)
		}
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return Event{}, fmt.Errorf("%w: dispatch data: %v", ErrMalformed, err)
		}
		if d.Node == "" {
			return Event{}, fmt.Errorf("%w: dispatch needs node", ErrMalformed)
		}
		ev.Node = d.Node
	}
	return ev, nil
}

func validCoord(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && math.Abs(v) <= limit
}

// Telemetry is the outbound vehicle report: x is latitude, y longitude,
// heading in degrees, speed in scene units per second (null until known).
type Telemetry struct {
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	Heading float64  `json:"heading"`
	Speed   *float64 `json:"speed"`
}

// encode wraps v in an envelope of the given type.
func encode(t EventType, v any) ([]byte, error) {
	env := Envelope{Type: t}
	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return json.Marshal(env)
}
