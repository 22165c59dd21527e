package api

import (
	"campus_nav/pkg/graph"
	"campus_nav/pkg/motion"
)

// RouteRequest is the JSON body for POST /api/v1/route.
type RouteRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DispatchRequest is the JSON body for POST /api/v1/dispatch.
type DispatchRequest struct {
	Node string `json:"node"`
}

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PointJSON is a scene-frame position.
type PointJSON struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// RouteResponse is the JSON response for a computed route.
type RouteResponse struct {
	Nodes               []string     `json:"nodes"`
	Waypoints           []PointJSON  `json:"waypoints"`
	Geometry            []LatLngJSON `json:"geometry"`
	TotalDistanceMeters float64      `json:"total_distance_meters"`
}

// AgentsResponse is the JSON response for GET /api/v1/agents.
type AgentsResponse struct {
	Agents []motion.Snapshot `json:"agents"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	Graph  graph.Stats `json:"graph"`
	Agents int         `json:"agents"`
	Ticks  uint64      `json:"ticks"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
