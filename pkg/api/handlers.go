package api

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"campus_nav/pkg/graph"
	"campus_nav/pkg/motion"
	"campus_nav/pkg/nav"
	"campus_nav/pkg/routing"

	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

// Session is the navigation state the handlers serve. *nav.Context
// implements it.
type Session interface {
	Engine() *routing.Engine
	Route(ctx context.Context, start, end string) (*routing.RouteResult, error)
	Dispatch(ctx context.Context, node string) (*routing.RouteResult, error)
	Return() (*routing.RouteResult, error)
	Snapshots() []motion.Snapshot
	Snapshot(id string) (motion.Snapshot, bool)
	Status() nav.Status
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	session Session
}

// NewHandlers creates handlers over the given session.
func NewHandlers(session Session) *Handlers {
	return &Handlers{session: session}
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Start == "" {
		writeError(w, http.StatusBadRequest, "missing_node", "start")
		return
	}
	if req.End == "" {
		writeError(w, http.StatusBadRequest, "missing_node", "end")
		return
	}

	eng := h.session.Engine()
	if eng == nil {
		writeError(w, http.StatusServiceUnavailable, "graph_not_ready", "")
		return
	}
	if _, ok := eng.Graph().Lookup(req.Start); !ok {
		writeError(w, http.StatusNotFound, "unknown_node", "start")
		return
	}
	if _, ok := eng.Graph().Lookup(req.End); !ok {
		writeError(w, http.StatusNotFound, "unknown_node", "end")
		return
	}

	result, err := h.session.Route(r.Context(), req.Start, req.End)
	if err != nil {
		writeRouteError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, toRouteResponse(result))
}

// HandleDispatch handles POST /api/v1/dispatch.
func (h *Handlers) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Node == "" {
		writeError(w, http.StatusBadRequest, "missing_node", "node")
		return
	}

	result, err := h.session.Dispatch(r.Context(), req.Node)
	if err != nil {
		writeRouteError(w, err, "node")
		return
	}
	writeJSON(w, http.StatusAccepted, toRouteResponse(result))
}

// HandleReturn handles POST /api/v1/return.
func (h *Handlers) HandleReturn(w http.ResponseWriter, r *http.Request) {
	result, err := h.session.Return()
	if err != nil {
		if errors.Is(err, nav.ErrNoLastRoute) {
			writeError(w, http.StatusConflict, "no_dispatched_route", "")
			return
		}
		writeRouteError(w, err, "")
		return
	}
	writeJSON(w, http.StatusAccepted, toRouteResponse(result))
}

// HandleAgents handles GET /api/v1/agents, optionally filtered by ?kind=.
func (h *Handlers) HandleAgents(w http.ResponseWriter, r *http.Request) {
	snaps := h.session.Snapshots()
	if kind := r.URL.Query().Get("kind"); kind != "" {
		snaps = lo.Filter(snaps, func(s motion.Snapshot, _ int) bool {
			return s.Kind.String() == kind
		})
	}
	writeJSON(w, http.StatusOK, AgentsResponse{Agents: snaps})
}

// HandleAgent handles GET /api/v1/agents/{id}.
func (h *Handlers) HandleAgent(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session.Snapshot(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_agent", "id")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandleGraph handles GET /api/v1/graph.
func (h *Handlers) HandleGraph(w http.ResponseWriter, r *http.Request) {
	eng := h.session.Engine()
	if eng == nil {
		writeError(w, http.StatusServiceUnavailable, "graph_not_ready", "")
		return
	}
	writeJSON(w, http.StatusOK, graph.GeoJSON(eng.Graph()))
}

// HandleStatus handles GET /api/v1/status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Status())
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.session.Engine() == nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "loading"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	eng := h.session.Engine()
	if eng == nil {
		writeError(w, http.StatusServiceUnavailable, "graph_not_ready", "")
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Graph:  graph.ComputeStats(eng.Graph()),
		Agents: len(h.session.Snapshots()),
		Ticks:  h.session.Status().Ticks,
	})
}

func toRouteResponse(r *routing.RouteResult) RouteResponse {
	return RouteResponse{
		Nodes: r.Nodes,
		Waypoints: lo.Map(r.Waypoints, func(p orb.Point, _ int) PointJSON {
			return PointJSON{X: p[0], Z: p[1]}
		}),
		Geometry: lo.Map(r.Geometry, func(ll routing.LatLng, _ int) LatLngJSON {
			return LatLngJSON{Lat: ll.Lat, Lng: ll.Lng}
		}),
		TotalDistanceMeters: r.TotalDistanceMeters,
	}
}

// decodeJSON enforces a JSON content type and a small body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	return true
}

func writeRouteError(w http.ResponseWriter, err error, field string) {
	switch {
	case errors.Is(err, nav.ErrGraphNotReady):
		writeError(w, http.StatusServiceUnavailable, "graph_not_ready", "")
	case errors.Is(err, routing.ErrUnknownNode):
		writeError(w, http.StatusNotFound, "unknown_node", field)
	case errors.Is(err, routing.ErrNoRoute):
		writeError(w, http.StatusNotFound, "no_route_found", "")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
	default:
		log.Errorf("Route error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	writeJSON(w, status, ErrorResponse{Error: code, Field: field})
}
