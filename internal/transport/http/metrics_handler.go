package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"plantarcli/internal/websocket"
)

// CacheStats reports analysis cache counters
type CacheStats func() (hits, misses uint64)

// HubStatter reports websocket hub counters
type HubStatter interface {
	Stats() websocket.HubStats
}

// StatsResponse is a JSON view of the in-process counters also exported to
// Prometheus
type StatsResponse struct {
	Cache struct {
		Hits   uint64 `json:"hits"`
		Misses uint64 `json:"misses"`
	} `json:"cache"`
	WebSocket *websocket.HubStats `json:"websocket,omitempty"`
}

// MetricsHandler serves runtime counters
type MetricsHandler struct {
	cache CacheStats
	hub   HubStatter
}

// NewMetricsHandler creates a metrics handler. hub may be nil.
func NewMetricsHandler(cache CacheStats, hub HubStatter) *MetricsHandler {
	return &MetricsHandler{cache: cache, hub: hub}
}

// Routes sets up the metrics routes
func (h *MetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/", h.GetStats)
	return r
}

// GetStats handles GET /api/stats
func (h *MetricsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	var resp StatsResponse
	if h.cache != nil {
		resp.Cache.Hits, resp.Cache.Misses = h.cache()
	}
	if h.hub != nil {
		stats := h.hub.Stats()
		resp.WebSocket = &stats
	}
	render.JSON(w, r, resp)
}
