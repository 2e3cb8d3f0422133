package http

import (
	"log/slog"
	"net/http"

	gorillaws "github.com/gorilla/websocket"

	"plantarcli/internal/middleware"
	"plantarcli/internal/websocket"
)

// WebSocketHandler upgrades clients onto the push hub
type WebSocketHandler struct {
	hub      *websocket.Hub
	upgrader *gorillaws.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler creates a websocket handler
func NewWebSocketHandler(hub *websocket.Hub, upgrader *gorillaws.Upgrader, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		upgrader: upgrader,
		logger:   logger.With(slog.String("handler", "websocket")),
	}
}

// ServeHTTP handles GET /ws
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := websocket.ServeWS(h.hub, h.upgrader, w, r); err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("remote_addr", middleware.GetRealIP(r)))
		return
	}
	h.logger.DebugContext(r.Context(), "websocket client connected",
		slog.String("remote_addr", middleware.GetRealIP(r)))
}
