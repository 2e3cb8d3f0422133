package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"plantarcli/internal/config"
	"plantarcli/internal/infrastructure"
	"plantarcli/pkg/contracts/events"
)

const (
	defaultPongWait = 60 * time.Second
	broadcastQueue  = 64
)

// Hub maintains the set of active clients and fans messages out to them.
// Broadcast never blocks: when the queue is full the message is dropped,
// since the next playback snapshot supersedes it anyway.
type Hub struct {
	clients map[*Client]struct{}
	mu      sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	runOnce    sync.Once

	pingPeriod time.Duration
	pongWait   time.Duration

	// greeting builds the first message sent to a new client
	greeting func() *events.WebSocketMessage

	logger  *slog.Logger
	metrics *infrastructure.AnalysisMetrics

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	messagesDropped  atomic.Int64
}

// NewHub creates a hub; call Run to start it
func NewHub(cfg config.WebSocketConfig, logger *slog.Logger, metrics *infrastructure.AnalysisMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if metrics == nil {
		metrics = infrastructure.NoopAnalysisMetrics()
	}
	pongWait := cfg.PongWait
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	pingPeriod := cfg.PingPeriod
	if pingPeriod <= 0 || pingPeriod >= pongWait {
		pingPeriod = pongWait * 9 / 10
	}

	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		pingPeriod: pingPeriod,
		pongWait:   pongWait,
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
	}
}

// SetGreeting installs the builder of the message sent on connect
func (h *Hub) SetGreeting(fn func() *events.WebSocketMessage) {
	h.mu.Lock()
	h.greeting = fn
	h.mu.Unlock()
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// closes every client. It returns once; later calls return immediately.
func (h *Hub) Run(ctx context.Context) {
	started := false
	h.runOnce.Do(func() { started = true })
	if !started {
		return
	}
	defer h.shutdown(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(ctx, client)
		case client := <-h.unregister:
			h.removeClient(ctx, client, "closed")
		case message := <-h.broadcast:
			h.fanOut(ctx, message)
		}
	}
}

func (h *Hub) addClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	greeting := h.greeting
	h.mu.Unlock()

	h.totalConnections.Add(1)
	h.metrics.WebSocketClients.Add(ctx, 1)
	h.logger.InfoContext(infrastructure.WithTraceID(ctx, client.traceID), "Client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	msg := events.NewMessage(events.MessageTypeConnect, map[string]string{
		"status":    "connected",
		"client_id": client.id,
	})
	if greeting != nil {
		if g := greeting(); g != nil {
			msg = *g
		}
	}
	msg.TraceID = client.traceID
	if data, err := json.Marshal(msg); err == nil {
		select {
		case client.send <- data:
		default:
		}
	}
}

func (h *Hub) removeClient(ctx context.Context, client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.WebSocketClients.Add(ctx, -1)
	h.logger.InfoContext(infrastructure.WithTraceID(ctx, client.traceID), "Client unregistered",
		slog.String("reason", reason),
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

func (h *Hub) fanOut(ctx context.Context, message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- message:
			h.messagesSent.Add(1)
		default:
			h.removeClient(ctx, client, "send buffer full")
		}
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	close(h.done)

	h.mu.Lock()
	n := len(h.clients)
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	h.metrics.WebSocketClients.Add(context.WithoutCancel(ctx), -int64(n))
	h.logger.Info("Hub shutting down",
		slog.Int("closed_clients", n),
		slog.Int64("messages_sent", h.messagesSent.Load()),
		slog.Int64("messages_dropped", h.messagesDropped.Load()))
}

// Broadcast queues msg for every client without blocking
func (h *Hub) Broadcast(msg events.WebSocketMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", string(msg.Type)))
		return
	}

	select {
	case <-h.done:
	case h.broadcast <- data:
	default:
		h.messagesDropped.Add(1)
		h.logger.Debug("Broadcast queue full, message dropped",
			slog.String("message_type", string(msg.Type)))
	}
}

// Register adds a client; it is a no-op once the hub stopped
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HubStats is a snapshot of hub counters
type HubStats struct {
	ActiveClients    int   `json:"active_clients"`
	TotalConnections int64 `json:"total_connections"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesDropped  int64 `json:"messages_dropped"`
}

// Stats returns current hub counters
func (h *Hub) Stats() HubStats {
	return HubStats{
		ActiveClients:    h.ClientCount(),
		TotalConnections: h.totalConnections.Load(),
		MessagesSent:     h.messagesSent.Load(),
		MessagesDropped:  h.messagesDropped.Load(),
	}
}
