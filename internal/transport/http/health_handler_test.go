package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantarcli/internal/config"
	"plantarcli/internal/shared/testutil"
	"plantarcli/internal/websocket"
	"plantarcli/pkg/contracts"
	api "plantarcli/pkg/contracts/api/v1"
	"plantarcli/pkg/contracts/events"
)

func TestHealthHandler(t *testing.T) {
	svc := new(MockHealthService)
	svc.On("HealthCheck").Return(api.HealthResponse{
		Status:     "healthy",
		Version:    "1.0.0",
		Components: map[string]string{"dataset": "empty", "websocket": "ok"},
	})
	svc.On("LivenessCheck").Return(api.LivenessResponse{Status: "alive", Goroutines: 4})
	svc.On("Version").Return(contracts.VersionInfo{Version: "1.0.0", APIVersion: "v1"})

	logger, _ := testutil.NewTestLogger(t)
	h := NewHealthHandler(svc, logger)
	r := mount("/api/health", h.Routes())

	tests := []struct {
		name          string
		handler       http.Handler
		path          string
		checkResponse func(t *testing.T, body []byte)
	}{
		{
			name:    "health",
			handler: r,
			path:    "/api/health",
			checkResponse: func(t *testing.T, body []byte) {
				var resp api.HealthResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, "healthy", resp.Status)
				assert.Equal(t, "empty", resp.Components["dataset"])
			},
		},
		{
			name:    "liveness",
			handler: r,
			path:    "/api/health/live",
			checkResponse: func(t *testing.T, body []byte) {
				var resp api.LivenessResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, "alive", resp.Status)
				assert.Equal(t, 4, resp.Goroutines)
			},
		},
		{
			name:    "version",
			handler: http.HandlerFunc(h.Version),
			path:    "/api/version",
			checkResponse: func(t *testing.T, body []byte) {
				var resp contracts.VersionInfo
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, "1.0.0", resp.Version)
				assert.Equal(t, "v1", resp.APIVersion)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			tt.checkResponse(t, rec.Body.Bytes())
		})
	}
	svc.AssertExpectations(t)
}

type stubHub struct{ stats websocket.HubStats }

func (s stubHub) Stats() websocket.HubStats { return s.stats }

func TestMetricsHandler(t *testing.T) {
	cache := func() (uint64, uint64) { return 7, 2 }

	t.Run("with hub", func(t *testing.T) {
		h := NewMetricsHandler(cache, stubHub{websocket.HubStats{ActiveClients: 2, MessagesSent: 40}})
		rec := httptest.NewRecorder()
		mount("/api/stats", h.Routes()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp StatsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, uint64(7), resp.Cache.Hits)
		assert.Equal(t, uint64(2), resp.Cache.Misses)
		require.NotNil(t, resp.WebSocket)
		assert.Equal(t, 2, resp.WebSocket.ActiveClients)
		assert.Equal(t, int64(40), resp.WebSocket.MessagesSent)
	})

	t.Run("without hub", func(t *testing.T) {
		h := NewMetricsHandler(cache, nil)
		rec := httptest.NewRecorder()
		h.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "websocket")
	})
}

func TestWebSocketHandler_Greeting(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	cfg := config.WebSocketConfig{ReadBufferSize: 1024, WriteBufferSize: 1024}
	hub := websocket.NewHub(cfg, logger, nil)
	hub.SetGreeting(func() *events.WebSocketMessage {
		msg := events.NewMessage(events.MessageTypePlaybackSnapshot, events.PlaybackSnapshot{State: "stopped"})
		return &msg
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(NewWebSocketHandler(hub, websocket.NewUpgrader(cfg, nil, logger), logger))
	defer srv.Close()

	conn, _, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, string(events.MessageTypePlaybackSnapshot), msg.Type)
	assert.Contains(t, string(msg.Data), `"state":"stopped"`)

	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestWebSocketHandler_RejectsPlainRequest(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	cfg := config.WebSocketConfig{}
	hub := websocket.NewHub(cfg, logger, nil)
	h := NewWebSocketHandler(hub, websocket.NewUpgrader(cfg, nil, logger), logger)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
