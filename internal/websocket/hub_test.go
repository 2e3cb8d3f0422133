package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantarcli/internal/config"
	"plantarcli/internal/shared/testutil"
	"plantarcli/pkg/contracts/events"
)

// fakeConn blocks reads until closed and records writes
type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, data)
	return nil
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetReadLimit(int64) {}
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) RemoteAddr() string { return "127.0.0.1:5000" }

func startHub(t *testing.T) *Hub {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(config.WebSocketConfig{}, logger, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

func receive(t *testing.T, c *Client) events.WebSocketMessage {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg events.WebSocketMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
	return events.WebSocketMessage{}
}

func TestHubGreetsAndBroadcasts(t *testing.T) {
	hub := startHub(t)
	hub.SetGreeting(func() *events.WebSocketMessage {
		msg := events.NewMessage(events.MessageTypePlaybackSnapshot, events.PlaybackSnapshot{State: "stopped"})
		return &msg
	})

	client := NewClient(hub, newFakeConn(), "trace-1", nil)
	hub.Register(client)

	greeting := receive(t, client)
	assert.Equal(t, events.MessageTypePlaybackSnapshot, greeting.Type)
	assert.Equal(t, "trace-1", greeting.TraceID)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Broadcast(events.NewMessage(events.MessageTypeDatasetChanged, events.DatasetChanged{Change: events.DatasetLoaded}))
	assert.Equal(t, events.MessageTypeDatasetChanged, receive(t, client).Type)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-client.send
	assert.False(t, ok)
}

func TestHubDefaultGreeting(t *testing.T) {
	hub := startHub(t)
	client := NewClient(hub, newFakeConn(), "", nil)
	hub.Register(client)
	assert.Equal(t, events.MessageTypeConnect, receive(t, client).Type)
}

func TestHubDisconnectsSlowClient(t *testing.T) {
	hub := startHub(t)
	client := NewClient(hub, newFakeConn(), "", nil)
	hub.Register(client)
	receive(t, client)

	for i := 0; i < sendBuffer; i++ {
		client.send <- []byte(`{}`)
	}
	hub.Broadcast(events.NewMessage(events.MessageTypePlaybackSnapshot, nil))

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHubShutdownClosesClients(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(config.WebSocketConfig{}, logger, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := NewClient(hub, newFakeConn(), "", nil)
	hub.Register(client)
	receive(t, client)

	cancel()
	<-done
	assert.Equal(t, 0, hub.ClientCount())

	// a stopped hub neither blocks nor accepts clients
	hub.Broadcast(events.NewMessage(events.MessageTypePlaybackSnapshot, nil))
	late := NewClient(hub, newFakeConn(), "", nil)
	hub.Register(late)
	_, ok := <-late.send
	assert.False(t, ok)
}

func TestNewHubPingPeriod(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.WebSocketConfig
		wantPing time.Duration
		wantPong time.Duration
	}{
		{"defaults", config.WebSocketConfig{}, 54 * time.Second, 60 * time.Second},
		{"configured", config.WebSocketConfig{PingPeriod: 20 * time.Second, PongWait: 30 * time.Second}, 20 * time.Second, 30 * time.Second},
		{"ping not below pong", config.WebSocketConfig{PingPeriod: 40 * time.Second, PongWait: 30 * time.Second}, 27 * time.Second, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub(tt.cfg, nil, nil)
			assert.Equal(t, tt.wantPing, hub.pingPeriod)
			assert.Equal(t, tt.wantPong, hub.pongWait)
		})
	}
}

func TestServeWSEndToEnd(t *testing.T) {
	hub := startHub(t)
	logger, _ := testutil.NewTestLogger(t)
	upgrader := NewUpgrader(config.WebSocketConfig{ReadBufferSize: 1024, WriteBufferSize: 1024}, nil, logger)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = ServeWS(hub, upgrader, w, r)
	}))
	defer srv.Close()

	conn, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg events.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeConnect, msg.Type)

	hub.Broadcast(events.NewMessage(events.MessageTypePlaybackSnapshot, events.PlaybackSnapshot{Cursor: 1.5}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypePlaybackSnapshot, msg.Type)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestUpgraderCheckOrigin(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	upgrader := NewUpgrader(config.WebSocketConfig{}, []string{"http://lab.local:3000"}, logger)

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://example.com", true}, // same host as the request
		{"http://lab.local:3000", true},
		{"http://evil.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://example.com/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, upgrader.CheckOrigin(req))
		})
	}
}
