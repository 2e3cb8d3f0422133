package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantarcli/internal/config"
	"plantarcli/internal/shared/testutil"
	api "plantarcli/pkg/contracts/api/v1"
	"plantarcli/pkg/contracts/events"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Paths = config.PathsConfig{
		DataDir:   dir,
		ExportDir: filepath.Join(dir, "exports"),
		LogsDir:   filepath.Join(dir, "logs"),
	}
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Security.RateLimit.Enabled = false
	cfg.Playback.FrameInterval = 5 * time.Millisecond
	return cfg
}

func newTestApp(t *testing.T) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	a, err := New(testConfig(t), logger)
	require.NoError(t, err)
	return a
}

type part struct {
	name string
	data []byte
}

func upload(t *testing.T, url string, parts ...part) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		w, err := mw.CreateFormFile("file", p.name)
		require.NoError(t, err)
		_, err = w.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(url+"/api/recordings", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown preset", func(c *config.Config) { c.Analysis.ThresholdPreset = "fast" }},
		{"unknown metric exporter", func(c *config.Config) { c.Telemetry.MetricExporter = "statsd" }},
		{"sensor layout", func(c *config.Config) { c.Layout.SensorsPerFoot = 10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			cfg := testConfig(t)
			tt.mutate(cfg)
			_, err := New(cfg, logger)
			assert.Error(t, err)
		})
	}
}

func TestRouterEndToEnd(t *testing.T) {
	a := newTestApp(t)
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	var health api.HealthResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/health", &health))
	assert.Equal(t, "empty", health.Components["dataset"])
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/health/live/", nil))

	// analysis before any upload is the "no data" conflict
	resp, err := http.Get(srv.URL + "/api/analysis/events")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "/errors/dataset/no-data")

	resp = upload(t, srv.URL, part{"walk.xlsx", testutil.WorkbookBytes(t, testutil.Walk(3, 20, 0.01))})
	var loaded []api.LoadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loaded))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, loaded, 1)
	assert.Equal(t, 61, loaded[0].Recording.Samples)
	assert.True(t, loaded[0].Recording.Active)

	var evts api.EventsResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/analysis/events?preset=standard", &evts))
	assert.Positive(t, evts.Count)
	assert.Equal(t, 15.0, evts.Thresholds.InitialContact)

	var params api.ParametersResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/analysis/parameters", &params))
	assert.Positive(t, params.Parameters.InitialContactCount)

	var sample api.SampleResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/recordings/sample?t=0.255", &sample))
	require.NotNil(t, sample.Sample)
	assert.InDelta(t, 0.25, sample.Sample.Time, 1e-9)

	resp, err = http.Get(srv.URL + "/api/analysis/export?format=csv&sheet=events")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "walk_events.csv")
	assert.Contains(t, string(body), "Initial Contact")

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "recordings_loaded")

	var stats struct {
		Cache struct {
			Misses uint64 `json:"misses"`
		} `json:"cache"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/stats", &stats))
	assert.Positive(t, stats.Cache.Misses)
}

func TestUploadWithABadPartLoadsNothing(t *testing.T) {
	a := newTestApp(t)
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	resp := upload(t, srv.URL,
		part{"good.csv", testutil.PressureCSV(t, testutil.Walk(2, 20, 0.01))},
		part{"bad.csv", []byte("left,right\n1,2\n")},
	)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(body))

	var dataset api.DatasetResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/recordings", &dataset))
	assert.Empty(t, dataset.Recordings)
	assert.Equal(t, 0, a.Store.Len())
}

func TestRouterNotFoundIsProblem(t *testing.T) {
	a := newTestApp(t)
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "/errors/not-found")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestPreload(t *testing.T) {
	a := newTestApp(t)
	dir := t.TempDir()
	path := testutil.WritePressureWorkbook(t, dir, "walk.xlsx", testutil.Walk(2, 20, 0.01))

	loaded, err := a.Preload(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 1, a.Store.Len())

	// relative directories resolve against the data directory
	testutil.WritePressureWorkbook(t, a.Config.Paths.DataDir, "session.xlsx", testutil.Walk(3, 20, 0.01))
	loaded, err = a.Preload(context.Background(), []string{"."})
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 2, a.Store.Len())

	none, err := a.Preload(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestServePushesPlaybackAndShutsDown(t *testing.T) {
	a := newTestApp(t)
	rec := testutil.Recording("walk", testutil.Walk(3, 20, 0.01))
	a.Store.Add(rec)
	a.Player.Load(rec.StartTime(), rec.EndTime())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	readSnapshot := func() events.PlaybackSnapshot {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg struct {
			Type events.MessageType      `json:"type"`
			Data events.PlaybackSnapshot `json:"data"`
		}
		require.NoError(t, json.Unmarshal(data, &msg))
		require.Equal(t, events.MessageTypePlaybackSnapshot, msg.Type)
		return msg.Data
	}

	greeting := readSnapshot()
	assert.True(t, greeting.Loaded)
	assert.Equal(t, "walk", greeting.Recording)

	resp, err := http.Post("http://"+ln.Addr().String()+"/api/playback/play", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// the play command and the ticks after it are pushed
	moved := false
	for i := 0; i < 100 && !moved; i++ {
		moved = readSnapshot().Cursor > 0
	}
	assert.True(t, moved, "no snapshot with an advanced cursor")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
