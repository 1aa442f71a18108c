package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nwaller/lumen-core/internal/controller"
	"github.com/nwaller/lumen-core/internal/infrastructure/config"
	"github.com/nwaller/lumen-core/internal/infrastructure/logging"
	"github.com/nwaller/lumen-core/internal/report"
)

// =============================================================================
// Test Helpers
// =============================================================================

// stubProvider is a StatusProvider returning a canned snapshot or error.
type stubProvider struct {
	snap controller.Snapshot
	err  error
}

func (p *stubProvider) Snapshot(_ context.Context) (controller.Snapshot, error) {
	return p.snap, p.err
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{
		Level:  "error",
		Format: "text",
		Output: "stdout",
	}, "test")
}

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		Path:           "/api/v1/ws",
		MaxMessageSize: 4096,
		PingInterval:   30,
		PongTimeout:    10,
	}
}

// testServer builds a Server around the provider and returns it with an
// httptest server wrapping its router. The hub run loop is stopped via
// t.Cleanup.
func testServer(t *testing.T, provider StatusProvider) (*Server, *httptest.Server) {
	t.Helper()

	s, err := New(Deps{
		Config: config.APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    0,
		},
		WS:         testWSConfig(),
		Logger:     testLogger(),
		Controller: provider,
		Version:    "test",
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(ctx)

	ts := httptest.NewServer(s.buildRouter())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return s, ts
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
	return resp
}

// =============================================================================
// Constructor Tests
// =============================================================================

func TestNewRequiresLogger(t *testing.T) {
	_, err := New(Deps{Controller: &stubProvider{}})
	if err == nil {
		t.Error("New() without logger should fail")
	}
}

func TestNewRequiresController(t *testing.T) {
	_, err := New(Deps{Logger: testLogger()})
	if err == nil {
		t.Error("New() without controller should fail")
	}
}

// =============================================================================
// Endpoint Tests
// =============================================================================

func TestHandleHealth(t *testing.T) {
	_, ts := testServer(t, &stubProvider{})

	var body map[string]any
	resp := getJSON(t, ts.URL+"/api/v1/health", &body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["version"] != "test" {
		t.Errorf("version field = %v, want test", body["version"])
	}
}

func TestHandleStatus(t *testing.T) {
	onSince := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	provider := &stubProvider{
		snap: controller.Snapshot{
			ManualOverride: true,
			LightOnSince:   &onSince,
			Motion: []*report.MotionReport{
				{Motion: true, Changed: onSince},
			},
			LightLevels: []*report.LightLevelReport{nil},
		},
	}
	_, ts := testServer(t, provider)

	var snap controller.Snapshot
	resp := getJSON(t, ts.URL+"/api/v1/status", &snap)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !snap.ManualOverride {
		t.Error("manual_override should be true")
	}
	if snap.LightOnSince == nil || !snap.LightOnSince.Equal(onSince) {
		t.Errorf("light_on_since = %v, want %v", snap.LightOnSince, onSince)
	}
	if len(snap.Motion) != 1 || snap.Motion[0] == nil || !snap.Motion[0].Motion {
		t.Errorf("unexpected motion reports: %+v", snap.Motion)
	}
}

func TestHandleStatusControllerStopped(t *testing.T) {
	_, ts := testServer(t, &stubProvider{err: controller.ErrStopped})

	var body Error
	resp := getJSON(t, ts.URL+"/api/v1/status", &body)

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	if body.Code != ErrCodeUnavailable {
		t.Errorf("error code = %q, want %q", body.Code, ErrCodeUnavailable)
	}
}

func TestHandleMetrics(t *testing.T) {
	_, ts := testServer(t, &stubProvider{})

	var metrics SystemMetrics
	resp := getJSON(t, ts.URL+"/api/v1/metrics", &metrics)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if metrics.Runtime.Goroutines <= 0 {
		t.Errorf("goroutines = %d, want > 0", metrics.Runtime.Goroutines)
	}
	if metrics.Version != "test" {
		t.Errorf("version = %q, want test", metrics.Version)
	}
	if metrics.WebSocket.ConnectedClients != 0 {
		t.Errorf("connected_clients = %d, want 0", metrics.WebSocket.ConnectedClients)
	}
}

// =============================================================================
// Middleware Tests
// =============================================================================

func TestRequestIDGenerated(t *testing.T) {
	_, ts := testServer(t, &stubProvider{})

	resp := getJSON(t, ts.URL+"/api/v1/health", nil)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header should be set")
	}
}

func TestRequestIDPreserved(t *testing.T) {
	_, ts := testServer(t, &stubProvider{})

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-supplied-id")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("X-Request-ID"); got != "client-supplied-id" {
		t.Errorf("X-Request-ID = %q, want client-supplied-id", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	// Empty allowed-origins list permits any origin.
	_, ts := testServer(t, &stubProvider{})

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/status", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://dashboard.local" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

// =============================================================================
// WebSocket Tests
// =============================================================================

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketSubscribeAndBroadcast(t *testing.T) {
	s, ts := testServer(t, &stubProvider{})

	conn := dialWS(t, ts)

	sub := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: []string{ChannelLightCommand}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("sending subscribe: %v", err)
	}

	// Subscribe acknowledgement arrives first.
	var ack WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("reading subscribe response: %v", err)
	}
	if ack.Type != WSTypeResponse || ack.ID != "sub-1" {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	s.hub.Broadcast(ChannelLightCommand, map[string]any{"on": true})

	var event WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("reading broadcast event: %v", err)
	}
	if event.Type != WSTypeEvent {
		t.Errorf("event type = %q, want %q", event.Type, WSTypeEvent)
	}
	if event.EventType != ChannelLightCommand {
		t.Errorf("event channel = %q, want %q", event.EventType, ChannelLightCommand)
	}
}

func TestWebSocketUnsubscribedChannelFiltered(t *testing.T) {
	s, ts := testServer(t, &stubProvider{})

	conn := dialWS(t, ts)

	sub := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: []string{ChannelOverride}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("sending subscribe: %v", err)
	}

	var ack WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("reading subscribe response: %v", err)
	}

	// Broadcast on a channel the client did not subscribe to, then on the
	// subscribed one. Only the second should arrive.
	s.hub.Broadcast(ChannelDeviceStatus, map[string]any{"on": false})
	s.hub.Broadcast(ChannelOverride, map[string]any{"active": true})

	var event WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if event.EventType != ChannelOverride {
		t.Errorf("event channel = %q, want %q", event.EventType, ChannelOverride)
	}
}

func TestWebSocketPing(t *testing.T) {
	_, ts := testServer(t, &stubProvider{})

	conn := dialWS(t, ts)

	ping := WSMessage{Type: WSTypePing, ID: "ping-1"}
	if err := conn.WriteJSON(ping); err != nil {
		t.Fatalf("sending ping: %v", err)
	}

	var pong WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&pong); err != nil {
		t.Fatalf("reading pong: %v", err)
	}
	if pong.Type != WSTypePong || pong.ID != "ping-1" {
		t.Errorf("unexpected pong: %+v", pong)
	}
}

func TestWebSocketUnknownMessageType(t *testing.T) {
	_, ts := testServer(t, &stubProvider{})

	conn := dialWS(t, ts)

	if err := conn.WriteJSON(WSMessage{Type: "bogus", ID: "x"}); err != nil {
		t.Fatalf("sending message: %v", err)
	}

	var errMsg WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&errMsg); err != nil {
		t.Fatalf("reading error response: %v", err)
	}
	if errMsg.Type != WSTypeError {
		t.Errorf("response type = %q, want %q", errMsg.Type, WSTypeError)
	}
}

func TestHubClientCount(t *testing.T) {
	s, ts := testServer(t, &stubProvider{})

	if n := s.hub.ClientCount(); n != 0 {
		t.Fatalf("initial client count = %d, want 0", n)
	}

	conn := dialWS(t, ts)

	// Registration happens in the upgrade handler before the dial returns,
	// but give the pump goroutines a moment on slow machines.
	deadline := time.Now().Add(time.Second)
	for s.hub.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := s.hub.ClientCount(); n != 1 {
		t.Fatalf("client count after connect = %d, want 1", n)
	}

	conn.Close()
	deadline = time.Now().Add(time.Second)
	for s.hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := s.hub.ClientCount(); n != 0 {
		t.Errorf("client count after close = %d, want 0", n)
	}
}
