package hue

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nwaller/lumen-core/internal/report"
)

// mockSink records routed reports.
type mockSink struct {
	mu      sync.Mutex
	motion  map[int][]report.MotionReport
	light   map[int][]report.LightLevelReport
	buttons []report.ButtonReport
}

func newMockSink() *mockSink {
	return &mockSink{
		motion: make(map[int][]report.MotionReport),
		light:  make(map[int][]report.LightLevelReport),
	}
}

func (m *mockSink) HandleMotion(index int, r report.MotionReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.motion[index] = append(m.motion[index], r)
}

func (m *mockSink) HandleLightLevel(index int, r report.LightLevelReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.light[index] = append(m.light[index], r)
}

func (m *mockSink) HandleButton(r report.ButtonReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buttons = append(m.buttons, r)
}

func testConfig() Config {
	return Config{
		Host:           "192.168.1.10",
		ApplicationKey: "test-key",
		MotionSensors:  []string{"motion-a", "motion-b"},
		LightSensors:   []string{"light-a", "light-b"},
		Button:         "button-1",
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"missing host", func(c *Config) { c.Host = "" }, ErrMissingHost},
		{"missing key", func(c *Config) { c.ApplicationKey = "" }, ErrMissingKey},
		{"no sensors", func(c *Config) { c.MotionSensors = nil; c.LightSensors = nil }, ErrSensorPairing},
		{"unpaired sensors", func(c *Config) { c.LightSensors = c.LightSensors[:1] }, ErrSensorPairing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHandleEvent_RoutesByResourceID(t *testing.T) {
	sink := newMockSink()
	c, err := New(testConfig(), sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	payload := `[{
		"type": "update",
		"data": [
			{"id": "motion-b", "type": "motion",
			 "motion": {"motion_report": {"changed": "2026-03-14T21:00:00Z", "motion": true}}},
			{"id": "light-a", "type": "light_level",
			 "light": {"light_level_report": {"changed": "2026-03-14T21:00:01Z", "light_level": 7421}}},
			{"id": "button-1", "type": "button",
			 "button": {"button_report": {"updated": "2026-03-14T21:00:02Z", "event": "initial_press"}}},
			{"id": "someone-elses-lamp", "type": "light_level",
			 "light": {"light_level_report": {"changed": "2026-03-14T21:00:03Z", "light_level": 1}}}
		]
	}]`

	c.handleEvent([]byte(payload))

	if got := sink.motion[1]; len(got) != 1 || !got[0].Motion {
		t.Errorf("motion sensor 1 got %v, want one detected report", got)
	}
	if got := sink.light[0]; len(got) != 1 || got[0].LightLevel != 7421 {
		t.Errorf("light sensor 0 got %v, want one 7421 reading", got)
	}
	if len(sink.buttons) != 1 || sink.buttons[0].Event != "initial_press" {
		t.Errorf("buttons = %v, want one initial_press", sink.buttons)
	}
	if got := sink.light[1]; len(got) != 0 {
		t.Errorf("unconfigured resource leaked to sensor 1: %v", got)
	}
}

func TestHandleEvent_SkipsPartialAndMalformedPayloads(t *testing.T) {
	sink := newMockSink()
	c, err := New(testConfig(), sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Partial update without the nested report block.
	c.handleEvent([]byte(`[{"type": "update", "data": [{"id": "motion-a", "type": "motion", "motion": {}}]}]`))
	// Non-update frame for a configured sensor.
	c.handleEvent([]byte(`[{"type": "delete", "data": [{"id": "motion-a", "type": "motion"}]}]`))
	// Not JSON at all (keep-alive noise).
	c.handleEvent([]byte(`: hi`))
	c.handleEvent(nil)

	if len(sink.motion[0]) != 0 {
		t.Errorf("motion sensor 0 got %v, want nothing", sink.motion[0])
	}
}

func TestPrime_FetchesAndDispatchesSnapshots(t *testing.T) {
	var mu sync.Mutex
	var paths []string

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(applicationKeyHeader) != "test-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()

		switch {
		case strings.HasPrefix(r.URL.Path, "/clip/v2/resource/motion/"):
			w.Write([]byte(`{"errors": [], "data": [{"id": "motion-a", "type": "motion",
				"motion": {"motion_report": {"changed": "2026-03-14T20:00:00Z", "motion": false}}}]}`))
		case strings.HasPrefix(r.URL.Path, "/clip/v2/resource/light_level/"):
			w.Write([]byte(`{"errors": [], "data": [{"id": "light-a", "type": "light_level",
				"light": {"light_level_report": {"changed": "2026-03-14T20:00:00Z", "light_level": 3100}}}]}`))
		case strings.HasPrefix(r.URL.Path, "/clip/v2/resource/button/"):
			w.Write([]byte(`{"errors": [], "data": [{"id": "button-1", "type": "button", "button": {}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cfg := Config{
		Host:           strings.TrimPrefix(server.URL, "https://"),
		ApplicationKey: "test-key",
		InsecureTLS:    true,
		MotionSensors:  []string{"motion-a"},
		LightSensors:   []string{"light-a"},
		Button:         "button-1",
	}

	sink := newMockSink()
	c, err := New(cfg, sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Prime(ctx); err != nil {
		t.Fatalf("Prime: %v", err)
	}

	if len(sink.motion[0]) != 1 || sink.motion[0][0].Motion {
		t.Errorf("motion sensor 0 got %v, want one clear report", sink.motion[0])
	}
	if len(sink.light[0]) != 1 || sink.light[0][0].LightLevel != 3100 {
		t.Errorf("light sensor 0 got %v, want one 3100 reading", sink.light[0])
	}
	// The button snapshot had no report block and must not reach the sink.
	if len(sink.buttons) != 0 {
		t.Errorf("buttons = %v, want none from a reportless snapshot", sink.buttons)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 3 {
		t.Errorf("fetched %v, want one request per configured resource", paths)
	}
}

func TestPrime_PropagatesHTTPFailure(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := Config{
		Host:           strings.TrimPrefix(server.URL, "https://"),
		ApplicationKey: "test-key",
		InsecureTLS:    true,
		MotionSensors:  []string{"motion-a"},
		LightSensors:   []string{"light-a"},
	}

	c, err := New(cfg, newMockSink())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := c.Prime(context.Background()); !errors.Is(err, ErrSnapshotFailed) {
		t.Errorf("Prime = %v, want ErrSnapshotFailed", err)
	}
}
