package hue

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/r3labs/sse/v2"

	"github.com/nwaller/lumen-core/internal/report"
)

// Connection constants.
const (
	// snapshotTimeout bounds each initial resource fetch.
	snapshotTimeout = 10 * time.Second

	// reconnectMin and reconnectMax bound the delay between subscription
	// attempts after the event stream drops.
	reconnectMin = 250 * time.Millisecond
	reconnectMax = 10 * time.Second

	// applicationKeyHeader authenticates every CLIP v2 request.
	applicationKeyHeader = "hue-application-key"
)

// Sink receives decoded sensor reports. *controller.Controller satisfies it.
type Sink interface {
	// HandleMotion delivers a motion report for the sensor at index.
	HandleMotion(index int, r report.MotionReport)

	// HandleLightLevel delivers a light-level report for the sensor at index.
	HandleLightLevel(index int, r report.LightLevelReport)

	// HandleButton delivers a button report.
	HandleButton(r report.ButtonReport)
}

// Logger defines the logging interface for the Hue client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds the Hue bridge connection and sensor wiring.
type Config struct {
	// Host is the bridge address (IP or hostname, no scheme).
	Host string

	// ApplicationKey is the CLIP v2 application key.
	ApplicationKey string

	// InsecureTLS skips certificate verification. Hue bridges serve a
	// self-signed certificate, so this is normally required.
	InsecureTLS bool

	// MotionSensors and LightSensors are resource ids, paired by index.
	MotionSensors []string
	LightSensors  []string

	// Button is the resource id of the override button, empty to disable.
	Button string
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return ErrMissingHost
	}
	if c.ApplicationKey == "" {
		return ErrMissingKey
	}
	if len(c.MotionSensors) == 0 || len(c.MotionSensors) != len(c.LightSensors) {
		return ErrSensorPairing
	}
	return nil
}

// Client consumes the Hue event stream and routes sensor updates to a sink.
type Client struct {
	cfg    Config
	sink   Sink
	logger Logger

	http   *http.Client
	stream *sse.Client

	// Resource id to configured sensor index.
	motionIndex map[string]int
	lightIndex  map[string]int
}

// New creates a Client for the given bridge and sensor wiring.
func New(cfg Config, sink Sink) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := &http.Transport{}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	c := &Client{
		cfg:         cfg,
		sink:        sink,
		logger:      noopLogger{},
		http:        &http.Client{Transport: transport, Timeout: snapshotTimeout},
		motionIndex: make(map[string]int, len(cfg.MotionSensors)),
		lightIndex:  make(map[string]int, len(cfg.LightSensors)),
	}
	for i, id := range cfg.MotionSensors {
		c.motionIndex[id] = i
	}
	for i, id := range cfg.LightSensors {
		c.lightIndex[id] = i
	}

	stream := sse.NewClient(fmt.Sprintf("https://%s/eventstream/clip/v2", cfg.Host))
	stream.Headers[applicationKeyHeader] = cfg.ApplicationKey
	// The event stream is long-lived; no client timeout.
	stream.Connection = &http.Client{Transport: transport}
	c.stream = stream

	return c, nil
}

// SetLogger sets the logger. Call before Run.
func (c *Client) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Prime fetches the current state of every configured sensor resource and
// feeds it to the sink, so the controller starts from the bridge's view
// instead of waiting for the next change to stream in.
func (c *Client) Prime(ctx context.Context) error {
	for _, id := range c.cfg.MotionSensors {
		if err := c.fetchResource(ctx, "motion", id); err != nil {
			return err
		}
	}
	for _, id := range c.cfg.LightSensors {
		if err := c.fetchResource(ctx, "light_level", id); err != nil {
			return err
		}
	}
	if c.cfg.Button != "" {
		if err := c.fetchResource(ctx, "button", c.cfg.Button); err != nil {
			return err
		}
	}
	return nil
}

// Run consumes the event stream until the context is cancelled, resubscribing
// with exponential backoff when the stream drops.
func (c *Client) Run(ctx context.Context) error {
	delay := reconnectMin

	for {
		if ctx.Err() != nil {
			return nil
		}

		c.logger.Info("subscribing to hue event stream", "host", c.cfg.Host)
		err := c.stream.SubscribeRawWithContext(ctx, func(msg *sse.Event) {
			delay = reconnectMin
			c.handleEvent(msg.Data)
		})
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			c.logger.Warn("hue event stream disconnected", "error", err, "retry_in", delay)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		if delay *= 2; delay > reconnectMax {
			delay = reconnectMax
		}
	}
}

// handleEvent decodes one SSE payload and dispatches its resources.
func (c *Client) handleEvent(data []byte) {
	if len(data) == 0 {
		return
	}

	resources, err := decodeFrames(data)
	if err != nil {
		c.logger.Warn("malformed hue event payload", "error", err)
		return
	}
	for _, res := range resources {
		c.dispatch(res)
	}
}

// dispatch routes a resource to the sink if it belongs to a configured
// sensor and carries its report block. Partial updates without the report
// are skipped.
func (c *Client) dispatch(res resource) {
	if i, ok := c.motionIndex[res.ID]; ok {
		if res.Motion == nil || res.Motion.Report == nil {
			c.logger.Debug("motion update without report, skipping", "id", res.ID)
			return
		}
		c.sink.HandleMotion(i, report.MotionReport{
			Motion:  res.Motion.Report.Motion,
			Changed: res.Motion.Report.Changed,
		})
		return
	}

	if i, ok := c.lightIndex[res.ID]; ok {
		if res.Light == nil || res.Light.Report == nil {
			c.logger.Debug("light level update without report, skipping", "id", res.ID)
			return
		}
		c.sink.HandleLightLevel(i, report.LightLevelReport{
			LightLevel: res.Light.Report.LightLevel,
			Changed:    res.Light.Report.Changed,
		})
		return
	}

	if res.ID == c.cfg.Button && c.cfg.Button != "" {
		if res.Button == nil || res.Button.Report == nil {
			c.logger.Debug("button update without report, skipping", "id", res.ID)
			return
		}
		c.sink.HandleButton(report.ButtonReport{
			Event:   res.Button.Report.Event,
			Updated: res.Button.Report.Updated,
		})
	}
}

// fetchResource GETs a single resource snapshot and dispatches it.
func (c *Client) fetchResource(ctx context.Context, kind, id string) error {
	url := fmt.Sprintf("https://%s/clip/v2/resource/%s/%s", c.cfg.Host, kind, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set(applicationKeyHeader, c.cfg.ApplicationKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrSnapshotFailed, kind, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s %s: status %d", ErrSnapshotFailed, kind, id, resp.StatusCode)
	}

	var body snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrSnapshotFailed, kind, id, err)
	}
	if len(body.Data) == 0 {
		return fmt.Errorf("%w: %s %s: empty response", ErrSnapshotFailed, kind, id)
	}

	for _, res := range body.Data {
		c.dispatch(res)
	}
	return nil
}
