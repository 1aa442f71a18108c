// Lumen Core - Occupancy Lighting Controller
//
// This is the main entry point for the Lumen Core application. Lumen fuses
// Hue motion, light-level, and button events into on/off commands for a
// Govee LAN light:
//   - Motion in a dark room turns the light on and holds it
//   - The hold expires after a quiet period and the light turns off
//   - A button press toggles the light and pins it against automation
//
// All decisions run in a single controller event loop; MQTT, InfluxDB, and
// the HTTP/WebSocket API are observability surfaces fed from it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/nwaller/lumen-core/internal/api"
	"github.com/nwaller/lumen-core/internal/bridges/govee"
	"github.com/nwaller/lumen-core/internal/bridges/hue"
	"github.com/nwaller/lumen-core/internal/controller"
	"github.com/nwaller/lumen-core/internal/infrastructure/config"
	"github.com/nwaller/lumen-core/internal/infrastructure/influxdb"
	"github.com/nwaller/lumen-core/internal/infrastructure/logging"
	"github.com/nwaller/lumen-core/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// primeTimeout bounds the startup snapshot fetch from the Hue bridge.
const primeTimeout = 15 * time.Second

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Lumen Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Govee transport: created first so the controller can send through it
	goveeClient, err := govee.New(govee.Config{
		DeviceHost:    cfg.Govee.DeviceHost,
		Discover:      cfg.Govee.Discover,
		LocalPort:     cfg.Govee.LocalPort,
		CommandPort:   cfg.Govee.CommandPort,
		MulticastHost: cfg.Govee.Multicast.Host,
		MulticastPort: cfg.Govee.Multicast.Port,
		RebindDelay:   cfg.Govee.RebindDelay(),
	})
	if err != nil {
		return fmt.Errorf("creating Govee client: %w", err)
	}
	goveeClient.SetLogger(log)

	// Decision engine
	ctrl := controller.New(controller.Config{
		Sensors:           len(cfg.Hue.MotionSensors),
		DarknessThreshold: cfg.Controller.DarknessThreshold,
		HoldDuration:      cfg.Controller.HoldDuration(),
		PollInterval:      cfg.Controller.PollInterval(),
	}, goveeClient)
	ctrl.SetLogger(log)

	// Device status responses flow back into the loop
	goveeClient.OnStatus(func(st govee.Status) {
		ctrl.HandleStatus(controller.DeviceStatus{On: st.On, Raw: st.Raw})
	})

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// WebSocket hub runs independently of the API server so the notifier
	// can broadcast through it either way
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// Start API server (optional)
	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:     cfg.API,
			WS:         cfg.WebSocket,
			Logger:     log,
			Controller: ctrl,
			Hub:        hub,
			Version:    version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)
	} else {
		log.Info("API server disabled")
	}

	// Fan controller events out to the observability surfaces
	ctrl.SetNotifier(&fanoutNotifier{
		mqtt:   mqttClient,
		influx: influxClient,
		hub:    hub,
		qos:    byte(cfg.MQTT.QoS),
		log:    log,
	})

	// Hue event stream feeds the controller directly
	hueClient, err := hue.New(hue.Config{
		Host:           cfg.Hue.Host,
		ApplicationKey: cfg.Hue.ApplicationKey,
		InsecureTLS:    cfg.Hue.InsecureTLS,
		MotionSensors:  cfg.Hue.MotionSensors,
		LightSensors:   cfg.Hue.LightSensors,
		Button:         cfg.Hue.Button,
	}, ctrl)
	if err != nil {
		return fmt.Errorf("creating Hue client: %w", err)
	}
	hueClient.SetLogger(log)

	// Seed sensor state from a snapshot so decisions don't wait for the
	// first event. Failure is non-fatal: the stream fills the gaps.
	primeCtx, primeCancel := context.WithTimeout(ctx, primeTimeout)
	if primeErr := hueClient.Prime(primeCtx); primeErr != nil {
		log.Warn("hue snapshot prime failed, starting cold", "error", primeErr)
	} else {
		log.Info("hue sensor state primed")
	}
	primeCancel()

	go func() {
		if runErr := goveeClient.Run(ctx); runErr != nil {
			log.Error("govee client stopped", "error", runErr)
		}
	}()
	go func() {
		if runErr := hueClient.Run(ctx); runErr != nil {
			log.Error("hue client stopped", "error", runErr)
		}
	}()

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, controller loop starting")

	// The controller loop blocks until the context is cancelled
	if err := ctrl.Run(ctx); err != nil {
		return fmt.Errorf("controller loop: %w", err)
	}

	log.Info("Lumen Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses LUMEN_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LUMEN_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the optional infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// fanoutNotifier implements controller.Notifier, relaying controller events
// to MQTT, InfluxDB, and the WebSocket hub. Any destination may be nil.
//
// The controller invokes the notifier from its event loop, so MQTT publishes
// (which wait on broker acknowledgement) run in their own goroutine. Influx
// writes are batched and non-blocking, WebSocket broadcast drops rather
// than waits.
type fanoutNotifier struct {
	mqtt   *mqtt.Client
	influx *influxdb.Client
	hub    *api.Hub
	qos    byte
	log    *logging.Logger
}

// lightStatePayload is the MQTT/WebSocket shape of a power command event.
type lightStatePayload struct {
	EventID           string  `json:"event_id"`
	On                bool    `json:"on"`
	OnDurationSeconds float64 `json:"on_duration_seconds,omitempty"`
	Timestamp         string  `json:"timestamp"`
}

// CommandSent implements controller.Notifier.
func (n *fanoutNotifier) CommandSent(on bool, onDuration time.Duration) {
	payload := lightStatePayload{
		EventID:           uuid.NewString(),
		On:                on,
		OnDurationSeconds: onDuration.Seconds(),
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
	}

	if n.influx != nil {
		n.influx.WriteLightCommand(on, onDuration)
	}
	if n.hub != nil {
		n.hub.Broadcast(api.ChannelLightCommand, payload)
	}
	if n.mqtt != nil {
		go func() {
			// Retained state for late joiners, plus a one-off event.
			n.publishJSON(mqtt.Topics{}.LightState(), payload, true)
			n.publishJSON(mqtt.Topics{}.Event("command_sent"), payload, false)
		}()
	}
}

// StatusUpdated implements controller.Notifier.
func (n *fanoutNotifier) StatusUpdated(status controller.DeviceStatus) {
	if n.influx != nil {
		n.influx.WriteDeviceStatus(status.On, status.RoundTripMS)
	}
	if n.hub != nil {
		n.hub.Broadcast(api.ChannelDeviceStatus, status)
	}
	if n.mqtt != nil {
		go n.publishJSON(mqtt.Topics{}.DeviceStatus(), status, true)
	}
}

// OverrideChanged implements controller.Notifier.
func (n *fanoutNotifier) OverrideChanged(active bool) {
	payload := map[string]any{
		"event_id":  uuid.NewString(),
		"active":    active,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if n.influx != nil {
		n.influx.WriteOverride(active)
	}
	if n.hub != nil {
		n.hub.Broadcast(api.ChannelOverride, payload)
	}
	if n.mqtt != nil {
		go func() {
			n.publishJSON(mqtt.Topics{}.Override(), payload, true)
			n.publishJSON(mqtt.Topics{}.Event("override_changed"), payload, false)
		}()
	}
}

// publishJSON marshals and publishes a payload, logging failures.
func (n *fanoutNotifier) publishJSON(topic string, payload any, retained bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		n.log.Error("marshalling MQTT payload", "topic", topic, "error", err)
		return
	}
	if err := n.mqtt.Publish(topic, data, n.qos, retained); err != nil {
		n.log.Warn("MQTT publish failed", "topic", topic, "error", err)
	}
}
