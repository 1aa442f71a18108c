package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Lumen Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Hue        HueConfig        `yaml:"hue"`
	Govee      GoveeConfig      `yaml:"govee"`
	Controller ControllerConfig `yaml:"controller"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// HueConfig contains Hue bridge connection settings and sensor identities.
type HueConfig struct {
	// Host is the Hue bridge address (IP or hostname, no scheme).
	Host string `yaml:"host"`

	// ApplicationKey is the CLIP v2 application key sent with every request.
	ApplicationKey string `yaml:"application_key"`

	// InsecureTLS disables certificate verification. Hue bridges serve a
	// self-signed certificate, so this defaults to true.
	InsecureTLS bool `yaml:"insecure_tls"`

	// MotionSensors are CLIP v2 motion resource ids in configured order.
	MotionSensors []string `yaml:"motion_sensors"`

	// LightSensors are CLIP v2 light_level resource ids, positionally
	// paired with MotionSensors.
	LightSensors []string `yaml:"light_sensors"`

	// Button is the CLIP v2 button resource id (singleton).
	Button string `yaml:"button"`
}

// GoveeConfig contains Govee LAN control settings.
type GoveeConfig struct {
	// DeviceHost is the light's address. May be empty when Discover is set.
	DeviceHost string `yaml:"device_host"`

	// Discover enables multicast discovery of the device address at startup.
	Discover bool `yaml:"discover"`

	// LocalPort is the UDP port the controller listens on for responses.
	LocalPort int `yaml:"local_port"`

	// CommandPort is the UDP port commands are sent to on the device.
	CommandPort int `yaml:"command_port"`

	// Multicast is the LAN control multicast group.
	Multicast MulticastConfig `yaml:"multicast"`

	// RebindDelaySeconds is the retry interval when binding the local
	// socket fails.
	RebindDelaySeconds int `yaml:"rebind_delay_seconds"`
}

// MulticastConfig identifies a multicast group.
type MulticastConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ControllerConfig contains the decision engine's tuning values.
type ControllerConfig struct {
	// DarknessThreshold is the light level at or below which the room is
	// considered dark enough to turn the light on.
	DarknessThreshold int `yaml:"darkness_threshold"`

	// HoldSeconds is how long the light stays on after the last motion.
	HoldSeconds int `yaml:"hold_seconds"`

	// PollIntervalMS is the device status poll period in milliseconds.
	// Kept well under a second so button decisions see fresh device state.
	PollIntervalMS int `yaml:"poll_interval_ms"`
}

// MQTTConfig contains MQTT broker connection settings for the announcer bus.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB telemetry settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: LUMEN_SECTION_KEY
// For example: LUMEN_HUE_HOST, LUMEN_MQTT_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Hue: HueConfig{
			InsecureTLS: true,
		},
		Govee: GoveeConfig{
			LocalPort:   4002,
			CommandPort: 4003,
			Multicast: MulticastConfig{
				Host: "239.255.255.250",
				Port: 4001,
			},
			RebindDelaySeconds: 1,
		},
		Controller: ControllerConfig{
			DarknessThreshold: 8500,
			HoldSeconds:       120,
			PollIntervalMS:    666,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "lumen-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: LUMEN_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Hue
	if v := os.Getenv("LUMEN_HUE_HOST"); v != "" {
		cfg.Hue.Host = v
	}
	if v := os.Getenv("LUMEN_HUE_KEY"); v != "" {
		cfg.Hue.ApplicationKey = v
	}

	// Govee
	if v := os.Getenv("LUMEN_GOVEE_HOST"); v != "" {
		cfg.Govee.DeviceHost = v
	}

	// MQTT
	if v := os.Getenv("LUMEN_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("LUMEN_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("LUMEN_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("LUMEN_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Hue validation
	if c.Hue.Host == "" {
		errs = append(errs, "hue.host is required")
	}
	if c.Hue.ApplicationKey == "" {
		errs = append(errs, "hue.application_key is required (set LUMEN_HUE_KEY environment variable)")
	}
	if len(c.Hue.MotionSensors) == 0 {
		errs = append(errs, "hue.motion_sensors requires at least one sensor id")
	}
	if len(c.Hue.MotionSensors) != len(c.Hue.LightSensors) {
		errs = append(errs, "hue.light_sensors must pair positionally with hue.motion_sensors")
	}

	// Govee validation
	if c.Govee.DeviceHost == "" && !c.Govee.Discover {
		errs = append(errs, "govee.device_host is required unless govee.discover is enabled")
	}
	if c.Govee.LocalPort < 1 || c.Govee.LocalPort > 65535 {
		errs = append(errs, "govee.local_port must be between 1 and 65535")
	}
	if c.Govee.CommandPort < 1 || c.Govee.CommandPort > 65535 {
		errs = append(errs, "govee.command_port must be between 1 and 65535")
	}

	// Controller validation
	if c.Controller.DarknessThreshold <= 0 {
		errs = append(errs, "controller.darkness_threshold must be positive")
	}
	if c.Controller.HoldSeconds <= 0 {
		errs = append(errs, "controller.hold_seconds must be positive")
	}
	if c.Controller.PollIntervalMS <= 0 {
		errs = append(errs, "controller.poll_interval_ms must be positive")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// HoldDuration returns the motion hold duration as a Duration.
func (c *ControllerConfig) HoldDuration() time.Duration {
	return time.Duration(c.HoldSeconds) * time.Second
}

// PollInterval returns the device status poll period as a Duration.
func (c *ControllerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// RebindDelay returns the UDP rebind retry interval as a Duration.
func (c *GoveeConfig) RebindDelay() time.Duration {
	return time.Duration(c.RebindDelaySeconds) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
