package controller

import (
	"encoding/json"
	"time"

	"github.com/nwaller/lumen-core/internal/report"
)

// Config holds the decision engine's tuning values.
type Config struct {
	// Sensors is the number of configured motion/light sensor pairs.
	Sensors int

	// DarknessThreshold is the light level at or below which the room is
	// considered dark enough to turn the light on.
	DarknessThreshold int

	// HoldDuration is how long the light stays on after the last motion.
	HoldDuration time.Duration

	// PollInterval is the device status poll period.
	PollInterval time.Duration
}

// DeviceTransport is the outbound interface to the light device.
//
// Both operations are fire-and-forget: SetPower expects no acknowledgement,
// and RequestStatus is answered asynchronously through HandleStatus.
type DeviceTransport interface {
	// SetPower sends an on/off command to the device.
	SetPower(on bool) error

	// RequestStatus asks the device to report its current status.
	RequestStatus() error
}

// DeviceStatus is the latest polled status of the light device.
//
// It is replaced wholesale on every status response; no history is kept.
type DeviceStatus struct {
	// On is the device's reported power state.
	On bool `json:"on"`

	// Raw carries the device-specific status fields (brightness, colour,
	// ...) opaquely for diagnostics.
	Raw json.RawMessage `json:"raw,omitempty"`

	// PolledAt is when the response arrived.
	PolledAt time.Time `json:"polled_at"`

	// RoundTripMS is the time between sending the status request and
	// receiving this response. Observability only.
	RoundTripMS int64 `json:"round_trip_ms"`
}

// Notifier receives controller events for observability fan-out (MQTT
// announcements, telemetry, WebSocket broadcast). Implementations must not
// block: they are invoked from the controller's event loop.
type Notifier interface {
	// CommandSent fires after every outbound power command. onDuration is
	// non-zero only for an off command that ends a tracked on period.
	CommandSent(on bool, onDuration time.Duration)

	// StatusUpdated fires after every device status response.
	StatusUpdated(status DeviceStatus)

	// OverrideChanged fires when the manual override flag is set or cleared.
	OverrideChanged(active bool)
}

// noopNotifier is used when no notifier is configured.
type noopNotifier struct{}

func (noopNotifier) CommandSent(bool, time.Duration) {}
func (noopNotifier) StatusUpdated(DeviceStatus)      {}
func (noopNotifier) OverrideChanged(bool)            {}

// Logger defines the logging interface for the controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Snapshot is a point-in-time view of the controller's state, served by the
// status API. All referenced values are immutable once returned: the loop
// replaces reports and status wholesale rather than mutating them in place.
type Snapshot struct {
	ManualOverride bool                       `json:"manual_override"`
	LightOnSince   *time.Time                 `json:"light_on_since,omitempty"`
	DeviceStatus   *DeviceStatus              `json:"device_status,omitempty"`
	Motion         []*report.MotionReport     `json:"motion"`
	LightLevels    []*report.LightLevelReport `json:"light_levels"`
	Button         *report.ButtonReport       `json:"button,omitempty"`
	NextMotionEval *time.Time                 `json:"next_motion_eval,omitempty"`
	NextButtonEval *time.Time                 `json:"next_button_eval,omitempty"`
}
