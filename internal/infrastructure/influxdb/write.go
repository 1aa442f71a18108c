package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteLightCommand records an outbound power command.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - on: The commanded state
//   - onDuration: For an off command, how long the light had been on.
//     Zero otherwise.
//
// Example:
//
//	client.WriteLightCommand(false, 7*time.Minute)
func (c *Client) WriteLightCommand(on bool, onDuration time.Duration) {
	if !c.IsConnected() {
		return
	}

	state := "off"
	value := 0
	if on {
		state = "on"
		value = 1
	}

	fields := map[string]interface{}{
		"value": value,
	}
	if onDuration > 0 {
		fields["on_duration_seconds"] = onDuration.Seconds()
	}

	point := write.NewPoint(
		"light_command",
		map[string]string{
			"state": state,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceStatus records a polled device status and its round-trip time.
//
// Parameters:
//   - on: The device's reported power state
//   - roundTripMS: Request-to-response latency in milliseconds
func (c *Client) WriteDeviceStatus(on bool, roundTripMS int64) {
	if !c.IsConnected() {
		return
	}

	value := 0
	if on {
		value = 1
	}

	point := write.NewPoint(
		"device_status",
		nil,
		map[string]interface{}{
			"on":            value,
			"round_trip_ms": roundTripMS,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteOverride records a manual override transition.
func (c *Client) WriteOverride(active bool) {
	if !c.IsConnected() {
		return
	}

	value := 0
	if active {
		value = 1
	}

	point := write.NewPoint(
		"manual_override",
		nil,
		map[string]interface{}{
			"active": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
