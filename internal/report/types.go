package report

import "time"

// motionClearSkew compensates for the Hue motion sensor's reporting lag when
// motion ends: the sensor publishes the clear event roughly ten seconds after
// the room actually emptied. The skew is a measured characteristic of the
// upstream hardware, not a tunable.
const motionClearSkew = 10 * time.Second

// ButtonEventInitialPress is the only button event kind the Store retains.
// All other kinds (repeat, short_release, long_press, ...) are ignored.
const ButtonEventInitialPress = "initial_press"

// MotionReport is a presence sensor's latest detected/cleared state.
type MotionReport struct {
	// Motion is true while the sensor currently detects presence.
	Motion bool `json:"motion"`

	// Changed is when the Motion value last flipped, as reported by the
	// sensor. For clear reports this is already skew-adjusted by the Store.
	Changed time.Time `json:"changed"`
}

// Equal reports whether two motion reports are structurally identical.
func (r MotionReport) Equal(other MotionReport) bool {
	return r.Motion == other.Motion && r.Changed.Equal(other.Changed)
}

// adjusted returns the report with the clear-lag skew applied.
// Reports with motion detected are returned unchanged.
func (r MotionReport) adjusted() MotionReport {
	if r.Motion {
		return r
	}
	r.Changed = r.Changed.Add(-motionClearSkew)
	return r
}

// LightLevelReport is an ambient-light sensor's latest reading.
// Lower values are darker.
type LightLevelReport struct {
	// LightLevel is the reading in the sensor's lux-like scale.
	LightLevel int `json:"light_level"`

	// Changed is when the reading last changed, as reported by the sensor.
	Changed time.Time `json:"changed"`
}

// Equal reports whether two light-level reports are structurally identical.
func (r LightLevelReport) Equal(other LightLevelReport) bool {
	return r.LightLevel == other.LightLevel && r.Changed.Equal(other.Changed)
}

// ButtonReport is the button's latest retained event.
type ButtonReport struct {
	// Event is the button event kind. The Store only ever holds
	// ButtonEventInitialPress.
	Event string `json:"event"`

	// Updated is when the event was emitted, as reported by the button.
	Updated time.Time `json:"updated"`
}

// Equal reports whether two button reports are structurally identical.
func (r ButtonReport) Equal(other ButtonReport) bool {
	return r.Event == other.Event && r.Updated.Equal(other.Updated)
}
