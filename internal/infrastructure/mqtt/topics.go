package mqtt

import "fmt"

// Topic prefixes for Lumen announcements.
//
// All topics use the scheme: lumen/{category}[/{detail}]
const (
	// TopicPrefix is the base for all Lumen topics.
	TopicPrefix = "lumen"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "lumen/system"
)

// Topics provides builders for Lumen MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topics.LightState() // "lumen/light/state"
type Topics struct{}

// LightState returns the topic for commanded light state. Retained: new
// subscribers immediately see the last command.
//
// Example: lumen/light/state
func (Topics) LightState() string {
	return fmt.Sprintf("%s/light/state", TopicPrefix)
}

// Override returns the topic for manual override changes. Retained.
//
// Example: lumen/override
func (Topics) Override() string {
	return fmt.Sprintf("%s/override", TopicPrefix)
}

// DeviceStatus returns the topic for polled device status. Retained.
//
// Example: lumen/device/status
func (Topics) DeviceStatus() string {
	return fmt.Sprintf("%s/device/status", TopicPrefix)
}

// Event returns the topic for a controller event type.
//
// Example: lumen/event/command_sent
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, eventType)
}

// SystemStatus returns the online/offline status topic. The LWT is
// registered here so subscribers see an unexpected disconnect.
//
// Example: lumen/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllEvents returns a pattern matching all controller events.
//
// Pattern: lumen/event/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/event/+", TopicPrefix)
}

// AllTopics returns a pattern matching all Lumen topics.
//
// Pattern: lumen/#
func (Topics) AllTopics() string {
	return "lumen/#"
}
