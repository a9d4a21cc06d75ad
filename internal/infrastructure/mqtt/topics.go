package mqtt

import "fmt"

// Topic prefixes.
const (
	// TopicPrefixEvents is the base for portal mutation events.
	TopicPrefixEvents = "roofwatch/events"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "roofwatch/system"
)

// Topics provides builders for Roofwatch MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.Event("building", "delete")
//	// Returns: "roofwatch/events/building/delete"
type Topics struct{}

// Event returns the topic for a mutation of the given resource kind.
//
// Example: roofwatch/events/intervention_file/delete
func (Topics) Event(kind, action string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixEvents, kind, action)
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: roofwatch/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
