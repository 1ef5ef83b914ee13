package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every PickLight topic.
//
// Device-scoped topics follow pbl/{mac}/{class}/{operation}. The two
// global topics are pbl/register and pbl/service/status.
const TopicPrefix = "pbl"

// Command classes. A controller acknowledges a command on the ack topic
// of the class the command was published under.
const (
	ClassLight  = "light"
	ClassConfig = "config"
)

// Topics provides builders for PickLight MQTT topics.
// Using these helpers keeps topic naming consistent with the controller
// firmware, which matches on exact segment casing.
//
//	topics := mqtt.Topics{}
//	cmdTopic := topics.LightSet("24:6F:28:AE:52:7C")
//	// Returns: "pbl/24:6F:28:AE:52:7C/light/set"
type Topics struct{}

// =============================================================================
// Light Commands (gateway -> controller)
// =============================================================================

// LightSet returns the topic that lights a chosen LED range in a colour.
//
// Example: pbl/24:6F:28:AE:52:7C/light/set
func (Topics) LightSet(mac string) string {
	return fmt.Sprintf("%s/%s/light/set", TopicPrefix, mac)
}

// LightUnset returns the topic that switches a chosen LED range off.
//
// Example: pbl/24:6F:28:AE:52:7C/light/unset
func (Topics) LightUnset(mac string) string {
	return fmt.Sprintf("%s/%s/light/unset", TopicPrefix, mac)
}

// LightAllOn returns the topic that lights a whole position in a colour.
//
// Example: pbl/24:6F:28:AE:52:7C/light/allOn
func (Topics) LightAllOn(mac string) string {
	return fmt.Sprintf("%s/%s/light/allOn", TopicPrefix, mac)
}

// LightAllOff returns the topic that switches a whole position off.
//
// Example: pbl/24:6F:28:AE:52:7C/light/allOff
func (Topics) LightAllOff(mac string) string {
	return fmt.Sprintf("%s/%s/light/allOff", TopicPrefix, mac)
}

// =============================================================================
// Config Commands (gateway -> controller)
// =============================================================================

// ConfigCreatePosition returns the topic that stores a new position on the
// controller. The segment casing matches the firmware's topic matcher.
//
// Example: pbl/24:6F:28:AE:52:7C/config/create_Position
func (Topics) ConfigCreatePosition(mac string) string {
	return fmt.Sprintf("%s/%s/config/create_Position", TopicPrefix, mac)
}

// ConfigUpdatePosition returns the topic that replaces a stored position.
//
// Example: pbl/24:6F:28:AE:52:7C/config/update_Position
func (Topics) ConfigUpdatePosition(mac string) string {
	return fmt.Sprintf("%s/%s/config/update_Position", TopicPrefix, mac)
}

// ConfigDeletePosition returns the topic that removes a stored position.
//
// Example: pbl/24:6F:28:AE:52:7C/config/delete_Position
func (Topics) ConfigDeletePosition(mac string) string {
	return fmt.Sprintf("%s/%s/config/delete_Position", TopicPrefix, mac)
}

// ConfigReset returns the topic that factory-resets the controller.
//
// Example: pbl/24:6F:28:AE:52:7C/config/reset
func (Topics) ConfigReset(mac string) string {
	return fmt.Sprintf("%s/%s/config/reset", TopicPrefix, mac)
}

// ConfigGet returns the topic that asks the controller to upload its
// stored positions, one config/put message per position.
//
// Example: pbl/24:6F:28:AE:52:7C/config/get
func (Topics) ConfigGet(mac string) string {
	return fmt.Sprintf("%s/%s/config/get", TopicPrefix, mac)
}

// =============================================================================
// Inbound Topics (controller -> gateway)
// =============================================================================

// Register returns the topic controllers announce themselves on.
// The payload is the controller's MAC address as a UTF-8 string.
//
// Example: pbl/register
func (Topics) Register() string {
	return TopicPrefix + "/register"
}

// Ack returns the acknowledgement topic for one controller and class.
// Ack payload byte 0 is the id of the command being acknowledged.
//
// Example: pbl/24:6F:28:AE:52:7C/light/ack
func (Topics) Ack(mac, class string) string {
	return fmt.Sprintf("%s/%s/%s/ack", TopicPrefix, mac, class)
}

// ConfigPut returns the topic a controller uploads stored positions on
// in response to a config/get. Payload byte 0 is the position id, the
// remaining bytes are LED indices.
//
// Example: pbl/24:6F:28:AE:52:7C/config/put
func (Topics) ConfigPut(mac string) string {
	return fmt.Sprintf("%s/%s/config/put", TopicPrefix, mac)
}

// ConfigOffline returns a controller's Last Will topic. The broker
// publishes here when the controller drops off the network.
//
// Example: pbl/24:6F:28:AE:52:7C/config/offline
func (Topics) ConfigOffline(mac string) string {
	return fmt.Sprintf("%s/%s/config/offline", TopicPrefix, mac)
}

// ServiceStatus returns the gateway's own status topic, used for the
// gateway's LWT and graceful shutdown announcements.
//
// Example: pbl/service/status
func (Topics) ServiceStatus() string {
	return TopicPrefix + "/service/status"
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AckWildcard returns a pattern matching all ack frames of one class.
//
// Pattern: pbl/+/light/ack
func (Topics) AckWildcard(class string) string {
	return fmt.Sprintf("%s/+/%s/ack", TopicPrefix, class)
}

// AllConfigPuts returns a pattern matching position uploads from all
// controllers.
//
// Pattern: pbl/+/config/put
func (Topics) AllConfigPuts() string {
	return fmt.Sprintf("%s/+/config/put", TopicPrefix)
}

// AllOffline returns a pattern matching Last Will messages from all
// controllers.
//
// Pattern: pbl/+/config/offline
func (Topics) AllOffline() string {
	return fmt.Sprintf("%s/+/config/offline", TopicPrefix)
}

// =============================================================================
// Topic Parsing
// =============================================================================

// DeviceMAC extracts the controller MAC from a device-scoped topic
// (pbl/{mac}/...). It returns "" for topics of any other shape.
func DeviceMAC(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[0] != TopicPrefix || parts[1] == "" {
		return ""
	}
	return parts[1]
}

// ParseAck splits an ack topic pbl/{mac}/{class}/ack into its MAC and
// class. ok is false for topics of any other shape.
func ParseAck(topic string) (mac, class string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicPrefix || parts[3] != "ack" {
		return "", "", false
	}
	if parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
