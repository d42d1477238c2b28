package discovery

import (
	"github.com/nlowe/airqtt/hass"
	"github.com/nlowe/airqtt/mqtt"
)

const (
	// DefaultPrefix is the MQTT Topic Prefix that Home Assistant looks for discovery payloads under
	DefaultPrefix = "homeassistant"
	// StatusTopic is the topic, relative to the discovery prefix, where Home Assistant publishes its own availability.
	StatusTopic = "status"
)

// HomeAssistantAvailability constructs a mqtt.RemoteValue that follows Home Assistant's status topic. Watch it to
// re-send discovery after Home Assistant restarts.
//
// See https://www.home-assistant.io/integrations/mqtt/#birth-and-last-will-messages.
func HomeAssistantAvailability(discoveryPrefix string) *mqtt.RemoteValue[hass.Availability] {
	return mqtt.NewRemoteValue(mqtt.JoinTopic(discoveryPrefix, StatusTopic), hass.AvailabilityUnmarshaler)
}

// DeviceTopic is the topic a device discovery payload is published to.
func DeviceTopic(discoveryPrefix, deviceID string) string {
	return mqtt.JoinTopic(discoveryPrefix, "device", IDSanitizer.Replace(deviceID), "config")
}
