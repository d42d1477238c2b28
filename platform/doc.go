// Package platform contains the Home Assistant MQTT platforms airqtt publishes. See the Home Assistant docs for the
// full list: https://www.home-assistant.io/integrations/mqtt.
//
// Each platform satisfies the airqtt.Platform interface. The PlatformName method returns the Home Assistant platform
// name (e.g. Sensor's PlatformName method returns the string "sensor").
package platform
