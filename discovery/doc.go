// Package discovery builds Home Assistant MQTT Device Discovery payloads. Field constants use the abbreviated keys
// Home Assistant accepts so retained discovery messages stay small.
//
// See https://www.home-assistant.io/integrations/mqtt/#supported-abbreviations-in-mqtt-discovery-messages
package discovery
