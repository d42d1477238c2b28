package airqtt

import "net/url"

// Origin provides information about the software providing devices over MQTT to Home Assistant. See the documentation
// for Device.Origin for details.
type Origin struct {
	Name            string   `json:"name"`
	SoftwareVersion string   `json:"sw,omitempty"`
	SupportURL      *url.URL `json:"url,omitempty"`
}

// Version is stamped at build time with -ldflags "-X github.com/nlowe/airqtt.Version=...".
var Version = "dev"

var supportURL, _ = url.Parse("https://github.com/nlowe/airqtt")

// DefaultOrigin identifies airqtt in Home Assistant's MQTT discovery log.
func DefaultOrigin() Origin {
	return Origin{
		Name:            "airqtt",
		SoftwareVersion: Version,
		SupportURL:      supportURL,
	}
}
