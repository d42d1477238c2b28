package hass

import (
	"github.com/nlowe/airqtt/mqtt"
)

// Availability tells Home Assistant whether an entity (or Home Assistant itself, on its status topic) is online.
type Availability string

const (
	// Available is the Availability value for online devices and for Home Assistant's birth message.
	Available Availability = "online"
	// Unavailable is the Availability value for offline devices and for Home Assistant's last will.
	Unavailable Availability = "offline"
)

var (
	AvailabilityMarshaler mqtt.ValueMarshaler[Availability] = func(v Availability) ([]byte, error) {
		return mqtt.StringMarshaler(string(v))
	}
	AvailabilityUnmarshaler mqtt.ValueUnmarshaler[Availability] = func(bytes []byte) (Availability, error) {
		v, err := mqtt.StringUnmarshaler(bytes)
		return Availability(v), err
	}
)

// Of returns Available when ok is true and Unavailable otherwise.
func Of(ok bool) Availability {
	if ok {
		return Available
	}

	return Unavailable
}
