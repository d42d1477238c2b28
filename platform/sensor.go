package platform

import (
	"errors"
	"time"

	"github.com/go-json-experiment/json/jsontext"

	"github.com/nlowe/airqtt/discovery"
	"github.com/nlowe/airqtt/hass"
	"github.com/nlowe/airqtt/mqtt"
)

// Sensor is an airqtt.Platform that implements the sensor.mqtt integration for Home Assistant. The state of this
// sensor has a type of TValue.
//
// See the Home Assistant documentation for more details: https://www.home-assistant.io/integrations/sensor.mqtt/.
type Sensor[TValue any] struct {
	// If set, the sensor's state becomes unavailable when it is not updated within this duration. Sensor state is not
	// retained so this is safe to use across Home Assistant restarts.
	ExpireMeasurementsAfter time.Duration

	// Instruct Home Assistant to record update events even if the value hasn't changed.
	ForceUpdate bool

	// The number of decimals which should be used in the sensor's state after rounding.
	SuggestedDisplayPrecision uint

	DeviceClass hass.DeviceClass
	StateClass  hass.StateClass

	// The current value of the sensor. Required.
	State *mqtt.Value[TValue]

	UnitOfMeasurement string
}

func (s *Sensor[TValue]) PlatformName() string {
	return "sensor"
}

func (s *Sensor[TValue]) MarshalDiscoveryTo(e *jsontext.Encoder, prefix string) error {
	return errors.Join(
		discovery.MaybeMarshalStdComparable(e, discovery.FieldDeviceClass, s.DeviceClass),
		discovery.MaybeMarshalStdComparable(e, discovery.FieldExpireMeasurementsAfter, s.ExpireMeasurementsAfter),
		discovery.MaybeMarshalStdComparable(e, discovery.FieldForceUpdate, s.ForceUpdate),
		discovery.MaybeMarshalStdComparable(e, discovery.FieldSuggestedDisplayPrecision, s.SuggestedDisplayPrecision),
		discovery.MaybeMarshalStdComparable(e, discovery.FieldStateClass, s.StateClass),
		discovery.MarshalRequiredValueTopic("state", e, discovery.FieldStateTopic, s.State, prefix),
		discovery.MaybeMarshalStdComparable(e, discovery.FieldUnitOfMeasurement, s.UnitOfMeasurement),
	)
}
