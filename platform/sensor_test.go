package platform

import (
	"bytes"
	"testing"
	"time"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/stretchr/testify/require"

	"github.com/nlowe/airqtt/discovery"
	"github.com/nlowe/airqtt/hass"
	"github.com/nlowe/airqtt/mqtt"
)

func marshalInObject(t *testing.T, s *Sensor[*float64], prefix string) (string, error) {
	t.Helper()

	var b bytes.Buffer
	e := jsontext.NewEncoder(&b)

	require.NoError(t, e.WriteToken(jsontext.BeginObject))
	if err := s.MarshalDiscoveryTo(e, prefix); err != nil {
		return "", err
	}
	require.NoError(t, e.WriteToken(jsontext.EndObject))

	return b.String(), nil
}

func TestSensor_PlatformName(t *testing.T) {
	require.Equal(t, "sensor", (&Sensor[float64]{}).PlatformName())
}

func TestSensor_MarshalDiscoveryTo(t *testing.T) {
	t.Run("State Required", func(t *testing.T) {
		var b bytes.Buffer
		e := jsontext.NewEncoder(&b)
		require.NoError(t, e.WriteToken(jsontext.BeginObject))

		require.ErrorIs(t, (&Sensor[*float64]{}).MarshalDiscoveryTo(e, "airqtt"), discovery.ErrTopicRequired)
	})

	t.Run("Full", func(t *testing.T) {
		sut := &Sensor[*float64]{
			ExpireMeasurementsAfter:   time.Minute,
			SuggestedDisplayPrecision: 1,
			DeviceClass:               hass.DeviceClassCO2,
			StateClass:                hass.StateClassMeasurement,
			State:                     mqtt.NewValue("abc/co2/state", mqtt.OptionalFloatMarshaler),
			UnitOfMeasurement:         hass.UnitPartsPerMillion,
		}

		got, err := marshalInObject(t, sut, "airqtt")
		require.NoError(t, err)
		require.JSONEq(t, `{
			"dev_cla": "carbon_dioxide",
			"exp_after": 60,
			"sug_dsp_prc": 1,
			"stat_cla": "measurement",
			"stat_t": "airqtt/abc/co2/state",
			"unit_of_meas": "ppm"
		}`, got)
	})

	t.Run("Minimal", func(t *testing.T) {
		sut := &Sensor[*float64]{
			State: mqtt.NewValue("abc/health/state", mqtt.OptionalFloatMarshaler),
		}

		got, err := marshalInObject(t, sut, "airqtt")
		require.NoError(t, err)
		require.JSONEq(t, `{"stat_t": "airqtt/abc/health/state"}`, got)
	})
}
