package sensor

import "github.com/nlowe/airqtt/hass"

// Description describes one measurement an air-Q can report.
type Description struct {
	// Key is the field name in the device's data response.
	Key         string
	Name        string
	Unit        string
	DeviceClass hass.DeviceClass
	StateClass  hass.StateClass
	Icon        string

	// Transform converts the raw reading. Nil means the reading is used as is.
	Transform func(float64) float64
}

// Value applies Transform to raw.
func (d Description) Value(raw float64) float64 {
	if d.Transform == nil {
		return raw
	}

	return d.Transform(raw)
}

// IndexToPercent converts the device's 0-1000 index readings to percent.
func IndexToPercent(index float64) float64 {
	return index / 10.0
}

const measurement = hass.StateClassMeasurement

// Catalog lists every measurement airqtt knows how to expose, in the order entities are created.
var Catalog = []Description{
	{Key: "nh3_MR100", Name: "Ammonia", Unit: hass.UnitMicrogramsPerCubicMeter, StateClass: measurement},
	{Key: "cl2_M20", Name: "Chlorine", Unit: hass.UnitMicrogramsPerCubicMeter, StateClass: measurement},
	{Key: "co", Name: "CO", Unit: hass.UnitMilligramsPerCubicMeter, DeviceClass: hass.DeviceClassCO, StateClass: measurement},
	{Key: "co2", Name: "CO2", Unit: hass.UnitPartsPerMillion, DeviceClass: hass.DeviceClassCO2, StateClass: measurement},
	{Key: "dewpt", Name: "Dew point", Unit: hass.UnitCelsius, Icon: "mdi:water-thermometer", StateClass: measurement},
	{Key: "ethanol", Name: "Ethanol", Unit: hass.UnitMicrogramsPerCubicMeter, StateClass: measurement},
	{Key: "ch2o_M10", Name: "Formaldehyde", Unit: hass.UnitMicrogramsPerCubicMeter, StateClass: measurement},
	{Key: "h2s", Name: "H2S", Unit: hass.UnitMicrogramsPerCubicMeter, StateClass: measurement},
	{Key: "health", Name: "Health Index", Unit: hass.UnitPercentage, Icon: "mdi:heart-pulse", Transform: IndexToPercent, StateClass: measurement},
	{Key: "humidity", Name: "Humidity", Unit: hass.UnitPercentage, DeviceClass: hass.DeviceClassHumidity, StateClass: measurement},
	{Key: "humidity_abs", Name: "Absolute humidity", Unit: hass.UnitGramsPerCubicMeter, Icon: "mdi:water", StateClass: measurement},
	{Key: "h2_M1000", Name: "Hydrogen", Unit: hass.UnitMicrogramsPerCubicMeter, StateClass: measurement},
	{Key: "ch4_MIPEX", Name: "Methane", Unit: hass.UnitPercentage, StateClass: measurement},
	{Key: "n2o", Name: "N2O", Unit: hass.UnitMicrogramsPerCubicMeter, DeviceClass: hass.DeviceClassNitrousOxide, StateClass: measurement},
	{Key: "no_M250", Name: "NO", Unit: hass.UnitMicrogramsPerCubicMeter, DeviceClass: hass.DeviceClassNitrogenMonoxide, StateClass: measurement},
	{Key: "no2", Name: "NO2", Unit: hass.UnitMicrogramsPerCubicMeter, DeviceClass: hass.DeviceClassNitrogenDioxide, StateClass: measurement},
	{Key: "o3", Name: "Ozone", Unit: hass.UnitMicrogramsPerCubicMeter, DeviceClass: hass.DeviceClassOzone, StateClass: measurement},
	{Key: "oxygen", Name: "Oxygen", Unit: hass.UnitPercentage, Icon: "mdi:leaf", StateClass: measurement},
	{Key: "performance", Name: "Performance Index", Unit: hass.UnitPercentage, Icon: "mdi:head-check", Transform: IndexToPercent, StateClass: measurement},
	{Key: "pm1", Name: "PM1", Unit: hass.UnitMicrogramsPerCubicMeter, DeviceClass: hass.DeviceClassPM1, Icon: "mdi:dots-hexagon", StateClass: measurement},
	{Key: "pm2_5", Name: "PM2.5", Unit: hass.UnitMicrogramsPerCubicMeter, DeviceClass: hass.DeviceClassPM25, Icon: "mdi:dots-hexagon", StateClass: measurement},
	{Key: "pm10", Name: "PM10", Unit: hass.UnitMicrogramsPerCubicMeter, DeviceClass: hass.DeviceClassPM10, Icon: "mdi:dots-hexagon", StateClass: measurement},
	{Key: "pressure", Name: "Pressure", Unit: hass.UnitHectopascal, DeviceClass: hass.DeviceClassPressure, StateClass: measurement},
	{Key: "pressure_rel", Name: "Relative pressure", Unit: hass.UnitHectopascal, Icon: "mdi:gauge", StateClass: measurement},
	{Key: "c3h8_MIPEX", Name: "Propane", Unit: hass.UnitPercentage, StateClass: measurement},
	{Key: "so2", Name: "SO2", Unit: hass.UnitMicrogramsPerCubicMeter, DeviceClass: hass.DeviceClassSulphurDioxide, StateClass: measurement},
	{Key: "sound", Name: "Noise", Unit: hass.UnitWeightedDecibelsA, Icon: "mdi:ear-hearing", StateClass: measurement},
	{Key: "sound_max", Name: "Noise (Maximum)", Unit: hass.UnitWeightedDecibelsA, Icon: "mdi:ear-hearing", StateClass: measurement},
	{Key: "radon", Name: "Radon", Unit: hass.UnitBecquerelPerCubicMeter, Icon: "mdi:radioactive", StateClass: measurement},
	{Key: "temperature", Name: "Temperature", Unit: hass.UnitCelsius, DeviceClass: hass.DeviceClassTemperature, StateClass: measurement},
	{Key: "tvoc", Name: "VOC", Unit: hass.UnitPartsPerBillion, DeviceClass: hass.DeviceClassVolatileOrganicCompound, StateClass: measurement},
	{Key: "tvoc_ionsc", Name: "VOC (Industrial)", Unit: hass.UnitPartsPerBillion, DeviceClass: hass.DeviceClassVolatileOrganicCompound, StateClass: measurement},
}
