package hass

// StateClass describes how Home Assistant records long-term statistics for a sensor.
type StateClass string

const (
	// StateClassMeasurement indicates the state represents a measurement in present time, for example current
	// temperature or CO2 concentration. Every air-Q sensor uses it.
	StateClassMeasurement StateClass = "measurement"

	// StateClassTotal indicates the state represents a total amount that can both increase and decrease.
	StateClassTotal StateClass = "total"

	// StateClassTotalIncreasing indicates a monotonically increasing total which periodically restarts from 0.
	StateClassTotalIncreasing StateClass = "total_increasing"
)

// DeviceClass tells Home Assistant what a sensor measures, which drives icons, unit conversion and grouping. The empty
// DeviceClass means "generic sensor" and is omitted from discovery.
//
// See https://www.home-assistant.io/integrations/sensor/#device-class
type DeviceClass string

const (
	DeviceClassNone                    DeviceClass = ""
	DeviceClassCO                      DeviceClass = "carbon_monoxide"
	DeviceClassCO2                     DeviceClass = "carbon_dioxide"
	DeviceClassHumidity                DeviceClass = "humidity"
	DeviceClassNitrousOxide            DeviceClass = "nitrous_oxide"
	DeviceClassNitrogenMonoxide        DeviceClass = "nitrogen_monoxide"
	DeviceClassNitrogenDioxide         DeviceClass = "nitrogen_dioxide"
	DeviceClassOzone                   DeviceClass = "ozone"
	DeviceClassPM1                     DeviceClass = "pm1"
	DeviceClassPM25                    DeviceClass = "pm25"
	DeviceClassPM10                    DeviceClass = "pm10"
	DeviceClassPressure                DeviceClass = "pressure"
	DeviceClassSulphurDioxide          DeviceClass = "sulphur_dioxide"
	DeviceClassTemperature             DeviceClass = "temperature"
	DeviceClassVolatileOrganicCompound DeviceClass = "volatile_organic_compounds"
)
