package hass

// Units of measurement as Home Assistant spells them.
const (
	UnitMicrogramsPerCubicMeter = "µg/m³"
	UnitMilligramsPerCubicMeter = "mg/m³"
	UnitGramsPerCubicMeter      = "g/m³"
	UnitPartsPerMillion         = "ppm"
	UnitPartsPerBillion         = "ppb"
	UnitPercentage              = "%"
	UnitHectopascal             = "hPa"
	UnitWeightedDecibelsA       = "dBA"
	UnitCelsius                 = "°C"
	UnitBecquerelPerCubicMeter  = "Bq/m³"
)
