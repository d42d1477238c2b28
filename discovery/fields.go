package discovery

import (
	"strings"

	"github.com/nlowe/airqtt/mqtt"
)

// Device and shared component fields.
const (
	FieldDevice          = "dev"
	FieldOrigin          = "o"
	FieldComponents      = "cmps"
	FieldPlatform        = "p"
	FieldEntityCategory  = "ent_cat"
	FieldIcon            = "ic"
	FieldDefaultEntityID = "def_ent_id"
	FieldUniqueID        = "uniq_id"
	FieldStateTopic      = "stat_t"

	FieldAvailabilityTopic   = "avty_t"
	FieldAvailability        = "avty"
	FieldAvailabilityMode    = "avty_mode"
	FieldPayloadAvailable    = "pl_avail"
	FieldPayloadNotAvailable = "pl_not_avail"
	FieldTopic               = "t"

	FieldQualityOfService = "qos"
	FieldRetain           = "ret"
)

// Sensor platform fields.
const (
	FieldDeviceClass               = "dev_cla"
	FieldExpireMeasurementsAfter   = "exp_after"
	FieldForceUpdate               = "frc_upd"
	FieldSuggestedDisplayPrecision = "sug_dsp_prc"
	FieldStateClass                = "stat_cla"
	FieldUnitOfMeasurement         = "unit_of_meas"
)

const (
	// IDSep separates parts of a discovery id and replaces characters that are not allowed in one.
	IDSep = "__"
)

// IDSanitizer is a strings.Replacer that makes a device id safe for use as a single MQTT topic level.
var IDSanitizer = strings.NewReplacer(
	" ", IDSep,
	":", IDSep,
	".", IDSep,
	"!", IDSep,
	"?", IDSep,
	"+", IDSep,
	"#", IDSep,
	mqtt.TopicSeparator, IDSep,
)
