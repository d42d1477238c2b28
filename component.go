package airqtt

import (
	"errors"
	"fmt"

	"github.com/go-json-experiment/json/jsontext"

	"github.com/nlowe/airqtt/discovery"
	"github.com/nlowe/airqtt/hass"
	"github.com/nlowe/airqtt/mqtt"
)

// ErrAvailabilityRequired is returned when marshaling a Component without any availability topic.
var ErrAvailabilityRequired = errors.New("at least one availability value is required")

// Component exposes a Home Assistant entity belonging to a Device. It implements json.MarshalerTo by encoding the
// component for a Home Assistant Device Discovery payload.
type Component[TPlatform Platform] struct {
	Platform    TPlatform
	TopicPrefix string

	// The name of the entity. The empty string marshals as null so Home Assistant uses only the device name.
	Name string

	// See https://developers.home-assistant.io/docs/core/entity/#generic-properties
	EntityCategory string

	Icon string

	// Availability topics for this entity. With more than one, the entity is only available when all of them are.
	Availability []*mqtt.Value[hass.Availability]

	// Used instead of Name to generate the entity id the first time Home Assistant sees the entity.
	DefaultEntityID string

	// Required when used with device-based discovery.
	UniqueID string
}

func (c *Component[TPlatform]) ForRemoval() RemoveComponent {
	return RemoveComponent{Platform: c.Platform.PlatformName()}
}

func (c *Component[TPlatform]) MarshalJSONTo(e *jsontext.Encoder) error {
	nameToken := jsontext.Null
	if c.Name != "" {
		nameToken = jsontext.String(c.Name)
	}

	return errors.Join(
		e.WriteToken(jsontext.BeginObject),

		discovery.MarshalStdComparable("platform", e, discovery.FieldPlatform, c.Platform.PlatformName()),

		e.WriteToken(jsontext.String("name")),
		e.WriteToken(nameToken),

		discovery.MaybeMarshalStdComparable(e, discovery.FieldEntityCategory, c.EntityCategory),
		discovery.MaybeMarshalStdComparable(e, discovery.FieldIcon, c.Icon),

		c.marshalAvailability(e),

		discovery.MaybeMarshalStdComparable(e, discovery.FieldDefaultEntityID, c.DefaultEntityID),
		discovery.MarshalStdComparable("unique_id", e, discovery.FieldUniqueID, c.UniqueID),

		c.Platform.MarshalDiscoveryTo(e, c.TopicPrefix),

		e.WriteToken(jsontext.EndObject),
	)
}

func (c *Component[TPlatform]) marshalAvailability(e *jsontext.Encoder) error {
	switch len(c.Availability) {
	case 0:
		return fmt.Errorf("availability: %w", ErrAvailabilityRequired)
	case 1:
		return discovery.MarshalRequiredValueTopic("availability", e, discovery.FieldAvailabilityTopic, c.Availability[0], c.TopicPrefix)
	}

	err := errors.Join(
		e.WriteToken(jsontext.String(discovery.FieldAvailability)),
		e.WriteToken(jsontext.BeginArray),
	)

	for i, a := range c.Availability {
		err = errors.Join(
			err,
			e.WriteToken(jsontext.BeginObject),
			discovery.MarshalRequiredValueTopic(fmt.Sprintf("availability[%d]", i), e, discovery.FieldTopic, a, c.TopicPrefix),
			e.WriteToken(jsontext.EndObject),
		)
	}

	return errors.Join(
		err,
		e.WriteToken(jsontext.EndArray),
		discovery.MarshalStdComparable("availability_mode", e, discovery.FieldAvailabilityMode, "all"),
	)
}

// RemoveComponent is used to remove a Component from device discovery. Construct a RemoveComponent with the appropriate
// platform name manually or use Component.ForRemoval.
type RemoveComponent struct {
	Platform string
}

func (r RemoveComponent) MarshalJSONTo(e *jsontext.Encoder) error {
	return errors.Join(
		e.WriteToken(jsontext.BeginObject),
		discovery.MarshalStdComparable("platform", e, discovery.FieldPlatform, r.Platform),
		e.WriteToken(jsontext.EndObject),
	)
}
