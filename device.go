package airqtt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/nlowe/airqtt/discovery"
	"github.com/nlowe/airqtt/mqtt"
)

// ErrInvalidDevice is the error returned by Device.Configure and Device.Valid if it is not properly configured.
var ErrInvalidDevice = errors.New("device must have at least one identifying value in 'identifiers' and/or 'connections'")

// DeviceConnection maps this Device to the outside world, for example its mac address. It implements fmt.Stringer and
// slog.LogValuer.
type DeviceConnection struct {
	Kind  string
	Value string
}

func (d DeviceConnection) String() string {
	return fmt.Sprintf("[%q,%q]", d.Kind, d.Value)
}

func (d DeviceConnection) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", d.Kind),
		slog.String("value", d.Value),
	)
}

func (d DeviceConnection) MarshalJSONTo(e *jsontext.Encoder) error {
	return errors.Join(
		e.WriteToken(jsontext.BeginArray),
		e.WriteToken(jsontext.String(d.Kind)),
		e.WriteToken(jsontext.String(d.Value)),
		e.WriteToken(jsontext.EndArray),
	)
}

// Device is a Home Assistant device registry entry. Components are attached to it only when the discovery payload is
// marshaled by Configure.
//
// See https://www.home-assistant.io/integrations/mqtt/#device-discovery-payload
type Device struct {
	// The ID to use for discovery. If empty, an ID is calculated from other fields.
	DiscoveryID string `json:"-"`

	Name         string `json:"name,omitempty"`
	Serial       string `json:"sn,omitempty"`
	Manufacturer string `json:"mf,omitempty"`
	Model        string `json:"mdl,omitempty"`
	ModelID      string `json:"mdl_id,omitempty"`

	// A link to the webpage that can manage the configuration of this device.
	ConfigurationURL *url.URL `json:"cu,omitempty"`

	Connections []DeviceConnection `json:"cns,omitempty"`

	HardwareVersion string `json:"hw,omitempty"`
	FirmwareVersion string `json:"sw,omitempty"`

	// A list of IDs that uniquely identify the device. For example a serial number.
	Identifiers []string `json:"ids,omitempty"`

	// Suggest an area if the device isn't in one yet
	SuggestedArea string `json:"sa,omitempty"`

	// Home Assistant requires origin information with device-based discovery. DefaultOrigin is used when nil.
	Origin *Origin `json:"-"`

	ViaDevice string `json:"via_device,omitempty"`
}

// ID calculates an identifier for this device. If the Device.DiscoveryID is specified, that value will be used.
// Otherwise the sanitized Identifiers, Name and Serial are joined with discovery.IDSep.
func (d *Device) ID() string {
	if d.DiscoveryID != "" {
		return d.DiscoveryID
	}

	parts := make([]string, 0, len(d.Identifiers)+2)
	for _, ident := range append(append([]string{}, d.Identifiers...), d.Name, d.Serial) {
		if ident != "" {
			parts = append(parts, discovery.IDSanitizer.Replace(ident))
		}
	}

	return strings.Join(parts, discovery.IDSep)
}

// Valid checks if this Device is configured appropriately. Home Assistant requires at least one value be configured for
// Device.Identifiers, or at least one value be configured for Device.Connections.
func (d *Device) Valid() error {
	if len(d.Identifiers) == 0 && len(d.Connections) == 0 {
		return ErrInvalidDevice
	}

	return nil
}

// Payload renders the device discovery payload for this device and the provided components.
func (d *Device) Payload(components map[string]json.MarshalerTo) ([]byte, error) {
	if err := d.Valid(); err != nil {
		return nil, err
	}

	origin := d.Origin
	if origin == nil {
		o := DefaultOrigin()
		origin = &o
	}

	var buf bytes.Buffer
	e := jsontext.NewEncoder(
		&buf,
		jsontext.CanonicalizeRawInts(true),
		jsontext.CanonicalizeRawFloats(true),
	)

	err := errors.Join(
		e.WriteToken(jsontext.BeginObject),

		discovery.MarshalStd("device", e, discovery.FieldDevice, d),
		discovery.MarshalStd("origin", e, discovery.FieldOrigin, origin),

		e.WriteToken(jsontext.String(discovery.FieldComponents)),
		e.WriteToken(jsontext.BeginObject),

		discovery.MaybeInlineMarshalStd(e, components),

		e.WriteToken(jsontext.EndObject),
		e.WriteToken(jsontext.EndObject),
	)

	if err != nil {
		return nil, fmt.Errorf("marshal discovery config: %w", err)
	}

	return buf.Bytes(), nil
}

// Configure publishes the retained device discovery payload for this device and the provided components. To remove
// components from the device, replace the component in the map with a RemoveComponent when calling Configure.
//
// The device must pass validation performed by Device.Valid.
func (d *Device) Configure(ctx context.Context, w mqtt.Writer, discoveryPrefix string, components map[string]json.MarshalerTo) error {
	payload, err := d.Payload(components)
	if err != nil {
		return fmt.Errorf("configure: %w", err)
	}

	return w.WriteTopic(ctx, discovery.DeviceTopic(discoveryPrefix, d.ID()), mqtt.WriteOptions{Retain: true, QoS: mqtt.QOSAtLeastOnce}, payload)
}

// Forget clears the retained discovery payload, which makes Home Assistant remove the device and all of its
// components.
func (d *Device) Forget(ctx context.Context, w mqtt.Writer, discoveryPrefix string) error {
	return w.WriteTopic(ctx, discovery.DeviceTopic(discoveryPrefix, d.ID()), mqtt.WriteOptions{Retain: true, QoS: mqtt.QOSAtLeastOnce}, nil)
}
