// Package sensor turns the readings of a coordinator into Home Assistant sensor entities.
package sensor

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/go-json-experiment/json"

	"github.com/nlowe/airqtt"
	"github.com/nlowe/airqtt/airq"
	"github.com/nlowe/airqtt/coordinator"
	"github.com/nlowe/airqtt/discovery"
	"github.com/nlowe/airqtt/hass"
	"github.com/nlowe/airqtt/log"
	"github.com/nlowe/airqtt/mqtt"
	"github.com/nlowe/airqtt/platform"
)

// Source is what entities read from. *coordinator.Coordinator implements it.
type Source interface {
	Data() airq.Data
	DeviceInfo() coordinator.DeviceInfo
	LastUpdateSuccess() bool
}

var _ Source = &coordinator.Coordinator{}

// Entity is one sensor of one device.
type Entity struct {
	Description Description

	source   Source
	uniqueID string
	state    *mqtt.Value[*float64]
}

// Group holds the entities created for one device and the availability they share.
type Group struct {
	source Source

	Availability *mqtt.Value[hass.Availability]
	Entities     []*Entity

	// Upstream availability that must also be online for the entities to be available, such as the bridge's own.
	Upstream []*mqtt.Value[hass.Availability]
}

// SetupEntry creates an entity for every catalog description the device reports, including sensors that are still
// warming up and have no reading yet.
func SetupEntry(src Source) *Group {
	info := src.DeviceInfo()
	l := log.ForComponent("sensor").With(log.Device(info.ID))

	data := src.Data()
	available := make(map[string]struct{}, len(data))
	for k := range data {
		available[k] = struct{}{}
	}

	if warming := data.WarmingUp(); len(warming) > 0 {
		slices.Sort(warming)
		for _, k := range warming {
			available[k] = struct{}{}
		}

		l.With(slog.Int("count", len(warming)), slog.String("keys", strings.Join(warming, ", "))).Debug("Sensors are warming up")
	}

	deviceLevel := mqtt.TopicLevel(info.ID)

	g := &Group{
		source:       src,
		Availability: mqtt.NewValueWithOptions(mqtt.JoinTopic(deviceLevel, "availability"), hass.AvailabilityMarshaler, mqtt.WriteOptions{Retain: true}),
	}

	for _, d := range Catalog {
		if _, ok := available[d.Key]; !ok {
			continue
		}

		g.Entities = append(g.Entities, &Entity{
			Description: d,
			source:      src,
			uniqueID:    info.ID + "_" + d.Key,
			state:       mqtt.NewValue(mqtt.JoinTopic(deviceLevel, mqtt.TopicLevel(d.Key), "state"), mqtt.OptionalFloatMarshaler),
		})
	}

	l.With(slog.Int("count", len(g.Entities)), slog.String("keys", strings.Join(g.Keys(), ", "))).Debug("Identified available sensors")
	return g
}

// Keys returns the data key of every entity in the group.
func (g *Group) Keys() []string {
	keys := make([]string, len(g.Entities))
	for i, e := range g.Entities {
		keys[i] = e.Description.Key
	}

	return keys
}

// UniqueID is "<device id>_<key>".
func (e *Entity) UniqueID() string {
	return e.uniqueID
}

// Name is the description name. Home Assistant prefixes it with the device name.
func (e *Entity) Name() string {
	return e.Description.Name
}

// DeviceInfo returns the info of the device this entity belongs to.
func (e *Entity) DeviceInfo() coordinator.DeviceInfo {
	return e.source.DeviceInfo()
}

// Available reports whether the last refresh of the device succeeded.
func (e *Entity) Available() bool {
	return e.source.LastUpdateSuccess()
}

// NativeValue returns the transformed reading, or nil when the device has not reported the key, e.g. while the
// sensor warms up.
func (e *Entity) NativeValue() *float64 {
	raw, ok := e.source.Data().Float(e.Description.Key)
	if !ok {
		return nil
	}

	v := e.Description.Value(raw)
	return &v
}

// StateTopic returns the topic the entity's state is published to.
func (e *Entity) StateTopic(topicPrefix string) string {
	return e.state.FullyQualifiedTopic(topicPrefix)
}

// Component builds the discovery component for this entity.
func (e *Entity) Component(topicPrefix string, availability ...*mqtt.Value[hass.Availability]) *airqtt.Component[*platform.Sensor[*float64]] {
	return &airqtt.Component[*platform.Sensor[*float64]]{
		Platform: &platform.Sensor[*float64]{
			DeviceClass:       e.Description.DeviceClass,
			StateClass:        e.Description.StateClass,
			State:             e.state,
			UnitOfMeasurement: e.Description.Unit,
		},
		TopicPrefix:  topicPrefix,
		Name:         e.Description.Name,
		Icon:         e.Description.Icon,
		Availability: availability,
		UniqueID:     e.uniqueID,
	}
}

// Publish writes the entity's current value.
func (e *Entity) Publish(ctx context.Context, w mqtt.Writer, topicPrefix string) error {
	return mqtt.Error(e.state.Write(ctx, w, topicPrefix, e.NativeValue()))
}

// Device builds the Home Assistant device for the group.
func (g *Group) Device() *airqtt.Device {
	info := g.source.DeviceInfo()

	d := &airqtt.Device{
		DiscoveryID:     discovery.IDSanitizer.Replace("airq_" + info.ID),
		Name:            info.Name,
		Serial:          info.Serial,
		Manufacturer:    info.Manufacturer,
		Model:           info.Model,
		HardwareVersion: info.HardwareVersion,
		FirmwareVersion: info.SoftwareVersion,
		Identifiers:     []string{info.ID},
		SuggestedArea:   info.SuggestedArea,
	}

	if info.Address != "" {
		d.ConfigurationURL = configurationURL(info.Address)
	}

	return d
}

// Components builds the discovery components of every entity keyed by unique id. Keys in removed that no longer have
// an entity are sent as removals so Home Assistant drops them.
func (g *Group) Components(topicPrefix string, removed ...string) map[string]json.MarshalerTo {
	components := make(map[string]json.MarshalerTo, len(g.Entities)+len(removed))
	for _, key := range removed {
		components[g.source.DeviceInfo().ID+"_"+key] = airqtt.RemoveComponent{Platform: "sensor"}
	}

	availability := append(slices.Clone(g.Upstream), g.Availability)
	for _, e := range g.Entities {
		components[e.uniqueID] = e.Component(topicPrefix, availability...)
	}

	return components
}

// Configure publishes the discovery payload for the group.
func (g *Group) Configure(ctx context.Context, w mqtt.Writer, discoveryPrefix, topicPrefix string, removed ...string) error {
	return g.Device().Configure(ctx, w, discoveryPrefix, g.Components(topicPrefix, removed...))
}

// Publish writes availability and then the state of every entity.
func (g *Group) Publish(ctx context.Context, w mqtt.Writer, topicPrefix string) error {
	err := mqtt.Error(g.Availability.Write(ctx, w, topicPrefix, hass.Of(g.source.LastUpdateSuccess())))
	for _, e := range g.Entities {
		err = errors.Join(err, e.Publish(ctx, w, topicPrefix))
	}

	return err
}

// Forget removes the group's device from Home Assistant and marks it offline.
func (g *Group) Forget(ctx context.Context, w mqtt.Writer, discoveryPrefix, topicPrefix string) error {
	return errors.Join(
		mqtt.Error(g.Availability.Write(ctx, w, topicPrefix, hass.Unavailable)),
		g.Device().Forget(ctx, w, discoveryPrefix),
	)
}

func configurationURL(address string) *url.URL {
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}

	u, err := url.Parse(address)
	if err != nil {
		return nil
	}

	return u
}
