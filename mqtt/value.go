package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nlowe/airqtt/log"
)

var (
	// ErrNoMarshaler is the error returned when a Value does not have an associated ValueMarshaler, which is required
	// to write the value to MQTT.
	ErrNoMarshaler = errors.New("no marshaler configured")
	// ErrNeverWritten is the error returned by Value.Republish when Value.Write was not previously called successfully.
	ErrNeverWritten = errors.New("value was never written")
)

// QualityOfService determines what level of guarantee the broker should provide when delivering messages. It implements
// fmt.Stringer and slog.LogValuer.
type QualityOfService uint8

const (
	// QOSAtMostOnce offers "fire and forget" messaging with no acknowledgment from the receiver. This is the default.
	QOSAtMostOnce QualityOfService = iota
	// QOSAtLeastOnce ensures that messages are delivered at least once by requiring a PUBACK acknowledgment.
	QOSAtLeastOnce
	// QOSExactlyOnce guarantees that each message is delivered exactly once.
	QOSExactlyOnce
)

func (q QualityOfService) String() string {
	switch q {
	case QOSAtMostOnce:
		return "at most once (0)"
	case QOSAtLeastOnce:
		return "at least once (1)"
	case QOSExactlyOnce:
		return "exactly once (2)"
	default:
		return fmt.Sprintf("invalid (%d)", uint8(q))
	}
}

func (q QualityOfService) LogValue() slog.Value {
	return slog.StringValue(q.String())
}

// WriteOptions holds options for writing to MQTT. The zero value uses a QoS of 0 with no retain. It implements
// slog.LogValuer.
type WriteOptions struct {
	QoS QualityOfService

	// Retain instructs the broker to persist the last message received for a given topic and replay it to new
	// subscribers.
	Retain bool
}

func (w WriteOptions) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("qos", w.QoS),
		slog.Bool("retain", w.Retain),
	)
}

// ReadOptions holds options for configuring MQTT Subscriptions. It implements slog.LogValuer.
type ReadOptions struct {
	QoS QualityOfService

	// NoLocal indicates that the server must not forward the message to the client that published it.
	NoLocal bool
}

func (r ReadOptions) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("qos", r.QoS),
		slog.Bool("no_local", r.NoLocal),
	)
}

// Value holds a value that is written to a topic relative to a prefix. Sensor states and availability are Values.
type Value[T any] struct {
	topic     string
	marshaler ValueMarshaler[T]
	opts      WriteOptions

	mu          sync.RWMutex
	v           T
	initialized bool
}

// NewValue constructs a Value for the provided topic using default WriteOptions (QoS 0, no retain).
func NewValue[T any](topic string, marshal ValueMarshaler[T]) *Value[T] {
	return NewValueWithOptions(topic, marshal, WriteOptions{})
}

// NewValueWithOptions constructs a Value for the provided topic using the provided WriteOptions.
func NewValueWithOptions[T any](topic string, marshal ValueMarshaler[T], opts WriteOptions) *Value[T] {
	return &Value[T]{
		topic:     topic,
		marshaler: marshal,
		opts:      opts,
	}
}

// FullyQualifiedTopic calculates the MQTT Topic for this value when given the specified prefix. A nil Value has no
// topic and returns the empty string.
func (v *Value[T]) FullyQualifiedTopic(prefix string) string {
	if v == nil {
		return ""
	}

	return JoinTopic(prefix, v.topic)
}

// Get returns the most recently written value and whether it has been written at all.
func (v *Value[T]) Get() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.v, v.initialized
}

// Republish writes the current value again, for example after Home Assistant restarts.
func (v *Value[T]) Republish(ctx context.Context, w Writer, prefix string) (T, error) {
	current, ok := v.Get()
	if !ok {
		return current, ErrNeverWritten
	}

	return v.Write(ctx, w, prefix, current)
}

// Write marshals newValue and publishes it to the configured topic. The held value is updated before publishing so a
// failed publish can be retried with Republish.
func (v *Value[T]) Write(ctx context.Context, w Writer, prefix string, newValue T) (T, error) {
	if v.marshaler == nil {
		return newValue, ErrNoMarshaler
	}

	data, err := v.marshaler(newValue)
	if err != nil {
		return newValue, fmt.Errorf("marshal %+v: %w", newValue, err)
	}

	v.mu.Lock()
	v.v, v.initialized = newValue, true
	v.mu.Unlock()

	return newValue, w.WriteTopic(ctx, v.FullyQualifiedTopic(prefix), v.opts, data)
}

// RemoteValue holds a value that is populated from a subscription. airqtt uses it to follow Home Assistant's status
// topic.
type RemoteValue[T any] struct {
	topic       string
	unmarshaler ValueUnmarshaler[T]
	opts        ReadOptions

	mu          sync.RWMutex
	nextID      int
	watchers    map[int]func(T)
	v           T
	initialized bool

	log *slog.Logger
}

// NewRemoteValue constructs a RemoteValue for the specified topic. Payloads are decoded with unmarshaler, or as json
// when unmarshaler is nil.
func NewRemoteValue[T any](topic string, unmarshaler ValueUnmarshaler[T]) *RemoteValue[T] {
	return NewRemoteValueWithOptions(topic, unmarshaler, ReadOptions{})
}

// NewRemoteValueWithOptions is NewRemoteValue with explicit ReadOptions.
func NewRemoteValueWithOptions[T any](topic string, unmarshaler ValueUnmarshaler[T], opts ReadOptions) *RemoteValue[T] {
	if unmarshaler == nil {
		unmarshaler = JsonValueUnmarshaler[T]()
	}

	return &RemoteValue[T]{
		topic:       topic,
		unmarshaler: unmarshaler,
		opts:        opts,
		watchers:    map[int]func(T){},

		log: log.ForComponent("mqtt.value.remote").With(slog.String("topic", topic)),
	}
}

// ServeMQTT implements Handler. Messages for other topics are ignored. Payloads that fail to decode are logged and do
// not reach watchers.
func (v *RemoteValue[T]) ServeMQTT(_ Writer, topic string, payload []byte) {
	if v == nil || v.topic != topic {
		return
	}

	parsed, err := v.unmarshaler(payload)
	if err != nil {
		v.log.With(log.Error(err)).Warn("Failed to unmarshal payload from mqtt")
		return
	}

	v.mu.Lock()
	v.v, v.initialized = parsed, true
	watchers := make([]func(T), 0, len(v.watchers))
	for _, w := range v.watchers {
		watchers = append(watchers, w)
	}
	v.mu.Unlock()

	v.log.With(slog.Any("v", parsed), slog.Int("watchers", len(watchers))).Debug("Received new value from mqtt")
	for _, w := range watchers {
		w(parsed)
	}
}

// FullyQualifiedTopic calculates the MQTT Topic for this value when given the specified prefix.
func (v *RemoteValue[T]) FullyQualifiedTopic(prefix string) string {
	if v == nil {
		return ""
	}

	return JoinTopic(prefix, v.topic)
}

// Subscription returns the Subscription needed to feed this value.
func (v *RemoteValue[T]) Subscription(prefix string) Subscription {
	return Subscription{Topic: v.FullyQualifiedTopic(prefix), Options: v.opts}
}

// Get returns the most recent value received from mqtt and whether any value has been received.
func (v *RemoteValue[T]) Get() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.v, v.initialized
}

// Watch registers a callback for new values and returns an id for Unwatch. Watchers are called outside the value's
// lock but must not block.
func (v *RemoteValue[T]) Watch(callback func(T)) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := v.nextID
	v.nextID++
	v.watchers[id] = callback

	return id
}

// Unwatch removes the callback registered with the specified id.
func (v *RemoteValue[T]) Unwatch(id int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	delete(v.watchers, id)
}

// DesiredValue makes calling RemoteValue.Await on comparable remote values easier
func DesiredValue[T comparable](v T) func(T) bool {
	return func(vv T) bool {
		return v == vv
	}
}

// Await blocks until a received value passes desired or ctx is done. A value that was already received is checked
// first.
func (v *RemoteValue[T]) Await(ctx context.Context, desired func(T) bool) (T, error) {
	found := make(chan T, 1)
	id := v.Watch(func(t T) {
		if desired(t) {
			select {
			case found <- t:
			default:
			}
		}
	})
	defer v.Unwatch(id)

	if current, ok := v.Get(); ok && desired(current) {
		return current, nil
	}

	select {
	case got := <-found:
		return got, nil
	case <-ctx.Done():
		var zero T
		return zero, context.Cause(ctx)
	}
}
