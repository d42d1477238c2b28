// Package autopaho implements mqtt.Writer and mqtt.Subscriber on top of an eclipse/paho.golang autopaho connection.
// Subscriptions are replayed whenever the connection comes back up.
package autopaho

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/nlowe/airqtt/log"
	"github.com/nlowe/airqtt/mqtt"
)

// Will is published by the broker on the client's behalf when the connection drops without a clean disconnect.
type Will struct {
	Topic   string
	Payload []byte
	Retain  bool
}

// Options configures DialMQTT.
type Options struct {
	Broker    *url.URL
	ClientID  string
	Username  string
	Password  string
	KeepAlive time.Duration

	// Will is optional. airqtt uses it to mark the bridge offline.
	Will *Will
}

func (o Options) clientConfig() autopaho.ClientConfig {
	keepAlive := uint16(o.KeepAlive / time.Second)
	if keepAlive == 0 {
		keepAlive = 20
	}

	cfg := autopaho.ClientConfig{
		ServerUrls: []*url.URL{o.Broker},
		KeepAlive:  keepAlive,

		// Seconds the broker keeps the session after a disconnect so queued messages survive short outages.
		SessionExpiryInterval: 60,

		ConnectUsername: o.Username,
		ConnectPassword: []byte(o.Password),

		ClientConfig: paho.ClientConfig{
			ClientID: o.ClientID,
		},
	}

	if o.Will != nil {
		cfg.WillMessage = &paho.WillMessage{
			Topic:   o.Will.Topic,
			Payload: o.Will.Payload,
			Retain:  o.Will.Retain,
			QoS:     1,
		}
	}

	return cfg
}

type adapter struct {
	mu sync.Mutex

	conn *autopaho.ConnectionManager
	r    paho.Router

	subscriptions map[string]paho.SubscribeOptions

	log *slog.Logger
}

var _ mqtt.Writer = &adapter{}
var _ mqtt.Subscriber = &adapter{}

// DialMQTT connects to the broker and waits until the first connection is up. The returned function disconnects.
func DialMQTT(ctx context.Context, opts Options) (mqtt.Writer, mqtt.Subscriber, func(ctx context.Context) error, error) {
	if opts.Broker == nil {
		return nil, nil, nil, fmt.Errorf("mqtt: broker url is required")
	}

	a := &adapter{
		r: paho.NewStandardRouter(),

		subscriptions: map[string]paho.SubscribeOptions{},

		log: log.ForComponent("autopaho").With(slog.String("broker", opts.Broker.Redacted())),
	}

	config := opts.clientConfig()
	config.OnConnectionUp = func(_ *autopaho.ConnectionManager, _ *paho.Connack) {
		a.log.Info("Connected to mqtt broker")
		a.onReconnect(ctx)
	}
	config.OnConnectError = func(err error) {
		a.log.With(log.Error(err)).Warn("mqtt connection error")
	}
	config.ClientConfig.OnClientError = func(err error) {
		a.log.With(log.Error(err)).Error("mqtt client error")
	}
	config.ClientConfig.OnServerDisconnect = func(d *paho.Disconnect) {
		l := a.log.With(slog.Int("reason", int(d.ReasonCode)))
		if d.Properties != nil {
			l = l.With(slog.String("reason_string", d.Properties.ReasonString))
		}

		l.Warn("Disconnected from server")
	}

	// Hold the lock until a.conn is assigned so the first OnConnectionUp callback waits for it.
	a.mu.Lock()
	a.log.Info("Connecting to mqtt broker")
	conn, err := autopaho.NewConnection(ctx, config)
	if err != nil {
		a.mu.Unlock()
		return nil, nil, nil, fmt.Errorf("mqtt: connect: %w", err)
	}

	a.conn = conn
	a.mu.Unlock()

	if err = conn.AwaitConnection(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("mqtt: wait for connection: %w", err)
	}

	conn.AddOnPublishReceived(func(rx autopaho.PublishReceived) (bool, error) {
		a.r.Route(rx.Packet.Packet())
		return true, nil
	})

	return a, a, conn.Disconnect, nil
}

func (a *adapter) onReconnect(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.subscriptions) == 0 {
		return
	}

	sub := &paho.Subscribe{
		Subscriptions: make([]paho.SubscribeOptions, 0, len(a.subscriptions)),
	}

	for _, s := range a.subscriptions {
		sub.Subscriptions = append(sub.Subscriptions, s)
	}

	a.log.Debug("Re-sending subscriptions")
	if _, err := a.conn.Subscribe(ctx, sub); err != nil {
		a.log.With(log.Error(err)).Error("Failed to re-subscribe to mqtt topics")
	}
}

func (a *adapter) WriteTopic(ctx context.Context, topic string, options mqtt.WriteOptions, value []byte) error {
	a.log.With(slog.String("topic", topic), slog.Any("options", options), slog.Int("bytes", len(value))).Debug("Publishing payload")

	_, err := a.conn.Publish(ctx, &paho.Publish{
		QoS:     uint8(options.QoS),
		Retain:  options.Retain,
		Topic:   topic,
		Payload: value,
	})

	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	return nil
}

func (a *adapter) Subscribe(ctx context.Context, handler mqtt.Handler, subscriptions ...mqtt.Subscription) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(subscriptions) == 0 {
		return nil
	}

	sub := &paho.Subscribe{
		Subscriptions: make([]paho.SubscribeOptions, len(subscriptions)),
	}

	for i, s := range subscriptions {
		opts := paho.SubscribeOptions{
			Topic:   s.Topic,
			QoS:     uint8(s.Options.QoS),
			NoLocal: s.Options.NoLocal,
		}

		a.subscriptions[s.Topic] = opts
		sub.Subscriptions[i] = opts

		a.r.RegisterHandler(s.Topic, func(publish *paho.Publish) {
			handler.ServeMQTT(a, publish.Topic, publish.Payload)
		})
	}

	a.log.With(slog.Any("subscriptions", subscriptions)).Debug("Subscribing to MQTT Topic(s)")
	_, err := a.conn.Subscribe(ctx, sub)
	return err
}

func (a *adapter) Unsubscribe(ctx context.Context, topics ...string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, t := range topics {
		delete(a.subscriptions, t)
		a.r.UnregisterHandler(t)
	}

	_, err := a.conn.Unsubscribe(ctx, &paho.Unsubscribe{
		Topics: topics,
	})

	return err
}
