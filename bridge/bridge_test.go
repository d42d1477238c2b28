package bridge

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlowe/airqtt/airq"
	"github.com/nlowe/airqtt/airq/airqtest"
	"github.com/nlowe/airqtt/entry"
	"github.com/nlowe/airqtt/hass"
	"github.com/nlowe/airqtt/metrics"
	"github.com/nlowe/airqtt/mqtt"
	"github.com/nlowe/airqtt/mqtt/mqtttest"
)

type fakeStore struct {
	mu      sync.Mutex
	entries []entry.Entry
	changed chan struct{}
}

func newFakeStore(entries ...entry.Entry) *fakeStore {
	return &fakeStore{entries: entries, changed: make(chan struct{}, 1)}
}

func (s *fakeStore) All() []entry.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]entry.Entry(nil), s.entries...)
}

func (s *fakeStore) set(entries ...entry.Entry) {
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	s.changed <- struct{}{}
}

func (s *fakeStore) Watch(ctx context.Context, fn func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.changed:
			fn()
		}
	}
}

type fakeSubscriber struct {
	mu       sync.Mutex
	handlers map[string]mqtt.Handler
}

func (f *fakeSubscriber) Subscribe(_ context.Context, handler mqtt.Handler, subscriptions ...mqtt.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.handlers == nil {
		f.handlers = map[string]mqtt.Handler{}
	}

	for _, s := range subscriptions {
		f.handlers[s.Topic] = handler
	}

	return nil
}

func (f *fakeSubscriber) Unsubscribe(_ context.Context, topics ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range topics {
		delete(f.handlers, t)
	}

	return nil
}

func (f *fakeSubscriber) deliver(topic, payload string) bool {
	f.mu.Lock()
	h, ok := f.handlers[topic]
	f.mu.Unlock()

	if ok {
		h.ServeMQTT(nil, topic, []byte(payload))
	}

	return ok
}

func office() entry.Entry {
	return entry.Entry{
		EntryID:  "e1",
		Title:    "Air-Q Office",
		UniqueID: "abc123",
		Data:     map[string]string{entry.DataAddress: "192.168.0.42", entry.DataPassword: "airqsetup"},
	}
}

func device() *airqtest.Device {
	return &airqtest.Device{
		Authenticated: true,
		Responses: map[string]airq.Data{
			"config": {"id": "abc123", "devicename": "Office"},
			"data":   {"co2": 612.5, "tvoc": 120.0},
		},
	}
}

type harness struct {
	w     *mqtttest.Recorder
	sub   *fakeSubscriber
	store *fakeStore
	m     *metrics.Collector
	b     *Bridge

	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T, d airq.Device, entries ...entry.Entry) *harness {
	t.Helper()

	h := &harness{
		w:     &mqtttest.Recorder{},
		sub:   &fakeSubscriber{},
		store: newFakeStore(entries...),
		m:     metrics.NewCollector(),
		done:  make(chan error, 1),
	}

	h.b = New(Options{
		Writer:     h.w,
		Subscriber: h.sub,
		Store:      h.store,
		Connect: func(string, string) (airq.Device, error) {
			return d, nil
		},
		DiscoveryPrefix: "homeassistant",
		TopicPrefix:     "airqtt",
		ScanInterval:    time.Hour,
		Metrics:         h.m,
	})

	var ctx context.Context
	ctx, h.cancel = context.WithCancel(context.Background())
	go func() {
		h.done <- h.b.Run(ctx)
	}()

	t.Cleanup(func() {
		h.cancel()
		<-h.done
	})

	return h
}

func (h *harness) eventually(t *testing.T, topic string, want func(payload string) bool) {
	t.Helper()

	require.Eventually(t, func() bool {
		payload, ok := h.w.Last(topic)
		return ok && want(payload)
	}, 5*time.Second, 10*time.Millisecond, "waiting for %s", topic)
}

func nonEmpty(payload string) bool { return payload != "" }

func equals(want string) func(string) bool {
	return func(payload string) bool { return payload == want }
}

func TestBridge_Run(t *testing.T) {
	h := start(t, device(), office())

	h.eventually(t, "airqtt/bridge/availability", equals("online"))
	h.eventually(t, "homeassistant/device/airq_abc123/config", nonEmpty)
	h.eventually(t, "airqtt/abc123/availability", equals("online"))
	h.eventually(t, "airqtt/abc123/co2/state", equals("612.5"))
	h.eventually(t, "airqtt/abc123/tvoc/state", equals("120"))

	payload, _ := h.w.Last("homeassistant/device/airq_abc123/config")
	assert.Contains(t, payload, `"avty":[{"t":"airqtt/bridge/availability"},{"t":"airqtt/abc123/availability"}]`)

	assert.Equal(t, []string{"e1"}, h.b.Running())
	assert.True(t, h.m.Health().OK)

	t.Run("Home Assistant Restart", func(t *testing.T) {
		h.w.Reset()
		require.Eventually(t, func() bool {
			return h.sub.deliver("homeassistant/status", string(hass.Available))
		}, 5*time.Second, 10*time.Millisecond)

		h.eventually(t, "homeassistant/device/airq_abc123/config", nonEmpty)
		h.eventually(t, "airqtt/abc123/co2/state", equals("612.5"))
	})

	t.Run("Entry Removed", func(t *testing.T) {
		h.w.Reset()
		h.store.set()

		h.eventually(t, "homeassistant/device/airq_abc123/config", equals(""))
		h.eventually(t, "airqtt/abc123/availability", equals("offline"))
		require.Eventually(t, func() bool { return len(h.b.Running()) == 0 }, 5*time.Second, 10*time.Millisecond)
		assert.Empty(t, h.m.Health().Devices)
	})

	t.Run("Shutdown", func(t *testing.T) {
		h.cancel()
		require.NoError(t, <-h.done)
		h.done <- nil

		payload, ok := h.w.Last("airqtt/bridge/availability")
		require.True(t, ok)
		assert.Equal(t, "offline", payload)
	})
}

func TestBridge_EntryAdded(t *testing.T) {
	h := start(t, device())
	h.eventually(t, "airqtt/bridge/availability", equals("online"))
	assert.Empty(t, h.b.Running())

	h.store.set(office())

	h.eventually(t, "homeassistant/device/airq_abc123/config", nonEmpty)
	assert.Equal(t, []string{"e1"}, h.b.Running())
}

func TestBridge_EntryChanged(t *testing.T) {
	d := device()
	h := start(t, d, office())
	h.eventually(t, "airqtt/abc123/tvoc/state", equals("120"))

	d.Set("data", airq.Data{"co2": 700.0})
	changed := office()
	changed.Data = map[string]string{entry.DataAddress: "192.168.0.43", entry.DataPassword: "airqsetup"}

	h.w.Reset()
	h.store.set(changed)

	h.eventually(t, "homeassistant/device/airq_abc123/config", func(payload string) bool {
		return strings.Contains(payload, `"abc123_tvoc":{"p":"sensor"}`) && strings.Contains(payload, `"abc123_co2":{`)
	})
	h.eventually(t, "airqtt/abc123/co2/state", equals("700"))
}

func TestBridge_DeviceUnreachable(t *testing.T) {
	d := device()
	d.Fail(airq.ErrCannotConnect)

	h := start(t, d, office())
	h.eventually(t, "airqtt/bridge/availability", equals("online"))

	require.Eventually(t, func() bool {
		return len(d.Calls()) > 0
	}, 5*time.Second, 10*time.Millisecond)

	_, ok := h.w.Last("homeassistant/device/airq_abc123/config")
	assert.False(t, ok, "discovery waits for the first successful refresh")
}
