// Package bridge runs every configured device and keeps Home Assistant in sync with them over MQTT.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nlowe/airqtt/airq"
	"github.com/nlowe/airqtt/coordinator"
	"github.com/nlowe/airqtt/discovery"
	"github.com/nlowe/airqtt/entry"
	"github.com/nlowe/airqtt/hass"
	"github.com/nlowe/airqtt/log"
	"github.com/nlowe/airqtt/metrics"
	"github.com/nlowe/airqtt/mqtt"
	"github.com/nlowe/airqtt/sensor"
)

// AvailabilityTopic is where the bridge announces itself, relative to the topic prefix. It is also the topic of the
// MQTT last will.
const AvailabilityTopic = "bridge/availability"

// Connector builds a device client for an address and password.
type Connector func(address, password string) (airq.Device, error)

// Store is the part of entry.Store the bridge needs.
type Store interface {
	All() []entry.Entry
	Watch(ctx context.Context, fn func()) error
}

// Options configures a Bridge.
type Options struct {
	Writer     mqtt.Writer
	Subscriber mqtt.Subscriber
	Store      Store

	// Connect defaults to airq.NewClient.
	Connect Connector

	DiscoveryPrefix string
	TopicPrefix     string
	ScanInterval    time.Duration

	// Metrics is optional.
	Metrics *metrics.Collector
}

// Bridge runs one coordinator per entry.
type Bridge struct {
	opts Options

	availability *mqtt.Value[hass.Availability]
	hassStatus   *mqtt.RemoteValue[hass.Availability]

	mu      sync.Mutex
	running map[string]*runner
	group   *errgroup.Group
	ctx     context.Context

	log *slog.Logger
}

// New creates a Bridge. Call Run to start it.
func New(opts Options) *Bridge {
	if opts.Connect == nil {
		opts.Connect = func(address, password string) (airq.Device, error) {
			return airq.NewClient(address, password)
		}
	}

	if opts.DiscoveryPrefix == "" {
		opts.DiscoveryPrefix = discovery.DefaultPrefix
	}

	return &Bridge{
		opts: opts,

		availability: mqtt.NewValueWithOptions(AvailabilityTopic, hass.AvailabilityMarshaler, mqtt.WriteOptions{QoS: mqtt.QOSAtLeastOnce, Retain: true}),
		hassStatus:   discovery.HomeAssistantAvailability(opts.DiscoveryPrefix),

		running: map[string]*runner{},

		log: log.ForComponent("bridge"),
	}
}

// Availability is the retained online/offline value of the bridge itself.
func (b *Bridge) Availability() *mqtt.Value[hass.Availability] {
	return b.availability
}

// Run starts every entry in the store and keeps running until ctx is done. Entries added to or removed from the store
// while running are started or stopped.
func (b *Bridge) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	b.mu.Lock()
	b.group, b.ctx = g, gctx
	b.mu.Unlock()

	if err := mqtt.Error(b.availability.Write(gctx, b.opts.Writer, b.opts.TopicPrefix, hass.Available)); err != nil {
		return fmt.Errorf("bridge: announce: %w", err)
	}

	watchID := b.hassStatus.Watch(func(a hass.Availability) {
		if a != hass.Available {
			return
		}

		if gctx.Err() != nil {
			return
		}

		b.log.Info("Home Assistant came online, re-sending discovery")
		g.Go(func() error {
			b.rediscover(gctx)
			return nil
		})
	})
	defer b.hassStatus.Unwatch(watchID)

	statusSub := b.hassStatus.Subscription("")
	if b.opts.Subscriber != nil {
		if err := b.opts.Subscriber.Subscribe(gctx, b.hassStatus, statusSub); err != nil {
			return fmt.Errorf("bridge: subscribe: %w", err)
		}
	}

	b.sync()
	g.Go(func() error {
		return b.opts.Store.Watch(gctx, b.sync)
	})

	<-gctx.Done()

	b.mu.Lock()
	runners := slices.Collect(maps.Values(b.running))
	b.mu.Unlock()

	for _, r := range runners {
		r.stop()
	}

	err := g.Wait()

	// ctx is already done, the bridge still says goodbye.
	shutdown, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if b.opts.Subscriber != nil {
		err = errors.Join(err, b.opts.Subscriber.Unsubscribe(shutdown, mqtt.Topics(statusSub)...))
	}

	return errors.Join(err, mqtt.Error(b.availability.Write(shutdown, b.opts.Writer, b.opts.TopicPrefix, hass.Unavailable)))
}

// Running returns the entry ids of every running device.
func (b *Bridge) Running() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Sorted(maps.Keys(b.running))
}

// sync starts entries that are new or changed and stops entries that are gone.
func (b *Bridge) sync() {
	entries := b.opts.Store.All()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ctx == nil || b.ctx.Err() != nil {
		return
	}

	wanted := make(map[string]entry.Entry, len(entries))
	for _, e := range entries {
		wanted[e.EntryID] = e
	}

	previous := map[string][]string{}
	for id, r := range b.running {
		e, ok := wanted[id]
		if ok && maps.Equal(e.Data, r.entry.Data) {
			continue
		}

		if ok {
			previous[id] = r.keys()
			r.log.Info("Entry changed, restarting")
		} else {
			r.log.Info("Entry removed, stopping")
		}

		delete(b.running, id)
		b.group.Go(func() error {
			r.stop()
			if !ok {
				r.forget(b.ctx)
			}

			return nil
		})
	}

	for id, e := range wanted {
		if _, ok := b.running[id]; ok {
			continue
		}

		r := b.newRunner(e)
		r.previous = previous[id]
		b.running[id] = r
		b.group.Go(func() error {
			r.run()
			return nil
		})
	}
}

func (b *Bridge) rediscover(ctx context.Context) {
	b.mu.Lock()
	runners := slices.Collect(maps.Values(b.running))
	b.mu.Unlock()

	if err := mqtt.Error(b.availability.Republish(ctx, b.opts.Writer, b.opts.TopicPrefix)); err != nil {
		b.log.With(log.Error(err)).Warn("Failed to re-announce bridge")
	}

	for _, r := range runners {
		r.announce(ctx)
	}
}

type runner struct {
	b     *Bridge
	entry entry.Entry

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// keys published by the runner this one replaced
	previous []string

	mu    sync.Mutex
	group *sensor.Group

	log *slog.Logger
}

func (b *Bridge) newRunner(e entry.Entry) *runner {
	ctx, cancel := context.WithCancel(b.ctx)

	return &runner{
		b:      b,
		entry:  e,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		log:    b.log.With(slog.Any("entry", e)),
	}
}

func (r *runner) stop() {
	r.cancel()
	<-r.done
}

// run sets the device up, retrying every scan interval until the first refresh succeeds, and then polls it.
func (r *runner) run() {
	defer close(r.done)

	device, err := r.b.opts.Connect(r.entry.Address(), r.entry.Password())
	if err != nil {
		r.log.With(log.Error(err)).Error("Failed to create device client")
		return
	}

	coord := coordinator.New(device, r.entry, r.b.opts.ScanInterval)
	for {
		if err = coord.FirstRefresh(r.ctx); err == nil {
			break
		}

		r.log.With(log.Error(err)).Warn("Device not ready, retrying", "in", coord.Interval())
		select {
		case <-r.ctx.Done():
			return
		case <-time.After(coord.Interval()):
		}
	}

	group := sensor.SetupEntry(coord)
	group.Upstream = []*mqtt.Value[hass.Availability]{r.b.availability}

	r.mu.Lock()
	r.group = group
	r.mu.Unlock()

	r.log.Info("Device ready", slog.Int("sensors", len(group.Entities)))
	if r.b.opts.Metrics != nil {
		r.b.opts.Metrics.Track(r.entry.EntryID, coord, group)
	}

	r.announce(r.ctx)

	remove := coord.AddListener(func() {
		if err := group.Publish(r.ctx, r.b.opts.Writer, r.b.opts.TopicPrefix); err != nil && r.ctx.Err() == nil {
			r.log.With(log.Error(err)).Warn("Failed to publish states")
		}
	})
	defer remove()

	coord.Run(r.ctx)
}

// announce publishes discovery and current states. It does nothing before the first refresh succeeded.
func (r *runner) announce(ctx context.Context) {
	r.mu.Lock()
	group := r.group
	r.mu.Unlock()

	if group == nil {
		return
	}

	if err := group.Configure(ctx, r.b.opts.Writer, r.b.opts.DiscoveryPrefix, r.b.opts.TopicPrefix, r.removed(group)...); err != nil {
		r.log.With(log.Error(err)).Error("Failed to publish discovery")
		return
	}

	if err := group.Publish(ctx, r.b.opts.Writer, r.b.opts.TopicPrefix); err != nil {
		r.log.With(log.Error(err)).Warn("Failed to publish states")
	}
}

func (r *runner) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.group == nil {
		return nil
	}

	return r.group.Keys()
}

// removed returns the keys the replaced runner published that this one does not have.
func (r *runner) removed(group *sensor.Group) []string {
	current := group.Keys()

	var gone []string
	for _, k := range r.previous {
		if !slices.Contains(current, k) {
			gone = append(gone, k)
		}
	}

	return gone
}

// forget removes the device from Home Assistant after its entry was deleted.
func (r *runner) forget(ctx context.Context) {
	if r.b.opts.Metrics != nil {
		r.b.opts.Metrics.Forget(r.entry.EntryID)
	}

	r.mu.Lock()
	group := r.group
	r.mu.Unlock()

	if group == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := group.Forget(ctx, r.b.opts.Writer, r.b.opts.DiscoveryPrefix, r.b.opts.TopicPrefix); err != nil {
		r.log.With(log.Error(err)).Warn("Failed to remove device from Home Assistant")
		return
	}

	r.log.Info("Removed device from Home Assistant")
}
