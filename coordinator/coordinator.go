// Package coordinator polls one air-Q device and fans the latest reading out to listeners.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nlowe/airqtt/airq"
	"github.com/nlowe/airqtt/entry"
	"github.com/nlowe/airqtt/log"
)

// DefaultInterval is how often a device is polled when no interval is configured.
const DefaultInterval = 10 * time.Second

const (
	Manufacturer = "CorantGmbH"
	Model        = "air-Q"
)

// DeviceInfo describes the polled device for the Home Assistant device registry.
type DeviceInfo struct {
	ID              string
	Name            string
	Manufacturer    string
	Model           string
	SoftwareVersion string
	HardwareVersion string
	Serial          string
	SuggestedArea   string
	Address         string
}

// Coordinator owns the polling loop for one entry.
type Coordinator struct {
	device   airq.Device
	entry    entry.Entry
	interval time.Duration

	mu          sync.RWMutex
	data        airq.Data
	info        DeviceInfo
	lastSuccess bool
	lastErr     error
	lastUpdate  time.Time

	listenerMu sync.Mutex
	nextID     int
	listeners  map[int]func()

	now func() time.Time
	log *slog.Logger
}

// New creates a Coordinator. An interval below one second uses DefaultInterval.
func New(device airq.Device, e entry.Entry, interval time.Duration) *Coordinator {
	if interval < time.Second {
		interval = DefaultInterval
	}

	return &Coordinator{
		device:   device,
		entry:    e,
		interval: interval,

		info: DeviceInfo{
			ID:           e.UniqueID,
			Name:         e.Title,
			Manufacturer: Manufacturer,
			Model:        Model,
			Address:      e.Address(),
		},

		listeners: map[int]func(){},

		now: time.Now,
		log: log.ForComponent("coordinator").With(log.Entry(e.Title)),
	}
}

// Entry returns the entry this coordinator was created for.
func (c *Coordinator) Entry() entry.Entry {
	return c.entry
}

// Interval returns the polling interval.
func (c *Coordinator) Interval() time.Duration {
	return c.interval
}

// FirstRefresh reads the device config to fill in DeviceInfo and then fetches the first reading. Unlike Refresh it
// returns the error so the caller can retry setting up the entry.
func (c *Coordinator) FirstRefresh(ctx context.Context) error {
	raw, err := c.device.Get(ctx, "config")
	if err != nil {
		return fmt.Errorf("coordinator: get config: %w", err)
	}

	cfg, err := raw.Config()
	if err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}

	c.mu.Lock()
	c.info.ID = cfg.ID
	if cfg.Name != "" {
		c.info.Name = cfg.Name
	}
	c.info.SoftwareVersion = cfg.SoftwareVersion
	c.info.HardwareVersion = cfg.HardwareVersion
	c.info.Serial = cfg.Serial
	c.info.SuggestedArea = cfg.RoomType
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// Refresh fetches "data" from the device. On failure the previous data is kept, LastUpdateSuccess turns false and
// listeners are still notified so entities can go unavailable.
func (c *Coordinator) Refresh(ctx context.Context) error {
	data, err := c.device.Get(ctx, "data")

	c.mu.Lock()
	c.lastSuccess = err == nil
	c.lastErr = err
	if err == nil {
		c.data = data
		c.lastUpdate = c.now()
	}
	c.mu.Unlock()

	if err != nil {
		c.log.With(log.Error(err)).Warn("Failed to update")
		err = fmt.Errorf("coordinator: get data: %w", err)
	} else {
		c.log.With(slog.Int("fields", len(data))).Debug("Updated")
	}

	c.notify()
	return err
}

// Run refreshes on every tick of the interval until ctx is done. Errors are reported through LastUpdateSuccess.
func (c *Coordinator) Run(ctx context.Context) {
	t := time.NewTicker(c.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = c.Refresh(ctx)
		}
	}
}

// Data returns the latest successful reading. Callers must not modify it.
func (c *Coordinator) Data() airq.Data {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.data
}

// DeviceInfo returns what is known about the device.
func (c *Coordinator) DeviceInfo() DeviceInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.info
}

// LastUpdateSuccess reports whether the most recent refresh succeeded.
func (c *Coordinator) LastUpdateSuccess() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastSuccess
}

// LastError returns the error from the most recent refresh, if any.
func (c *Coordinator) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastErr
}

// LastUpdate returns when data was last refreshed successfully.
func (c *Coordinator) LastUpdate() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastUpdate
}

// AddListener registers fn to be called after every refresh. The returned function removes it.
func (c *Coordinator) AddListener(fn func()) func() {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	return func() {
		c.listenerMu.Lock()
		defer c.listenerMu.Unlock()

		delete(c.listeners, id)
	}
}

func (c *Coordinator) notify() {
	c.listenerMu.Lock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenerMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
