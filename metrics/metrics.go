// Package metrics exports the readings of every running device to Prometheus.
package metrics

import (
	"cmp"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nlowe/airqtt/sensor"
)

// Source is the per-device state the collector reads. *coordinator.Coordinator implements it.
type Source interface {
	sensor.Source
	LastUpdate() time.Time
}

type tracked struct {
	source Source
	group  *sensor.Group
}

// Collector is a prometheus.Collector over the currently running devices.
type Collector struct {
	mu      sync.RWMutex
	devices map[string]tracked

	value       *prometheus.Desc
	warmingUp   *prometheus.Desc
	success     *prometheus.Desc
	lastUpdated *prometheus.Desc
}

var _ prometheus.Collector = &Collector{}

func NewCollector() *Collector {
	return &Collector{
		devices: map[string]tracked{},

		value: prometheus.NewDesc(
			"airqtt_sensor_value",
			"Latest sensor reading in the unit Home Assistant shows",
			[]string{"device_id", "key", "unit"}, nil,
		),
		warmingUp: prometheus.NewDesc(
			"airqtt_sensor_warming_up",
			"1 while a sensor has no reading yet",
			[]string{"device_id", "key"}, nil,
		),
		success: prometheus.NewDesc(
			"airqtt_update_success",
			"Last update success (1=ok, 0=error)",
			[]string{"device_id"}, nil,
		),
		lastUpdated: prometheus.NewDesc(
			"airqtt_last_update_timestamp_seconds",
			"Last successful update timestamp (epoch seconds)",
			[]string{"device_id"}, nil,
		),
	}
}

// Track starts exporting the group's entities under entryID, replacing anything tracked under it before.
func (c *Collector) Track(entryID string, src Source, g *sensor.Group) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.devices[entryID] = tracked{source: src, group: g}
}

// Forget stops exporting entryID.
func (c *Collector) Forget(entryID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.devices, entryID)
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.value
	ch <- c.warmingUp
	ch <- c.success
	ch <- c.lastUpdated
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, d := range c.devices {
		id := d.source.DeviceInfo().ID

		ch <- prometheus.MustNewConstMetric(c.success, prometheus.GaugeValue, boolFloat(d.source.LastUpdateSuccess()), id)
		if last := d.source.LastUpdate(); !last.IsZero() {
			ch <- prometheus.MustNewConstMetric(c.lastUpdated, prometheus.GaugeValue, float64(last.Unix()), id)
		}

		for _, e := range d.group.Entities {
			v := e.NativeValue()
			ch <- prometheus.MustNewConstMetric(c.warmingUp, prometheus.GaugeValue, boolFloat(v == nil), id, e.Description.Key)

			if v != nil {
				ch <- prometheus.MustNewConstMetric(c.value, prometheus.GaugeValue, *v, id, e.Description.Key, e.Description.Unit)
			}
		}
	}
}

// DeviceHealth is one device in the /health response.
type DeviceHealth struct {
	EntryID  string    `json:"entry_id"`
	DeviceID string    `json:"device_id"`
	Name     string    `json:"name"`
	OK       bool      `json:"ok"`
	Sensors  int       `json:"sensors"`
	Updated  time.Time `json:"updated,omitzero"`
}

// Health is the /health response.
type Health struct {
	OK      bool           `json:"ok"`
	Devices []DeviceHealth `json:"devices"`
}

// Health summarizes every tracked device. The bridge is healthy when all devices updated successfully.
func (c *Collector) Health() Health {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h := Health{OK: true, Devices: make([]DeviceHealth, 0, len(c.devices))}
	for entryID, d := range c.devices {
		info := d.source.DeviceInfo()
		ok := d.source.LastUpdateSuccess()

		h.OK = h.OK && ok
		h.Devices = append(h.Devices, DeviceHealth{
			EntryID:  entryID,
			DeviceID: info.ID,
			Name:     info.Name,
			OK:       ok,
			Sensors:  len(d.group.Entities),
			Updated:  d.source.LastUpdate(),
		})
	}

	slices.SortFunc(h.Devices, func(a, b DeviceHealth) int {
		return cmp.Compare(a.EntryID, b.EntryID)
	})

	return h
}

// Handler serves /metrics from a registry holding c and /health as json. /health answers 503 while any device is
// failing.
func (c *Collector) Handler() (http.Handler, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(c); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		h := c.Health()

		w.Header().Set("Content-Type", "application/json")
		if !h.OK {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.MarshalWrite(w, h)
	})

	return mux, nil
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
