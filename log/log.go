// Package log routes every airqtt logger through a single swappable slog.Handler. Nothing is written until To is
// called, so importing airqtt packages from tests or other programs stays quiet by default.
package log

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
)

const (
	ComponentKey = "component"
	ErrorKey     = "error"
	EntryKey     = "entry"
	DeviceKey    = "device"
)

// Error returns a slog.Attr for the provided error. The key will be ErrorKey.
func Error(e error) slog.Attr {
	return slog.Any(ErrorKey, e)
}

// Entry returns a slog.Attr identifying a config entry by title. The key will be EntryKey.
func Entry(title string) slog.Attr {
	return slog.String(EntryKey, title)
}

// Device returns a slog.Attr identifying an air-Q device by its id. The key will be DeviceKey.
func Device(id string) slog.Attr {
	return slog.String(DeviceKey, id)
}

// sink forwards records to whatever handler was most recently installed with To. Loggers built before To is called
// still pick up the new handler since they hold the sink, not the handler.
type sink struct {
	h atomic.Pointer[slog.Handler]
}

func (s *sink) load() slog.Handler {
	h := s.h.Load()
	if h == nil {
		return nil
	}

	return *h
}

func (s *sink) Enabled(ctx context.Context, level slog.Level) bool {
	h := s.load()
	return h != nil && h.Enabled(ctx, level)
}

func (s *sink) Handle(ctx context.Context, record slog.Record) error {
	h := s.load()
	if h == nil {
		return nil
	}

	return h.Handle(ctx, record)
}

func (s *sink) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &derived{parent: s, attrs: attrs}
}

func (s *sink) WithGroup(name string) slog.Handler {
	return &derived{parent: s, group: name}
}

// derived remembers attrs and groups applied to the sink and re-applies them to the current handler on every record.
type derived struct {
	parent slog.Handler
	attrs  []slog.Attr
	group  string
}

func (d *derived) resolve() slog.Handler {
	var h slog.Handler
	switch p := d.parent.(type) {
	case *sink:
		h = p.load()
	case *derived:
		h = p.resolve()
	}

	if h == nil {
		return nil
	}

	if d.group != "" {
		return h.WithGroup(d.group)
	}

	return h.WithAttrs(d.attrs)
}

func (d *derived) Enabled(ctx context.Context, level slog.Level) bool {
	h := d.resolve()
	return h != nil && h.Enabled(ctx, level)
}

func (d *derived) Handle(ctx context.Context, record slog.Record) error {
	h := d.resolve()
	if h == nil {
		return nil
	}

	return h.Handle(ctx, record)
}

func (d *derived) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &derived{parent: d, attrs: attrs}
}

func (d *derived) WithGroup(name string) slog.Handler {
	return &derived{parent: d, group: name}
}

var (
	_ slog.Handler = &sink{}
	_ slog.Handler = &derived{}

	root = &sink{}
)

// To updates all slog.Logger objects used internally by airqtt to write logs to the provided slog.Handler. By default,
// log values are discarded until To is called at least once with a non-discarding slog.Handler.
func To(h slog.Handler) {
	root.h.Store(&h)
}

// ForComponent constructs a slog.Logger for the specified component (which is stored in an attribute with the key
// ComponentKey).
func ForComponent(component string) *slog.Logger {
	return slog.New(root).With(slog.String(ComponentKey, component))
}

// ParseLevel converts a level name (debug, info, warn/warning, error) to a slog.Level. Matching is case-insensitive.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
