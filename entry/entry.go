// Package entry persists the device configuration entries created by the setup wizard.
package entry

import (
	"errors"
	"log/slog"
	"time"
)

// Domain is the integration domain every airqtt entry belongs to.
const Domain = "airq"

// Version is the schema version written with new entries.
const Version = 1

// Keys of Entry.Data, matching the setup form fields.
const (
	DataAddress  = "ip_address"
	DataPassword = "password"
)

var (
	// ErrAlreadyConfigured is returned by Store.Add when an entry with the same unique id exists.
	ErrAlreadyConfigured = errors.New("already configured")
	// ErrNotFound is returned when no entry matches.
	ErrNotFound = errors.New("entry not found")
)

// Entry is one configured device.
type Entry struct {
	EntryID   string            `yaml:"entry_id"`
	Domain    string            `yaml:"domain"`
	Version   int               `yaml:"version"`
	Title     string            `yaml:"title"`
	UniqueID  string            `yaml:"unique_id"`
	Data      map[string]string `yaml:"data"`
	CreatedAt time.Time         `yaml:"created_at"`
}

// Address returns the device address from Data.
func (e Entry) Address() string {
	return e.Data[DataAddress]
}

// Password returns the device password from Data.
func (e Entry) Password() string {
	return e.Data[DataPassword]
}

// LogValue leaves the password out of logs.
func (e Entry) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("entry_id", e.EntryID),
		slog.String("title", e.Title),
		slog.String("unique_id", e.UniqueID),
		slog.String("address", e.Address()),
	)
}
