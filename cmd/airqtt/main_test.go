package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlowe/airqtt/config"
	"github.com/nlowe/airqtt/entry"
	"github.com/nlowe/airqtt/sensor"
	"github.com/nlowe/airqtt/setup"
)

func TestDescribeErrors(t *testing.T) {
	for _, tt := range []struct {
		name string
		errs map[string]string
		want string
	}{
		{name: "Base", errs: map[string]string{setup.ErrorBase: setup.ErrorCannotConnect}, want: "Failed to connect"},
		{name: "Invalid Auth", errs: map[string]string{setup.ErrorBase: setup.ErrorInvalidAuth}, want: "Invalid authentication"},
		{
			name: "Required Fields",
			errs: map[string]string{setup.FieldPassword: setup.ErrorRequired, setup.FieldAddress: setup.ErrorRequired},
			want: "IP address: Required\nPassword: Required",
		},
		{
			name: "Base First",
			errs: map[string]string{setup.FieldAddress: setup.ErrorRequired, setup.ErrorBase: setup.ErrorUnknown},
			want: "Unexpected error\nIP address: Required",
		},
		{name: "Unknown Code", errs: map[string]string{setup.ErrorBase: "weird"}, want: "weird"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeErrors(tt.errs))
		})
	}
}

func TestPrintEntries(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printEntries(&buf, nil))
		assert.Contains(t, buf.String(), "airqtt setup")
	})

	t.Run("Entries", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printEntries(&buf, []entry.Entry{{
			EntryID:   "e1",
			Title:     "Air-Q Office",
			UniqueID:  "abc123",
			Data:      map[string]string{entry.DataAddress: "192.168.0.42", entry.DataPassword: "secret"},
			CreatedAt: time.Now(),
		}}))

		out := buf.String()
		assert.Contains(t, out, "Air-Q Office")
		assert.Contains(t, out, "192.168.0.42")
		assert.NotContains(t, out, "secret")
	})
}

func TestPrintCatalog(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printCatalog(&buf, sensor.Catalog))

	out := buf.String()
	assert.Contains(t, out, "pm2_5")
	assert.Contains(t, out, "carbon_dioxide")
	assert.Equal(t, len(sensor.Catalog)+1, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestRemoveEntry(t *testing.T) {
	store, err := entry.Open(filepath.Join(t.TempDir(), "entries.yaml"))
	require.NoError(t, err)

	first, err := store.Add(entry.Entry{Title: "Air-Q Office", UniqueID: "abc123"})
	require.NoError(t, err)
	_, err = store.Add(entry.Entry{Title: "Air-Q Bedroom", UniqueID: "def456"})
	require.NoError(t, err)

	removed, err := removeEntry(store, first.EntryID)
	require.NoError(t, err)
	assert.Equal(t, "abc123", removed.UniqueID)

	removed, err = removeEntry(store, "def456")
	require.NoError(t, err)
	assert.Equal(t, "Air-Q Bedroom", removed.Title)

	_, err = removeEntry(store, "nope")
	assert.ErrorIs(t, err, entry.ErrNotFound)
	assert.Empty(t, store.All())
}

func TestClientID(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, "airqtt", clientID(cfg))

	cfg.MQTT.ClientID = ""
	assert.Regexp(t, `^airqtt-[0-9a-f-]{36}$`, clientID(cfg))
}

func TestRootCommand(t *testing.T) {
	root := newRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	assert.Subset(t, names, []string{"setup", "run", "list", "remove", "sensors"})

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"sensors", "--log-level", "debug"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "tvoc_ionsc")

	root.SetArgs([]string{"sensors", "--log-level", "loud"})
	assert.Error(t, root.Execute())
}
