package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Missing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "/xdg/airqtt/entries.yaml", cfg.Entries)
	assert.Equal(t, 10*time.Second, cfg.ScanInterval)
	assert.Equal(t, "homeassistant", cfg.Discovery.Prefix)
}

func TestRead(t *testing.T) {
	t.Setenv("MQTT_PASSWORD", "hunter2")

	cfg, err := Read(strings.NewReader(`
mqtt:
  broker: tcp://broker.lan:1883
  username: airqtt
  password: ${MQTT_PASSWORD}
topic_prefix: air
scan_interval: 30s
entries: /var/lib/airqtt/entries.yaml
metrics:
  listen: ":9091"
log:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, "hunter2", cfg.MQTT.Password)
	assert.Equal(t, "airqtt", cfg.MQTT.ClientID, "unset fields keep their default")
	assert.Equal(t, "air", cfg.TopicPrefix)
	assert.Equal(t, 30*time.Second, cfg.ScanInterval)
	assert.Equal(t, "/var/lib/airqtt/entries.yaml", cfg.Entries)
	assert.Equal(t, ":9091", cfg.Metrics.Listen)
	assert.Equal(t, "debug", cfg.Log.Level)

	u, err := cfg.MQTT.BrokerURL()
	require.NoError(t, err)
	assert.Equal(t, "mqtt://broker.lan:1883", u.String())
}

func TestRead_Empty(t *testing.T) {
	cfg, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestRead_Invalid(t *testing.T) {
	for _, tt := range []struct {
		name string
		yaml string
	}{
		{name: "Scan Interval Too Short", yaml: "scan_interval: 500ms"},
		{name: "Broker Without Host", yaml: "mqtt: {broker: 'mqtt://'}"},
		{name: "Empty Discovery Prefix", yaml: "discovery: {prefix: ''}"},
		{name: "Bad Log Level", yaml: "log: {level: loud}"},
		{name: "Not Yaml", yaml: "mqtt: ["},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestExpand_Secret(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mqtt_password"), []byte("s3cret\n"), 0o600))

	old := SecretsDir
	SecretsDir = dir
	t.Cleanup(func() { SecretsDir = old })

	assert.Equal(t, "s3cret", Expand("!secret mqtt_password"))
	assert.Empty(t, Expand("!secret missing"))
}

func TestConfig_Write(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, Default().Write(&b))

	cfg, err := Read(&b)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
