// Package config loads the bridge configuration from yaml.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nlowe/airqtt/discovery"
	"github.com/nlowe/airqtt/log"
)

// MinScanInterval is the shortest allowed polling interval.
const MinScanInterval = time.Second

// SecretPrefix marks a string value that should be read from a file under SecretsDir, for example
// "!secret mqtt_password" reads /run/secrets/mqtt_password.
const SecretPrefix = "!secret "

// SecretsDir is where SecretPrefix values are read from.
var SecretsDir = "/run/secrets"

type MQTTConfig struct {
	Broker    string        `yaml:"broker"`
	ClientID  string        `yaml:"client_id,omitempty"`
	Username  string        `yaml:"username,omitempty"`
	Password  string        `yaml:"password,omitempty"`
	KeepAlive time.Duration `yaml:"keep_alive,omitempty"`
}

// BrokerURL parses Broker. "tcp" is accepted as an alias of "mqtt".
func (m MQTTConfig) BrokerURL() (*url.URL, error) {
	u, err := url.Parse(m.Broker)
	if err != nil {
		return nil, fmt.Errorf("mqtt.broker: %w", err)
	}

	if u.Scheme == "tcp" {
		u.Scheme = "mqtt"
	}

	if u.Host == "" {
		return nil, fmt.Errorf("mqtt.broker: %q has no host", m.Broker)
	}

	return u, nil
}

type DiscoveryConfig struct {
	Prefix string `yaml:"prefix"`
}

type MetricsConfig struct {
	// Listen is the address the /metrics and /health endpoints are served on. Empty disables them.
	Listen string `yaml:"listen,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Config is the bridge configuration.
type Config struct {
	MQTT         MQTTConfig      `yaml:"mqtt"`
	Discovery    DiscoveryConfig `yaml:"discovery"`
	TopicPrefix  string          `yaml:"topic_prefix"`
	ScanInterval time.Duration   `yaml:"scan_interval"`
	Entries      string          `yaml:"entries"`
	Metrics      MetricsConfig   `yaml:"metrics"`
	Log          LogConfig       `yaml:"log"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker:    "mqtt://127.0.0.1:1883",
			ClientID:  "airqtt",
			KeepAlive: 20 * time.Second,
		},
		Discovery:    DiscoveryConfig{Prefix: discovery.DefaultPrefix},
		TopicPrefix:  "airqtt",
		ScanInterval: 10 * time.Second,
		Entries:      DefaultEntriesPath(),
		Log:          LogConfig{Level: "info"},
	}
}

// Dir is $XDG_CONFIG_HOME/airqtt, falling back to ~/.config/airqtt.
func Dir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		if home, err := os.UserHomeDir(); err == nil {
			base = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(base, "airqtt")
}

// DefaultPath is where the CLI looks for the configuration file.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultEntriesPath is where entries are stored unless configured otherwise.
func DefaultEntriesPath() string {
	return filepath.Join(Dir(), "entries.yaml")
}

// Read decodes yaml from r over the defaults, expands variables and validates the result.
func Read(r io.Reader) (*Config, error) {
	cfg := Default()

	if err := yaml.NewDecoder(r).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.Expand()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads the configuration at path. A missing file yields Default.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.ForComponent("config").Debug("No config file, using defaults", "path", path)
		return Default(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	log.ForComponent("config").Info("Loading config", "path", path)
	return Read(f)
}

// Expand replaces ${VAR} and $VAR with environment variables in every string field and resolves SecretPrefix values.
func (cfg *Config) Expand() {
	for _, s := range []*string{
		&cfg.MQTT.Broker,
		&cfg.MQTT.ClientID,
		&cfg.MQTT.Username,
		&cfg.MQTT.Password,
		&cfg.Discovery.Prefix,
		&cfg.TopicPrefix,
		&cfg.Entries,
		&cfg.Metrics.Listen,
		&cfg.Log.Level,
	} {
		*s = Expand(*s)
	}
}

// Expand resolves a single value. Secrets that cannot be read expand to the empty string.
func Expand(s string) string {
	if name, ok := strings.CutPrefix(s, SecretPrefix); ok {
		raw, err := os.ReadFile(filepath.Join(SecretsDir, filepath.Base(strings.TrimSpace(name))))
		if err != nil {
			log.ForComponent("config").With(log.Error(err)).Warn("Failed to read secret", "secret", name)
			return ""
		}

		return strings.TrimSpace(string(raw))
	}

	return os.ExpandEnv(s)
}

// Validate checks the values the bridge cannot run without.
func (cfg *Config) Validate() error {
	var err error

	if _, e := cfg.MQTT.BrokerURL(); e != nil {
		err = errors.Join(err, e)
	}

	if cfg.ScanInterval < MinScanInterval {
		err = errors.Join(err, fmt.Errorf("scan_interval: %s is shorter than %s", cfg.ScanInterval, MinScanInterval))
	}

	if strings.TrimSpace(cfg.Discovery.Prefix) == "" {
		err = errors.Join(err, fmt.Errorf("discovery.prefix: must not be empty"))
	}

	if strings.TrimSpace(cfg.Entries) == "" {
		err = errors.Join(err, fmt.Errorf("entries: must not be empty"))
	}

	if _, e := log.ParseLevel(cfg.Log.Level); e != nil {
		err = errors.Join(err, fmt.Errorf("log.level: %w", e))
	}

	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	return nil
}

// Write encodes cfg as yaml.
func (cfg *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	return errors.Join(enc.Encode(cfg), enc.Close())
}
