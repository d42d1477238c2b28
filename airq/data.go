package airq

import (
	"fmt"
	"strings"

	"github.com/go-json-experiment/json"
)

// StatusKey holds per-sensor status messages in a data response.
const StatusKey = "Status"

// WarmUpStatus appears in the status message of sensors that have no reading yet.
const WarmUpStatus = "sensor still in warm up phase"

// Data is a decrypted response. Values are float64, string, bool, nil, []any or map[string]any.
type Data map[string]any

// Float returns the numeric reading for key. Readings reported as [value, uncertainty] return value.
func (d Data) Float(key string) (float64, bool) {
	return asFloat(d[key])
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case []any:
		if len(t) == 0 {
			return 0, false
		}

		return asFloat(t[0])
	default:
		return 0, false
	}
}

// String returns the value for key when it is a string.
func (d Data) String(key string) (string, bool) {
	s, ok := d[key].(string)
	return s, ok
}

// Status returns the per-sensor status messages, or nil when the device reported none or Status is not an object.
func (d Data) Status() map[string]string {
	raw, ok := d[StatusKey].(map[string]any)
	if !ok {
		return nil
	}

	result := make(map[string]string, len(raw))
	for k, v := range raw {
		result[k] = fmt.Sprint(v)
	}

	return result
}

// WarmingUp returns the keys whose status says the sensor is still warming up.
func (d Data) WarmingUp() []string {
	var keys []string
	for k, msg := range d.Status() {
		if strings.Contains(msg, WarmUpStatus) {
			keys = append(keys, k)
		}
	}

	return keys
}

// DeviceConfig is the part of the "config" endpoint airqtt uses.
type DeviceConfig struct {
	ID              string `json:"id"`
	Name            string `json:"devicename"`
	RoomType        string `json:"RoomType"`
	SoftwareVersion string `json:"air-Q-Software-Version"`
	HardwareVersion string `json:"air-Q-Hardware-Version"`
	Serial          string `json:"SN"`
}

// Config decodes a "config" response.
func (d Data) Config() (DeviceConfig, error) {
	var cfg DeviceConfig

	raw, err := json.Marshal(d)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}

	if err = json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}

	if cfg.ID == "" {
		return cfg, fmt.Errorf("config: missing id")
	}

	return cfg, nil
}
