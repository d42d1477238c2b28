package airq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestData_Float(t *testing.T) {
	d := Data{
		"co2":         []any{612.5, 41.2},
		"temperature": 21.3,
		"empty":       []any{},
		"name":        "office",
	}

	for _, tt := range []struct {
		key  string
		want float64
		ok   bool
	}{
		{key: "co2", want: 612.5, ok: true},
		{key: "temperature", want: 21.3, ok: true},
		{key: "empty"},
		{key: "name"},
		{key: "missing"},
	} {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := d.Float(tt.key)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestData_Status(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		assert.Nil(t, Data{}.Status())
		assert.Empty(t, Data{}.WarmingUp())
	})

	t.Run("Not A Mapping", func(t *testing.T) {
		assert.Nil(t, Data{StatusKey: "OK"}.Status())
	})

	t.Run("Warm Up", func(t *testing.T) {
		d := Data{StatusKey: map[string]any{
			"no2": "no2 sensor still in warm up phase; waiting time = 90 s",
			"so2": "sensor error",
		}}

		assert.Len(t, d.Status(), 2)
		assert.Equal(t, []string{"no2"}, d.WarmingUp())
	})
}

func TestData_Config(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		cfg, err := Data{
			"id":                     "abc123",
			"devicename":             "Office",
			"RoomType":               "office",
			"air-Q-Software-Version": "1.90",
			"air-Q-Hardware-Version": "D",
			"SN":                     "S1",
			"Wifi":                   true,
		}.Config()

		require.NoError(t, err)
		assert.Equal(t, DeviceConfig{
			ID:              "abc123",
			Name:            "Office",
			RoomType:        "office",
			SoftwareVersion: "1.90",
			HardwareVersion: "D",
			Serial:          "S1",
		}, cfg)
	})

	t.Run("Missing ID", func(t *testing.T) {
		_, err := Data{"devicename": "Office"}.Config()
		require.Error(t, err)
	})
}
