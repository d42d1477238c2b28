package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForComponent(t *testing.T) {
	t.Run("Discards Before To", func(t *testing.T) {
		root.h.Store(nil)

		l := ForComponent("test")
		assert.False(t, l.Enabled(t.Context(), slog.LevelError))
	})

	t.Run("Picks Up Handler Installed Later", func(t *testing.T) {
		root.h.Store(nil)

		l := ForComponent("test").With(Device("abc123"))

		var b bytes.Buffer
		To(slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelDebug}))
		t.Cleanup(func() { root.h.Store(nil) })

		l.Debug("hello")

		out := b.String()
		assert.Contains(t, out, "component=test")
		assert.Contains(t, out, "device=abc123")
		assert.Contains(t, out, "msg=hello")
	})
}

func TestParseLevel(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want slog.Level
	}{
		{in: "", want: slog.LevelInfo},
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: " error ", want: slog.LevelError},
	} {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("Unknown", func(t *testing.T) {
		_, err := ParseLevel("loud")
		require.Error(t, err)
	})
}
