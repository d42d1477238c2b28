package airq_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlowe/airqtt/airq"
	"github.com/nlowe/airqtt/airq/airqtest"
)

const password = "airqsetup"

func responses() map[string]airq.Data {
	return map[string]airq.Data{
		"ping":   {"id": "abc123", "status": "success"},
		"config": {"id": "abc123", "devicename": "Office"},
		"data":   {"co2": []any{612.5, 41.2}, "temperature": 21.3},
	}
}

func TestClient_Get(t *testing.T) {
	srv := airqtest.NewServer(t, password, responses())

	c, err := airq.NewClient(srv.URL, password)
	require.NoError(t, err)

	data, err := c.Get(context.Background(), "data")
	require.NoError(t, err)

	co2, ok := data.Float("co2")
	require.True(t, ok)
	assert.Equal(t, 612.5, co2)
}

func TestClient_TestAuthentication(t *testing.T) {
	srv := airqtest.NewServer(t, password, responses())

	t.Run("Correct Password", func(t *testing.T) {
		c, err := airq.NewClient(srv.URL, password)
		require.NoError(t, err)

		ok, err := c.TestAuthentication(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Wrong Password", func(t *testing.T) {
		c, err := airq.NewClient(srv.URL, "wrong")
		require.NoError(t, err)

		ok, err := c.TestAuthentication(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = c.Get(context.Background(), "data")
		assert.ErrorIs(t, err, airq.ErrInvalidAuth)
	})
}

func TestClient_CannotConnect(t *testing.T) {
	t.Run("Not Found", func(t *testing.T) {
		srv := airqtest.NewServer(t, password, responses())

		c, err := airq.NewClient(srv.URL, password)
		require.NoError(t, err)

		_, err = c.Get(context.Background(), "nope")
		assert.ErrorIs(t, err, airq.ErrCannotConnect)
	})

	t.Run("Closed", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		c, err := airq.NewClient(addr, password)
		require.NoError(t, err)

		ok, err := c.TestAuthentication(context.Background())
		assert.False(t, ok)
		assert.ErrorIs(t, err, airq.ErrCannotConnect)
	})

	t.Run("Not An Envelope", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html></html>"))
		}))
		t.Cleanup(srv.Close)

		c, err := airq.NewClient(srv.URL, password)
		require.NoError(t, err)

		_, err = c.Get(context.Background(), "ping")
		assert.ErrorIs(t, err, airq.ErrCannotConnect)
	})
}

func TestNewClient(t *testing.T) {
	_, err := airq.NewClient("  ", password)
	require.Error(t, err)

	_, err = airq.NewClient("192.168.0.42", password)
	require.NoError(t, err)
}
