// Package airqtest provides fakes of the air-Q device API.
package airqtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/require"

	"github.com/nlowe/airqtt/airq"
)

// Device is an in-memory airq.Device. Responses maps endpoints to the Data returned by Get. AuthErr and GetErr, when
// set, are returned from the matching method.
type Device struct {
	mu sync.Mutex

	Authenticated bool
	AuthErr       error
	GetErr        error
	Responses     map[string]airq.Data

	calls []string
}

var _ airq.Device = &Device{}

func (d *Device) TestAuthentication(_ context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, "auth")
	return d.Authenticated, d.AuthErr
}

func (d *Device) Get(_ context.Context, endpoint string) (airq.Data, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, endpoint)
	if d.GetErr != nil {
		return nil, d.GetErr
	}

	return d.Responses[endpoint], nil
}

// Set replaces the response for endpoint.
func (d *Device) Set(endpoint string, data airq.Data) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.Responses == nil {
		d.Responses = map[string]airq.Data{}
	}

	d.Responses[endpoint] = data
}

// Fail makes every following Get return err. Pass nil to recover.
func (d *Device) Fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.GetErr = err
}

// Calls returns "auth" for every TestAuthentication call and the endpoint for every Get call, in order.
func (d *Device) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.calls...)
}

// NewServer starts an httptest.Server that encrypts responses with password the way an air-Q does. Unknown
// endpoints get a 404.
func NewServer(t *testing.T, password string, responses map[string]airq.Data) *httptest.Server {
	t.Helper()

	c, err := airq.NewCipher(password)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := responses[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			http.NotFound(w, r)
			return
		}

		plain, err := json.Marshal(data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		content, err := c.Encrypt(plain)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.MarshalWrite(w, map[string]string{"content": content})
	}))
	t.Cleanup(srv.Close)

	return srv
}
