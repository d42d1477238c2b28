package airq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-json-experiment/json"

	"github.com/nlowe/airqtt/log"
)

const requestTimeout = 10 * time.Second

var (
	// ErrInvalidAuth is returned when a response cannot be decrypted with the configured password.
	ErrInvalidAuth = errors.New("invalid authentication")
	// ErrCannotConnect is returned when the device cannot be reached or answers with a non-2xx status.
	ErrCannotConnect = errors.New("cannot connect")
)

// Device is the subset of the air-Q API airqtt depends on.
type Device interface {
	// TestAuthentication reports whether the device accepts the configured password. A wrong password is not an error.
	TestAuthentication(ctx context.Context) (bool, error)

	// Get fetches and decrypts the specified endpoint, for example "config" or "data".
	Get(ctx context.Context, endpoint string) (Data, error)
}

// Client is the HTTP implementation of Device.
type Client struct {
	baseURL    string
	cipher     *Cipher
	httpClient *http.Client

	log *slog.Logger
}

var _ Device = &Client{}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client, which has a 10 second timeout.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// NewClient builds a Client for the device at address (a host, ip or url) using password to decrypt responses.
func NewClient(address, password string, opts ...ClientOption) (*Client, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("airq: address is required")
	}

	if !strings.Contains(address, "://") {
		address = "http://" + address
	}

	if _, err := url.Parse(address); err != nil {
		return nil, fmt.Errorf("airq: address: %w", err)
	}

	c, err := NewCipher(password)
	if err != nil {
		return nil, err
	}

	client := &Client{
		baseURL:    strings.TrimRight(address, "/"),
		cipher:     c,
		httpClient: &http.Client{Timeout: requestTimeout},

		log: log.ForComponent("airq").With(slog.String("address", address)),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

func (c *Client) TestAuthentication(ctx context.Context) (bool, error) {
	_, err := c.Get(ctx, "ping")
	if errors.Is(err, ErrInvalidAuth) {
		return false, nil
	}

	return err == nil, err
}

func (c *Client) Get(ctx context.Context, endpoint string) (Data, error) {
	content, err := c.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	plain, err := c.cipher.Decrypt(content)
	if err != nil {
		return nil, fmt.Errorf("decrypt %s: %w: %w", endpoint, ErrInvalidAuth, err)
	}

	if !utf8.Valid(plain) {
		return nil, fmt.Errorf("decrypt %s: %w: not utf-8", endpoint, ErrInvalidAuth)
	}

	var data Data
	if err = json.Unmarshal(plain, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %w", endpoint, ErrInvalidAuth, err)
	}

	c.log.With(slog.String("endpoint", endpoint), slog.Int("fields", len(data))).Debug("Fetched from device")
	return data, nil
}

type envelope struct {
	Content string `json:"content"`
}

func (c *Client) fetch(ctx context.Context, endpoint string) (string, error) {
	target, err := url.JoinPath(c.baseURL, endpoint)
	if err != nil {
		return "", fmt.Errorf("build url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request %s: %w: %w", endpoint, ErrCannotConnect, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w: %w", endpoint, ErrCannotConnect, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("request %s: %w: status %d", endpoint, ErrCannotConnect, resp.StatusCode)
	}

	var env envelope
	if err = json.Unmarshal(payload, &env); err != nil {
		return "", fmt.Errorf("decode %s: %w: %w", endpoint, ErrCannotConnect, err)
	}

	return env.Content, nil
}
