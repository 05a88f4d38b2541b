package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	aerrors "github.com/quantaphp/http-endpoint/app/errors"
	"github.com/quantaphp/http-endpoint/web/endpoint"
)

// Client is a friendly interface over the notes HTTP API.
type Client struct {
	*http.Client
	address string
	key     string
	logger  *slog.Logger
}

// Option is a function that allows configuring the Client.
type Option func(*Client)

// WithKey sets the response envelope key the server places results under.
func WithKey(key string) Option {
	return func(c *Client) {
		c.key = key
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.Client = hc
	}
}

// New returns a new client for the API served at address, in [host]:port
// format.
func New(address string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		Client:  &http.Client{Timeout: time.Minute},
		address: address,
		key:     endpoint.DefaultKey,
		logger:  logger.With("component", "web-client"),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// StatusError is returned for responses with an unexpected status code.
type StatusError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// do sends a request to the API path, and returns the response status code and
// body. Non-nil data is sent as a JSON body. Error responses are returned as
// *StatusError, unless their status code is one of okCodes.
func (c *Client) do(
	ctx context.Context, method, path string, query url.Values, data any, okCodes ...int,
) (_ int, _ []byte, rerr error) {
	u := &url.URL{Scheme: "http", Host: c.address, Path: "/api/v1" + path, RawQuery: query.Encode()}
	errFields := []any{"url", u.String(), "method", method}

	var body io.Reader
	if data != nil {
		reqJSON, err := json.Marshal(data)
		if err != nil {
			return 0, nil, aerrors.NewWithCause("failed marshalling request data", err, errFields...)
		}
		body = bytes.NewReader(reqJSON)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return 0, nil, aerrors.NewWithCause("failed creating request", err, errFields...)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("sending request", errFields...)

	resp, err := c.Do(req)
	if err != nil {
		return 0, nil, aerrors.NewWithCause("failed sending request", err, errFields...)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("failed closing response body: %w", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, aerrors.NewWithCause("failed reading response body", err, errFields...)
	}

	if resp.StatusCode >= http.StatusBadRequest && !slices.Contains(okCodes, resp.StatusCode) {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		return resp.StatusCode, nil, &StatusError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}

	return resp.StatusCode, respBody, nil
}

// decode unmarshals the value under the client's envelope key in body into v.
func (c *Client) decode(body []byte, v any) error {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed unmarshalling response body: %w", err)
	}

	raw, ok := env[c.key]
	if !ok {
		return fmt.Errorf("response body is missing the '%s' key", c.key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed unmarshalling response '%s' value: %w", c.key, err)
	}

	return nil
}
