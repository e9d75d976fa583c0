// Package httpx is the generic retrying HTTP client every external
// collaborator client in this billing core is built on top of.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// HTTPError is returned when the remote responds with a non-2xx status;
// callers inspect StatusCode to decide whether a failure is terminal
// (4xx, not retried further up the stack) or should bubble up as
// svcerr.TransientExternal (5xx).
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("httpx: unexpected status %d: %s", e.StatusCode, string(e.Body))
}

// RetryConfig controls the backoff applied to transient failures (network
// errors and 5xx responses); 4xx responses are never retried.
type RetryConfig struct {
	MaxElapsedTime time.Duration
	InitialBackoff time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxElapsedTime: 30 * time.Second, InitialBackoff: 200 * time.Millisecond}
}

type Option func(*Client)

func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// Client is a thin, retrying wrapper around net/http used for every outbound
// JSON collaborator call this billing core makes.
type Client struct {
	baseURL string
	hc      *http.Client
	retry   RetryConfig
	headers map[string]string
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 10 * time.Second},
		retry:   DefaultRetryConfig(),
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DoJSON marshals body (if non-nil) as the request payload, issues method to
// path against the base URL, retries transient failures per retry, and
// unmarshals a 2xx response body into out (if non-nil).
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out interface{}) error {
	return c.DoJSONWithHeaders(ctx, method, path, nil, body, out)
}

// DoJSONWithHeaders is DoJSON with additional per-call headers (e.g. a
// freshly signed auth token) merged on top of the client's static headers.
func (c *Client) DoJSONWithHeaders(ctx context.Context, method, path string, extraHeaders map[string]string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("httpx: marshal request: %w", err)
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retry.InitialBackoff
	bo.MaxElapsedTime = c.retry.MaxElapsedTime
	boCtx := backoff.WithContext(bo, ctx)

	var respBody []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}
		for k, v := range extraHeaders {
			req.Header.Set(k, v)
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			return err // network errors are retried
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return &HTTPError{StatusCode: resp.StatusCode, Body: respBody}
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(&HTTPError{StatusCode: resp.StatusCode, Body: respBody})
		}
		return nil
	}

	if err := backoff.Retry(op, boCtx); err != nil {
		return err
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("httpx: decode response: %w", err)
		}
	}
	return nil
}
