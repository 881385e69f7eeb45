// Package transport is the HTTP plumbing shared by the upstream clients:
// authentication, JSON encoding and mapping of non-2xx responses onto
// *errors.APIError.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agentstation/courtsync/pkg/errors"
	"github.com/agentstation/courtsync/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = 30 * time.Second

// Client issues authenticated JSON requests against one upstream service.
type Client struct {
	service string
	baseURL string
	http    *http.Client
	auth    Authenticator
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a client for service rooted at baseURL. A nil auth means no
// authentication.
func New(service, baseURL string, auth Authenticator, opts ...Option) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	c := &Client{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
		auth:    auth,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Service returns the name used in errors and logs.
func (c *Client) Service() string {
	return c.service
}

// RequestOption adjusts an outgoing request.
type RequestOption func(*http.Request)

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

// WithQuery merges query parameters into the request URL.
func WithQuery(values url.Values) RequestOption {
	return func(req *http.Request) {
		q := req.URL.Query()
		for k, vs := range values {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
}

// Get performs a GET and decodes the JSON response into target.
func (c *Client) Get(ctx context.Context, path string, target any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, target, opts...)
}

// Post sends body as JSON and decodes the response into target.
func (c *Client) Post(ctx context.Context, path string, body, target any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPost, path, body, target, opts...)
}

// Put sends body as JSON and decodes the response into target.
func (c *Client) Put(ctx context.Context, path string, body, target any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPut, path, body, target, opts...)
}

// Delete performs a DELETE, discarding any response body.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, opts...)
}

// Ping checks the upstream liveness endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.Get(ctx, "/health/ping", nil)
}

// Do performs a request. A nil body sends no payload; a nil target discards
// the response body.
func (c *Client) Do(ctx context.Context, method, path string, body, target any, opts ...RequestOption) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.WrapParse("json", "request", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errors.WrapResource("create", "request", method+" "+endpoint, err)
	}
	for _, opt := range opts {
		opt(req)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.auth.Apply(req); err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &errors.APIError{
			Service:  c.service,
			Endpoint: method + " " + req.URL.Path,
			Message:  "request failed",
			Err:      err,
		}
	}

	logging.Ctx(ctx).Debug().
		Str("service", c.service).
		Str("method", method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Upstream request")

	return c.DecodeResponse(resp, target)
}

// DecodeResponse decodes a JSON response into target. Non-2xx statuses are
// returned as *errors.APIError so callers can test them with errors.Is.
func (c *Client) DecodeResponse(resp *http.Response, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Err(err).Str("service", c.service).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		endpoint := ""
		if resp.Request != nil {
			endpoint = resp.Request.Method + " " + resp.Request.URL.Path
		}
		apiErr := errors.NewAPIError(c.service, resp.StatusCode, strings.TrimSpace(string(body)))
		apiErr.Endpoint = endpoint
		return apiErr
	}

	if target == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", c.service+" response", err)
	}
	return nil
}
