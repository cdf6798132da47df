// Package schedulerapi is a typed client for the news scheduler HTTP API.
// Every call issues exactly one request and returns the decoded body.
package schedulerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// BaseURLEnv names the environment variable holding the API base URL.
	BaseURLEnv = "NEWS_API_BASE_URL"
	// DefaultBaseURL is used when BaseURLEnv is unset.
	DefaultBaseURL = "http://localhost:8000"
	// DefaultTimeout bounds every request.
	DefaultTimeout = 30 * time.Second
)

// Client talks to the scheduler API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the underlying http.Client. A nil client keeps the
// default one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout overrides the request timeout. It is applied to a copy of the
// http.Client, so a client passed to WithHTTPClient is never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// BaseURLFromEnv returns the base URL configured in the environment, or
// DefaultBaseURL.
func BaseURLFromEnv() string {
	if u := strings.TrimSpace(os.Getenv(BaseURLEnv)); u != "" {
		return u
	}
	return DefaultBaseURL
}

// New creates a new Client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: BaseURLFromEnv(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")
	return c
}

// BaseURL returns the base URL requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Detail     string
	Body       []byte
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api returned %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Detail)
	}
	return fmt.Sprintf("api returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// newStatusError builds a StatusError, pulling the detail message out of the
// body when it has one. Detail is either a string or an extraction envelope.
func newStatusError(code int, body []byte) *StatusError {
	e := &StatusError{StatusCode: code, Body: body}
	var wrapper ErrorResponse
	if err := json.Unmarshal(body, &wrapper); err != nil || len(wrapper.Detail) == 0 {
		return e
	}
	var s string
	if err := json.Unmarshal(wrapper.Detail, &s); err == nil {
		e.Detail = s
		return e
	}
	var env ExtractResponse
	if err := json.Unmarshal(wrapper.Detail, &env); err == nil && env.Error != nil {
		e.Detail = env.Error.Code + ": " + env.Error.Message
		return e
	}
	e.Detail = string(wrapper.Detail)
	return e
}

// do sends a single request and decodes the response into out. A nil body
// sends no request body at all.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp.StatusCode, respBody)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func taskPath(sourceID string, suffix ...string) string {
	p := "/api/tasks/" + url.PathEscape(sourceID)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}
