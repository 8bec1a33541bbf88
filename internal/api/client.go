// Package api is the request gateway to the to-do backend: it builds
// authorized JSON requests and turns responses into values or *apierr.Error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Makepad-fr/tada/internal/apierr"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/session"
)

const (
	DefaultBaseURL = "http://localhost:8080/api"

	validationMessage = "Input validation errors occurred. Please check the fields."
	logBodyLimit      = 200
)

// Credentials supplies the bearer token and drops it on 401.
type Credentials interface {
	Token() string
	ClearToken() error
}

// Client issues calls against a fixed base address.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      Credentials
	nav        session.Navigator
	loginPath  string
	logger     *logging.Logger
}

// Options overrides the client's collaborators. Zero values are fine.
type Options struct {
	HTTPClient  *http.Client
	Logger      *logging.Logger
	Credentials Credentials
	Navigator   session.Navigator
	LoginPath   string
}

// New creates a client for baseURL (e.g. http://localhost:8080/api).
func New(baseURL string, opts Options) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is empty")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse baseURL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("baseURL %q is not absolute", baseURL)
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: opts.HTTPClient,
		creds:      opts.Credentials,
		nav:        opts.Navigator,
		loginPath:  opts.LoginPath,
		logger:     opts.Logger,
	}
	if c.httpClient == nil {
		// No timeout: calls wait for the network, bounded by ctx only.
		c.httpClient = &http.Client{}
	}
	if c.loginPath == "" {
		c.loginPath = session.DefaultLoginPath
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	return c, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

type requestOptions struct {
	headers map[string]string
	err     error
}

// RequestOption tunes a single call.
type RequestOption func(*requestOptions)

// WithHeaders merges caller headers over the defaults. h may be any shape
// NormalizeHeaders accepts.
func WithHeaders(h any) RequestOption {
	return func(o *requestOptions) {
		norm, err := NormalizeHeaders(h)
		if err != nil {
			o.err = err
			return
		}
		if o.headers == nil {
			o.headers = map[string]string{}
		}
		for k, v := range norm {
			o.headers[k] = v
		}
	}
}

// Call performs a request and decodes the response into a T. A 204 or empty
// response yields the zero T.
func Call[T any](ctx context.Context, c *Client, method, endpoint string, body any, opts ...RequestOption) (T, error) {
	var out T
	if err := c.Do(ctx, method, endpoint, body, &out, opts...); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Do sends method endpoint with body (JSON-encoded unless nil, []byte or
// json.RawMessage) and decodes a successful response into out (may be nil).
// Non-2xx statuses and unreadable bodies come back as *apierr.Error; a 401
// additionally clears the credential and navigates to the login path.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, out any, opts ...RequestOption) error {
	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}
	if ro.err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, ro.err)
	}
	reader, err := encodeBody(body)
	if err != nil {
		return fmt.Errorf("%s %s: encode body: %w", method, endpoint, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range ro.headers {
		req.Header.Set(k, v)
	}
	if c.creds != nil {
		if token := c.creds.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("request failed", "method", method, "path", endpoint, "err", err)
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, endpoint, err)
	}
	c.logger.Debug("api call", "method", method, "path", endpoint, "status", resp.StatusCode, "took", time.Since(start))
	return c.decode(resp.StatusCode, resp.ContentLength, raw, out)
}

func (c *Client) decode(status int, contentLength int64, raw []byte, out any) error {
	ok := status >= 200 && status < 300
	empty := status == http.StatusNoContent || contentLength == 0

	var data any
	if !empty {
		if err := json.Unmarshal(raw, &data); err != nil {
			c.logger.Error("failed to parse JSON response", "status", status, "body", truncate(raw, logBodyLimit), "err", err)
			if !ok {
				return apierr.New(apierr.KindTransportDecode, status,
					fmt.Sprintf("API Error: %d. Server returned non-JSON error (see log for full text).", status),
					map[string]any{"message": fmt.Sprintf("Server returned non-JSON error. Status: %d. Check log for response body.", status)})
			}
			return contractViolation(status)
		}
	}

	if !ok {
		if status == http.StatusUnauthorized {
			c.unauthorized()
			return apierr.New(apierr.KindUnauthorized, status, "Unauthorized - redirecting to login", data)
		}
		return apierr.New(apierr.KindStatus, status, statusMessage(status, data), data)
	}

	if empty || out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Error("response does not match expected shape", "status", status, "body", truncate(raw, logBodyLimit), "err", err)
		return contractViolation(status)
	}
	return nil
}

func (c *Client) unauthorized() {
	if c.creds != nil {
		if err := c.creds.ClearToken(); err != nil {
			c.logger.Error("clear token after 401", "err", err)
		}
	}
	c.logger.Info("401 from server, redirecting to login", "path", c.loginPath)
	if c.nav != nil {
		c.nav.Navigate(c.loginPath)
	}
}

func contractViolation(status int) error {
	return apierr.New(apierr.KindContractViolation, status,
		fmt.Sprintf("API Error: Expected JSON response for status %d, but received non-JSON (see log for full text).", status),
		map[string]any{"message": fmt.Sprintf("Expected JSON for status %d, but got non-JSON. Check log for response body.", status)})
}

// statusMessage picks data.message, then data.error, then a validation
// message for non-empty structured bodies, then a generic one.
func statusMessage(status int, data any) string {
	if s := apierr.StringField(data, "message"); s != "" {
		return s
	}
	if s := apierr.StringField(data, "error"); s != "" {
		return s
	}
	switch v := data.(type) {
	case map[string]any:
		if len(v) > 0 {
			return validationMessage
		}
	case []any:
		if len(v) > 0 {
			return validationMessage
		}
	}
	return fmt.Sprintf("API Error: %d", status)
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return bytes.NewReader(b), nil
	case []byte:
		return bytes.NewReader(b), nil
	}
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		return nil, err
	}
	return buf, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
