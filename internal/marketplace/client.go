package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const maxResponseBytes = 16 << 20

// ClientConfig holds the tenant-independent transport settings
type ClientConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RequestsPerSec float64
	UserAgent      string
}

// RequestObserver receives one notification per finished platform call
type RequestObserver interface {
	ObserveRequest(ctx context.Context, method, endpoint string, statusCode int, elapsed time.Duration)
}

// Client talks to the marketplace API on behalf of one tenant.
// The authentication header is derived once at construction; requests are otherwise stateless.
type Client struct {
	baseURL    string
	supplierID string
	authHeader string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	observer   RequestObserver
	logger     *slog.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests use httptest servers)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithObserver reports request latency and status to o
func WithObserver(o RequestObserver) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for one credential set
func NewClient(cfg ClientConfig, creds Credentials, opts ...Option) (*Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("marketplace base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid marketplace base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = creds.SupplierID + " - SelfIntegration"
	}

	c := &Client{
		baseURL:    base,
		supplierID: creds.SupplierID,
		authHeader: creds.authorization(),
		userAgent:  ua,
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default(),
	}
	if cfg.RequestsPerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SupplierID returns the account identifier the client acts for
func (c *Client) SupplierID() string {
	return c.supplierID
}

// Do issues one request. body is JSON-encoded when non-nil; a 2xx response body is
// decoded into out when out is non-nil. Every failure is an *APIError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	started := time.Now()
	endpoint := path

	fail := func(status int, transport bool, details interface{}, cause error) error {
		apiErr := &APIError{
			Method:     method,
			Path:       endpoint,
			StatusCode: status,
			Transport:  transport,
			Details:    details,
			Err:        cause,
		}
		c.logger.Warn("marketplace request failed",
			"method", method,
			"path", endpoint,
			"status", status,
			"transport", transport,
			"duration_ms", time.Since(started).Milliseconds(),
			"error", apiErr.message(),
		)
		c.observe(ctx, method, endpoint, status, started)
		return apiErr
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fail(0, true, err.Error(), err)
		}
	}

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fail(0, true, "failed to encode request body", err)
		}
		payload = bytes.NewReader(raw)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return fail(0, true, "failed to build request", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(0, true, err.Error(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fail(resp.StatusCode, true, "failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, false, decodeDetails(raw), nil)
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fail(resp.StatusCode, false, "invalid response body", err)
		}
	}

	c.logger.Debug("marketplace request",
		"method", method,
		"path", endpoint,
		"status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	c.observe(ctx, method, endpoint, resp.StatusCode, started)
	return nil
}

func (c *Client) observe(ctx context.Context, method, endpoint string, status int, started time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveRequest(ctx, method, routeLabel(endpoint), status, time.Since(started))
}

// routeLabel replaces identifiers in a path so metric labels stay low-cardinality
func routeLabel(path string) string {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		if parts[i-1] == "suppliers" || parts[i-1] == "batch-requests" {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

func (c *Client) supplierPath(format string, args ...interface{}) string {
	return "/suppliers/" + url.PathEscape(c.supplierID) + fmt.Sprintf(format, args...)
}

// decodeDetails keeps the platform error payload structured when it is JSON
func decodeDetails(raw []byte) interface{} {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(trimmed, &obj); err == nil {
		return obj
	}
	return string(trimmed)
}
