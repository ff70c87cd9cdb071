package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a single worker round trip when none is configured
const DefaultTimeout = 10 * time.Second

// RequestIDHeader carries the per-call correlation ID to the worker
const RequestIDHeader = "X-Request-ID"

// Client delegates multiplication to a remote worker over HTTP.
// Each call blocks until the worker answers, the timeout elapses or ctx is done.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithClientLogger sets the logger
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a worker client. A zero timeout selects DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the worker address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Multiply implements Multiplier. Every transport failure wraps ErrUnavailable;
// an overflow reported by the worker wraps ErrOverflow.
func (c *Client) Multiply(ctx context.Context, a, b int64) (int64, error) {
	body, err := json.Marshal(MultiplyRequest{A: a, B: b})
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/multiply", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: create request: %w", ErrUnavailable, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("remote_multiply_failed", "request_id", requestID, "error", err)
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	// 422 is the worker's answer to a product that does not fit; it is reachable
	if resp.StatusCode == http.StatusUnprocessableEntity {
		return 0, fmt.Errorf("%w: %d * %d", ErrOverflow, a, b)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("%w: unexpected status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out MultiplyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}

	c.logger.Debug("remote_multiply",
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out.Product, nil
}

// Health checks the worker's liveness endpoint
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}
