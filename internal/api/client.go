// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/ztachat-tui/internal/config"
)

const (
	// MaxResponseSize is the largest response body the client reads.
	MaxResponseSize = 4 * 1024 * 1024

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 250 * time.Millisecond

	// retryMaxDelay caps the backoff delay.
	retryMaxDelay = 5 * time.Second
)

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the auth and user services. It is safe for concurrent use.
type Client struct {
	authURL    string
	userURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	log        *zap.Logger
	now        func() time.Time

	mu    sync.RWMutex
	token string
}

// NewClient creates a client from the server section of cfg. A nil cfg uses
// config.Default().
func NewClient(cfg *config.Config) *Client {
	if cfg == nil {
		cfg = config.Default()
	}
	s := cfg.Server

	limit := rate.Inf
	if s.RequestsPerSecond > 0 {
		limit = rate.Limit(s.RequestsPerSecond)
	}
	burst := s.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		authURL:    strings.TrimRight(s.AuthURL, "/"),
		userURL:    strings.TrimRight(s.UserURL, "/"),
		httpClient: &http.Client{Timeout: s.RequestTimeout.D()},
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: s.MaxRetries,
		log:        zap.NewNop(),
		now:        time.Now,
	}
}

// WithMaxRetries sets how many times a retryable response is retried.
func (c *Client) WithMaxRetries(n int) *Client {
	if n >= 0 {
		c.maxRetries = n
	}
	return c
}

// WithLimiter replaces the request pacing limiter.
func (c *Client) WithLimiter(l *rate.Limiter) *Client {
	if l != nil {
		c.limiter = l
	}
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(l *zap.Logger) *Client {
	if l != nil {
		c.log = l
	}
	return c
}

// WithToken sets the token sent as the Authorization bearer.
func (c *Client) WithToken(token string) *Client {
	c.SetToken(token)
	return c
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// =============================================================================
// REQUESTS
// =============================================================================

// envelope is the response wrapper every backend handler writes.
type envelope struct {
	Code    int             `json:"code"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// request describes one backend call.
type request struct {
	method string
	url    string
	query  url.Values
	body   any

	// auth requires a live token.
	auth bool
}

// do runs req, retrying with exponential backoff as retryable allows, and
// decodes a 2xx body into out when out is not nil.
func (c *Client) do(ctx context.Context, req request, out any) error {
	token := c.Token()
	if req.auth {
		if err := c.checkToken(token); err != nil {
			return err
		}
	}

	var payload []byte
	if req.body != nil {
		var err error
		if payload, err = json.Marshal(req.body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	target := req.url
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(attempt)):
			}
		}

		body, err := c.roundTrip(ctx, req.method, target, token, payload)
		if err == nil {
			if out == nil || len(bytes.TrimSpace(body)) == 0 {
				return nil
			}
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			return nil
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !retryable(req.method, apiErr) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// retryable reports whether a failed call may be sent again. A 429 was not
// processed and is always retried. A 5xx is retried only for GET, since the
// backend's PUT and POST handlers are not idempotent.
func retryable(method string, e *APIError) bool {
	if e.Status == http.StatusTooManyRequests {
		return true
	}
	return method == http.MethodGet && e.Temporary()
}

// roundTrip performs a single paced request and returns the body of a 2xx
// response or an *APIError.
func (c *Client) roundTrip(ctx context.Context, method, target, token string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("method", method), zap.String("path", req.URL.Path), zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("request",
		zap.String("method", method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", c.now().Sub(start)))

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp.StatusCode, body)
	}
	return body, nil
}

// readResponse reads the body, refusing anything over MaxResponseSize.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, MaxResponseSize)
	}
	return body, nil
}

// decodeError builds an *APIError from an error response body.
func decodeError(status int, body []byte) error {
	apiErr := &APIError{Status: status}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		apiErr.Detail = strings.TrimSpace(string(body))
		return apiErr
	}
	apiErr.Code = env.Code
	apiErr.Message = env.Message
	apiErr.Detail = errorDetail(env.Error)
	return apiErr
}

// errorDetail renders the envelope's error field, which handlers fill with
// either a string or an arbitrary object.
func errorDetail(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// backoff returns the delay before retry attempt n (n >= 1).
func backoff(n int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(n-1))
	if delay > retryMaxDelay || delay <= 0 {
		delay = retryMaxDelay
	}
	return delay
}
