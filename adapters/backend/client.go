// Package backend implements the resilient HTTP client for the Gram Vaani
// inference API. Every call carries a fixed timeout and a bounded exponential
// backoff retry policy, uniformly across all endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lazypandaa/gramvaani-client/domain/entities"
	"github.com/lazypandaa/gramvaani-client/domain/repositories"
)

const (
	defaultBaseURL        = "http://localhost:8000"
	defaultTimeout        = 30 * time.Second
	defaultMaxRetries     = 3
	defaultRetryBaseDelay = time.Second // delay = 2^attempt * base
)

// Config holds configuration for the backend client.
// Required fields: none, every field has a default.
// Optional fields:
// - BaseURL: API base URL (default: "http://localhost:8000")
// - Timeout: per-attempt request timeout (default: 30s)
// - MaxRetries: retries after the initial attempt (default: 3, negative disables retries)
// - RetryBaseDelay: backoff unit, delay = 2^attempt * unit (default: 1s)
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// ConfigFromEnv creates a Config from environment variables.
func ConfigFromEnv() Config {
	cfg := Config{
		BaseURL: os.Getenv("GRAMVAANI_API_URL"),
	}
	if timeoutStr := os.Getenv("GRAMVAANI_REQUEST_TIMEOUT_MS"); timeoutStr != "" {
		if ms, err := strconv.Atoi(timeoutStr); err == nil && ms > 0 {
			cfg.Timeout = time.Duration(ms) * time.Millisecond
		}
	}
	if retriesStr := os.Getenv("GRAMVAANI_MAX_RETRIES"); retriesStr != "" {
		if n, err := strconv.Atoi(retriesStr); err == nil && n >= 0 {
			if n == 0 {
				// An explicit zero disables retries rather than falling back
				// to the default budget.
				cfg.MaxRetries = -1
			} else {
				cfg.MaxRetries = n
			}
		}
	}
	return cfg
}

// Client talks to the Gram Vaani backend. The bearer token is read from the
// injected TokenSource on every attempt; the client never stores it.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         repositories.TokenSource
	timeout        time.Duration
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *zap.Logger
}

// Ensure Client implements the Backend interface
var _ repositories.Backend = (*Client)(nil)

// NewClient creates a new backend client.
func NewClient(cfg Config, tokens repositories.TokenSource, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
		logger.Info("Using default API base URL", zap.String("baseURL", cfg.BaseURL))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = defaultRetryBaseDelay
	}

	// Overall request lifetime is bounded per attempt via context deadlines,
	// so the http.Client itself carries no timeout.
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		baseURL:        cfg.BaseURL,
		httpClient:     &http.Client{Transport: transport},
		tokens:         tokens,
		timeout:        cfg.Timeout,
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
		logger:         logger,
	}
}

// call describes one logical request. The body is a replayable byte slice so
// retries reissue exactly the same payload and headers.
type call struct {
	method        string
	path          string
	body          []byte
	contentType   string
	authenticated bool
}

// send issues a call with retries. The attempt counter is local to this
// invocation: two logical requests never share retry state.
func (c *Client) send(ctx context.Context, req call) ([]byte, error) {
	attempt := 0
	for {
		body, err := c.attempt(ctx, req)
		if err == nil {
			return body, nil
		}
		if !c.shouldRetry(ctx, err) || attempt >= c.maxRetries {
			return nil, err
		}
		attempt++
		delay := time.Duration(1<<uint(attempt)) * c.retryBaseDelay
		c.logger.Warn("Request failed, retrying",
			zap.String("path", req.path),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			// Deliberate cancellation aborts the chain; it is never retried.
			return nil, ctx.Err()
		}
	}
}

func (c *Client) attempt(ctx context.Context, req call) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.method, c.baseURL+req.path, bytes.NewReader(req.body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.authenticated {
		if token := c.tokens.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transportError{err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	detail := errorDetail(body)
	if resp.StatusCode == http.StatusUnauthorized && req.authenticated {
		if detail != "" {
			return nil, fmt.Errorf("%w: %s", entities.ErrAuthExpired, detail)
		}
		return nil, entities.ErrAuthExpired
	}
	return nil, &entities.APIError{StatusCode: resp.StatusCode, Detail: detail}
}

// shouldRetry implements the eligibility rule: no response received, or a
// server error. Client errors and cancelled contexts are terminal.
func (c *Client) shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *entities.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	var tErr *transportError
	return errors.As(err, &tErr)
}

// transportError marks a request that produced no response at all.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "request failed: " + e.err.Error() }

func (e *transportError) Unwrap() error { return e.err }

// errorDetail extracts the backend's "detail" field, verbatim, when present.
func errorDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Detail
}
