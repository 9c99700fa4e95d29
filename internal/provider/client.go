// Package provider delivers built payloads to the DIGO messaging API with
// bounded retries and exponential backoff.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/example/journey-sms-activity/internal/activity"
	"github.com/example/journey-sms-activity/internal/sanitize"
)

const (
	defaultTimeout      = 15 * time.Second
	defaultAttempts     = 3
	defaultBackoff      = 500 * time.Millisecond
	defaultMaxBodyBytes = 16 * 1024
	defaultMaxInFlight  = 32
)

// HTTPClient abstracts the http.Client Do method for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the provider endpoint and delivery tuning.
type Config struct {
	URL           string
	BasicAuth     string
	BearerToken   string
	Timeout       time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
	StubMode      bool
	MaxInFlight   int64
}

// Option customises the client during construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used to reach the provider.
func WithHTTPClient(client HTTPClient) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBodyLimit adjusts how many bytes are retained from provider response
// bodies.
func WithBodyLimit(limit int64) Option {
	return func(c *Client) {
		if limit > 0 {
			c.maxBodyBytes = limit
		}
	}
}

// WithWaitFunc overrides the backoff wait. Tests use this to observe the
// retry schedule without sleeping.
func WithWaitFunc(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if wait != nil {
			c.wait = wait
		}
	}
}

// Client sends provider payloads over HTTPS. Safe for concurrent use; a
// weighted semaphore bounds the number of simultaneous in-flight requests.
type Client struct {
	cfg          Config
	logger       zerolog.Logger
	httpClient   HTTPClient
	inflight     *semaphore.Weighted
	maxBodyBytes int64
	wait         func(ctx context.Context, d time.Duration) error
}

// SendOptions carries per-call overrides. Caller headers win over the
// client's own headers on conflict.
type SendOptions struct {
	Headers       map[string]string
	CorrelationID string
	Attempts      int
	Backoff       time.Duration
}

// Response is the provider's reply to a successful delivery. Echo carries
// the original payload body in stub mode only.
type Response struct {
	Status  int
	Body    json.RawMessage
	Stubbed bool
	Echo    any
}

// NewClient constructs a delivery client.
func NewClient(cfg Config, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" && !cfg.StubMode {
		return nil, errors.New("provider client: endpoint URL is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaultAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultBackoff
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = defaultMaxInFlight
	}

	c := &Client{
		cfg:          cfg,
		logger:       logger,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		inflight:     semaphore.NewWeighted(cfg.MaxInFlight),
		maxBodyBytes: defaultMaxBodyBytes,
		wait:         waitTimer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Send delivers the payload, retrying transport failures and provider 5xx
// responses up to the configured attempt budget with exponential backoff.
// It returns a *RequestError once attempts are exhausted or a terminal 4xx
// is observed.
func (c *Client) Send(ctx context.Context, payload *activity.Payload, opts SendOptions) (*Response, error) {
	if payload == nil {
		return nil, errors.New("provider client: payload is required")
	}

	body, err := json.Marshal(payload.Body)
	if err != nil {
		return nil, fmt.Errorf("provider client: marshal payload: %w", err)
	}

	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = c.cfg.RetryAttempts
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = c.cfg.RetryBackoff
	}
	headers := c.buildHeaders(opts)

	log := c.logger.With().
		Str("correlation_id", opts.CorrelationID).
		Str("transaction_id", payload.TransactionID).
		Logger()

	log.Debug().
		Interface("payload", c.sanitizedPayload(body)).
		Interface("headers", sanitize.Headers(headers)).
		Int("attempts", attempts).
		Dur("backoff", backoff).
		Msg("prepared provider request")

	if c.cfg.StubMode {
		log.Info().
			Int("payload_bytes", len(body)).
			Msg("stub mode enabled, skipping outbound provider request")
		return &Response{
			Status:  http.StatusOK,
			Body:    json.RawMessage(`{"stubbed":true,"message":"stub mode enabled - payload not sent"}`),
			Stubbed: true,
			Echo:    payload.Body,
		}, nil
	}

	if err := c.inflight.Acquire(ctx, 1); err != nil {
		return nil, &RequestError{Message: "cancelled while waiting for delivery slot", Details: ErrorDetails{Message: err.Error()}}
	}
	defer c.inflight.Release(1)

	var lastErr *RequestError
	for attempt := 1; attempt <= attempts; attempt++ {
		log.Info().
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Msg("sending payload to provider")

		status, respBody, attemptErr := c.post(ctx, body, headers)
		if attemptErr == nil {
			log.Info().
				Int("attempt", attempt).
				Int("status", status).
				Msg("provider call succeeded")
			return &Response{Status: status, Body: respBody}, nil
		}
		lastErr = attemptErr

		log.Warn().
			Int("attempt", attempt).
			Int("status", attemptErr.StatusCode).
			Str("error", attemptErr.Message).
			Msg("provider call failed")

		if !retryable(attemptErr.StatusCode) || attempt >= attempts {
			break
		}

		delay := backoff * (1 << (attempt - 1))
		log.Info().
			Int("attempt", attempt).
			Dur("wait", delay).
			Msg("retrying provider call after backoff")
		if err := c.wait(ctx, delay); err != nil {
			log.Warn().Err(err).Msg("context cancelled while waiting for retry")
			break
		}
	}
	return nil, lastErr
}

func (c *Client) post(ctx context.Context, body []byte, headers map[string]string) (int, json.RawMessage, *RequestError) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return 0, nil, &RequestError{Message: "build request", Details: ErrorDetails{Message: err.Error()}}
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &RequestError{Message: "failed to send payload to provider", Details: ErrorDetails{Message: err.Error()}}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return 0, nil, &RequestError{Message: "read provider response", Details: ErrorDetails{Status: resp.StatusCode, Message: err.Error()}}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, respBody, nil
	}

	return 0, nil, &RequestError{
		Message:    "unexpected provider response status",
		StatusCode: resp.StatusCode,
		Details: ErrorDetails{
			Status:       resp.StatusCode,
			Message:      http.StatusText(resp.StatusCode),
			ResponseBody: string(respBody),
		},
	}
}

func (c *Client) buildHeaders(opts SendOptions) map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	switch {
	case strings.TrimSpace(c.cfg.BasicAuth) != "":
		headers["Authorization"] = "Basic " + strings.TrimSpace(c.cfg.BasicAuth)
	case strings.TrimSpace(c.cfg.BearerToken) != "":
		headers["Authorization"] = "Bearer " + strings.TrimSpace(c.cfg.BearerToken)
	}
	if opts.CorrelationID != "" {
		headers["X-Correlation-Id"] = opts.CorrelationID
	}
	for key, value := range opts.Headers {
		headers[key] = value
	}
	return headers
}

// sanitizedPayload renders the outbound body as a masked value tree. Raw
// recipient numbers and credentials must never reach persisted logs.
func (c *Client) sanitizedPayload(body []byte) any {
	var tree any
	if err := json.Unmarshal(body, &tree); err != nil {
		return fmt.Sprintf("unserializable payload: %v", err)
	}
	return sanitize.Value("payload", tree)
}

func waitTimer(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
