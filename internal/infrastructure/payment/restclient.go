// Package payment holds the HTTP plumbing shared by the provider gateways.
package payment

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
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/lexora-inc/lexora/internal/shared/logger"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxRetries   = 3
	maxErrorBodyBytes   = 4 << 10
	idempotencyKeyField = "Idempotency-Key"
)

// ProviderError is a non-2xx answer or transport failure from a provider.
type ProviderError struct {
	Provider   string
	Method     string
	Path       string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s %s: %v", e.Provider, e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s %s: status %d: %s", e.Provider, e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed.
func (e *ProviderError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ClientOptions configures a provider REST client.
type ClientOptions struct {
	Provider   string
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int
	// MessageOf extracts a human readable message from an error body.
	MessageOf func(body []byte) string
	// Idempotent sends an Idempotency-Key with every POST so retries are safe.
	Idempotent bool
}

// Client performs bearer-authenticated calls with a per-request timeout and
// bounded exponential retry on 429, 5xx and network failures.
type Client struct {
	opts   ClientOptions
	http   *http.Client
	logger logger.Interface

	initialInterval time.Duration
	maxInterval     time.Duration
}

func NewClient(opts ClientOptions, log logger.Interface) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	httpClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: opts.Token,
		TokenType:   "Bearer",
	}))
	httpClient.Timeout = opts.Timeout

	return &Client{
		opts:            opts,
		http:            httpClient,
		logger:          log.Named(opts.Provider),
		initialInterval: 200 * time.Millisecond,
		maxInterval:     2 * time.Second,
	}
}

// SetRetryIntervals shortens the backoff; tests only.
func (c *Client) SetRetryIntervals(initial, maxInterval time.Duration) {
	c.initialInterval = initial
	c.maxInterval = maxInterval
}

// Request is one call. Exactly one of Form and JSON may be set.
type Request struct {
	Method string
	Path   string
	Query  map[string]string
	Form   url.Values
	JSON   any
}

// DoJSON executes req and decodes a 2xx body into out when out is non-nil.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	body, contentType, err := encodeBody(req)
	if err != nil {
		return err
	}
	idemKey := ""
	if c.opts.Idempotent && req.Method == http.MethodPost {
		idemKey = uuid.NewString()
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = c.initialInterval
	expBackoff.MaxInterval = c.maxInterval
	expBackoff.Multiplier = 2
	expBackoff.RandomizationFactor = 0.2

	var attempt int
	operation := func() ([]byte, error) {
		attempt++
		respBody, err := c.once(ctx, req, body, contentType, idemKey)
		if err == nil {
			return respBody, nil
		}
		var perr *ProviderError
		if !errors.As(err, &perr) || !perr.Retryable() {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	notify := func(err error, delay time.Duration) {
		status := 0
		var perr *ProviderError
		if errors.As(err, &perr) {
			status = perr.StatusCode
		}
		c.logger.Warnw("provider call failed, retrying",
			"method", req.Method,
			"path", req.Path,
			"status", status,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
	}

	respBody, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(uint(c.opts.MaxRetries+1)),
		backoff.WithNotify(notify),
	)
	if err != nil {
		// The last allowed attempt comes back still wrapped.
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}
		var perr *ProviderError
		if !errors.As(err, &perr) && ctx.Err() != nil {
			return &ProviderError{Provider: c.opts.Provider, Method: req.Method, Path: req.Path, Err: err}
		}
		return err
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &ProviderError{Provider: c.opts.Provider, Method: req.Method, Path: req.Path,
			StatusCode: http.StatusOK, Message: "undecodable response", Err: err}
	}
	return nil
}

func (c *Client) once(ctx context.Context, req Request, body []byte, contentType, idemKey string) ([]byte, error) {
	target := c.opts.BaseURL + req.Path
	if len(req.Query) > 0 {
		q := url.Values{}
		for k, v := range req.Query {
			q.Set(k, v)
		}
		target += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", c.opts.Provider, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if idemKey != "" {
		httpReq.Header.Set(idempotencyKeyField, idemKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: c.opts.Provider, Method: req.Method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: c.opts.Provider, Method: req.Method, Path: req.Path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{
			Provider:   c.opts.Provider,
			Method:     req.Method,
			Path:       req.Path,
			StatusCode: resp.StatusCode,
			Message:    c.messageOf(respBody),
		}
	}
	return respBody, nil
}

func (c *Client) messageOf(body []byte) string {
	if c.opts.MessageOf != nil {
		if msg := c.opts.MessageOf(body); msg != "" {
			return msg
		}
	}
	if len(body) > maxErrorBodyBytes {
		body = body[:maxErrorBodyBytes]
	}
	return strings.TrimSpace(string(body))
}

func encodeBody(req Request) ([]byte, string, error) {
	switch {
	case req.Form != nil && req.JSON != nil:
		return nil, "", fmt.Errorf("request to %s has both form and JSON bodies", req.Path)
	case req.Form != nil:
		return []byte(req.Form.Encode()), "application/x-www-form-urlencoded", nil
	case req.JSON != nil:
		b, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("encode request to %s: %w", req.Path, err)
		}
		return b, "application/json", nil
	}
	return nil, "", nil
}
