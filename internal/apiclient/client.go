// Package apiclient talks JSON over HTTP to the training platform's REST API.
package apiclient

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

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const maxBodyBytes = 16 << 20

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing calls. Zero disables throttling.
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
	Logger            zerolog.Logger
	// Now is used for token expiry checks. Defaults to time.Now.
	Now func() time.Time
}

// Client is safe for concurrent use.
type Client struct {
	baseURL  *url.URL
	token    string
	info     *TokenInfo
	http     *http.Client
	limiter  *rate.Limiter
	validate *validator.Validate
	log      zerolog.Logger
	now      func() time.Time
}

// New creates a client for the API at opts.BaseURL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	c := &Client{
		baseURL:  base,
		http:     httpClient,
		validate: validator.New(),
		log:      opts.Logger,
		now:      opts.Now,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	c.setToken(opts.Token)
	return c, nil
}

// WithToken returns a copy of c that authenticates with token. The copy shares
// the HTTP client and throttle.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.setToken(token)
	return &cp
}

// TokenInfo returns the decoded claims of the configured token, or nil when the
// token is empty or opaque.
func (c *Client) TokenInfo() *TokenInfo {
	return c.info
}

func (c *Client) setToken(token string) {
	c.token = strings.TrimSpace(token)
	c.info = nil
	if c.token == "" {
		return
	}
	if info, err := ParseToken(c.token); err == nil {
		c.info = info
	}
}

// do sends a request and decodes a successful JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.info.Expired(c.now()) {
		return ErrTokenExpired
	}

	endpoint := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}
	target := endpoint.String()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &TransportError{Method: method, URL: target, Cause: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &TransportError{Method: method, URL: target, Cause: err}
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("url", target).Str("request_id", requestID).Msg("request failed")
		return &TransportError{Method: method, URL: target, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Method: method, URL: target, Cause: err}
	}

	c.log.Debug().
		Str("method", method).
		Str("url", target).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api call")

	if resp.StatusCode >= http.StatusBadRequest {
		return &ServerError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Message:    bodyMessage(data),
			RequestID:  requestID,
		}
	}

	if out == nil {
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		*raw = data
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ServerError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			RequestID:  requestID,
			Cause:      fmt.Errorf("failed to decode response: %w", err),
		}
	}
	return nil
}

// bodyMessage extracts the "message" field of a JSON error body.
func bodyMessage(data []byte) string {
	var body struct {
		Message json.RawMessage `json:"message"`
	}
	if json.Unmarshal(data, &body) != nil {
		return ""
	}
	var msg string
	if json.Unmarshal(body.Message, &msg) != nil {
		return ""
	}
	return strings.TrimSpace(msg)
}
