package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL        = "https://generativelanguage.googleapis.com"
	defaultHTTPTimeout    = 5 * time.Minute
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 2 * time.Second
	defaultRetryMaxDelay  = 30 * time.Second
	apiVersion            = "v1beta"
)

// Config captures the runtime settings required to reach the API.
type Config struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// Client talks to the Generative Language REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry and poll sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	return client
}

// request describes one HTTP exchange. body is invoked per attempt so retries
// can replay the payload.
type request struct {
	op     string
	method string
	url    string
	header http.Header
	body   func() (io.Reader, int64, error)
}

type response struct {
	header http.Header
	body   []byte
}

// apiError mirrors the error envelope returned by the API.
type apiError struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

type httpStatusError struct {
	Op         string
	StatusCode int
	Status     string
	Message    string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	detail := e.Message
	if e.Status != "" {
		detail = e.Status + ": " + detail
	}
	return fmt.Sprintf("%s: http %d: %s", e.Op, e.StatusCode, strings.TrimSpace(detail))
}

// StatusCode reports the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func (c *Client) endpoint(parts ...string) string {
	return c.cfg.BaseURL + "/" + strings.Join(parts, "/")
}

func (c *Client) requireKey(op string) error {
	if c.cfg.APIKey == "" {
		return fmt.Errorf("%s: api key required", op)
	}
	return nil
}

func jsonBody(payload any) (func() (io.Reader, int64, error), error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return func() (io.Reader, int64, error) {
		return bytes.NewReader(encoded), int64(len(encoded)), nil
	}, nil
}

func (c *Client) doWithRetry(ctx context.Context, req request) (response, error) {
	attempts := c.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.doOnce(ctx, req)
		if err == nil {
			return resp, nil
		}
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return response{}, err
		}
		if err := c.sleep(ctx, delay); err != nil {
			return response{}, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return response{}, fmt.Errorf("%s: failed after %d attempts: %w", req.op, attempts, lastErr)
}

func (c *Client) doOnce(ctx context.Context, req request) (response, error) {
	var (
		body   io.Reader
		length int64
	)
	if req.body != nil {
		reader, size, err := req.body()
		if err != nil {
			return response{}, fmt.Errorf("%s: %w", req.op, err)
		}
		body, length = reader, size
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		if closer, ok := body.(io.Closer); ok {
			closer.Close()
		}
		return response{}, fmt.Errorf("%s: new request: %w", req.op, err)
	}
	if body != nil {
		httpReq.ContentLength = length
	}
	for key, values := range req.header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return response{}, fmt.Errorf("%s: http error (timeout=%s): %w", req.op, c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, fmt.Errorf("%s: read body: %w", req.op, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		statusErr := &httpStatusError{
			Op:         req.op,
			StatusCode: resp.StatusCode,
			Message:    summarizeSnippet(string(payload)),
			RetryAfter: retryAfter,
		}
		var envelope apiError
		if json.Unmarshal(payload, &envelope) == nil && envelope.Error != nil {
			statusErr.Status = envelope.Error.Status
			statusErr.Message = envelope.Error.Message
		}
		return response{}, statusErr
	}
	return response{header: resp.Header, body: payload}, nil
}

func (c *Client) timeoutDuration() time.Duration {
	if c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func summarizeSnippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
