package zephyr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// Client is a session bound to one Zephyr Scale instance. It is read-only
// after construction.
type Client struct {
	baseURL   string
	apiSuffix string
	username  string
	password  string
	userAgent string

	// retrying serves idempotent methods, single sends everything else once.
	retrying *retryablehttp.Client
	single   *retryablehttp.Client

	logger zerolog.Logger
}

// NewClient creates a new Zephyr Scale client using HTTP basic credentials.
func NewClient(baseURL, username, password string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: zephyr URL is required", ErrInvalidConfig)
	}
	if username == "" {
		return nil, fmt.Errorf("%w: zephyr username is required", ErrInvalidConfig)
	}

	baseURL = strings.TrimRight(baseURL, "/")
	if u, err := url.Parse(baseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid zephyr URL %q", ErrInvalidConfig, baseURL)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = o.timeout

	return &Client{
		baseURL:   baseURL,
		apiSuffix: strings.Trim(o.apiSuffix, "/"),
		username:  username,
		password:  password,
		userAgent: o.userAgent,
		retrying:  newRetryClient(httpClient, o, o.maxRetries, logger),
		single:    newRetryClient(httpClient, o, 0, logger),
		logger:    logger,
	}, nil
}

func newRetryClient(httpClient *http.Client, o *clientOptions, retries int, logger zerolog.Logger) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = httpClient
	rc.RetryMax = retries
	rc.RetryWaitMin = o.backoffFactor
	rc.RetryWaitMax = maxBackoff
	rc.Backoff = exponentialBackoff(o.backoffFactor)
	rc.CheckRetry = retryOnStatus(o.retryStatuses)
	// Hand the final response to the inspector instead of a "giving up" error.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = leveledLogger{logger: logger}
	return rc
}

// exponentialBackoff waits factor * 2^attempt, capped at ceiling.
func exponentialBackoff(factor time.Duration) retryablehttp.Backoff {
	return func(_, ceiling time.Duration, attempt int, _ *http.Response) time.Duration {
		if attempt > 30 {
			return ceiling
		}
		wait := factor * time.Duration(int64(1)<<uint(attempt))
		if wait < 0 || wait > ceiling {
			return ceiling
		}
		return wait
	}
}

func retryOnStatus(statuses []int) retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		}
		return slices.Contains(statuses, resp.StatusCode), nil
	}
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

// Class groups response status codes into the outcomes callers act on.
type Class int

const (
	// ClassOK covers 1xx-3xx responses
	ClassOK Class = iota
	// ClassNotFound is a 404 response
	ClassNotFound
	// ClassClientError covers every other 4xx response
	ClassClientError
	// ClassServerError covers 5xx responses
	ClassServerError
)

// String returns the string representation of a Class
func (c Class) String() string {
	switch c {
	case ClassOK:
		return "ok"
	case ClassNotFound:
		return "not_found"
	case ClassClientError:
		return "client_error"
	case ClassServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Method     string
	URL        string
	Body       []byte
}

// Class classifies the response status code.
func (r *Response) Class() Class {
	switch {
	case r.StatusCode == http.StatusNotFound:
		return ClassNotFound
	case r.StatusCode >= http.StatusInternalServerError:
		return ClassServerError
	case r.StatusCode >= http.StatusBadRequest:
		return ClassClientError
	default:
		return ClassOK
	}
}

// ErrorMessages returns the "errorMessages" reported by the server. When the
// body does not carry any, the trimmed body itself is the only message.
func (r *Response) ErrorMessages() []string {
	var payload struct {
		ErrorMessages []string `json:"errorMessages"`
	}
	if err := json.Unmarshal(r.Body, &payload); err == nil && len(payload.ErrorMessages) > 0 {
		return payload.ErrorMessages
	}
	if body := strings.TrimSpace(string(r.Body)); body != "" {
		return []string{body}
	}
	return nil
}

// decode converts the camelCase body into dst.
func (r *Response) decode(dst any) error {
	if err := fromWire(r.Body, dst); err != nil {
		return fmt.Errorf("failed to parse response from %s %s: %w", r.Method, r.URL, err)
	}
	return nil
}

func (r *Response) remoteError(message string) *RemoteError {
	return &RemoteError{
		StatusCode: r.StatusCode,
		Method:     r.Method,
		URL:        r.URL,
		Body:       string(r.Body),
		Message:    message,
	}
}

// inspect runs on every response. 404 is deliberately left to the caller.
func inspect(r *Response) error {
	switch {
	case r.StatusCode == http.StatusUnauthorized || r.StatusCode == http.StatusForbidden:
		return &AuthorizationError{Method: r.Method, URL: r.URL}
	case r.StatusCode > http.StatusForbidden && r.StatusCode != http.StatusNotFound:
		return r.remoteError("")
	}
	return nil
}

func (c *Client) endpointURL(endpoint string, query url.Values) string {
	var sb strings.Builder
	sb.WriteString(c.baseURL)
	sb.WriteByte('/')
	if c.apiSuffix != "" {
		sb.WriteString(c.apiSuffix)
		sb.WriteByte('/')
	}
	sb.WriteString(strings.TrimLeft(endpoint, "/"))
	if len(query) > 0 {
		sb.WriteByte('?')
		sb.WriteString(query.Encode())
	}
	return sb.String()
}

// do performs an authenticated request and runs the response inspector.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body []byte, contentType string) (*Response, error) {
	requestURL := c.endpointURL(endpoint, query)

	var rawBody interface{}
	if body != nil {
		rawBody = body
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, requestURL, rawBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	hc := c.single
	if isIdempotent(method) {
		hc = c.retrying
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %s %s: %w", method, requestURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", requestURL).
		Int("status", resp.StatusCode).
		Msg("Zephyr API response")

	r := &Response{
		StatusCode: resp.StatusCode,
		Method:     method,
		URL:        requestURL,
		Body:       data,
	}
	if err := inspect(r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values) (*Response, error) {
	return c.do(ctx, http.MethodGet, endpoint, query, nil, "")
}

func (c *Client) delete(ctx context.Context, endpoint string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil, "")
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) (*Response, error) {
	return c.sendJSON(ctx, http.MethodPost, endpoint, payload)
}

func (c *Client) putJSON(ctx context.Context, endpoint string, payload any) (*Response, error) {
	return c.sendJSON(ctx, http.MethodPut, endpoint, payload)
}

func (c *Client) sendJSON(ctx context.Context, method, endpoint string, payload any) (*Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.do(ctx, method, endpoint, nil, buf.Bytes(), "application/json")
}
