package zephyr

import (
	"net/http"
	"time"
)

const (
	// DefaultAPISuffix is the content path of the Zephyr Scale Server REST API.
	DefaultAPISuffix = "rest/atm/1.0"
	// DefaultTimeout bounds every request attempt.
	DefaultTimeout = 90 * time.Second
	// DefaultMaxRetries is the number of retries for transient server errors.
	DefaultMaxRetries = 5
	// DefaultBackoffFactor is the base of the exponential retry backoff.
	DefaultBackoffFactor = 100 * time.Millisecond

	maxBackoff = 120 * time.Second
)

// Option configures a Client.
type Option func(*clientOptions)

// clientOptions holds configuration options for the Client.
type clientOptions struct {
	apiSuffix     string
	timeout       time.Duration
	maxRetries    int
	backoffFactor time.Duration
	retryStatuses []int
	httpClient    *http.Client
	userAgent     string
}

func defaultOptions() *clientOptions {
	return &clientOptions{
		apiSuffix:     DefaultAPISuffix,
		timeout:       DefaultTimeout,
		maxRetries:    DefaultMaxRetries,
		backoffFactor: DefaultBackoffFactor,
		retryStatuses: []int{
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
		userAgent: "zfr",
	}
}

// WithAPISuffix sets the path, relative to the base URL, that the REST API
// is served from.
func WithAPISuffix(suffix string) Option {
	return func(o *clientOptions) {
		o.apiSuffix = suffix
	}
}

// WithTimeout sets the timeout applied to each request attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(retries int) Option {
	return func(o *clientOptions) {
		if retries >= 0 {
			o.maxRetries = retries
		}
	}
}

// WithBackoffFactor sets the base delay of the exponential backoff between
// retries.
func WithBackoffFactor(factor time.Duration) Option {
	return func(o *clientOptions) {
		if factor >= 0 {
			o.backoffFactor = factor
		}
	}
}

// WithRetryStatuses replaces the set of status codes that trigger a retry.
func WithRetryStatuses(statuses ...int) Option {
	return func(o *clientOptions) {
		o.retryStatuses = statuses
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(userAgent string) Option {
	return func(o *clientOptions) {
		o.userAgent = userAgent
	}
}
