package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	// DefaultMaxRetries is the default number of retry attempts
	DefaultMaxRetries = 3
	// BaseDelay is the base delay for exponential backoff (500ms)
	BaseDelay = 500 * time.Millisecond
	// MaxDelay is the maximum delay between retries (30s)
	MaxDelay = 30 * time.Second
	// DefaultHTTPTimeout bounds a single request including its retries
	DefaultHTTPTimeout = 60 * time.Second
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig returns default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  BaseDelay,
		MaxDelay:   MaxDelay,
	}
}

type temporary interface {
	Temporary() bool
}

// IsRetryable determines if a transport error should trigger a retry
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
		if t, ok := netErr.(temporary); ok && t.Temporary() {
			return true
		}
		return false
	}

	errorMsg := strings.ToLower(err.Error())

	// Don't retry client errors (4xx) except rate limiting
	if strings.Contains(errorMsg, "authentication failed") ||
		strings.Contains(errorMsg, "invalid credentials") ||
		strings.Contains(errorMsg, "unauthorized") ||
		strings.Contains(errorMsg, "forbidden") ||
		strings.Contains(errorMsg, "not found") ||
		strings.Contains(errorMsg, "bad request") ||
		strings.Contains(errorMsg, "unprocessable") {
		return false
	}

	if strings.Contains(errorMsg, "rate limit") ||
		strings.Contains(errorMsg, "too many requests") {
		return true
	}

	if strings.Contains(errorMsg, "server error") ||
		strings.Contains(errorMsg, "service unavailable") ||
		strings.Contains(errorMsg, "internal error") ||
		strings.Contains(errorMsg, "bad gateway") ||
		strings.Contains(errorMsg, "gateway timeout") {
		return true
	}

	if strings.Contains(errorMsg, "connection refused") ||
		strings.Contains(errorMsg, "connection reset") ||
		strings.Contains(errorMsg, "timeout") ||
		strings.Contains(errorMsg, "network") {
		return true
	}

	// Default: don't retry unless explicitly retryable
	return false
}

// retryPolicy retries transient transport errors, 429 and 5xx responses (501 excluded)
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return IsRetryable(err), nil
	}
	if resp == nil {
		return false, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return true, nil
	}
	if resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented {
		return true, nil
	}
	return false, nil
}

// NewRetryableHTTPClient returns an *http.Client that retries with capped exponential
// backoff and honours Retry-After. When retries are exhausted the last response is
// returned to the caller so status and body can be reported.
func NewRetryableHTTPClient(config *RetryConfig, timeout time.Duration) *http.Client {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = config.MaxRetries
	rc.RetryWaitMin = config.BaseDelay
	rc.RetryWaitMax = config.MaxDelay
	rc.CheckRetry = retryPolicy
	rc.Backoff = retryablehttp.DefaultBackoff
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = nil

	httpClient := rc.StandardClient()
	httpClient.Timeout = timeout
	return httpClient
}
