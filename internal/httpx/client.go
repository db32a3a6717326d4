package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// userAgent identifies this automation on every outbound call.
const userAgent = "ctb-reclassificar-cc14/1.0"

// maxAttempts bounds the automatic retry loop per request.
const maxAttempts = 5

// retryableStatus is the fixed set of transient status codes worth a retry.
var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true, // 408
	http.StatusTooManyRequests:     true, // 429
	http.StatusInternalServerError: true, // 500
	http.StatusBadGateway:          true, // 502
	http.StatusServiceUnavailable:  true, // 503
	http.StatusGatewayTimeout:      true, // 504
}

// StatusError is returned when the server answered with a non-2xx status
// that is not retryable (or retries were exhausted).
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Client wraps net/http with mandatory timeouts, exponential-backoff retry
// on transient statuses, and an optional token-bucket rate limiter.
type Client struct {
	hc      *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
	// initialInterval is overridable for tests; zero means the default 1s.
	initialInterval time.Duration
}

// New builds a client. limiter may be nil for unthrottled callers.
func New(timeout time.Duration, limiter *rate.Limiter, log zerolog.Logger) *Client {
	return &Client{
		hc:      &http.Client{Timeout: timeout},
		limiter: limiter,
		log:     log,
	}
}

// NewWithBackoffInterval is New with a custom initial backoff interval.
// Tests use a sub-millisecond interval to keep retries fast.
func NewWithBackoffInterval(timeout time.Duration, limiter *rate.Limiter, interval time.Duration, log zerolog.Logger) *Client {
	c := New(timeout, limiter, log)
	c.initialInterval = interval
	return c
}

// Do sends one request built fresh per attempt and returns the response
// body and status. Transient failures (transport errors and the retryable
// status set) are retried with exponential backoff up to maxAttempts; any
// other non-2xx status fails immediately with a StatusError.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) ([]byte, int, error) {
	bo := backoff.NewExponentialBackOff()
	if c.initialInterval > 0 {
		bo.InitialInterval = c.initialInterval
	}

	var respBody []byte
	var status int

	operation := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("building request: %w", err))
		}
		req.Header.Set("User-Agent", userAgent)
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			c.log.Warn().Err(err).Str("url", url).Msg("Transport error; will retry")
			return err
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		if retryableStatus[status] {
			c.log.Warn().Int("status", status).Str("url", url).Msg("Transient status; will retry")
			return &StatusError{StatusCode: status, Body: truncate(respBody, 200)}
		}
		if status < 200 || status >= 300 {
			return backoff.Permanent(&StatusError{StatusCode: status, Body: truncate(respBody, 200)})
		}
		return nil
	}

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, maxAttempts-1), ctx))
	if err != nil {
		return respBody, status, err
	}
	return respBody, status, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
