// Package external wraps outbound HTTP calls to forecast publishers. Every
// call goes through Client, which applies a circuit breaker, retries 429 and
// 5xx responses with jittered exponential backoff, and maps failures to
// types.AppError.
package external

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"sunpump/internal/types"
)

// RetryPolicy configures retry behavior.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy returns the defaults used for forecast downloads.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		MinWait:    500 * time.Millisecond,
		MaxWait:    10 * time.Second,
	}
}

// Client is a resilient HTTP client for idempotent GET requests.
type Client struct {
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	retry     RetryPolicy
	userAgent string
	sleepFn   func(time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithSleepFunc overrides the sleep between retries. Intended for tests.
func WithSleepFunc(fn func(time.Duration)) Option {
	return func(c *Client) {
		c.sleepFn = fn
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *gobreaker.CircuitBreaker[*http.Response]) Option {
	return func(c *Client) {
		c.breaker = cb
	}
}

// NewClient builds a Client whose breaker trips after more than five
// consecutive failures and half-opens after 30 seconds.
func NewClient(httpClient *http.Client, name string, retry RetryPolicy, userAgent string, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	c := &Client{
		http: httpClient,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}),
		retry:     retry,
		userAgent: userAgent,
		sleepFn:   time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues a GET for url. A 2xx response is returned with an open body
// that the caller must close. Any other outcome is returned as an AppError.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	var (
		lastStatus int
		lastErr    error
	)

	attempts := 1 + c.retry.MaxRetries
	for attempt := 0; attempt < attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeValidationInvalidSource, "invalid forecast URL", err)
		}
		if id := types.GetRequestID(ctx); id != "" {
			req.Header.Set("X-Request-Id", id)
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, doErr := c.http.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
				return r, fmt.Errorf("upstream returned %d", r.StatusCode)
			}
			return r, nil
		})

		if err == nil {
			if resp.StatusCode >= 300 {
				resp.Body.Close()
				return nil, types.NewAppErrorWithDetails(
					types.ErrCodeUpstreamForecast,
					fmt.Sprintf("forecast source returned %d", resp.StatusCode),
					nil,
					map[string]any{"status": resp.StatusCode},
				)
			}
			return resp, nil
		}

		lastErr = err
		lastStatus = 0
		var wait time.Duration
		if resp != nil {
			lastStatus = resp.StatusCode
			wait = c.backoff(attempt, resp.Header.Get("Retry-After"))
			resp.Body.Close()
		} else {
			wait = c.backoff(attempt, "")
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if attempt < attempts-1 {
			c.sleepFn(wait)
		}
	}

	return nil, c.mapError(lastStatus, lastErr)
}

// backoff honors Retry-After (seconds) and otherwise uses exponential
// backoff with jitter within [MinWait, MaxWait].
func (c *Client) backoff(attempt int, retryAfter string) time.Duration {
	if s, err := strconv.Atoi(retryAfter); err == nil && s > 0 {
		return min(time.Duration(s)*time.Second, c.retry.MaxWait)
	}

	ceiling := math.Min(float64(c.retry.MinWait)*math.Pow(2, float64(attempt)), float64(c.retry.MaxWait))
	floor := float64(c.retry.MinWait)
	if ceiling <= floor {
		return c.retry.MinWait
	}
	return time.Duration(floor + rand.Float64()*(ceiling-floor))
}

func (c *Client) mapError(status int, err error) *types.AppError {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.NewAppError(types.ErrCodeUpstreamRateLimited, "forecast source circuit breaker is open", err)
	}
	if status == http.StatusTooManyRequests {
		return types.NewAppError(types.ErrCodeUpstreamRateLimited, "forecast source rate limit exceeded", err)
	}
	if status != 0 {
		return types.NewAppError(types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("forecast source returned %d after retries", status), err)
	}
	return types.NewAppError(types.ErrCodeUpstreamForecast, "forecast source request failed", err)
}
