package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultMaxBytes = 10 << 20
	defaultTries    = 3
)

// ErrTooLarge is returned when a response body exceeds the allowed size.
var ErrTooLarge = errors.New("response too large")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

// Client performs GET requests on behalf of the adapters. Transient failures
// (network errors, 429 and 5xx) are retried with exponential backoff.
type Client struct {
	http      *http.Client
	userAgent string
	tries     uint
	minWait   time.Duration
	maxWait   time.Duration
	now       func() time.Time
}

type ClientOption func(*Client)

// WithBackoff sets the wait bounds between retries.
func WithBackoff(minWait, maxWait time.Duration) ClientOption {
	return func(c *Client) {
		c.minWait = minWait
		c.maxWait = maxWait
	}
}

// WithClock replaces the clock used for default timestamps.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates the HTTP client shared by the adapters. Every request
// carries userAgent and is bounded by timeout.
func NewClient(timeout time.Duration, userAgent string, opts ...ClientOption) *Client {
	c := &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
		tries:     defaultTries,
		minWait:   2 * time.Second,
		maxWait:   10 * time.Second,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Now returns the current time of the client clock.
func (c *Client) Now() time.Time {
	return c.now()
}

// Get returns the body of url.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	return c.get(ctx, url, defaultMaxBytes)
}

// GetLimited is Get with a custom body size limit.
func (c *Client) GetLimited(ctx context.Context, url string, limit int64) ([]byte, error) {
	return c.get(ctx, url, limit)
}

// GetJSON decodes the body of url into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	data, err := c.Get(ctx, url)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}

	return nil
}

func (c *Client) get(ctx context.Context, url string, limit int64) ([]byte, error) {
	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			statusErr := &StatusError{URL: url, Code: resp.StatusCode}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return nil, statusErr
			}
			return nil, backoff.Permanent(statusErr)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > limit {
			return nil, backoff.Permanent(fmt.Errorf("GET %s: %w", url, ErrTooLarge))
		}

		return data, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.minWait
	b.MaxInterval = c.maxWait

	return backoff.Retry(ctx, operation, backoff.WithBackOff(b), backoff.WithMaxTries(c.tries))
}
