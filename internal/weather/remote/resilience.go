package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// BackoffConfig controls retries of failed requests. MaxRetries of 0 means a
// single attempt.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (b BackoffConfig) validate() error {
	if b.MaxRetries < 0 {
		return fmt.Errorf("%w: negative retries", errInvalidBackoff)
	}
	if b.MaxRetries > 0 && b.InitialInterval <= 0 {
		return fmt.Errorf("%w: retries need a positive initial interval", errInvalidBackoff)
	}
	return nil
}

// delay doubles the initial interval per attempt, capped at MaxInterval.
func (b BackoffConfig) delay(attempt int) time.Duration {
	d := b.InitialInterval << uint(attempt)
	if b.MaxInterval > 0 && (d > b.MaxInterval || d <= 0) {
		d = b.MaxInterval
	}
	return d
}

var (
	errRateLimited    = errors.New("rate limited")
	errServerError    = errors.New("server error")
	errStatus         = errors.New("unexpected status code")
	errCircuitOpen    = errors.New("circuit breaker open")
	errInvalidBackoff = errors.New("invalid backoff configuration")
)

// checkStatus maps a non-2xx response onto an error and releases its body.
func checkStatus(resp *http.Response) error {
	var err error
	switch code := resp.StatusCode; {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		err = errRateLimited
	case code >= 500:
		err = fmt.Errorf("%w: %d", errServerError, code)
	default:
		err = fmt.Errorf("%w: %d", errStatus, code)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	resp.Body.Close()
	return err
}

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	return !errors.Is(err, errStatus) && !errors.Is(err, errCircuitOpen)
}

// get issues a GET through the circuit breaker, retrying with backoff.
func (c *Client) get(ctx context.Context, target string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := c.attempt(ctx, target)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt >= c.backoff.MaxRetries || !retryable(err) {
			return nil, err
		}

		c.logger.Debug("retrying request", "url", target, "attempt", attempt+1, "error", err)
		timer := time.NewTimer(c.backoff.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) attempt(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	result, err := c.circuit.Execute(func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if err := checkStatus(resp); err != nil {
			return nil, err
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
	}
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}
