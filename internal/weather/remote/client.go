// Package remote talks to the readings server over HTTP.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

const (
	pathLatestDate = "/dates/latest"
	pathDates      = "/dates"
	pathReadings   = "/get/"
	pathPing       = "/ping"
)

// BreakerConfig configures the circuit breaker guarding the server.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// Config holds everything needed to reach the server.
type Config struct {
	BaseURL string
	Backoff BackoffConfig
	Breaker BreakerConfig
}

// Client implements weather.Source against the readings server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	backoff    BackoffConfig
	circuit    *gobreaker.CircuitBreaker
	group      singleflight.Group
	logger     *slog.Logger
}

var _ weather.Source = (*Client)(nil)

// NewClient creates a Client. httpClient carries the per-request timeout.
func NewClient(httpClient *http.Client, cfg Config, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", cfg.BaseURL)
	}
	if httpClient == nil {
		return nil, errors.New("http client not configured")
	}
	if err := cfg.Backoff.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	threshold := cfg.Breaker.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "readings-server",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		backoff:    cfg.Backoff,
		circuit:    cb,
		logger:     logger,
	}, nil
}

// FetchLatestDate returns the bare YYYYMMDD key served at /dates/latest.
func (c *Client) FetchLatestDate(ctx context.Context) (string, error) {
	v, err := c.shared(ctx, pathLatestDate, func(ctx context.Context) (interface{}, error) {
		var key string
		if err := c.getJSON(ctx, pathLatestDate, &key); err != nil {
			return nil, err
		}
		key = strings.TrimSpace(key)
		if _, err := weather.ParseDateKey(key); err != nil {
			return nil, fmt.Errorf("%w: GET %s: %w", weather.ErrDecode, pathLatestDate, err)
		}
		return key, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// FetchDates returns the days the server has readings for, in server order.
func (c *Client) FetchDates(ctx context.Context) ([]weather.DateEntry, error) {
	v, err := c.shared(ctx, pathDates, func(ctx context.Context) (interface{}, error) {
		var keys []string
		if err := c.getJSON(ctx, pathDates, &keys); err != nil {
			return nil, err
		}

		dates := make([]weather.DateEntry, 0, len(keys))
		for _, key := range keys {
			entry, err := weather.ParseDateKey(key)
			if err != nil {
				return nil, fmt.Errorf("%w: GET %s: %w", weather.ErrDecode, pathDates, err)
			}
			dates = append(dates, entry)
		}
		return dates, nil
	})
	if err != nil {
		return nil, err
	}
	// The slice may be shared with concurrent callers.
	return append([]weather.DateEntry(nil), v.([]weather.DateEntry)...), nil
}

// shared collapses concurrent lookups of key into one request. The request
// runs detached from any single caller's cancellation; each caller stops
// waiting when its own ctx ends.
func (c *Client) shared(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: GET %s: %w", weather.ErrTransport, key, ctx.Err())
	}
}

// FetchReadings returns the raw readings recorded on dateKey.
func (c *Client) FetchReadings(ctx context.Context, dateKey string) ([]weather.Reading, error) {
	var readings []weather.Reading
	if err := c.getJSON(ctx, pathReadings+url.PathEscape(dateKey), &readings); err != nil {
		return nil, err
	}
	c.logger.Debug("readings fetched", "date", dateKey, "count", len(readings))
	return readings, nil
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	var status string
	return c.getJSON(ctx, pathPing, &status)
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.get(ctx, c.baseURL+path)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", weather.ErrTransport, path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: GET %s: %w", weather.ErrDecode, path, err)
	}
	return nil
}
