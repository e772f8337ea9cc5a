package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// ErrNoDate is returned by Refresh when no date was given and none is selected.
var ErrNoDate = errors.New("no date selected")

// Controller is the entry point used by the UI layer: it triggers refreshes,
// binds the selected date and exposes the current View.
type Controller struct {
	ctx     context.Context
	loop    *Loop
	service *weather.Service
	cache   *store.MemoryStore
	logger  *slog.Logger
}

// NewController creates a Controller. Refreshes it schedules are bound to ctx.
// cache may be nil.
func NewController(ctx context.Context, loop *Loop, service *weather.Service, cache *store.MemoryStore, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		ctx:     ctx,
		loop:    loop,
		service: service,
		cache:   cache,
		logger:  logger,
	}
}

// Start selects the server's latest date and refreshes it. A failed lookup is
// logged and leaves the state empty.
func (c *Controller) Start(ctx context.Context) {
	key, err := c.service.LatestDate(ctx)
	if err != nil {
		c.logger.Warn("latest date lookup failed", "error", err)
		return
	}
	if _, err := c.SetCurrentDate(key); err != nil {
		c.logger.Warn("initial refresh not scheduled", "date", key, "error", err)
	}
}

// Refresh fetches dateKey, or the selected date when dateKey is empty, in the
// background and returns the refresh's sequence number.
func (c *Controller) Refresh(dateKey string) (uint64, error) {
	if dateKey == "" {
		dateKey = c.CurrentDate()
	}
	if dateKey == "" {
		return 0, ErrNoDate
	}

	seq := c.service.Refresh(c.ctx, dateKey, c.deliver)
	if err := c.loop.Post(func(s *AppState) { s.Begin(seq, dateKey) }); err != nil {
		return seq, err
	}
	return seq, nil
}

func (c *Controller) deliver(d weather.Delivery) {
	err := c.loop.Post(func(s *AppState) {
		if !s.Apply(d) {
			c.logger.Debug("stale delivery dropped", "seq", d.Seq, "date", d.DateKey)
			return
		}
		if d.Err == nil && c.cache != nil {
			c.cache.Save(d.DateKey, d.Snapshot)
		}
	})
	if err != nil {
		c.logger.Debug("delivery after shutdown dropped", "seq", d.Seq, "error", err)
	}
}

// CurrentDate returns the selected date key.
func (c *Controller) CurrentDate() string {
	return c.loop.View().CurrentDate
}

// SetCurrentDate selects dateKey and refreshes it. A cached snapshot for the
// date is shown until the refresh delivers.
func (c *Controller) SetCurrentDate(dateKey string) (uint64, error) {
	if _, err := weather.ParseDateKey(dateKey); err != nil {
		return 0, err
	}

	if c.cache != nil {
		if entry, err := c.cache.Get(dateKey); err == nil {
			if err := c.loop.Post(func(s *AppState) { s.Preview(dateKey, entry.Snapshot, entry.FetchedAt) }); err != nil {
				return 0, err
			}
		}
	}

	return c.Refresh(dateKey)
}

// LoadDates fetches the selectable dates and stores them in the state.
func (c *Controller) LoadDates(ctx context.Context) ([]weather.DateEntry, error) {
	dates, err := c.service.Dates(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.loop.Post(func(s *AppState) { s.AvailableDates = dates }); err != nil {
		return nil, fmt.Errorf("store dates: %w", err)
	}
	return dates, nil
}

// State returns the current read-only View.
func (c *Controller) State() View {
	return c.loop.View()
}

// Sync waits until every event posted so far has been applied.
func (c *Controller) Sync(ctx context.Context) error {
	return c.loop.Do(ctx, func(*AppState) {})
}
