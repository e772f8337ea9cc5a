package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

// ServiceConfig bounds the background work a Service may run.
type ServiceConfig struct {
	// FetchTimeout caps a single refresh (0 = no timeout).
	FetchTimeout time.Duration
	// MaxInFlight caps concurrently running refreshes (<= 0 means 1).
	MaxInFlight int64
	// CancelSuperseded aborts the previous in-flight refresh when a new one is issued.
	CancelSuperseded bool
}

// Service orchestrates refresh cycles against a Source. Every refresh runs on
// its own goroutine and hands its result to the caller-supplied deliver func.
type Service struct {
	source Source
	cfg    ServiceConfig
	logger *slog.Logger

	sem *semaphore.Weighted
	seq atomic.Uint64

	mu         sync.Mutex
	cancelPrev context.CancelFunc

	wg sync.WaitGroup
}

// NewService creates a new Service.
func NewService(source Source, cfg ServiceConfig, logger *slog.Logger) *Service {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source: source,
		cfg:    cfg,
		logger: logger,
		sem:    semaphore.NewWeighted(cfg.MaxInFlight),
	}
}

// Refresh schedules a fetch of dateKey's readings and returns its sequence
// number right away. deliver is called at most once, from the background
// goroutine, with either the built snapshot or the error that stopped it.
// Refreshes that end because their context was cancelled (superseded by a
// newer refresh, or shutdown) are dropped without a delivery.
func (s *Service) Refresh(ctx context.Context, dateKey string, deliver func(Delivery)) uint64 {
	seq := s.seq.Inc()

	var (
		fetchCtx context.Context
		cancel   context.CancelFunc
	)
	if s.cfg.FetchTimeout > 0 {
		fetchCtx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
	} else {
		fetchCtx, cancel = context.WithCancel(ctx)
	}

	s.mu.Lock()
	if s.cfg.CancelSuperseded && s.cancelPrev != nil {
		s.cancelPrev()
	}
	s.cancelPrev = cancel
	s.mu.Unlock()

	id := uuid.New()
	logger := s.logger.With("seq", seq, "refresh", id.String(), "date", dateKey)
	logger.Debug("refresh scheduled")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		started := time.Now()
		d := Delivery{Seq: seq, ID: id, DateKey: dateKey}
		d.Snapshot, d.Err = s.fetch(fetchCtx, dateKey)
		d.Finished = time.Now().UTC()

		if d.Err != nil {
			if errors.Is(d.Err, context.Canceled) {
				logger.Debug("refresh cancelled", "error", d.Err)
				return
			}
			logger.Warn("refresh failed", "error", d.Err, "elapsed", time.Since(started))
		} else {
			logger.Info("refresh completed",
				"points", len(d.Snapshot.Temperature),
				"elapsed", time.Since(started),
			)
		}

		deliver(d)
	}()

	return seq
}

func (s *Service) fetch(ctx context.Context, dateKey string) (WeatherSnapshot, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return WeatherSnapshot{}, err
	}
	defer s.sem.Release(1)

	readings, err := s.source.FetchReadings(ctx, dateKey)
	if err != nil {
		return WeatherSnapshot{}, fmt.Errorf("fetch readings for %s: %w", dateKey, err)
	}

	snapshot, err := BuildSeries(readings)
	if err != nil {
		return WeatherSnapshot{}, fmt.Errorf("build series for %s: %w", dateKey, err)
	}
	return snapshot, nil
}

// LatestDate returns the key of the newest day the server has readings for.
func (s *Service) LatestDate(ctx context.Context) (string, error) {
	key, err := s.source.FetchLatestDate(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch latest date: %w", err)
	}
	return key, nil
}

// Dates returns the selectable days.
func (s *Service) Dates(ctx context.Context) ([]DateEntry, error) {
	dates, err := s.source.FetchDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch dates: %w", err)
	}
	return dates, nil
}

// Wait blocks until every scheduled refresh has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}
