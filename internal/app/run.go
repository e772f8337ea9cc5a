package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/render"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/state"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/remote"
)

const appName = "weather-dashboard"

// NewRemoteClient builds the readings server client from configuration.
func NewRemoteClient(cfg *config.AppConfig, logger *slog.Logger) (*remote.Client, error) {
	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	return remote.NewClient(httpClient, remote.Config{
		BaseURL: cfg.RemoteBaseURL,
		Backoff: remote.BackoffConfig{
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: cfg.RetryInitial,
			MaxInterval:     cfg.RetryMax,
		},
		Breaker: remote.BreakerConfig{
			MaxRequests:      5,
			Interval:         cfg.BreakerInterval,
			Timeout:          cfg.BreakerTimeout,
			FailureThreshold: cfg.BreakerThreshold,
		},
	}, logger.With("component", "remote"))
}

// NewService builds the refresh coordinator from configuration.
func NewService(cfg *config.AppConfig, source weather.Source, logger *slog.Logger) *weather.Service {
	return weather.NewService(source, weather.ServiceConfig{
		FetchTimeout:     cfg.FetchTimeout,
		MaxInFlight:      cfg.MaxInFlight,
		CancelSuperseded: cfg.CancelSuperseded,
	}, logger.With("component", "refresh"))
}

// ChartOptions returns the configured chart size.
func ChartOptions(cfg *config.AppConfig) render.Options {
	return render.Options{Width: cfg.ChartWidth, Height: cfg.ChartHeight}
}

// Run starts the state loop, the initial refresh, the scheduler and the local
// API, and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel,
		"httpAddr", cfg.HTTPAddr,
		"remoteBaseURL", cfg.RemoteBaseURL,
		"refreshInterval", cfg.RefreshInterval,
		"maxInFlight", cfg.MaxInFlight,
		"cancelSuperseded", cfg.CancelSuperseded,
	)

	client, err := NewRemoteClient(cfg, logger)
	if err != nil {
		return err
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, cfg.HTTPTimeout)
	if err := client.Ping(pingCtx); err != nil {
		logger.Warn("readings server not reachable (continuing)", "error", err)
	}
	pingCancel()

	service := NewService(cfg, client, logger)

	// In-memory cache of fetched days with configured retention.
	cache := store.NewMemoryStore(cfg.CacheMaxDates, cfg.CacheMaxAge)

	loopCtx, stopLoop := context.WithCancel(context.Background())
	loop := state.NewLoop(cfg.EventBuffer, logger.With("component", "state"))
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = loop.Run(loopCtx)
	}()

	// Refreshes end with ctx, or earlier when the API fails to start.
	refreshCtx, cancelRefresh := context.WithCancel(ctx)
	defer cancelRefresh()

	controller := state.NewController(refreshCtx, loop, service, cache, logger.With("component", "controller"))
	controller.Start(refreshCtx)

	sched := scheduler.New(cfg.RefreshInterval, controller, logger.With("component", "scheduler"))
	if err := sched.Start(); err != nil {
		cancelRefresh()
		service.Wait()
		stopLoop()
		<-loopDone
		return err
	}

	api := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	api.Use(fiberlogger.New())
	api.Use(recover.New())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	httpapi.RegisterRoutes(api, controller, ChartOptions(cfg))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- api.Listen(cfg.HTTPAddr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("http shutting down")
	if err := api.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}

	// No tick may start a refresh once in-flight ones are drained.
	sched.Stop()
	cancelRefresh()
	service.Wait()
	stopLoop()
	<-loopDone

	return runErr
}
