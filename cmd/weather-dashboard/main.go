package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-dashboard/internal/app"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/logging"
)

// Injected at build time.
var version = "dev"

const appName = "weather-dashboard"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Temperature and humidity dashboard",
		Long:          "Fetches per-day temperature and humidity readings from a readings server and serves them, with rendered charts, on a local API.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger := logging.New(cfg, version, appName)

			err = app.Run(cmd.Context(), cfg, logger)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	root.PersistentFlags().String("base-url", "", "readings server base URL (env REMOTE_BASE_URL)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")
	root.Flags().String("addr", "", "local API listen address (env HTTP_ADDR)")
	root.Flags().Duration("refresh-interval", 0, "automatic refresh interval, 0 disables (env REFRESH_INTERVAL)")

	root.AddCommand(newDatesCmd(), newRenderCmd())
	return root
}
