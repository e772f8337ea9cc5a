package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-dashboard/internal/app"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/logging"
	"github.com/i474232898/weather-dashboard/internal/render"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

func newDatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dates",
		Short: "List the days the readings server has data for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger := logging.New(cfg, version, appName)

			client, err := app.NewRemoteClient(cfg, logger)
			if err != nil {
				return err
			}
			dates, err := client.FetchDates(cmd.Context())
			if err != nil {
				return err
			}
			for _, d := range dates {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", d.Key, d.Label)
			}
			return nil
		},
	}
}

func newRenderCmd() *cobra.Command {
	var (
		date   string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Fetch one day and write its temperature and humidity charts as PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger := logging.New(cfg, version, appName)

			client, err := app.NewRemoteClient(cfg, logger)
			if err != nil {
				return err
			}
			if date == "" {
				if date, err = client.FetchLatestDate(cmd.Context()); err != nil {
					return err
				}
			}
			if _, err := weather.ParseDateKey(date); err != nil {
				return err
			}

			readings, err := client.FetchReadings(cmd.Context(), date)
			if err != nil {
				return err
			}
			snapshot, err := weather.BuildSeries(readings)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			for _, kind := range []render.Kind{render.Temperature, render.Humidity} {
				path := filepath.Join(outDir, fmt.Sprintf("%s_%s.png", date, kind))
				if err := writeChart(path, kind, render.Series(snapshot, kind), app.ChartOptions(cfg)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to render as YYYYMMDD (default: latest)")
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	return cmd
}

func writeChart(path string, kind render.Kind, series []weather.SeriesPoint, opts render.Options) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return render.PNG(f, kind, series, opts)
}
