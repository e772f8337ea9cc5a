package httpapi

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-dashboard/internal/render"
	"github.com/i474232898/weather-dashboard/internal/state"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// Dashboard is the UI-facing surface the routes drive.
type Dashboard interface {
	Refresh(dateKey string) (uint64, error)
	CurrentDate() string
	SetCurrentDate(dateKey string) (uint64, error)
	LoadDates(ctx context.Context) ([]weather.DateEntry, error)
	State() state.View
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, dash Dashboard, chartOpts render.Options) {
	v1 := app.Group("/api/v1")

	v1.Get("/state", func(c *fiber.Ctx) error {
		view := dash.State()
		return c.JSON(stateResponse{
			View:             view,
			TemperatureRange: axisRange(view.Temperature),
			HumidityRange:    axisRange(view.Humidity),
		})
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		q := dateQuery{Date: c.Query("date")}
		if q.Date != "" {
			if err := validate.Struct(q); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			seq, err := dash.SetCurrentDate(q.Date)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"seq":  seq,
				"date": q.Date,
			})
		}

		seq, err := dash.Refresh("")
		if err != nil {
			if errors.Is(err, state.ErrNoDate) {
				return fiber.NewError(fiber.StatusConflict, err.Error())
			}
			return fiber.NewError(fiber.StatusServiceUnavailable, "failed to schedule refresh")
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"seq":  seq,
			"date": dash.CurrentDate(),
		})
	})

	v1.Get("/date", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"date": dash.CurrentDate()})
	})

	v1.Put("/date", func(c *fiber.Ctx) error {
		var q dateQuery
		if err := c.BodyParser(&q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		seq, err := dash.SetCurrentDate(q.Date)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"seq":  seq,
			"date": q.Date,
		})
	})

	v1.Get("/dates", func(c *fiber.Ctx) error {
		dates, err := dash.LoadDates(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "failed to fetch dates")
		}
		return c.JSON(dates)
	})

	v1.Get("/charts/:series", func(c *fiber.Ctx) error {
		kind, err := render.ParseKind(strings.TrimSuffix(c.Params("series"), ".png"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}

		series := render.Series(dash.State().Snapshot(), kind)
		var buf bytes.Buffer
		if err := render.PNG(&buf, kind, series, chartOpts); err != nil {
			if errors.Is(err, render.ErrNotEnoughPoints) {
				return fiber.NewError(fiber.StatusNotFound, "no chart data for the selected date")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render chart")
		}

		c.Set(fiber.HeaderContentType, "image/png")
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.Send(buf.Bytes())
	})
}

// dateQuery carries a YYYYMMDD date key.
type dateQuery struct {
	Date string `json:"date" validate:"required,len=8,numeric"`
}

// axisBounds is the integer y range a chart of the series would use.
type axisBounds struct {
	Min float32 `json:"min"`
	Max float32 `json:"max"`
}

type stateResponse struct {
	state.View
	TemperatureRange *axisBounds `json:"temperatureRange"`
	HumidityRange    *axisBounds `json:"humidityRange"`
}

// axisRange is nil for empty series, whose extremes are unusable.
func axisRange(series []weather.SeriesPoint) *axisBounds {
	if len(series) == 0 {
		return nil
	}
	lo, hi := weather.FindExtremes(series)
	return &axisBounds{Min: lo, Max: hi}
}
