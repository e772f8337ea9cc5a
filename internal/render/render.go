// Package render draws weather series as PNG area charts.
package render

import (
	"errors"
	"fmt"
	"io"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// ErrNotEnoughPoints is returned for series that cannot span an axis.
var ErrNotEnoughPoints = errors.New("at least two points are required to draw a chart")

// Kind selects which series of a snapshot is drawn.
type Kind string

const (
	Temperature Kind = "temperature"
	Humidity    Kind = "humidity"
)

type kindStyle struct {
	title string
	yName string
	color drawing.Color
}

var styles = map[Kind]kindStyle{
	Temperature: {title: "Temperature", yName: "Temperature[°C]", color: drawing.ColorFromHex("ef5350")},
	Humidity:    {title: "Relative Humidity", yName: "Relative Humidity[%]", color: drawing.ColorFromHex("29b6f6")},
}

// ParseKind maps a name to a Kind.
func ParseKind(name string) (Kind, error) {
	k := Kind(name)
	if _, ok := styles[k]; !ok {
		return "", fmt.Errorf("unknown series %q (allowed: temperature, humidity)", name)
	}
	return k, nil
}

// Options sizes the rendered image.
type Options struct {
	Width  int
	Height int
}

// Series returns the series of snapshot selected by kind.
func Series(snapshot weather.WeatherSnapshot, kind Kind) []weather.SeriesPoint {
	if kind == Humidity {
		return snapshot.Humidity
	}
	return snapshot.Temperature
}

// PNG draws series as an area chart. The y axis spans the integer bounds from
// weather.FindExtremes and the x axis runs from the first to the last point.
func PNG(w io.Writer, kind Kind, series []weather.SeriesPoint, opts Options) error {
	style, ok := styles[kind]
	if !ok {
		return fmt.Errorf("unknown series %q", kind)
	}
	if len(series) < 2 {
		return ErrNotEnoughPoints
	}

	lo, hi := weather.FindExtremes(series)
	if hi <= lo {
		hi = lo + 1
	}

	xs := make([]float64, len(series))
	ys := make([]float64, len(series))
	for i, p := range series {
		xs[i] = p.Offset.Hours()
		ys[i] = float64(p.Value)
	}
	if xs[len(xs)-1] <= xs[0] {
		return fmt.Errorf("%w: series does not advance in time", ErrNotEnoughPoints)
	}

	ch := chart.Chart{
		Title:      style.title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 30, Right: 30, Bottom: 10}},
		XAxis: chart.XAxis{
			Name:           "Time[hh:mm]",
			Range:          &chart.ContinuousRange{Min: xs[0], Max: xs[len(xs)-1]},
			ValueFormatter: hourFormatter,
		},
		YAxis: chart.YAxis{
			Name:  style.yName,
			Range: &chart.ContinuousRange{Min: float64(lo), Max: float64(hi)},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    style.title,
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: style.color,
					StrokeWidth: 2,
					FillColor:   style.color.WithAlpha(190),
				},
			},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %s chart: %w", kind, err)
	}
	return nil
}

func hourFormatter(v interface{}) string {
	hours, ok := v.(float64)
	if !ok {
		return ""
	}
	d := time.Duration(hours * float64(time.Hour)).Round(time.Minute)
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
