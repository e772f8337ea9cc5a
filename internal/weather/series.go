package weather

import (
	"fmt"
	"math"
)

// BuildSeries converts readings into a snapshot. Both series have one point per
// reading and keep the input order; the server is trusted to send them sorted.
// A single bad reading fails the whole batch.
func BuildSeries(readings []Reading) (WeatherSnapshot, error) {
	snapshot := WeatherSnapshot{
		Temperature: make([]SeriesPoint, 0, len(readings)),
		Humidity:    make([]SeriesPoint, 0, len(readings)),
	}

	for i, r := range readings {
		switch {
		case r.Timestamp == nil:
			return WeatherSnapshot{}, fmt.Errorf("%w: reading %d: timestamp", ErrMissingField, i)
		case r.Temperature == nil:
			return WeatherSnapshot{}, fmt.Errorf("%w: reading %d: temperature", ErrMissingField, i)
		case r.Humidity == nil:
			return WeatherSnapshot{}, fmt.Errorf("%w: reading %d: humidity", ErrMissingField, i)
		}

		offset, err := ParseTimeOffset(*r.Timestamp)
		if err != nil {
			return WeatherSnapshot{}, fmt.Errorf("reading %d: %w", i, err)
		}

		temp, err := narrow(*r.Temperature)
		if err != nil {
			return WeatherSnapshot{}, fmt.Errorf("reading %d: temperature: %w", i, err)
		}
		hum, err := narrow(*r.Humidity)
		if err != nil {
			return WeatherSnapshot{}, fmt.Errorf("reading %d: humidity: %w", i, err)
		}

		snapshot.Temperature = append(snapshot.Temperature, SeriesPoint{Offset: offset, Value: temp})
		snapshot.Humidity = append(snapshot.Humidity, SeriesPoint{Offset: offset, Value: hum})
	}

	return snapshot, nil
}

// narrow converts a wire value to float32, rejecting values outside its range.
func narrow(v float64) (float32, error) {
	f := float32(v)
	if math.IsInf(float64(f), 0) || math.IsNaN(float64(f)) {
		return 0, fmt.Errorf("%w: value %g out of range", ErrDecode, v)
	}
	return f, nil
}
