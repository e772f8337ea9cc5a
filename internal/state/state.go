// Package state owns the observable application state. All mutations happen on
// a single Loop goroutine; other goroutines only post events or read the
// published View.
package state

import (
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Status is the observable fetch status.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusFetching Status = "fetching"
	StatusFailed   Status = "failed"
)

// AppState is the mutable state. Only events running on the Loop may touch it.
type AppState struct {
	CurrentDate    string
	SeriesDate     string
	Temperature    []weather.SeriesPoint
	Humidity       []weather.SeriesPoint
	AvailableDates []weather.DateEntry
	RefreshID      string
	UpdatedAt      time.Time

	failure string
	issued  uint64
	applied uint64
}

// View is an immutable copy of AppState handed to readers. Series and date
// slices are replaced, never modified in place, so Views may share them.
type View struct {
	Status         Status                `json:"status"`
	Reason         string                `json:"reason,omitempty"`
	Processing     bool                  `json:"processing"`
	CurrentDate    string                `json:"currentDate"`
	SeriesDate     string                `json:"seriesDate"`
	Temperature    []weather.SeriesPoint `json:"temperature"`
	Humidity       []weather.SeriesPoint `json:"humidity"`
	AvailableDates []weather.DateEntry   `json:"availableDates"`
	Seq            uint64                `json:"seq"`
	RefreshID      string                `json:"refreshId,omitempty"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

// Snapshot returns the series of the view as a WeatherSnapshot.
func (v View) Snapshot() weather.WeatherSnapshot {
	return weather.WeatherSnapshot{Temperature: v.Temperature, Humidity: v.Humidity}
}

// Processing reports whether a refresh newer than the displayed data is in flight.
func (s *AppState) Processing() bool {
	return s.issued > s.applied
}

// Status derives the observable status.
func (s *AppState) Status() Status {
	switch {
	case s.Processing():
		return StatusFetching
	case s.failure != "":
		return StatusFailed
	default:
		return StatusIdle
	}
}

// Begin records that refresh seq for dateKey has been issued.
func (s *AppState) Begin(seq uint64, dateKey string) {
	if seq > s.issued {
		s.issued = seq
		s.CurrentDate = dateKey
	}
}

// Apply swaps in the result of a refresh. Deliveries older than the last
// applied one are stale and ignored; Apply reports whether d was applied.
// A failed delivery keeps the previous series on display.
func (s *AppState) Apply(d weather.Delivery) bool {
	if d.Seq <= s.applied {
		return false
	}
	s.applied = d.Seq
	if d.Seq > s.issued {
		s.issued = d.Seq
		s.CurrentDate = d.DateKey
	}

	s.RefreshID = d.ID.String()
	s.UpdatedAt = d.Finished
	if d.Err != nil {
		s.failure = d.Err.Error()
		return true
	}

	s.failure = ""
	s.SeriesDate = d.DateKey
	s.Temperature = d.Snapshot.Temperature
	s.Humidity = d.Snapshot.Humidity
	return true
}

// Preview shows a cached snapshot for dateKey while a refresh is pending.
func (s *AppState) Preview(dateKey string, snapshot weather.WeatherSnapshot, fetchedAt time.Time) {
	s.SeriesDate = dateKey
	s.Temperature = snapshot.Temperature
	s.Humidity = snapshot.Humidity
	s.UpdatedAt = fetchedAt
}

func (s *AppState) view() View {
	return View{
		Status:         s.Status(),
		Reason:         s.failure,
		Processing:     s.Processing(),
		CurrentDate:    s.CurrentDate,
		SeriesDate:     s.SeriesDate,
		Temperature:    s.Temperature,
		Humidity:       s.Humidity,
		AvailableDates: s.AvailableDates,
		Seq:            s.applied,
		RefreshID:      s.RefreshID,
		UpdatedAt:      s.UpdatedAt,
	}
}
