package weather

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimeOffset is the elapsed time since midnight UTC of the reading's day.
// Valid values lie in [0, 24h).
type TimeOffset time.Duration

// Day is the exclusive upper bound of a TimeOffset.
const Day = TimeOffset(24 * time.Hour)

// Duration returns the offset as a time.Duration.
func (o TimeOffset) Duration() time.Duration {
	return time.Duration(o)
}

// Hours returns the offset as fractional hours, the unit charts plot on the x axis.
func (o TimeOffset) Hours() float64 {
	return time.Duration(o).Hours()
}

// String formats the offset as HH:MM:SS, followed by the fraction of a second
// when there is one.
func (o TimeOffset) String() string {
	d := time.Duration(o)
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	out := fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	if frac := d % time.Second; frac != 0 {
		out += strings.TrimRight(fmt.Sprintf(".%09d", int64(frac)), "0")
	}
	return out
}

// MarshalJSON encodes the offset in its String form, without loss of precision.
func (o TimeOffset) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// SeriesPoint pairs a time of day with a measured value.
type SeriesPoint struct {
	Offset TimeOffset `json:"offset"`
	Value  float32    `json:"value"`
}

// WeatherSnapshot is one day's temperature and humidity series, in the order
// the server returned the readings.
type WeatherSnapshot struct {
	Temperature []SeriesPoint `json:"temperature"`
	Humidity    []SeriesPoint `json:"humidity"`
}

// Empty reports whether the snapshot holds no points at all.
func (s WeatherSnapshot) Empty() bool {
	return len(s.Temperature) == 0 && len(s.Humidity) == 0
}

// Clone returns a deep copy so the receiver can be handed to another goroutine.
func (s WeatherSnapshot) Clone() WeatherSnapshot {
	return WeatherSnapshot{
		Temperature: append([]SeriesPoint(nil), s.Temperature...),
		Humidity:    append([]SeriesPoint(nil), s.Humidity...),
	}
}

// DateEntry is an option of the date selector.
type DateEntry struct {
	Label string `json:"label"` // MM/DD/YYYY
	Key   string `json:"key"`   // YYYYMMDD
}

// Delivery is the result of one refresh, handed from the fetching goroutine to
// the state owner. Exactly one of Snapshot or Err is meaningful.
type Delivery struct {
	Seq      uint64          `json:"seq"`
	ID       uuid.UUID       `json:"id"`
	DateKey  string          `json:"date"`
	Snapshot WeatherSnapshot `json:"snapshot"`
	Err      error           `json:"-"`
	Finished time.Time       `json:"finished"`
}
