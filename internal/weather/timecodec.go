package weather

import (
	"fmt"
	"time"
)

// ParseTimeOffset parses an RFC3339 instant and returns its time of day in UTC.
func ParseTimeOffset(timestamp string) (TimeOffset, error) {
	ts, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedTimestamp, timestamp, err)
	}
	ts = ts.UTC()

	midnight := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	offset := TimeOffset(ts.Sub(midnight))
	if offset < 0 || offset >= Day {
		return 0, fmt.Errorf("%w: %q: offset %v out of range", ErrMalformedTimestamp, timestamp, offset.Duration())
	}
	return offset, nil
}
