package weather

import "math"

// Bounds returned by FindExtremes for an empty series. The range is inverted
// and must not be used to scale an axis.
const (
	EmptyRangeMin float32 = 1000
	EmptyRangeMax float32 = -1000
)

// FindExtremes returns the floor of the smallest and the ceiling of the largest
// value in series, so the integer range always encloses every point.
func FindExtremes(series []SeriesPoint) (lo, hi float32) {
	if len(series) == 0 {
		return EmptyRangeMin, EmptyRangeMax
	}

	lo, hi = series[0].Value, series[0].Value
	for _, p := range series[1:] {
		if p.Value < lo {
			lo = p.Value
		}
		if p.Value > hi {
			hi = p.Value
		}
	}

	return float32(math.Floor(float64(lo))), float32(math.Ceil(float64(hi)))
}
