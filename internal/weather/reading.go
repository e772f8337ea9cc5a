package weather

import "encoding/json"

// Reading is a single measurement as served by the remote endpoint. Fields are
// pointers so that absence can be told apart from zero values.
type Reading struct {
	Timestamp   *string  `json:"timestamp"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// NewReading builds a fully populated Reading.
func NewReading(timestamp string, temperature, humidity float64) Reading {
	return Reading{
		Timestamp:   &timestamp,
		Temperature: &temperature,
		Humidity:    &humidity,
	}
}

// UnmarshalJSON accepts the older "created_on" key when "timestamp" is absent.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var wire struct {
		Timestamp   *string  `json:"timestamp"`
		CreatedOn   *string  `json:"created_on"`
		Temperature *float64 `json:"temperature"`
		Humidity    *float64 `json:"humidity"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	r.Timestamp = wire.Timestamp
	if r.Timestamp == nil {
		r.Timestamp = wire.CreatedOn
	}
	r.Temperature = wire.Temperature
	r.Humidity = wire.Humidity
	return nil
}
