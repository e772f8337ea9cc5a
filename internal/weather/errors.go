package weather

import "errors"

var (
	// ErrMalformedTimestamp is returned when a timestamp is not valid RFC3339.
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	// ErrMissingField is returned when a reading lacks timestamp, temperature or humidity.
	ErrMissingField = errors.New("missing field")
	// ErrTransport covers connection failures, timeouts and unexpected status codes.
	ErrTransport = errors.New("transport error")
	// ErrDecode covers malformed JSON and bodies of an unexpected shape.
	ErrDecode = errors.New("decode error")
)
