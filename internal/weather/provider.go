package weather

import "context"

// Source abstracts the remote readings server.
type Source interface {
	FetchLatestDate(ctx context.Context) (string, error)
	FetchDates(ctx context.Context) ([]DateEntry, error)
	FetchReadings(ctx context.Context, dateKey string) ([]Reading, error)
}
