package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

func newTestClient(t *testing.T, handler http.Handler, retries int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(&http.Client{Timeout: 2 * time.Second}, Config{
		BaseURL: srv.URL + "/",
		Backoff: BackoffConfig{
			MaxRetries:      retries,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
		Breaker: BreakerConfig{MaxRequests: 1, Timeout: time.Minute, FailureThreshold: 100},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}
}

func TestFetchLatestDate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/dates/latest", jsonHandler(http.StatusOK, `"20240101"`))
	c := newTestClient(t, mux, 0)

	key, err := c.FetchLatestDate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "20240101" {
		t.Fatalf("expected 20240101, got %q", key)
	}
}

func TestFetchLatestDateRejectsBadKey(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/dates/latest", jsonHandler(http.StatusOK, `"yesterday"`))
	c := newTestClient(t, mux, 0)

	_, err := c.FetchLatestDate(context.Background())
	if !errors.Is(err, weather.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestFetchDates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/dates", jsonHandler(http.StatusOK, `["20231231","20240101"]`))
	c := newTestClient(t, mux, 0)

	dates, err := c.FetchDates(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []weather.DateEntry{
		{Label: "12/31/2023", Key: "20231231"},
		{Label: "01/01/2024", Key: "20240101"},
	}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %d", len(want), len(dates))
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Fatalf("date %d: expected %+v, got %+v", i, want[i], dates[i])
		}
	}
}

func TestFetchDatesSurvivesCancelledFirstCaller(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/dates", func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(started)
		}
		<-release
		fmt.Fprint(w, `["20240101"]`)
	})
	c := newTestClient(t, mux, 0)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.FetchDates(ctxA)
		errA <- err
	}()
	<-started

	type result struct {
		dates []weather.DateEntry
		err   error
	}
	resB := make(chan result, 1)
	go func() {
		dates, err := c.FetchDates(context.Background())
		resB <- result{dates, err}
	}()
	// Give B time to join A's in-flight request.
	time.Sleep(50 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the cancelled caller to see context.Canceled, got %v", err)
	}
	close(release)

	b := <-resB
	if b.err != nil {
		t.Fatalf("unexpected error for the live caller: %v", b.err)
	}
	if len(b.dates) != 1 || b.dates[0].Key != "20240101" {
		t.Fatalf("unexpected dates %+v", b.dates)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one shared request, got %d", hits.Load())
	}
}

func TestFetchDatesDecodeErrors(t *testing.T) {
	for _, body := range []string{`{"dates":[]}`, `["2024-01-01"]`, `[20240101]`, `not json`} {
		mux := http.NewServeMux()
		mux.HandleFunc("/dates", jsonHandler(http.StatusOK, body))
		c := newTestClient(t, mux, 0)

		_, err := c.FetchDates(context.Background())
		if !errors.Is(err, weather.ErrDecode) {
			t.Fatalf("%s: expected ErrDecode, got %v", body, err)
		}
	}
}

func TestFetchReadings(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/get/20240101", jsonHandler(http.StatusOK,
		`[{"timestamp":"2024-01-01T00:00:00Z","temperature":20.0,"humidity":50.0},`+
			`{"timestamp":"2024-01-01T12:00:00Z","temperature":25.0,"humidity":40.0}]`))
	c := newTestClient(t, mux, 0)

	readings, err := c.FetchReadings(context.Background(), "20240101")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(readings))
	}
	if *readings[1].Timestamp != "2024-01-01T12:00:00Z" || *readings[1].Temperature != 25 || *readings[1].Humidity != 40 {
		t.Fatalf("unexpected reading %+v", readings[1])
	}
}

func TestFetchReadingsWrongShape(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/get/20240101", jsonHandler(http.StatusOK, `{"timestamp":"2024-01-01T00:00:00Z"}`))
	c := newTestClient(t, mux, 0)

	_, err := c.FetchReadings(context.Background(), "20240101")
	if !errors.Is(err, weather.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestTransportErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/get/20240101", jsonHandler(http.StatusNotFound, `"missing"`))
	mux.HandleFunc("/get/20240102", jsonHandler(http.StatusInternalServerError, `"boom"`))
	c := newTestClient(t, mux, 0)

	for _, key := range []string{"20240101", "20240102"} {
		_, err := c.FetchReadings(context.Background(), key)
		if !errors.Is(err, weather.ErrTransport) {
			t.Fatalf("%s: expected ErrTransport, got %v", key, err)
		}
	}
}

func TestConnectionRefusedIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(&http.Client{Timeout: time.Second}, Config{BaseURL: url}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = c.FetchLatestDate(context.Background())
	if !errors.Is(err, weather.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestNoRetryByDefault(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}), 0)

	if _, err := c.FetchReadings(context.Background(), "20240101"); err == nil {
		t.Fatalf("expected error")
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", hits.Load())
	}
}

func TestRetriesServerErrorsWhenConfigured(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `[]`)
	}), 3)

	readings, err := c.FetchReadings(context.Background(), "20240101")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(readings) != 0 || hits.Load() != 3 {
		t.Fatalf("expected success on third attempt, got %d readings after %d hits", len(readings), hits.Load())
	}
}

func TestCircuitOpensAfterFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(&http.Client{Timeout: time.Second}, Config{
		BaseURL: srv.URL,
		Breaker: BreakerConfig{MaxRequests: 1, Timeout: time.Minute, FailureThreshold: 2},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 4; i++ {
		_, err = c.FetchReadings(context.Background(), "20240101")
		if !errors.Is(err, weather.ErrTransport) {
			t.Fatalf("attempt %d: expected ErrTransport, got %v", i, err)
		}
	}
	if !errors.Is(err, errCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected the server to see 2 requests, got %d", hits.Load())
	}
}

func TestCancelledContextIsNotCountedAsFailure(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(&http.Client{Timeout: time.Second}, Config{
		BaseURL: srv.URL,
		Breaker: BreakerConfig{Timeout: time.Minute, FailureThreshold: 1},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	_, err = c.FetchReadings(ctx, "20240101")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if state := c.circuit.State().String(); state != "closed" {
		t.Fatalf("expected closed circuit, got %s", state)
	}
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	for _, u := range []string{"", "ftp://example.com", "::"} {
		if _, err := NewClient(http.DefaultClient, Config{BaseURL: u}, nil); err == nil {
			t.Fatalf("%q: expected error", u)
		}
	}
}

func TestPing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", jsonHandler(http.StatusOK, `"OK"`))
	c := newTestClient(t, mux, 0)

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBackoffDelay(t *testing.T) {
	b := BackoffConfig{MaxRetries: 5, InitialInterval: 100 * time.Millisecond, MaxInterval: 350 * time.Millisecond}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 350 * time.Millisecond, 350 * time.Millisecond}
	for attempt, w := range want {
		if got := b.delay(attempt); got != w {
			t.Fatalf("attempt %d: expected %v, got %v", attempt, w, got)
		}
	}

	if err := (BackoffConfig{MaxRetries: 2}).validate(); !errors.Is(err, errInvalidBackoff) {
		t.Fatalf("expected errInvalidBackoff, got %v", err)
	}
}
