package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var (
	// ErrNotFound is returned when no snapshot is cached for a given date.
	ErrNotFound = errors.New("no snapshot cached for date")
)

// Entry is a cached snapshot together with the time it was fetched.
type Entry struct {
	DateKey   string
	Snapshot  weather.WeatherSnapshot
	FetchedAt time.Time
}

// MemoryStore is a concurrency-safe in-memory cache of the last snapshot
// fetched per date. Nothing survives a restart.
type MemoryStore struct {
	mu sync.RWMutex

	// key: date key (YYYYMMDD)
	data map[string]Entry

	// retention configuration
	maxDates int           // max number of dates kept
	maxAge   time.Duration // optional max age of an entry

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxDates is <= 0, it is treated as unlimited.
func NewMemoryStore(maxDates int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:     make(map[string]Entry),
		maxDates: maxDates,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Save stores a snapshot for a date, replacing any previous one, and enforces retention.
func (s *MemoryStore) Save(dateKey string, snapshot weather.WeatherSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[dateKey] = Entry{
		DateKey:   dateKey,
		Snapshot:  snapshot.Clone(),
		FetchedAt: s.now(),
	}

	s.evictExpired()

	// Enforce retention by count, dropping the oldest fetches first.
	if s.maxDates > 0 && len(s.data) > s.maxDates {
		entries := make([]Entry, 0, len(s.data))
		for _, e := range s.data {
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].FetchedAt.Before(entries[j].FetchedAt)
		})
		for _, e := range entries[:len(entries)-s.maxDates] {
			delete(s.data, e.DateKey)
		}
	}
}

// Get returns the cached snapshot for a date.
func (s *MemoryStore) Get(dateKey string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[dateKey]
	if !ok || s.expired(e) {
		return Entry{}, ErrNotFound
	}
	e.Snapshot = e.Snapshot.Clone()
	return e, nil
}

// Len returns the number of cached dates, including expired ones not yet evicted.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemoryStore) expired(e Entry) bool {
	return s.maxAge > 0 && s.now().Sub(e.FetchedAt) > s.maxAge
}

// evictExpired must be called with mu held.
func (s *MemoryStore) evictExpired() {
	if s.maxAge <= 0 {
		return
	}
	for key, e := range s.data {
		if s.expired(e) {
			delete(s.data, key)
		}
	}
}
