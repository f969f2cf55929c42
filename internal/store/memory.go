package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-widget/internal/weather"
)

// ErrNotFound is returned when no forecast was fetched in the requested range.
var ErrNotFound = errors.New("no forecast data")

// MemoryStore keeps the history of successfully fetched forecasts in memory,
// ordered by fetch time. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	history []weather.ForecastSnapshot

	maxHistory int           // <= 0 keeps every snapshot
	maxAge     time.Duration // <= 0 disables age-based pruning
	now        func() time.Time
}

// NewMemoryStore creates a MemoryStore with the given retention limits.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveSnapshot records a fetched forecast. Snapshots saved out of order are
// inserted at their fetch time.
func (s *MemoryStore) SaveSnapshot(snapshot weather.ForecastSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.history), func(i int) bool {
		return s.history[i].FetchedAt.After(snapshot.FetchedAt)
	})
	s.history = append(s.history, weather.ForecastSnapshot{})
	copy(s.history[i+1:], s.history[i:])
	s.history[i] = snapshot

	s.prune()
}

// prune drops snapshots beyond the count limit and older than maxAge. The
// newest snapshot always survives. Callers hold the write lock.
func (s *MemoryStore) prune() {
	drop := 0
	if s.maxHistory > 0 && len(s.history) > s.maxHistory {
		drop = len(s.history) - s.maxHistory
	}
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		for drop < len(s.history)-1 && s.history[drop].FetchedAt.Before(cutoff) {
			drop++
		}
	}
	if drop > 0 {
		s.history = append([]weather.ForecastSnapshot(nil), s.history[drop:]...)
	}
}

// GetLatest returns the most recently fetched forecast.
func (s *MemoryStore) GetLatest() (weather.ForecastSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.history) == 0 {
		return weather.ForecastSnapshot{}, ErrNotFound
	}
	return s.history[len(s.history)-1], nil
}

// GetRange returns the forecasts fetched between from and to, both inclusive.
func (s *MemoryStore) GetRange(from, to time.Time) ([]weather.ForecastSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo := sort.Search(len(s.history), func(i int) bool {
		return !s.history[i].FetchedAt.Before(from)
	})
	hi := sort.Search(len(s.history), func(i int) bool {
		return s.history[i].FetchedAt.After(to)
	})
	if lo >= hi {
		return nil, ErrNotFound
	}
	return append([]weather.ForecastSnapshot(nil), s.history[lo:hi]...), nil
}

// Len returns the number of retained snapshots.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}
