package store

import (
	"sync"
	"time"

	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/pkg/types"
)

// Entry is a sample together with the time it was received.
type Entry struct {
	Sample    types.Sample
	UpdatedAt time.Time
}

// Store is a thread-safe holder for the most recent externally supplied
// sample. Readings older than maxAge are treated as absent.
type Store struct {
	mu      sync.RWMutex
	latest  *Entry
	updates uint64
	maxAge  time.Duration
	now     func() time.Time // injectable for deterministic tests
}

// New creates a Store. A maxAge of zero means readings never go stale.
func New(maxAge time.Duration) *Store {
	return &Store{
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Put replaces the held sample.
func (s *Store) Put(sample types.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &Entry{
		Sample:    sample,
		UpdatedAt: s.now(),
	}
	s.updates++
}

// Latest returns the held entry and true if there is one and it is not
// older than maxAge.
func (s *Store) Latest() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Entry{}, false
	}
	if s.maxAge > 0 && s.now().Sub(s.latest.UpdatedAt) > s.maxAge {
		return Entry{}, false
	}
	return *s.latest, true
}

// Updates returns how many samples have been stored since creation.
func (s *Store) Updates() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updates
}

// MaxAge returns the configured staleness bound.
func (s *Store) MaxAge() time.Duration {
	return s.maxAge
}
