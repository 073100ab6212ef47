package guard

import (
	"sync"
	"time"
)

// Record is the per-key failed-attempt counter.
type Record struct {
	Count        int
	FirstAttempt time.Time
	LastAttempt  time.Time
}

// CounterStore is the failed-attempt bookkeeping behind the guard. The
// in-process MemoryStore is the default; a deployment that needs lockout
// state shared across instances swaps in an implementation backed by a
// shared cache without touching the guard.
//
// Records expire on their own: a record whose last attempt is older than the
// store's retention is gone, which is what resets stale counters.
type CounterStore interface {
	// Get returns the live record for key, if any.
	Get(key string, now time.Time) (Record, bool)

	// Increment bumps the counter (starting a fresh record if none is
	// live) and returns the updated record.
	Increment(key string, now time.Time) Record

	// Delete removes the record entirely. Deleting a missing key is a no-op.
	Delete(key string)
}

// MemoryStore is a mutex-guarded in-process CounterStore.
type MemoryStore struct {
	mu        sync.Mutex
	retention time.Duration
	records   map[string]Record
	lastSweep time.Time
}

// NewMemoryStore creates a store whose records live for retention past
// their last attempt.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	return &MemoryStore{
		retention: retention,
		records:   make(map[string]Record),
		lastSweep: time.Now(),
	}
}

func (s *MemoryStore) Get(key string, now time.Time) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || s.expired(rec, now) {
		return Record{}, false
	}
	return rec, true
}

func (s *MemoryStore) Increment(key string, now time.Time) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || s.expired(rec, now) {
		rec = Record{FirstAttempt: now}
	}
	rec.Count++
	rec.LastAttempt = now
	s.records[key] = rec

	s.maybeSweep(now)
	return rec
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
}

func (s *MemoryStore) expired(rec Record, now time.Time) bool {
	return now.Sub(rec.LastAttempt) >= s.retention
}

// maybeSweep drops expired records so keys from one-off probes don't
// accumulate forever. Called with the lock held.
func (s *MemoryStore) maybeSweep(now time.Time) {
	if now.Sub(s.lastSweep) < 5*time.Minute {
		return
	}
	s.lastSweep = now

	for key, rec := range s.records {
		if s.expired(rec, now) {
			delete(s.records, key)
		}
	}
}
