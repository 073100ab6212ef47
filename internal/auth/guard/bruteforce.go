// Package guard tracks failed authentication attempts per account-and-origin
// and enforces a temporary lockout once they cross a threshold. It sits
// underneath the per-route rate limits: a login can be rejected by either
// mechanism independently.
package guard

import (
	"strings"
	"time"
)

const (
	// DefaultThreshold is the failed attempts allowed before lockout.
	DefaultThreshold = 5

	// DefaultLockoutWindow is how long a locked key stays locked, measured
	// from its most recent failed attempt.
	DefaultLockoutWindow = 15 * time.Minute
)

// Status is the guard's verdict for a key.
type Status struct {
	Allowed           bool
	AttemptsRemaining int
	LockoutRemaining  time.Duration
}

// Guard enforces the lockout policy over a CounterStore.
type Guard struct {
	Store         CounterStore
	Threshold     int
	LockoutWindow time.Duration
}

// New returns a Guard with defaults applied. A nil store gets an in-memory
// one whose retention matches the lockout window, so stale counters reset
// by expiring.
func New(store CounterStore, threshold int, window time.Duration) *Guard {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if window <= 0 {
		window = DefaultLockoutWindow
	}
	if store == nil {
		store = NewMemoryStore(window)
	}
	return &Guard{
		Store:         store,
		Threshold:     threshold,
		LockoutWindow: window,
	}
}

// Key derives the counter key from the request origin and the identity being
// attempted, so lockout is scoped per account-and-source rather than global.
func Key(clientIP, identity string) string {
	return clientIP + "|" + strings.ToLower(strings.TrimSpace(identity))
}

// CheckAllowed reports whether another attempt for key may proceed.
// Already-locked callers are rejected without touching the counter.
func (g *Guard) CheckAllowed(key string, now time.Time) Status {
	rec, ok := g.Store.Get(key, now)
	if !ok {
		return Status{Allowed: true, AttemptsRemaining: g.Threshold}
	}
	return g.status(rec, now)
}

// RecordFailure bumps the counter for key and returns the resulting status;
// if this failure crossed the threshold, the returned status already
// reflects the active lockout.
func (g *Guard) RecordFailure(key string, now time.Time) Status {
	rec := g.Store.Increment(key, now)
	return g.status(rec, now)
}

// RecordSuccess wipes the record for key. Full reset, not a decrement, and
// a no-op for keys with no record.
func (g *Guard) RecordSuccess(key string) {
	g.Store.Delete(key)
}

func (g *Guard) status(rec Record, now time.Time) Status {
	if rec.Count >= g.Threshold {
		since := now.Sub(rec.LastAttempt)
		if since < g.LockoutWindow {
			return Status{
				Allowed:          false,
				LockoutRemaining: g.LockoutWindow - since,
			}
		}
		// Window elapsed; the record will expire out of the store.
		return Status{Allowed: true, AttemptsRemaining: g.Threshold}
	}

	return Status{
		Allowed:           true,
		AttemptsRemaining: g.Threshold - rec.Count,
	}
}
