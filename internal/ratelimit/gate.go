// Package ratelimit holds the process-wide backoff gate that stops callers from hitting
// the plan generator while it is rate limited.
package ratelimit

import (
	"sync"
	"time"
)

// Gate is closed from the moment it is tripped until the backoff deadline passes.
// Safe for concurrent use.
type Gate struct {
	mu    sync.Mutex
	until time.Time
	now   func() time.Time
}

var (
	sharedOnce sync.Once
	shared     *Gate
)

// Shared returns the process-wide gate
func Shared() *Gate {
	sharedOnce.Do(func() { shared = New() })
	return shared
}

// New creates an open gate
func New() *Gate {
	return &Gate{now: time.Now}
}

// NewWithClock creates a gate driven by the given clock, for tests
func NewWithClock(now func() time.Time) *Gate {
	return &Gate{now: now}
}

// TryAcquire reports whether a call may go ahead right now
func (g *Gate) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.now().Before(g.until)
}

// Trip closes the gate for d. A shorter trip never shortens an existing backoff.
func (g *Gate) Trip(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	deadline := g.now().Add(d)
	if deadline.After(g.until) {
		g.until = deadline
	}
}

// Until returns the time the gate reopens; zero if it was never tripped
func (g *Gate) Until() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.until
}

// Remaining returns how long until the gate reopens, zero if open
func (g *Gate) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if d := g.until.Sub(g.now()); d > 0 {
		return d
	}
	return 0
}
