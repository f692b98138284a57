package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestGate(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	g := NewWithClock(clock.Now)

	assert.True(t, g.TryAcquire())
	assert.True(t, g.Until().IsZero())

	g.Trip(60 * time.Second)
	assert.False(t, g.TryAcquire())
	assert.Equal(t, 60*time.Second, g.Remaining())

	clock.Advance(59 * time.Second)
	assert.False(t, g.TryAcquire())

	clock.Advance(time.Second)
	assert.True(t, g.TryAcquire())
	assert.Zero(t, g.Remaining())
}

func TestGate_ShorterTripDoesNotShorten(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	g := NewWithClock(clock.Now)

	g.Trip(time.Minute)
	deadline := g.Until()
	g.Trip(time.Second)

	assert.Equal(t, deadline, g.Until())
}

func TestGate_ConcurrentUse(t *testing.T) {
	g := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				g.Trip(time.Millisecond)
			}
			_ = g.TryAcquire()
		}(i)
	}
	wg.Wait()
}

func TestShared(t *testing.T) {
	assert.Same(t, Shared(), Shared())
}
