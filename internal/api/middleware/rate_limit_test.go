package middleware

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(requests int, window time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(requests, window)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiterBudgetPerClient(t *testing.T) {
	rl, clock := newTestLimiter(2, time.Minute)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))

	// one token back after half a window
	clock.advance(31 * time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiterDropsIdleClients(t *testing.T) {
	rl, clock := newTestLimiter(2, time.Minute)

	for i := 0; i < 100; i++ {
		rl.Allow(fmt.Sprintf("10.0.1.%d", i))
	}
	assert.Len(t, rl.visitors, 100)

	clock.advance(30 * time.Second)
	rl.Allow("10.0.1.7")
	assert.Zero(t, rl.Sweep())

	clock.advance(30 * time.Second)
	assert.Equal(t, 99, rl.Sweep())
	assert.Len(t, rl.visitors, 1)
}

func TestRateLimiterSweepsWhileServing(t *testing.T) {
	rl, clock := newTestLimiter(1, time.Minute)

	for i := 0; i < 50; i++ {
		rl.Allow(fmt.Sprintf("10.0.2.%d", i))
	}
	assert.False(t, rl.Allow("10.0.2.0"))

	clock.advance(2 * time.Minute)
	// the next request triggers eviction and a returning client starts fresh
	assert.True(t, rl.Allow("10.0.2.0"))
	assert.Len(t, rl.visitors, 1)
}
