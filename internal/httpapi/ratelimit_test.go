// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package httpapi

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	defer goleak.VerifyNone(t)

	rl := NewRateLimiter(RateLimiterConfig{BurstCapacity: -1, SustainedRate: 0})
	defer rl.Close()

	assert.Equal(t, DefaultBurstCapacity, rl.burstCapacity)
	assert.Equal(t, DefaultSustainedRate, rl.sustainedRate)
	assert.Equal(t, DefaultBucketMaxAge, rl.maxAge)
}

func TestNewRateLimiter_ClampsTinyRate(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{SustainedRate: 0.0001})
	defer rl.Close()
	assert.Equal(t, MinSustainedRate, rl.sustainedRate)
}

func TestRateLimiter_Allow(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newTestClock()
	rl := NewRateLimiter(RateLimiterConfig{BurstCapacity: 2, SustainedRate: 1, Now: clock.Now})
	defer rl.Close()

	t.Run("burst is allowed", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			ok, wait := rl.Allow("10.0.0.1")
			assert.True(t, ok)
			assert.Zero(t, wait)
		}
	})

	t.Run("empty bucket reports the wait", func(t *testing.T) {
		ok, wait := rl.Allow("10.0.0.1")
		assert.False(t, ok)
		assert.Equal(t, time.Second, wait)
	})

	t.Run("other keys are independent", func(t *testing.T) {
		ok, _ := rl.Allow("10.0.0.2")
		assert.True(t, ok)
	})

	t.Run("tokens refill over time", func(t *testing.T) {
		clock.Advance(time.Second)
		ok, _ := rl.Allow("10.0.0.1")
		assert.True(t, ok)
		ok, _ = rl.Allow("10.0.0.1")
		assert.False(t, ok)
	})

	t.Run("refill is capped at the burst", func(t *testing.T) {
		clock.Advance(time.Hour)
		for i := 0; i < 2; i++ {
			ok, _ := rl.Allow("10.0.0.1")
			assert.True(t, ok)
		}
		ok, _ := rl.Allow("10.0.0.1")
		assert.False(t, ok)
	})
}

func TestRateLimiter_Cleanup(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newTestClock()
	var sizes []int
	rl := NewRateLimiter(RateLimiterConfig{
		Now:    clock.Now,
		OnSize: func(n int) { sizes = append(sizes, n) },
	})
	defer rl.Close()

	rl.Allow("old")
	clock.Advance(30 * time.Minute)
	rl.Allow("fresh")
	clock.Advance(45 * time.Minute)

	rl.Cleanup(time.Hour)

	assert.Equal(t, 1, rl.Len())
	assert.Equal(t, []int{1}, sizes)
}

func TestRateLimiter_BackgroundCleanup(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newTestClock()
	var reported atomic.Int64
	reported.Store(-1)
	rl := NewRateLimiter(RateLimiterConfig{
		CleanupInterval: 5 * time.Millisecond,
		BucketMaxAge:    time.Minute,
		Now:             clock.Now,
		OnSize:          func(n int) { reported.Store(int64(n)) },
	})
	defer rl.Close()

	rl.Allow("10.0.0.1")
	require.Equal(t, 1, rl.Len())
	clock.Advance(2 * time.Minute)

	require.Eventually(t, func() bool {
		return rl.Len() == 0 && reported.Load() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestRateLimiter_CloseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	rl := NewRateLimiter(RateLimiterConfig{})
	rl.Close()
	assert.NotPanics(t, rl.Close)
}
