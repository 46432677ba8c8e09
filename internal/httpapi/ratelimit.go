// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package httpapi

import (
	"math"
	"sync"
	"time"
)

// Default rate limiting values for the credential endpoints.
const (
	// DefaultBurstCapacity is the number of requests a client may send in a
	// burst before it is throttled.
	DefaultBurstCapacity = 5

	// DefaultSustainedRate is the refill rate in requests per second.
	DefaultSustainedRate = 0.2

	// MinSustainedRate keeps the cooldown finite.
	MinSustainedRate = 0.01

	// DefaultCleanupInterval is how often idle buckets are dropped.
	DefaultCleanupInterval = 5 * time.Minute

	// DefaultBucketMaxAge is how long an idle bucket is kept.
	DefaultBucketMaxAge = time.Hour
)

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// BurstCapacity defaults to DefaultBurstCapacity if zero or negative.
	BurstCapacity int

	// SustainedRate defaults to DefaultSustainedRate if zero or negative.
	SustainedRate float64

	CleanupInterval time.Duration
	BucketMaxAge    time.Duration

	// OnSize receives the bucket count after each cleanup. Optional.
	OnSize func(n int)

	// Now overrides time.Now in tests.
	Now func() time.Time
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// RateLimiter is a per-key token bucket limiter. Keys are client IPs.
// It is safe for concurrent use.
//
// A background goroutine drops idle buckets. Call Close to stop it.
type RateLimiter struct {
	mu            sync.Mutex
	buckets       map[string]*bucket
	burstCapacity int
	sustainedRate float64
	maxAge        time.Duration
	now           func() time.Time
	onSize        func(int)

	stopChan  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewRateLimiter creates a limiter and starts its cleanup goroutine.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	burst := cfg.BurstCapacity
	if burst <= 0 {
		burst = DefaultBurstCapacity
	}
	rate := cfg.SustainedRate
	if rate <= 0 {
		rate = DefaultSustainedRate
	}
	if rate < MinSustainedRate {
		rate = MinSustainedRate
	}
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	maxAge := cfg.BucketMaxAge
	if maxAge <= 0 {
		maxAge = DefaultBucketMaxAge
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	rl := &RateLimiter{
		buckets:       make(map[string]*bucket),
		burstCapacity: burst,
		sustainedRate: rate,
		maxAge:        maxAge,
		now:           now,
		onSize:        cfg.OnSize,
		stopChan:      make(chan struct{}),
	}

	rl.wg.Add(1)
	go rl.cleanupLoop(interval)

	return rl
}

// Allow consumes one token for key. When no token is left it returns false
// and the time until the next token is available.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(rl.burstCapacity), lastCheck: now}
		rl.buckets[key] = b
	}

	elapsed := now.Sub(b.lastCheck).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(b.tokens+elapsed*rl.sustainedRate, float64(rl.burstCapacity))
	}
	b.lastCheck = now

	if b.tokens >= 1.0 {
		b.tokens--
		return true, 0
	}

	wait := (1.0 - b.tokens) / rl.sustainedRate
	return false, time.Duration(wait * float64(time.Second))
}

// Len returns the number of tracked buckets.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Cleanup removes buckets idle for longer than maxAge.
func (rl *RateLimiter) Cleanup(maxAge time.Duration) {
	rl.mu.Lock()
	threshold := rl.now().Add(-maxAge)
	for key, b := range rl.buckets {
		if b.lastCheck.Before(threshold) {
			delete(rl.buckets, key)
		}
	}
	n := len(rl.buckets)
	rl.mu.Unlock()

	if rl.onSize != nil {
		rl.onSize(n)
	}
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	defer rl.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.Cleanup(rl.maxAge)
		}
	}
}

// Close stops the cleanup goroutine and waits for it. It is safe to call
// more than once.
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.stopChan) })
	rl.wg.Wait()
}
