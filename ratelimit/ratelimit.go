package ratelimit

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	MaxRequests     int           // per window; zero or less disables limiting
	WindowSize      time.Duration // sliding window length
	CleanupInterval time.Duration // how often idle keys are dropped
}

// DefaultConfig allows 100 orphan submissions per peer per second
func DefaultConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		MaxRequests:     100,
		WindowSize:      time.Second,
		CleanupInterval: 5 * time.Minute,
	}
}

// RateLimiter implements sliding window rate limiting per key
type RateLimiter struct {
	config   *RateLimiterConfig
	clock    clock.Clock
	requests map[string][]time.Time
	mu       sync.Mutex

	stopOnce    sync.Once
	stopCleanup chan struct{}
}

// NewRateLimiter starts a cleanup goroutine that lives until Stop
func NewRateLimiter(config *RateLimiterConfig, clk clock.Clock) *RateLimiter {
	if config == nil {
		config = DefaultConfig()
	}
	if clk == nil {
		clk = clock.New()
	}

	rl := &RateLimiter{
		config:      config,
		clock:       clk,
		requests:    make(map[string][]time.Time),
		stopCleanup: make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		go rl.cleanupExpiredEntries()
	}

	return rl
}

// Allow records a request for key and reports whether it fits in the window
func (rl *RateLimiter) Allow(key string) bool {
	if rl.config.MaxRequests <= 0 {
		return true
	}

	now := rl.clock.Now()
	cutoff := now.Add(-rl.config.WindowSize)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	valid := pruneBefore(rl.requests[key], cutoff)
	if len(valid) >= rl.config.MaxRequests {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

// pruneBefore drops timestamps at or before cutoff; timestamps are appended in order
func pruneBefore(requests []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(requests) && !requests[i].After(cutoff) {
		i++
	}
	return requests[i:]
}

// Count returns the number of requests for key inside the current window
func (rl *RateLimiter) Count(key string) int {
	cutoff := rl.clock.Now().Add(-rl.config.WindowSize)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(pruneBefore(rl.requests[key], cutoff))
}

func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.requests, key)
}

func (rl *RateLimiter) ResetAll() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.requests = make(map[string][]time.Time)
}

func (rl *RateLimiter) cleanupExpiredEntries() {
	ticker := rl.clock.Ticker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	cutoff := rl.clock.Now().Add(-rl.config.WindowSize)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, requests := range rl.requests {
		valid := pruneBefore(requests, cutoff)
		if len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}

func (rl *RateLimiter) keys() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.requests)
}

// Stop stops the cleanup goroutine; calling it twice is safe
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *RateLimiter) Config() RateLimiterConfig {
	return *rl.config
}
