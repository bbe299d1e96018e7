package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindow(t *testing.T) {
	mock := clock.NewMock()
	rl := NewRateLimiter(&RateLimiterConfig{MaxRequests: 3, WindowSize: time.Second}, mock)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		require.True(t, rl.Allow("peer-a"))
		mock.Add(100 * time.Millisecond)
	}
	assert.False(t, rl.Allow("peer-a"))
	assert.True(t, rl.Allow("peer-b"), "keys are independent")
	assert.Equal(t, 3, rl.Count("peer-a"))

	// the first request leaves the window
	mock.Add(701 * time.Millisecond)
	assert.True(t, rl.Allow("peer-a"))
	assert.False(t, rl.Allow("peer-a"))
}

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	rl := NewRateLimiter(&RateLimiterConfig{MaxRequests: 0, WindowSize: time.Second}, clock.NewMock())
	defer rl.Stop()

	for i := 0; i < 1000; i++ {
		require.True(t, rl.Allow("peer"))
	}
	assert.Equal(t, 0, rl.Count("peer"))
}

func TestResetClearsKeys(t *testing.T) {
	rl := NewRateLimiter(&RateLimiterConfig{MaxRequests: 1, WindowSize: time.Minute}, clock.NewMock())
	defer rl.Stop()

	require.True(t, rl.Allow("a"))
	require.True(t, rl.Allow("b"))
	assert.False(t, rl.Allow("a"))

	rl.Reset("a")
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("b"))

	rl.ResetAll()
	assert.True(t, rl.Allow("b"))
}

func TestCleanupDropsIdleKeys(t *testing.T) {
	mock := clock.NewMock()
	rl := NewRateLimiter(&RateLimiterConfig{MaxRequests: 5, WindowSize: time.Second}, mock)
	defer rl.Stop()

	rl.Allow("a")
	rl.Allow("b")
	mock.Add(2 * time.Second)
	rl.Allow("b")

	rl.cleanup()
	assert.Equal(t, 1, rl.keys())
	assert.Equal(t, 1, rl.Count("b"))
}

func TestDefaultConfigAndStop(t *testing.T) {
	rl := NewRateLimiter(nil, nil)
	assert.Equal(t, *DefaultConfig(), rl.Config())
	rl.Stop()
	rl.Stop()
}

func TestConcurrentAllow(t *testing.T) {
	rl := NewRateLimiter(&RateLimiterConfig{MaxRequests: 50, WindowSize: time.Hour}, clock.NewMock())
	defer rl.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if rl.Allow("shared") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}
