package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterCapacityBoundary(t *testing.T) {
	limiter := NewLimiter(&Config{Capacity: 5, Window: time.Minute})

	// Exactly-at-capacity calls are allowed
	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow("user1:email"), "call %d should be allowed", i+1)
	}

	// The (capacity+1)-th call within the window is denied
	assert.False(t, limiter.Allow("user1:email"))
	assert.False(t, limiter.Allow("user1:email"))
}

func TestLimiterKeysIndependent(t *testing.T) {
	limiter := NewLimiter(&Config{Capacity: 1, Window: time.Minute})

	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("b"))
}

func TestLimiterWindowSlides(t *testing.T) {
	limiter := NewLimiter(&Config{Capacity: 2, Window: 50 * time.Millisecond})

	require.True(t, limiter.Allow("k"))
	require.True(t, limiter.Allow("k"))
	require.False(t, limiter.Allow("k"))

	time.Sleep(60 * time.Millisecond)

	// Old hits have slid out of the window
	assert.True(t, limiter.Allow("k"))
}

func TestLimiterDeniedCallsNotRecorded(t *testing.T) {
	limiter := NewLimiter(&Config{Capacity: 1, Window: 50 * time.Millisecond})

	require.True(t, limiter.Allow("k"))

	// Denied bursts must not extend the window
	for i := 0; i < 10; i++ {
		limiter.Allow("k")
	}

	time.Sleep(60 * time.Millisecond)
	assert.True(t, limiter.Allow("k"))
}

func TestLimiterAllowLimitOverride(t *testing.T) {
	limiter := NewLimiter(&Config{Capacity: 100, Window: time.Minute})

	assert.True(t, limiter.AllowLimit("k", 2))
	assert.True(t, limiter.AllowLimit("k", 2))
	assert.False(t, limiter.AllowLimit("k", 2))
	assert.False(t, limiter.AllowLimit("k", 0))
}

func TestLimiterAllowWindowOverride(t *testing.T) {
	limiter := NewLimiter(&Config{Capacity: 100, Window: time.Minute})

	// A narrow per-call window overrides the configured one
	require.True(t, limiter.AllowWindow("k", 1, 50*time.Millisecond))
	require.False(t, limiter.AllowWindow("k", 1, 50*time.Millisecond))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, limiter.AllowWindow("k", 1, 50*time.Millisecond))

	// A non-positive window falls back to the configured one
	assert.True(t, limiter.AllowWindow("other", 1, 0))
	assert.False(t, limiter.AllowWindow("other", 1, 0))
}

func TestLimiterRemainingAndReset(t *testing.T) {
	limiter := NewLimiter(&Config{Capacity: 3, Window: time.Minute})

	assert.Equal(t, 3, limiter.Remaining("k"))
	limiter.Allow("k")
	limiter.Allow("k")
	assert.Equal(t, 1, limiter.Remaining("k"))

	limiter.Reset("k")
	assert.Equal(t, 3, limiter.Remaining("k"))
}

func TestLimiterPrunesStaleKeys(t *testing.T) {
	limiter := NewLimiter(&Config{Capacity: 2, Window: 10 * time.Millisecond})

	limiter.Allow("k")
	require.Equal(t, 1, limiter.ActiveKeys())

	time.Sleep(20 * time.Millisecond)
	limiter.Remaining("k")
	assert.Equal(t, 0, limiter.ActiveKeys())
}

func TestLimiterConcurrentCallers(t *testing.T) {
	limiter := NewLimiter(&Config{Capacity: 100, Window: time.Minute})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Check-and-record is atomic: exactly capacity calls succeed
	assert.Equal(t, 100, allowed)
}
