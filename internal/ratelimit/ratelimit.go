// Package ratelimit provides a per-key sliding-window rate limiter.
package ratelimit

import (
	"sync"
	"time"
)

// Config holds rate limiter configuration
type Config struct {
	Capacity int           `json:"capacity"` // max hits per window per key
	Window   time.Duration `json:"window"`   // sliding window size
}

// DefaultConfig returns the default limiter configuration (60 hits per 60s)
func DefaultConfig() *Config {
	return &Config{
		Capacity: 60,
		Window:   60 * time.Second,
	}
}

// Limiter tracks per-key send counts within a continuously sliding window.
// Denied calls are not recorded, so a burst beyond capacity does not extend
// the window.
type Limiter struct {
	config *Config

	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

// NewLimiter creates a new sliding-window limiter
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = DefaultConfig()
	}
	return &Limiter{
		config:  config,
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records a hit for key and reports whether it fits within the
// configured capacity. The check and the record are a single critical section.
func (l *Limiter) Allow(key string) bool {
	return l.AllowLimit(key, l.config.Capacity)
}

// AllowLimit behaves like Allow with a per-call capacity override. A limit
// of zero or less denies everything.
func (l *Limiter) AllowLimit(key string, limit int) bool {
	return l.AllowWindow(key, limit, l.config.Window)
}

// AllowWindow behaves like AllowLimit with a per-call window override, for
// callers multiplexing windows of different sizes over one limiter.
func (l *Limiter) AllowWindow(key string, limit int, window time.Duration) bool {
	if limit <= 0 {
		return false
	}
	if window <= 0 {
		window = l.config.Window
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	hits := l.prune(key, now, window)

	if len(hits) >= limit {
		return false
	}

	l.windows[key] = append(hits, now)
	return true
}

// Remaining returns how many hits key has left in the current window
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.prune(key, l.now(), l.config.Window)

	remaining := l.config.Capacity - len(hits)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears the window for key
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// ActiveKeys returns the number of keys with recorded hits
func (l *Limiter) ActiveKeys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// prune drops timestamps older than the window and updates the map entry,
// deleting keys whose window has fully expired. Caller holds the lock.
func (l *Limiter) prune(key string, now time.Time, window time.Duration) []time.Time {
	hits := l.windows[key]
	cutoff := now.Add(-window)

	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	switch {
	case i == 0:
	case i == len(hits):
		delete(l.windows, key)
		hits = nil
	default:
		hits = append([]time.Time(nil), hits[i:]...)
		l.windows[key] = hits
	}
	return hits
}
