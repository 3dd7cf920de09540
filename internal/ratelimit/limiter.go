// Package ratelimit caps accepted requests per client key over a sliding window.
package ratelimit

import (
	"errors"
	"sync"
	"time"
)

var (
	errInvalidLimit  = errors.New("ratelimit: limit must be positive")
	errInvalidWindow = errors.New("ratelimit: window must be positive")
)

// Config configures a Limiter.
type Config struct {
	// Limit is the number of requests accepted per key within any Window.
	Limit  int
	Window time.Duration
	// TTL is how long an idle key is kept. Values below Window are raised to
	// Window so eviction never forgets an accepted request still in the window.
	TTL   time.Duration
	Clock func() time.Time
}

// Limiter accepts at most Limit requests per key in any trailing Window.
// Idle keys are evicted lazily on access; no goroutine is started.
type Limiter struct {
	mu        sync.Mutex
	entries   map[string]*entry
	limit     int
	window    time.Duration
	ttl       time.Duration
	clock     func() time.Time
	lastSweep time.Time
}

type entry struct {
	// accepted holds the times of accepted requests, oldest first.
	accepted   []time.Time
	lastAccess time.Time
}

// New validates cfg and constructs a Limiter.
func New(cfg Config) (*Limiter, error) {
	if cfg.Limit <= 0 {
		return nil, errInvalidLimit
	}
	if cfg.Window <= 0 {
		return nil, errInvalidWindow
	}
	ttl := cfg.TTL
	if ttl < cfg.Window {
		ttl = cfg.Window
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Limiter{
		entries:   make(map[string]*entry),
		limit:     cfg.Limit,
		window:    cfg.Window,
		ttl:       ttl,
		clock:     clock,
		lastSweep: clock(),
	}, nil
}

// Allow reports whether a request for key may proceed and records it when it may.
// Rejected requests are not recorded.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.sweepLocked(now)

	current, ok := l.entries[key]
	if !ok {
		current = &entry{accepted: make([]time.Time, 0, l.limit)}
		l.entries[key] = current
	}
	current.lastAccess = now
	current.trim(now.Add(-l.window))
	if len(current.accepted) >= l.limit {
		return false
	}
	current.accepted = append(current.accepted, now)
	return true
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// trim drops accepted times at or before cutoff.
func (e *entry) trim(cutoff time.Time) {
	expired := 0
	for expired < len(e.accepted) && !e.accepted[expired].After(cutoff) {
		expired++
	}
	if expired == 0 {
		return
	}
	e.accepted = append(e.accepted[:0], e.accepted[expired:]...)
}

// sweepLocked drops idle keys at most once per TTL.
func (l *Limiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.ttl {
		return
	}
	threshold := now.Add(-l.ttl)
	for key, current := range l.entries {
		if current.lastAccess.Before(threshold) {
			delete(l.entries, key)
		}
	}
	l.lastSweep = now
}
