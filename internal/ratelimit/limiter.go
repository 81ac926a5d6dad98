// Package ratelimit gates user-triggered fetches with a sliding-window log.
package ratelimit

import (
	"sync"
	"time"
)

type Config struct {
	MaxPerWindow int
	Window       time.Duration
}

func DefaultConfig() Config {
	return Config{MaxPerWindow: 5, Window: time.Minute}
}

// Decision captures the result of a gate check.
type Decision struct {
	Allowed   bool
	Remaining int // slots left in the window after this check
	Limit     int
	RetryAt   time.Time // earliest time a denied call can succeed
}

// Limiter records the timestamps of allowed calls inside the trailing window.
// Denied calls are never recorded.
type Limiter struct {
	mu   sync.Mutex
	cfg  Config
	hits []time.Time
}

func New(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.MaxPerWindow <= 0 {
		cfg.MaxPerWindow = def.MaxPerWindow
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	return &Limiter{cfg: cfg}
}

func (l *Limiter) TryConsume(now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	d := l.check(now)
	if d.Allowed {
		l.hits = append(l.hits, now)
		d.Remaining--
	}
	return d
}

// Peek reports what TryConsume would decide without recording anything.
func (l *Limiter) Peek(now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.check(now)
}

func (l *Limiter) check(now time.Time) Decision {
	l.prune(now)

	d := Decision{Limit: l.cfg.MaxPerWindow, Remaining: l.cfg.MaxPerWindow - len(l.hits)}
	if len(l.hits) >= l.cfg.MaxPerWindow {
		d.Remaining = 0
		d.RetryAt = l.hits[0].Add(l.cfg.Window)
		return d
	}
	d.Allowed = true
	return d
}

// prune drops timestamps with now - t >= window. Hits are appended in
// call order, so the retained ones form a suffix.
func (l *Limiter) prune(now time.Time) {
	i := 0
	for i < len(l.hits) && now.Sub(l.hits[i]) >= l.cfg.Window {
		i++
	}
	if i > 0 {
		l.hits = append(l.hits[:0], l.hits[i:]...)
	}
}
