// Package session composes the fact pipeline into the two operations the
// screen needs: the initial fact and the next fact on tap.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scottzero/facts-that-arent-fun-at-all/internal/cache"
	"github.com/scottzero/facts-that-arent-fun-at-all/internal/fact"
	"github.com/scottzero/facts-that-arent-fun-at-all/internal/ratelimit"
)

type State int

const (
	Idle State = iota
	Fetching
	RateLimited
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case RateLimited:
		return "rate-limited"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is what a tap resulted in.
type Outcome int

const (
	OutcomeShown Outcome = iota
	OutcomeIgnored
	OutcomeRateLimited
)

type RateLimitInfo struct {
	RetryAt          time.Time
	SecondsRemaining int
}

// Display is the presentation boundary. It may be called from several
// goroutines and must not block for long.
type Display interface {
	Display(current string, busy bool, info *RateLimitInfo)
}

type DisplayFunc func(current string, busy bool, info *RateLimitInfo)

func (f DisplayFunc) Display(current string, busy bool, info *RateLimitInfo) {
	f(current, busy, info)
}

type Limiter interface {
	TryConsume(now time.Time) ratelimit.Decision
}

type Options struct {
	Endpoint  string
	CacheSize int
	// Cache defaults to a new cache over Fetcher.
	Cache    *cache.Cache
	Fetcher  cache.Source
	Fallback *fact.Corpus
	// Limiter is nil when taps are not throttled.
	Limiter Limiter
	Display Display
	Logger  *slog.Logger
	Now     func() time.Time
}

// Stats counts where displayed facts came from.
type Stats struct {
	FromCache    int
	FromLive     int
	FromFallback int
	RateLimited  int
}

type Session struct {
	id        string
	endpoint  string
	cacheSize int
	cache     *cache.Cache
	fetcher   cache.Source
	fallback  *fact.Corpus
	limiter   Limiter
	display   Display
	logger    *slog.Logger
	now       func() time.Time

	// bg outlives individual taps; background refills run under it.
	bg     context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State
	current string
	retryAt time.Time
	timer   *time.Timer
	stats   Stats
}

func New(opts Options) (*Session, error) {
	if opts.Fallback == nil || opts.Fallback.Len() == 0 {
		return nil, fmt.Errorf("creating session: %w", fact.ErrEmptyFallback)
	}
	if opts.Fetcher == nil {
		return nil, errors.New("creating session: fetcher is required")
	}
	if opts.Display == nil {
		opts.Display = DisplayFunc(func(string, bool, *RateLimitInfo) {})
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	id := uuid.NewString()
	logger := opts.Logger.With("session", id)
	if opts.Cache == nil {
		opts.Cache = cache.New(opts.Fetcher, opts.Endpoint, logger)
	}

	bg, cancel := context.WithCancel(context.Background())
	return &Session{
		id:        id,
		endpoint:  opts.Endpoint,
		cacheSize: opts.CacheSize,
		cache:     opts.Cache,
		fetcher:   opts.Fetcher,
		fallback:  opts.Fallback,
		limiter:   opts.Limiter,
		display:   opts.Display,
		logger:    logger,
		now:       opts.Now,
		bg:        bg,
		cancel:    cancel,
	}, nil
}

func (s *Session) ID() string { return s.id }

// Start shows the first fact. The rate limiter is not consulted.
func (s *Session) Start(ctx context.Context) string {
	s.logger.Info("session started", "endpoint", s.endpoint, "throttled", s.limiter != nil)
	return s.GetNextFact(ctx)
}

// Tap forwards a user tap. Taps are ignored while a fetch is in flight or
// while the rate-limit notice is showing.
func (s *Session) Tap(ctx context.Context) Outcome {
	s.mu.Lock()
	switch s.state {
	case Fetching:
		s.mu.Unlock()
		s.logger.Debug("tap ignored, fetch in flight")
		return OutcomeIgnored
	case RateLimited:
		s.mu.Unlock()
		return OutcomeRateLimited
	}

	if s.limiter != nil {
		now := s.now()
		d := s.limiter.TryConsume(now)
		if !d.Allowed {
			s.state = RateLimited
			s.retryAt = d.RetryAt
			s.stats.RateLimited++
			s.armTimerLocked(d.RetryAt.Sub(now))
			cur := s.current
			info := s.rateLimitLocked(now)
			s.mu.Unlock()

			s.logger.Info("tap rate limited", "retry_at", d.RetryAt)
			s.display.Display(cur, false, info)
			return OutcomeRateLimited
		}
	}

	s.state = Fetching
	cur := s.current
	s.mu.Unlock()

	s.run(ctx, cur)
	return OutcomeShown
}

// GetNextFact walks cache, live fetch and fallback corpus in that order,
// publishes the result and starts a background refill. It never fails.
func (s *Session) GetNextFact(ctx context.Context) string {
	s.mu.Lock()
	if s.state == Fetching {
		cur := s.current
		s.mu.Unlock()
		return cur
	}
	s.state = Fetching
	cur := s.current
	s.mu.Unlock()

	return s.run(ctx, cur)
}

// run expects the caller to have moved the session into Fetching.
func (s *Session) run(ctx context.Context, prev string) string {
	s.display.Display(prev, true, nil)

	text, from := s.resolve(ctx)
	text = fact.Normalize(text)
	s.cache.MarkSeen(text)

	s.mu.Lock()
	s.current = text
	s.state = Idle
	switch from {
	case fromCache:
		s.stats.FromCache++
	case fromLive:
		s.stats.FromLive++
	case fromFallback:
		s.stats.FromFallback++
	}
	s.mu.Unlock()

	s.logger.Debug("fact shown", "from", from, "queued", s.cache.Len())
	s.display.Display(text, false, nil)

	s.cache.RefillAsync(s.bg, s.cacheSize)
	return text
}

func (s *Session) armTimerLocked(d time.Duration) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, s.expireRateLimit)
}

func (s *Session) expireRateLimit() {
	s.mu.Lock()
	if s.state != RateLimited {
		s.mu.Unlock()
		return
	}
	s.state = Idle
	s.retryAt = time.Time{}
	cur := s.current
	s.mu.Unlock()

	s.logger.Debug("rate limit window expired")
	s.display.Display(cur, false, nil)
}

func (s *Session) rateLimitLocked(now time.Time) *RateLimitInfo {
	if s.state != RateLimited {
		return nil
	}
	secs := int(math.Ceil(s.retryAt.Sub(now).Seconds()))
	if secs < 0 {
		secs = 0
	}
	return &RateLimitInfo{RetryAt: s.retryAt, SecondsRemaining: secs}
}

// rateLimitInfo reports the active rate-limit notice, or nil.
func (s *Session) rateLimitInfo() *RateLimitInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rateLimitLocked(s.now())
}

func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Session) Queued() int { return s.cache.Len() }
func (s *Session) SeenCount() int { return s.cache.SeenCount() }

// Wait blocks until in-flight background refills return.
func (s *Session) Wait() {
	s.cache.Wait()
}

// Close stops background work and waits for it.
func (s *Session) Close() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.cancel()
	s.cache.Wait()
}
