package session

import (
	"context"

	"github.com/scottzero/facts-that-arent-fun-at-all/internal/fact"
)

const (
	fromCache    = "cache"
	fromLive     = "live"
	fromFallback = "fallback"
)

type strategy struct {
	name string
	get  func(ctx context.Context) (string, bool)
}

func (s *Session) strategies() []strategy {
	return []strategy{
		{fromCache, func(context.Context) (string, bool) {
			return s.cache.Consume()
		}},
		{fromLive, func(ctx context.Context) (string, bool) {
			text, ok := s.fetcher.FetchWithRetry(ctx, s.endpoint)
			if !ok {
				return "", false
			}
			if !s.cache.Claim(fact.Normalize(text)) {
				// a concurrent refill got the same fact first; show the queue head instead
				return s.cache.Consume()
			}
			return text, true
		}},
		{fromFallback, func(context.Context) (string, bool) {
			return s.fallback.Pick(), true
		}},
	}
}

// resolve returns the first value any strategy produces. The fallback
// corpus is non-empty by construction, so the last strategy always succeeds.
func (s *Session) resolve(ctx context.Context) (string, string) {
	for _, st := range s.strategies() {
		if text, ok := st.get(ctx); ok {
			return text, st.name
		}
	}
	panic("session: fallback corpus produced no fact")
}
