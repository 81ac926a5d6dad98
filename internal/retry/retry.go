package retry

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/scottzero/facts-that-arent-fun-at-all/internal/fact"
)

type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MinDelay   time.Duration
	Jitter     float64
}

// DefaultConfig is 4 total attempts, 400ms base, ±25% jitter, 100ms floor.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  400 * time.Millisecond,
		MinDelay:   100 * time.Millisecond,
		Jitter:     0.25,
	}
}

// Policy wraps a single-attempt fetcher with bounded exponential backoff.
type Policy struct {
	fetcher fact.Fetcher
	cfg     Config
	rand    func() float64
	logger  *slog.Logger
}

func New(fetcher fact.Fetcher, cfg Config, logger *slog.Logger) *Policy {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{fetcher: fetcher, cfg: cfg, rand: rand.Float64, logger: logger}
}

// FetchWithRetry returns the normalized fact, or ok=false once every
// attempt has failed. Failures are logged, never returned.
func (p *Policy) FetchWithRetry(ctx context.Context, url string) (string, bool) {
	attempts := 0
	op := func() (string, error) {
		attempts++
		text, err := p.fetcher.Fetch(ctx, url)
		if err != nil {
			return "", err
		}
		return fact.Normalize(text), nil
	}

	text, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(&Backoff{
			Base:   p.cfg.BaseDelay,
			Min:    p.cfg.MinDelay,
			Jitter: p.cfg.Jitter,
			Rand:   p.rand,
		}),
		backoff.WithMaxTries(uint(p.cfg.MaxRetries+1)),
		backoff.WithNotify(func(err error, d time.Duration) {
			p.logger.Debug("fact fetch failed, retrying", "attempt", attempts, "delay", d, "err", err)
		}),
	)
	if err != nil {
		p.logger.Warn("fact fetch exhausted", "attempts", attempts, "err", err)
		return "", false
	}
	return text, true
}
