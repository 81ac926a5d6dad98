package cmd

import (
	"fmt"
	"log/slog"

	"github.com/scottzero/facts-that-arent-fun-at-all/internal/cache"
	"github.com/scottzero/facts-that-arent-fun-at-all/internal/config"
	"github.com/scottzero/facts-that-arent-fun-at-all/internal/fact"
	"github.com/scottzero/facts-that-arent-fun-at-all/internal/ratelimit"
	"github.com/scottzero/facts-that-arent-fun-at-all/internal/retry"
	"github.com/scottzero/facts-that-arent-fun-at-all/internal/session"
)

type overrides struct {
	endpoint string
	logLevel string
	noLimit  bool
}

func flagOverrides() overrides {
	return overrides{endpoint: flagEndpoint, logLevel: flagLogLevel, noLimit: flagNoLimit}
}

func loadConfig(o overrides) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := applyOverrides(cfg, o); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyOverrides layers command-line flags over the file and environment.
func applyOverrides(cfg *config.Config, o overrides) error {
	if o.endpoint != "" {
		cfg.Endpoint = o.endpoint
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.noLimit {
		cfg.RateLimit.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

type pipeline struct {
	session *session.Session
	// limiter is nil when taps are not throttled.
	limiter *ratelimit.Limiter
}

type pipelineOpts struct {
	display   session.Display
	logger    *slog.Logger
	throttle  bool
	cacheSize int
}

// buildPipeline wires fetcher, retry policy, cache, limiter and session.
func buildPipeline(cfg *config.Config, opts pipelineOpts) (*pipeline, error) {
	fallback, err := fact.NewCorpus(cfg.FallbackFacts)
	if err != nil {
		return nil, fmt.Errorf("loading fallback facts: %w", err)
	}

	fetcher := fact.NewHTTPFetcher(cfg.Field, cfg.TimeoutDuration())
	policy := retry.New(fetcher, retry.Config{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  cfg.BaseDelay(),
		MinDelay:   cfg.MinDelay(),
		Jitter:     cfg.Retry.Jitter,
	}, opts.logger)

	p := &pipeline{}
	var limiter session.Limiter
	if opts.throttle && cfg.RateLimit.Enabled {
		p.limiter = ratelimit.New(ratelimit.Config{
			MaxPerWindow: cfg.RateLimit.MaxPerWindow,
			Window:       cfg.RateWindow(),
		})
		limiter = p.limiter
	}

	p.session, err = session.New(session.Options{
		Endpoint:  cfg.Endpoint,
		CacheSize: opts.cacheSize,
		Cache:     cache.New(policy, cfg.Endpoint, opts.logger),
		Fetcher:   policy,
		Fallback:  fallback,
		Limiter:   limiter,
		Display:   opts.display,
		Logger:    opts.logger,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
