package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
	"github.com/scottzero/facts-that-arent-fun-at-all/internal/fact"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

type RetryConfig struct {
	MaxRetries int     `yaml:"max_retries"`
	BaseDelay  string  `yaml:"base_delay"`
	MinDelay   string  `yaml:"min_delay"`
	Jitter     float64 `yaml:"jitter"`
}

type RateLimitConfig struct {
	Enabled      bool   `yaml:"enabled" env:"FACTS_RATE_LIMIT"`
	MaxPerWindow int    `yaml:"max_per_window"`
	Window       string `yaml:"window"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"FACTS_LOG_LEVEL"`
	Format string `yaml:"format" env:"FACTS_LOG_FORMAT"`
	// AddSource adds file:line to each record.
	AddSource bool `yaml:"add_source"`
	// File overrides the default state-dir log path in interactive mode.
	File string `yaml:"file,omitempty"`
}

type Config struct {
	Endpoint      string          `yaml:"endpoint" env:"FACTS_ENDPOINT"`
	Field         string          `yaml:"field" env:"FACTS_FIELD"`
	Timeout       string          `yaml:"timeout"`
	CacheSize     int             `yaml:"cache_size"`
	LookupURL     string          `yaml:"lookup_url"`
	Retry         RetryConfig     `yaml:"retry"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
	Logging       LoggingConfig   `yaml:"logging"`
	FallbackFacts []string        `yaml:"fallback_facts"`
}

func (c *Config) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

func (c *Config) BaseDelay() time.Duration {
	return parseDuration(c.Retry.BaseDelay, 400*time.Millisecond)
}

func (c *Config) MinDelay() time.Duration {
	return parseDuration(c.Retry.MinDelay, 100*time.Millisecond)
}

func (c *Config) RateWindow() time.Duration {
	return parseDuration(c.RateLimit.Window, time.Minute)
}

// LookupLink returns the web search link for a fact, or "" if lookups are off.
func (c *Config) LookupLink(text string) string {
	if c.LookupURL == "" || text == "" {
		return ""
	}
	return fmt.Sprintf(c.LookupURL, url.QueryEscape(text))
}

func (c *Config) LogPath() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return filepath.Join(xdg.StateHome, "facts", "facts.log")
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "facts", "config.yaml")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config file over the embedded defaults, then applies
// FACTS_* environment overrides. A missing file is created from the defaults.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Non-fatal: the embedded defaults still apply.
		_ = writeDefaults(path)
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

// Validate re-checks the config after callers change fields in place.
func (c *Config) Validate() error {
	return validate(c)
}

func validate(cfg *Config) error {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("endpoint: invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint: url scheme must be http or https, got %q", u.Scheme)
	}
	if strings.TrimSpace(cfg.Field) == "" {
		return fmt.Errorf("field is required")
	}
	if cfg.CacheSize < 0 {
		return fmt.Errorf("cache_size must be >= 0, got %d", cfg.CacheSize)
	}
	if cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.Jitter < 0 || cfg.Retry.Jitter > 1 {
		return fmt.Errorf("retry.jitter must be within [0, 1], got %v", cfg.Retry.Jitter)
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.MaxPerWindow <= 0 {
		return fmt.Errorf("rate_limit.max_per_window must be > 0 when enabled, got %d", cfg.RateLimit.MaxPerWindow)
	}
	if cfg.LookupURL != "" && strings.Count(cfg.LookupURL, "%s") != 1 {
		return fmt.Errorf("lookup_url must contain exactly one %%s, got %q", cfg.LookupURL)
	}
	if _, err := fact.NewCorpus(cfg.FallbackFacts); err != nil {
		return fmt.Errorf("fallback_facts: %w", err)
	}
	return nil
}
