package apiclient

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultCacheTTL = 30 * time.Second
)

// InvalidationMode selects how a successful mutation invalidates cached reads.
type InvalidationMode string

const (
	// InvalidateRelated drops entries sharing the endpoint's resource path.
	InvalidateRelated InvalidationMode = "related"
	// InvalidateAll drops every cached entry.
	InvalidateAll InvalidationMode = "all"
)

// ParseInvalidationMode maps a config string onto an InvalidationMode.
func ParseInvalidationMode(s string) (InvalidationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(InvalidateRelated):
		return InvalidateRelated, nil
	case string(InvalidateAll):
		return InvalidateAll, nil
	default:
		return "", fmt.Errorf("unsupported cache invalidation mode %q", s)
	}
}

// Config is the per-client configuration. It is copied at construction and
// never mutated afterwards.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	CacheEnabled bool
	CacheTTL     time.Duration
	// MinRoundTrip is the minimum wall time a request takes once a response
	// arrives. Zero disables the floor.
	MinRoundTrip time.Duration
	Invalidation InvalidationMode
}

// DefaultConfig returns the default configuration for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		Timeout:      defaultTimeout,
		CacheEnabled: true,
		CacheTTL:     defaultCacheTTL,
		Invalidation: InvalidateRelated,
	}
}

func normalizeConfig(cfg Config) (Config, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return Config{}, fmt.Errorf("base url is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return Config{}, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Config{}, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.MinRoundTrip < 0 {
		cfg.MinRoundTrip = 0
	}
	if cfg.Invalidation == "" {
		cfg.Invalidation = InvalidateRelated
	}
	if _, err := ParseInvalidationMode(string(cfg.Invalidation)); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
