package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/samvad-hq/tradedesk-client/pkg/apiclient"
)

// Config holds the application configuration loaded from flags, environment
// variables and the optional configs/.env file.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`
	ClientID string `mapstructure:"client_id"`

	APIBaseURL      string `mapstructure:"api_base_url"`
	APITimeoutMS    int64  `mapstructure:"api_timeout_ms"`
	CacheEnabled    bool   `mapstructure:"cache_enabled"`
	CacheTTLMS      int64  `mapstructure:"cache_ttl_ms"`
	MinRoundTripMS  int64  `mapstructure:"min_round_trip_ms"`
	CacheInvalidate string `mapstructure:"cache_invalidation"`

	APITimeout   time.Duration              `mapstructure:"-"`
	CacheTTL     time.Duration              `mapstructure:"-"`
	MinRoundTrip time.Duration              `mapstructure:"-"`
	Invalidation apiclient.InvalidationMode `mapstructure:"-"`

	JanitorIntervalSeconds int64         `mapstructure:"janitor_interval_seconds"`
	JanitorInterval        time.Duration `mapstructure:"-"`

	SessionStoreType       string        `mapstructure:"session_store_type"`
	SessionPath            string        `mapstructure:"session_path"`
	SessionProfile         string        `mapstructure:"session_profile"`
	SessionTTLSeconds      int64         `mapstructure:"session_ttl_seconds"`
	SessionCleanupSeconds  int64         `mapstructure:"session_cleanup_interval_seconds"`
	SessionTTL             time.Duration `mapstructure:"-"`
	SessionCleanupInterval time.Duration `mapstructure:"-"`

	PublishersFile string `mapstructure:"publishers_file"`

	MockAddr         string        `mapstructure:"mock_addr"`
	MockLatencyMS    int64         `mapstructure:"mock_latency_ms"`
	MockRequireNonce bool          `mapstructure:"mock_require_nonce"`
	MockLatency      time.Duration `mapstructure:"-"`
}

// flagKeys are the settings that can be overridden on the command line.
// Flag names use dashes instead of underscores.
var flagKeys = []string{
	"log_level",
	"client_id",
	"api_base_url",
	"api_timeout_ms",
	"cache_enabled",
	"cache_ttl_ms",
	"min_round_trip_ms",
	"cache_invalidation",
	"session_store_type",
	"session_path",
	"session_profile",
	"publishers_file",
	"mock_addr",
	"mock_latency_ms",
	"mock_require_nonce",
}

// RegisterFlags declares the command-line overrides on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(flagName("log_level"), "info", "log level (debug, info, warn, error)")
	fs.String(flagName("client_id"), "", "identifier attached to published mutation events")
	fs.String(flagName("api_base_url"), "http://localhost:8080/api", "base URL of the API")
	fs.Int64(flagName("api_timeout_ms"), 30000, "per-request timeout in milliseconds")
	fs.Bool(flagName("cache_enabled"), true, "cache GET responses")
	fs.Int64(flagName("cache_ttl_ms"), 30000, "default cache TTL in milliseconds")
	fs.Int64(flagName("min_round_trip_ms"), 300, "minimum request round trip in milliseconds")
	fs.String(flagName("cache_invalidation"), "related", "cache invalidation after writes (related, all)")
	fs.String(flagName("session_store_type"), "bbolt", "session store backend (bbolt, memory, none)")
	fs.String(flagName("session_path"), "./data/session.db", "bbolt session store path")
	fs.String(flagName("session_profile"), "default", "session profile name")
	fs.String(flagName("publishers_file"), "", "publishers configuration file (yaml or json)")
	fs.String(flagName("mock_addr"), ":8080", "mock server listen address")
	fs.Int64(flagName("mock_latency_ms"), 0, "simulated mock server latency in milliseconds")
	fs.Bool(flagName("mock_require_nonce"), false, "reject requests without a valid nonce")
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// Load reads configuration from flags, environment variables and config files.
// flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "tradedesk-client")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("client_id", "")
	v.SetDefault("api_base_url", "http://localhost:8080/api")
	v.SetDefault("api_timeout_ms", 30000)
	v.SetDefault("cache_enabled", true)
	v.SetDefault("cache_ttl_ms", 30000)
	v.SetDefault("min_round_trip_ms", 300)
	v.SetDefault("cache_invalidation", string(apiclient.InvalidateRelated))
	v.SetDefault("janitor_interval_seconds", 60)
	v.SetDefault("session_store_type", "bbolt")
	v.SetDefault("session_path", "./data/session.db")
	v.SetDefault("session_profile", "default")
	v.SetDefault("session_ttl_seconds", int64((12*time.Hour)/time.Second))
	v.SetDefault("session_cleanup_interval_seconds", int64(time.Hour/time.Second))
	v.SetDefault("publishers_file", "")
	v.SetDefault("mock_addr", ":8080")
	v.SetDefault("mock_latency_ms", 0)
	v.SetDefault("mock_require_nonce", false)

	v.AutomaticEnv()

	if flags != nil {
		for _, key := range flagKeys {
			if f := flags.Lookup(flagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	cfg.APIBaseURL = strings.TrimSpace(cfg.APIBaseURL)
	if cfg.APIBaseURL == "" {
		return fmt.Errorf("api_base_url is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = cfg.AppName
	}

	if cfg.APITimeoutMS <= 0 {
		return fmt.Errorf("invalid api_timeout_ms (must be positive milliseconds)")
	}
	if cfg.CacheTTLMS <= 0 {
		return fmt.Errorf("invalid cache_ttl_ms (must be positive milliseconds)")
	}
	if cfg.MinRoundTripMS < 0 {
		return fmt.Errorf("invalid min_round_trip_ms (must not be negative)")
	}
	cfg.APITimeout = time.Duration(cfg.APITimeoutMS) * time.Millisecond
	cfg.CacheTTL = time.Duration(cfg.CacheTTLMS) * time.Millisecond
	cfg.MinRoundTrip = time.Duration(cfg.MinRoundTripMS) * time.Millisecond

	mode, err := apiclient.ParseInvalidationMode(cfg.CacheInvalidate)
	if err != nil {
		return fmt.Errorf("invalid cache_invalidation: %w", err)
	}
	cfg.Invalidation = mode

	if cfg.JanitorIntervalSeconds <= 0 {
		return fmt.Errorf("invalid janitor_interval_seconds (must be positive seconds)")
	}
	cfg.JanitorInterval = time.Duration(cfg.JanitorIntervalSeconds) * time.Second

	if cfg.SessionTTLSeconds <= 0 {
		return fmt.Errorf("invalid session_ttl_seconds (must be positive seconds)")
	}
	if cfg.SessionCleanupSeconds <= 0 {
		return fmt.Errorf("invalid session_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.SessionTTL = time.Duration(cfg.SessionTTLSeconds) * time.Second
	cfg.SessionCleanupInterval = time.Duration(cfg.SessionCleanupSeconds) * time.Second

	if cfg.MockLatencyMS < 0 {
		return fmt.Errorf("invalid mock_latency_ms (must not be negative)")
	}
	cfg.MockLatency = time.Duration(cfg.MockLatencyMS) * time.Millisecond
	return nil
}

// ClientConfig returns the API client settings.
func (cfg *Config) ClientConfig() apiclient.Config {
	return apiclient.Config{
		BaseURL:      cfg.APIBaseURL,
		Timeout:      cfg.APITimeout,
		CacheEnabled: cfg.CacheEnabled,
		CacheTTL:     cfg.CacheTTL,
		MinRoundTrip: cfg.MinRoundTrip,
		Invalidation: cfg.Invalidation,
	}
}
