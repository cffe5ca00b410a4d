// Package config loads and validates all runtime configuration for the
// gateway.
//
// Configuration is read from environment variables (preferred for
// containers) or from a config.yaml file in the working directory.
// Environment variables take precedence over the YAML file; a .env file is
// loaded into the environment first when present.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config is the top-level configuration container.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Default: 8080.
	Port int

	// LogLevel controls the minimum log level. One of: debug, info, warn,
	// error. Default: info.
	LogLevel string

	// AuthToken is the static gateway bearer token. Empty together with
	// JWTSecret runs the gateway open — development only.
	AuthToken string

	// JWTSecret signs and verifies management session tokens.
	JWTSecret string

	// EncryptionKey is the 64-hex-char (32 byte) AES-256 key protecting
	// stored provider API keys. Required.
	EncryptionKey string

	// Redis holds the connection URL for the Redis cache and rate limiter.
	// Required only when Cache.Mode is "redis".
	Redis RedisConfig

	// Cache controls the response and hook caches.
	Cache CacheConfig

	// ClickHouse holds the dispatch log store connection.
	ClickHouse ClickHouseConfig

	// RateLimit controls request-rate limiting.
	RateLimit RateLimitConfig

	// Dispatch controls the upstream dispatcher.
	Dispatch DispatchConfig

	// CORSOrigins is the list of allowed CORS origins. ["*"] allows any
	// origin (default).
	CORSOrigins []string
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// URL is a redis:// or rediss:// URL. Example: redis://localhost:6379
	URL string
}

// CacheConfig controls the response and hook caches.
type CacheConfig struct {
	// Mode selects the cache backend:
	//   "redis"  — Redis-backed cache (requires REDIS_URL). Recommended for production.
	//   "memory" — In-process TTL cache. No external deps; not shared across replicas.
	//   "none"   — Cache disabled entirely.
	// Default: "memory".
	Mode string

	// TTL is the default time-to-live for cached responses. Default: 168h.
	TTL time.Duration
}

// ClickHouseConfig holds the dispatch log store connection.
type ClickHouseConfig struct {
	// DSN is a clickhouse:// URL. Empty disables persistence; dispatch logs
	// then go to the structured log only.
	DSN string
}

// RateLimitConfig controls request-rate limiting.
type RateLimitConfig struct {
	// RPMLimit is the maximum requests per minute allowed globally.
	// 0 disables the check. Default: 0.
	RPMLimit int

	// AgentRPMLimit is the per-agent requests-per-minute limit.
	// 0 disables the check. Default: 0.
	AgentRPMLimit int
}

// DispatchConfig controls the upstream dispatcher and adapter engine.
type DispatchConfig struct {
	// Timeout is the per-attempt upstream HTTP timeout. Default: 120s.
	Timeout time.Duration

	// ForwardHeaders lists inbound header names passed to the provider
	// verbatim.
	ForwardHeaders []string

	// StrictCompliance drops provider-specific extras from responses so the
	// surface is byte-compatible with the OpenAI schema. Default: false.
	StrictCompliance bool
}

// Load reads configuration from environment variables and (optionally) from
// config.yaml in the current working directory.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// ── Defaults ──────────────────────────────────────────────────────────────
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CACHE_MODE", "memory")
	v.SetDefault("CACHE_TTL", "168h")
	v.SetDefault("CORS_ORIGINS", []string{"*"})
	v.SetDefault("RPM_LIMIT", 0)
	v.SetDefault("AGENT_RPM_LIMIT", 0)
	v.SetDefault("DISPATCH_TIMEOUT", "120s")
	v.SetDefault("STRICT_COMPLIANCE", false)

	cfg := &Config{
		Port:     v.GetInt("PORT"),
		LogLevel: strings.ToLower(v.GetString("LOG_LEVEL")),

		AuthToken:     v.GetString("GATEWAY_AUTH_TOKEN"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		EncryptionKey: v.GetString("ENCRYPTION_KEY"),

		Redis: RedisConfig{URL: v.GetString("REDIS_URL")},

		Cache: CacheConfig{
			Mode: strings.ToLower(v.GetString("CACHE_MODE")),
			TTL:  v.GetDuration("CACHE_TTL"),
		},

		ClickHouse: ClickHouseConfig{DSN: v.GetString("CLICKHOUSE_DSN")},

		RateLimit: RateLimitConfig{
			RPMLimit:      v.GetInt("RPM_LIMIT"),
			AgentRPMLimit: v.GetInt("AGENT_RPM_LIMIT"),
		},

		Dispatch: DispatchConfig{
			Timeout:          v.GetDuration("DISPATCH_TIMEOUT"),
			ForwardHeaders:   v.GetStringSlice("FORWARD_HEADERS"),
			StrictCompliance: v.GetBool("STRICT_COMPLIANCE"),
		},

		CORSOrigins: v.GetStringSlice("CORS_ORIGINS"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks all semantic constraints that cannot be expressed as
// defaults.
func (c *Config) validate() error {
	if c.EncryptionKey == "" {
		return fmt.Errorf("config: ENCRYPTION_KEY is required (64 hex characters, 32 bytes)")
	}
	if raw, err := hex.DecodeString(c.EncryptionKey); err != nil || len(raw) != 32 {
		return fmt.Errorf("config: ENCRYPTION_KEY must be 64 hex characters (32 bytes)")
	}

	if c.Cache.Mode == "redis" && c.Redis.URL == "" {
		return fmt.Errorf(
			"config: REDIS_URL is required when CACHE_MODE=redis; " +
				"set CACHE_MODE=memory to use the built-in in-process cache",
		)
	}
	switch c.Cache.Mode {
	case "redis", "memory", "none":
	default:
		return fmt.Errorf("config: invalid CACHE_MODE %q; must be one of: redis, memory, none", c.Cache.Mode)
	}

	if (c.RateLimit.RPMLimit != 0 || c.RateLimit.AgentRPMLimit != 0) && c.Redis.URL == "" {
		return fmt.Errorf("config: REDIS_URL is required when rate limiting is enabled")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid LOG_LEVEL %q; must be one of: debug, info, warn, error", c.LogLevel)
	}

	if c.Dispatch.Timeout <= 0 {
		return fmt.Errorf("config: DISPATCH_TIMEOUT must be a positive duration")
	}
	return nil
}

// loadDotEnv populates process env vars from a .env file when present.
func loadDotEnv(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config: %s is a directory, expected a file", path)
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("config: failed to load %s: %w", path, err)
	}
	return nil
}
