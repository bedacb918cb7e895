// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Synthesis SynthesisConfig `mapstructure:"synthesis"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LogConfig toggles zap development features.
type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// FetchConfig governs page fetching for business intelligence extraction.
type FetchConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxLinkedPages int    `mapstructure:"max_linked_pages"`
	MaxBodyBytes   int    `mapstructure:"max_body_bytes"`
	PageTextLimit  int    `mapstructure:"page_text_limit"`
	RespectRobots  bool   `mapstructure:"respect_robots"`
}

// HeadlessConfig configures the optional headless rendering fetcher.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
	// PromotionThreshold is the body size in bytes under which a
	// script-heavy page is refetched with the rendering fetcher.
	PromotionThreshold int `mapstructure:"promotion_threshold"`
}

// CacheConfig selects and tunes the result cache backend.
type CacheConfig struct {
	Backend          string      `mapstructure:"backend"`
	TTLMinutes       int         `mapstructure:"ttl_minutes"`
	CleanupThreshold int         `mapstructure:"cleanup_threshold"`
	Redis            RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds connection settings for the Redis cache backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JobsConfig selects and tunes the job store backend.
type JobsConfig struct {
	Backend             string `mapstructure:"backend"`
	TTLHours            int    `mapstructure:"ttl_hours"`
	SweepIntervalMinute int    `mapstructure:"sweep_interval_minutes"`
	DSN                 string `mapstructure:"dsn"`
}

// APIEndpoint points at one external provider. An empty APIKey puts the
// provider in demo mode.
type APIEndpoint struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// ProvidersConfig holds credentials and endpoints for all external data
// providers.
type ProvidersConfig struct {
	TimeoutSeconds int         `mapstructure:"timeout_seconds"`
	PageSpeed      APIEndpoint `mapstructure:"pagespeed"`
	SERP           APIEndpoint `mapstructure:"serp"`
	SERPFallback   APIEndpoint `mapstructure:"serp_fallback"`
	Keyword        APIEndpoint `mapstructure:"keyword"`
}

// SynthesisConfig points at the text synthesis backend used for action
// plans. An empty BaseURL disables synthesis and the deterministic fallback
// plan is used instead.
type SynthesisConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ArchiveConfig selects where result snapshots are written.
type ArchiveConfig struct {
	Backend   string `mapstructure:"backend"`
	Prefix    string `mapstructure:"prefix"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// PubSubConfig holds metadata for completion-event publishing. An empty
// ProjectID keeps events in-process.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITESCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.development", true)
	v.SetDefault("log.level", "")
	v.SetDefault("fetch.user_agent", "sitescope-bot/0.1")
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("fetch.max_linked_pages", 5)
	v.SetDefault("fetch.max_body_bytes", 2<<20)
	v.SetDefault("fetch.page_text_limit", 10000)
	v.SetDefault("fetch.respect_robots", true)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.promotion_threshold", 2048)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl_minutes", 30)
	v.SetDefault("cache.cleanup_threshold", 100)
	v.SetDefault("jobs.backend", "memory")
	v.SetDefault("jobs.ttl_hours", 24)
	v.SetDefault("jobs.sweep_interval_minutes", 10)
	v.SetDefault("providers.timeout_seconds", 10)
	v.SetDefault("providers.pagespeed.base_url", "https://www.googleapis.com/pagespeedonline/v5/runPagespeed")
	v.SetDefault("providers.serp.base_url", "https://serpapi.com/search.json")
	v.SetDefault("providers.serp_fallback.base_url", "https://api.search.brave.com/res/v1/web/search")
	v.SetDefault("synthesis.timeout_seconds", 30)
	v.SetDefault("archive.backend", "none")
	v.SetDefault("archive.prefix", "analyses")
	v.SetDefault("pubsub.topic_name", "analysis.completed")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.MaxLinkedPages < 0 {
		return fmt.Errorf("fetch.max_linked_pages must be >= 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr must be set when cache.backend is redis")
		}
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.TTLMinutes <= 0 {
		return fmt.Errorf("cache.ttl_minutes must be > 0")
	}
	switch c.Jobs.Backend {
	case "memory":
	case "postgres":
		if c.Jobs.DSN == "" {
			return fmt.Errorf("jobs.dsn must be set when jobs.backend is postgres")
		}
	default:
		return fmt.Errorf("jobs.backend must be memory or postgres, got %q", c.Jobs.Backend)
	}
	if c.Jobs.TTLHours <= 0 {
		return fmt.Errorf("jobs.ttl_hours must be > 0")
	}
	if c.Jobs.SweepIntervalMinute <= 0 {
		return fmt.Errorf("jobs.sweep_interval_minutes must be > 0")
	}
	if c.Providers.TimeoutSeconds <= 0 {
		return fmt.Errorf("providers.timeout_seconds must be > 0")
	}
	switch c.Archive.Backend {
	case "none", "memory":
	case "local":
		if c.Archive.LocalDir == "" {
			return fmt.Errorf("archive.local_dir must be set when archive.backend is local")
		}
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set when archive.backend is gcs")
		}
	default:
		return fmt.Errorf("archive.backend must be none, memory, local or gcs, got %q", c.Archive.Backend)
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// FetchTimeout converts the fetch timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// ProviderTimeout bounds each external provider call.
func (c Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Providers.TimeoutSeconds) * time.Second
}

// CacheTTL is how long a computed result stays fresh.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// JobTTL is how long finished jobs are retained before sweeping.
func (c Config) JobTTL() time.Duration {
	return time.Duration(c.Jobs.TTLHours) * time.Hour
}

// SynthesisTimeout bounds one synthesis round trip.
func (c Config) SynthesisTimeout() time.Duration {
	return time.Duration(c.Synthesis.TimeoutSeconds) * time.Second
}
