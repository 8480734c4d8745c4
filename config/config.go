// Package config loads runtime configuration from YAML with environment
// overrides. A .env file, when present, is folded into the environment
// first.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config is the full runtime configuration.
type Config struct {
	User      UserConfig      `yaml:"user"`
	Quote     QuoteConfig     `yaml:"quote"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Store     StoreConfig     `yaml:"store"`
	History   HistoryConfig   `yaml:"history"`
	Serve     ServeConfig     `yaml:"serve"`
}

// UserConfig identifies whose data the CLI commands operate on.
type UserConfig struct {
	ID string `yaml:"id"`
}

// QuoteConfig configures the live quote client.
type QuoteConfig struct {
	BaseURL string `yaml:"base_url"`
	PaceMs  int    `yaml:"pace_ms"`
}

// Pace returns the request spacing for sequential quote refreshes.
func (q QuoteConfig) Pace() time.Duration {
	return time.Duration(q.PaceMs) * time.Millisecond
}

// ArtifactsConfig configures the daily artifacts client.
type ArtifactsConfig struct {
	BaseURL string `yaml:"base_url"`
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Backend  string         `yaml:"backend"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PostgresConfig holds the postgres connection string.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// HistoryConfig configures the local history cache.
type HistoryConfig struct {
	CachePath string `yaml:"cache_path"`
}

// ServeConfig configures the push server.
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// Defaults returns the configuration used when no file or overrides are
// given: in-memory store, public data root, one request per second.
func Defaults() *Config {
	return &Config{
		Quote:     QuoteConfig{BaseURL: "https://trendguard.app", PaceMs: 1000},
		Artifacts: ArtifactsConfig{BaseURL: "https://trendguard.app"},
		Store: StoreConfig{
			Backend: BackendMemory,
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		History: HistoryConfig{CachePath: ".trendguard/history.json"},
		Serve:   ServeConfig{Addr: ":8091"},
	}
}

// Load reads the configuration at path on top of the defaults. An empty
// path skips the file and uses defaults plus environment overrides only.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.User.ID, "TRENDGUARD_USER_ID")
	setString(&c.Quote.BaseURL, "TRENDGUARD_QUOTE_URL")
	setString(&c.Artifacts.BaseURL, "TRENDGUARD_ARTIFACTS_URL")
	setString(&c.Store.Backend, "TRENDGUARD_STORE_BACKEND")
	setString(&c.Store.Redis.Addr, "TRENDGUARD_REDIS_ADDR")
	setString(&c.Store.Redis.Password, "TRENDGUARD_REDIS_PASSWORD")
	setString(&c.Store.Postgres.DSN, "TRENDGUARD_POSTGRES_DSN")
	setString(&c.History.CachePath, "TRENDGUARD_HISTORY_CACHE")
	setString(&c.Serve.Addr, "TRENDGUARD_SERVE_ADDR")
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == BackendPostgres && c.Store.Postgres.DSN == "" {
		return fmt.Errorf("postgres backend needs a dsn")
	}
	if c.Quote.PaceMs <= 0 {
		return fmt.Errorf("quote pace must be positive, got %d ms", c.Quote.PaceMs)
	}
	return nil
}
