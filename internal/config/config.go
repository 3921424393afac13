// Package config loads frontend settings from the environment, an optional
// .env file and an optional config.yml.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix         = "DISCUTEX"
	defaultSecret     = "dev-session-secret-change-in-production"
	minSecretLenProd  = 32
	defaultSessionTTL = 7 * 24 * time.Hour
)

type Config struct {
	APIBaseURL        string        `mapstructure:"API_BASE_URL"`
	Addr              string        `mapstructure:"ADDR"`
	Env               string        `mapstructure:"APP_ENV"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	HTTPTimeout       time.Duration `mapstructure:"HTTP_TIMEOUT"`
	EnrichConcurrency int           `mapstructure:"ENRICH_CONCURRENCY"`

	SessionBackend string        `mapstructure:"SESSION_BACKEND"`
	SessionDB      string        `mapstructure:"SESSION_DB"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`
	SessionSecret  string        `mapstructure:"SESSION_SECRET"`

	TracingEnabled  bool   `mapstructure:"TRACING_ENABLED"`
	TracingExporter string `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string `mapstructure:"OTLP_ENDPOINT"`

	RateLimits RateLimits `mapstructure:",squash"`
}

type RateLimits struct {
	LoginPerMinute    int `mapstructure:"RL_LOGIN_PER_MIN"`
	RegisterPerMinute int `mapstructure:"RL_REGISTER_PER_MIN"`
	VotePerMinute     int `mapstructure:"RL_VOTE_PER_MIN"`
	RatePerMinute     int `mapstructure:"RL_RATE_PER_MIN"`
}

func (c Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Load reads configuration. Environment variables use the DISCUTEX_
// prefix, e.g. DISCUTEX_API_BASE_URL. Values already in the environment
// win over .env entries.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	cfg.SessionBackend = strings.ToLower(strings.TrimSpace(cfg.SessionBackend))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_BASE_URL", "http://localhost")
	v.SetDefault("ADDR", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_TIMEOUT", "30s")
	v.SetDefault("ENRICH_CONCURRENCY", 8)
	v.SetDefault("SESSION_BACKEND", "sqlite")
	v.SetDefault("SESSION_DB", "discutex-sessions.db")
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("SESSION_TTL", defaultSessionTTL.String())
	v.SetDefault("SESSION_SECRET", defaultSecret)
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("RL_LOGIN_PER_MIN", 10)
	v.SetDefault("RL_REGISTER_PER_MIN", 5)
	v.SetDefault("RL_VOTE_PER_MIN", 60)
	v.SetDefault("RL_RATE_PER_MIN", 30)
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.APIBaseURL)
	}
	if c.Addr == "" {
		return errors.New("ADDR is required")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("HTTP_TIMEOUT must be positive")
	}
	if c.EnrichConcurrency < 1 {
		return errors.New("ENRICH_CONCURRENCY must be at least 1")
	}
	switch c.SessionBackend {
	case "sqlite":
		if c.SessionDB == "" {
			return errors.New("SESSION_DB is required for the sqlite session backend")
		}
	case "redis":
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis session backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if c.IsProduction() {
		if c.SessionSecret == defaultSecret {
			return errors.New("SESSION_SECRET must be changed from the default value in production")
		}
		if len(c.SessionSecret) < minSecretLenProd {
			return fmt.Errorf("SESSION_SECRET must be at least %d characters in production", minSecretLenProd)
		}
		if c.SessionBackend == "memory" {
			return errors.New("the memory session backend is not allowed in production")
		}
	}
	if c.TracingEnabled && c.TracingExporter != "stdout" && c.TracingExporter != "otlp" {
		return fmt.Errorf("unknown TRACING_EXPORTER %q", c.TracingExporter)
	}
	return nil
}
