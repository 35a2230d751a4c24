package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/utafrali/bookshop/pkg/config"
)

// View store backends.
const (
	ViewStoreMemory = "memory"
	ViewStoreRedis  = "redis"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8010"`

	// Catalog source (NYT Books API)
	CatalogBaseURL       string        `env:"CATALOG_BASE_URL" envDefault:"https://api.nytimes.com/svc/books/v3"`
	CatalogList          string        `env:"CATALOG_LIST" envDefault:"hardcover-fiction"`
	CatalogAPIKey        string        `env:"CATALOG_API_KEY"`
	CatalogTimeout       time.Duration `env:"CATALOG_TIMEOUT" envDefault:"15s"`
	CatalogRatePerMinute int           `env:"CATALOG_RATE_PER_MINUTE" envDefault:"10"`

	// View storage
	ViewStore  string `env:"VIEW_STORE" envDefault:"memory"`
	RedisAddr  string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass  string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB    int    `env:"REDIS_DB" envDefault:"0"`
	ViewTTLMin int    `env:"VIEW_TTL_MINUTES" envDefault:"30"`

	// Redis commands slower than this are logged; 0 disables.
	RedisSlowCommandMs int `env:"REDIS_SLOW_COMMAND_MS" envDefault:"100"`

	// Kafka; no brokers disables event publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// OpenTelemetry
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	PprofAllowedCIDRs  []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ViewTTL is the idle lifetime of a mounted view.
func (c *Config) ViewTTL() time.Duration {
	return time.Duration(c.ViewTTLMin) * time.Minute
}

// EventsEnabled reports whether Kafka brokers are configured.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.CatalogAPIKey == "" {
		return fmt.Errorf("CATALOG_API_KEY is required")
	}
	if u, err := url.Parse(c.CatalogBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid CATALOG_BASE_URL: %q", c.CatalogBaseURL)
	}
	if c.CatalogList == "" {
		return fmt.Errorf("CATALOG_LIST must not be empty")
	}
	if c.CatalogTimeout <= 0 {
		return fmt.Errorf("CATALOG_TIMEOUT must be positive, got %s", c.CatalogTimeout)
	}
	if c.CatalogRatePerMinute < 1 {
		return fmt.Errorf("CATALOG_RATE_PER_MINUTE must be at least 1, got %d", c.CatalogRatePerMinute)
	}
	if c.ViewStore != ViewStoreMemory && c.ViewStore != ViewStoreRedis {
		return fmt.Errorf("VIEW_STORE must be %q or %q, got %q", ViewStoreMemory, ViewStoreRedis, c.ViewStore)
	}
	if c.ViewTTLMin < 1 {
		return fmt.Errorf("VIEW_TTL_MINUTES must be at least 1, got %d", c.ViewTTLMin)
	}
	if c.RedisSlowCommandMs < 0 {
		return fmt.Errorf("REDIS_SLOW_COMMAND_MS must not be negative, got %d", c.RedisSlowCommandMs)
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTelSampleRate)
	}
	return nil
}
