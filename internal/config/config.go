package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/hybridsearch/pkg/config"
	"github.com/utafrali/hybridsearch/pkg/database"
	"github.com/utafrali/hybridsearch/pkg/tracing"
)

// Engine names accepted by SEARCH_ENGINE.
const (
	EngineElasticsearch = "elasticsearch"
	EngineMemory        = "memory"
)

// Config holds all configuration for the search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"SEARCH_HTTP_PORT" envDefault:"5000"`

	// Search engine selection (elasticsearch or memory). The memory engine
	// serves both modes and needs no backing stores.
	SearchEngine string `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"ecommerce"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Elasticsearch
	ElasticsearchURL      string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex    string `env:"ELASTICSEARCH_INDEX" envDefault:"products"`
	ElasticsearchUsername string `env:"ELASTICSEARCH_USERNAME"`
	ElasticsearchPassword string `env:"ELASTICSEARCH_PASSWORD"`

	// Result normalization
	BaseURL    string `env:"BASE_URL" envDefault:"http://localhost:5000"`
	UploadPath string `env:"UPLOAD_PATH" envDefault:"/uploads/product-images/"`

	// Search limits
	DefaultLimit       int `env:"SEARCH_DEFAULT_LIMIT" envDefault:"10"`
	MaxLimit           int `env:"SEARCH_MAX_LIMIT" envDefault:"100"`
	QueryTimeoutMs     int `env:"SEARCH_QUERY_TIMEOUT_MS" envDefault:"0"`
	ReindexBatchSize   int `env:"REINDEX_BATCH_SIZE" envDefault:"500"`
	CacheTTLSeconds    int `env:"SEARCH_CACHE_TTL_SECONDS" envDefault:"0"`
	SuggestDefaultSize int `env:"SEARCH_SUGGEST_LIMIT" envDefault:"5"`

	// Redis (result cache and event idempotency). Disabled when host is empty.
	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka index sync. Disabled unless KAFKA_ENABLED is set.
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"search-service"`

	// Upstream auth gate
	AuthEnabled    bool   `env:"AUTH_ENABLED" envDefault:"false"`
	AuthJWTSecret  string `env:"AUTH_JWT_SECRET"`
	AuthCookieName string `env:"AUTH_COOKIE_NAME" envDefault:"token"`

	// Per-IP rate limit. 0 disables.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"0"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`

	// OpenTelemetry
	Tracing tracing.Config

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}
	cfg.Tracing.ServiceName = "search-service"
	return cfg, nil
}

// Validate checks configuration invariants. It runs as part of Load.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.SearchEngine {
	case EngineElasticsearch, EngineMemory:
	default:
		return fmt.Errorf("SEARCH_ENGINE must be %q or %q, got %q", EngineElasticsearch, EngineMemory, c.SearchEngine)
	}
	if c.SearchEngine == EngineElasticsearch {
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
		if c.ElasticsearchURL == "" {
			return fmt.Errorf("ELASTICSEARCH_URL is required")
		}
	}
	if c.ElasticsearchIndex == "" {
		return fmt.Errorf("ELASTICSEARCH_INDEX is required")
	}
	if c.DefaultLimit < 1 {
		return fmt.Errorf("SEARCH_DEFAULT_LIMIT must be positive, got %d", c.DefaultLimit)
	}
	if c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("SEARCH_MAX_LIMIT (%d) must be >= SEARCH_DEFAULT_LIMIT (%d)", c.MaxLimit, c.DefaultLimit)
	}
	if c.QueryTimeoutMs < 0 {
		return fmt.Errorf("SEARCH_QUERY_TIMEOUT_MS must not be negative")
	}
	if c.ReindexBatchSize < 1 {
		return fmt.Errorf("REINDEX_BATCH_SIZE must be positive, got %d", c.ReindexBatchSize)
	}
	if c.CacheTTLSeconds < 0 {
		return fmt.Errorf("SEARCH_CACHE_TTL_SECONDS must not be negative")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.AuthEnabled && c.AuthJWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required when AUTH_ENABLED is set")
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}
	if err := c.Tracing.Validate(); err != nil {
		return err
	}
	return nil
}

// Postgres returns the pool configuration.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Redis returns the client configuration.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// RedisEnabled reports whether a Redis host is configured.
func (c *Config) RedisEnabled() bool { return c.RedisHost != "" }

func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutMs) * time.Millisecond
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresholdMs) * time.Millisecond
}
