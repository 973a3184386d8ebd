// Package config loads process configuration from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	sgstrings "shiftguard/pkg/platform/strings"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	Env      string `mapstructure:"APP_ENV"`

	// DatabaseURL is the Postgres DSN. Empty runs on in-memory stores.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL enables the distributed pass lock and the settings cache.
	RedisURL string `mapstructure:"REDIS_URL"`

	// KafkaBrokers is a comma-separated broker list. Empty falls back to the
	// log sender.
	KafkaBrokers    string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopicPush  string `mapstructure:"KAFKA_TOPIC_PUSH"`
	KafkaTopicEmail string `mapstructure:"KAFKA_TOPIC_EMAIL"`

	// AdminJWTSecret signs HS256 tokens accepted by the admin routes.
	AdminJWTSecret string `mapstructure:"ADMIN_JWT_SECRET"`

	EvalInterval    time.Duration `mapstructure:"EVAL_INTERVAL"`
	EvalStartHour   int           `mapstructure:"EVAL_START_HOUR"`
	EvalEndHour     int           `mapstructure:"EVAL_END_HOUR"`
	EvalConcurrency int           `mapstructure:"EVAL_CONCURRENCY"`
	EvalLookback    time.Duration `mapstructure:"EVAL_LOOKBACK"`

	LocationFreshness   time.Duration `mapstructure:"LOCATION_FRESHNESS"`
	LocationMaxAccuracy float64       `mapstructure:"LOCATION_MAX_ACCURACY_M"`
	LocationHistory     time.Duration `mapstructure:"LOCATION_HISTORY"`

	DeliveryTimeout   time.Duration `mapstructure:"DELIVERY_TIMEOUT"`
	DispatchQueueSize int           `mapstructure:"DISPATCH_QUEUE_SIZE"`
	DispatchWorkers   int           `mapstructure:"DISPATCH_WORKERS"`

	PassLockTTL      time.Duration `mapstructure:"PASS_LOCK_TTL"`
	SettingsCacheTTL time.Duration `mapstructure:"SETTINGS_CACHE_TTL"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// OTLPEndpoint is the OTLP/gRPC collector for traces. Empty keeps the
	// no-op tracer.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC_PUSH", "shiftguard.notifications.push")
	v.SetDefault("KAFKA_TOPIC_EMAIL", "shiftguard.notifications.email")
	v.SetDefault("ADMIN_JWT_SECRET", "")
	v.SetDefault("EVAL_INTERVAL", "30m")
	v.SetDefault("EVAL_START_HOUR", 6)
	v.SetDefault("EVAL_END_HOUR", 23)
	v.SetDefault("EVAL_CONCURRENCY", 8)
	v.SetDefault("EVAL_LOOKBACK", "24h")
	v.SetDefault("LOCATION_FRESHNESS", "15m")
	v.SetDefault("LOCATION_MAX_ACCURACY_M", 200)
	v.SetDefault("LOCATION_HISTORY", "2h")
	v.SetDefault("DELIVERY_TIMEOUT", "5s")
	v.SetDefault("DISPATCH_QUEUE_SIZE", 1024)
	v.SetDefault("DISPATCH_WORKERS", 4)
	v.SetDefault("PASS_LOCK_TTL", "10m")
	v.SetDefault("SETTINGS_CACHE_TTL", "5m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
}

// Validate rejects settings the scheduler and dispatcher cannot run with.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.EvalInterval <= 0 {
		return errors.New("config: EVAL_INTERVAL must be positive")
	}
	if c.EvalStartHour < 0 || c.EvalEndHour > 24 || c.EvalStartHour >= c.EvalEndHour {
		return errors.New("config: EVAL_START_HOUR must be before EVAL_END_HOUR within 0..24")
	}
	if c.EvalConcurrency < 1 {
		return errors.New("config: EVAL_CONCURRENCY must be at least 1")
	}
	if c.DispatchWorkers < 1 || c.DispatchQueueSize < 1 {
		return errors.New("config: DISPATCH_WORKERS and DISPATCH_QUEUE_SIZE must be at least 1")
	}
	if c.Env == "production" && c.AdminJWTSecret == "" {
		return errors.New("config: ADMIN_JWT_SECRET must be set when APP_ENV=production")
	}
	return nil
}

// KafkaBrokerList returns the distinct broker addresses from the
// comma-separated config.
func (c *Config) KafkaBrokerList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	return sgstrings.DedupeAndTrim(strings.Split(c.KafkaBrokers, ","))
}

// Redis returns the connection settings for the shared Redis client.
func (c *Config) Redis() RedisConfig {
	return RedisConfig{
		URL:          c.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// RedisConfig configures the go-redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}
