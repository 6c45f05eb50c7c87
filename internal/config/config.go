// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address of the gRPC health server (e.g. :9090). Empty disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// RedisAddr is the host:port of the Redis instance backing the revocation cache.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional Redis AUTH password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// RedisDB selects the logical Redis database.
	RedisDB int `mapstructure:"REDIS_DB"`

	// JWTKey is the symmetric signing key: inline text, "base64:<...>", or a path to a file.
	// Token issuance fails until it is set.
	JWTKey string `mapstructure:"JWT_KEY"`
	// JWTIssuer is the iss claim.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTExpireMinutes is the access token lifetime in minutes (default 20).
	JWTExpireMinutes int `mapstructure:"JWT_EXPIRE_MINUTES"`
	// SessionIdleTimeoutRaw is the sliding session expiration window (e.g. "20m").
	SessionIdleTimeoutRaw string `mapstructure:"SESSION_IDLE_TIMEOUT"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// Env is the application environment (e.g. "development", "production"). Production logs are JSON.
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext connection to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is reported as service.name on all telemetry.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_KEY", "")
	v.SetDefault("JWT_ISSUER", "mini-iam")
	v.SetDefault("JWT_AUDIENCE", "mini-iam-api")
	v.SetDefault("JWT_EXPIRE_MINUTES", 20)
	v.SetDefault("SESSION_IDLE_TIMEOUT", "20m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "mini-iam")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.JWTExpireMinutes < 0 {
		return nil, errors.New("config: JWT_EXPIRE_MINUTES must not be negative")
	}
	if cfg.RedisDB < 0 {
		return nil, errors.New("config: REDIS_DB must not be negative")
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	return &cfg, nil
}

// TokenExpiry returns the access token lifetime. Returns 20m if unset or zero.
func (c *Config) TokenExpiry() time.Duration {
	if c.JWTExpireMinutes <= 0 {
		return 20 * time.Minute
	}
	return time.Duration(c.JWTExpireMinutes) * time.Minute
}

// SessionIdleTimeout parses SessionIdleTimeoutRaw as a time.Duration. Returns 20m if unset or invalid.
func (c *Config) SessionIdleTimeout() time.Duration {
	d, err := time.ParseDuration(c.SessionIdleTimeoutRaw)
	if err != nil || d <= 0 {
		return 20 * time.Minute
	}
	return d
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return c != nil && strings.EqualFold(c.Env, "production")
}
