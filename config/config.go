// Package config loads gateway configuration from the environment and an
// optional .env file. Missing required settings abort startup; the gateway
// never runs half-configured.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// ListenAddr is the HTTP listen address (default :5000).
	ListenAddr string `mapstructure:"LISTEN_ADDR"`
	// Env is the application environment; "production" hides error detail.
	Env string `mapstructure:"APP_ENV"`

	// JWTSecret signs session tokens. Required.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// SessionTokenTTL is the session token validity window (default 24h).
	SessionTokenTTL time.Duration `mapstructure:"SESSION_TOKEN_TTL"`
	// ChallengeTokenTTL is the challenge token validity window (default 1h).
	ChallengeTokenTTL time.Duration `mapstructure:"CHALLENGE_TOKEN_TTL"`

	// OdooURL is the ERP base URL. Required.
	OdooURL string `mapstructure:"ODOO_URL"`
	// OdooDB is the ERP database name. Required.
	OdooDB string `mapstructure:"ODOO_DB"`
	// OdooServiceLogin is the service-account login used for the shared ERP
	// session. Required.
	OdooServiceLogin string `mapstructure:"ODOO_SERVICE_LOGIN"`
	// OdooServicePassword is the service-account password. Required.
	OdooServicePassword string `mapstructure:"ODOO_SERVICE_PASSWORD"`

	// RedisURL enables the Redis-backed challenge store, rate limiter and
	// security event stream when set.
	RedisURL string `mapstructure:"REDIS_URL"`
}

// Production reports whether the gateway runs in production mode.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore a missing .env

	v.AutomaticEnv()

	v.SetDefault("LISTEN_ADDR", ":5000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("SESSION_TOKEN_TTL", 24*time.Hour)
	v.SetDefault("CHALLENGE_TOKEN_TTL", time.Hour)
	v.SetDefault("ODOO_URL", "")
	v.SetDefault("ODOO_DB", "")
	v.SetDefault("ODOO_SERVICE_LOGIN", "")
	v.SetDefault("ODOO_SERVICE_PASSWORD", "")
	v.SetDefault("REDIS_URL", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET must be set")
	}
	if cfg.OdooURL == "" {
		return nil, errors.New("config: ODOO_URL must be set")
	}
	if cfg.OdooDB == "" {
		return nil, errors.New("config: ODOO_DB must be set")
	}
	if cfg.OdooServiceLogin == "" || cfg.OdooServicePassword == "" {
		return nil, errors.New("config: ODOO_SERVICE_LOGIN and ODOO_SERVICE_PASSWORD must be set")
	}
	if cfg.SessionTokenTTL <= 0 {
		return nil, errors.New("config: SESSION_TOKEN_TTL must be positive")
	}
	if cfg.ChallengeTokenTTL <= 0 {
		return nil, errors.New("config: CHALLENGE_TOKEN_TTL must be positive")
	}

	return &cfg, nil
}
