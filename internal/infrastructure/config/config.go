// Package config loads bridge configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all bridge configuration.
type Config struct {
	Server    ServerConfig
	Bridge    BridgeConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8372"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// BridgeConfig holds correlation and peer channel tuning.
type BridgeConfig struct {
	DefaultTimeout     time.Duration `envconfig:"BRIDGE_DEFAULT_TIMEOUT" default:"30s"`
	ResultRetention    time.Duration `envconfig:"BRIDGE_RESULT_RETENTION" default:"5m"`
	SweepInterval      time.Duration `envconfig:"BRIDGE_SWEEP_INTERVAL" default:"10s"`
	PingInterval       time.Duration `envconfig:"BRIDGE_PING_INTERVAL" default:"30s"`
	IdleTimeout        time.Duration `envconfig:"BRIDGE_IDLE_TIMEOUT" default:"90s"`
	NotificationBuffer int           `envconfig:"BRIDGE_NOTIFICATION_BUFFER" default:"64"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8372",
			Host: "127.0.0.1",
		},
		Bridge: BridgeConfig{
			DefaultTimeout:     30 * time.Second,
			ResultRetention:    5 * time.Minute,
			SweepInterval:      10 * time.Second,
			PingInterval:       30 * time.Second,
			IdleTimeout:        90 * time.Second,
			NotificationBuffer: 64,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           false,
		},
	}
}
