package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the service.
type Config struct {
	// Service settings
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"realtime-chat"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"PORT" envDefault:"8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Backing stores
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`

	// Gateway auth
	JWTAccessSecret string `env:"JWT_ACCESS_SECRET"`

	// Delivery pipeline
	PlanInterval     time.Duration `env:"PLAN_INTERVAL" envDefault:"24h"`
	DispatchInterval time.Duration `env:"DISPATCH_INTERVAL" envDefault:"1m"`
	QueueName        string        `env:"QUEUE_NAME" envDefault:"deliveries"`
	QueueMaxRetry    int           `env:"QUEUE_MAX_RETRY" envDefault:"25"`
	JobLeaseTTL      time.Duration `env:"JOB_LEASE_TTL" envDefault:"50s"`

	// Search indexing (empty URL disables indexing)
	SearchURL   string `env:"SEARCH_URL"`
	SearchIndex string `env:"SEARCH_INDEX" envDefault:"messages"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(cfg.JWTAccessSecret) == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.DispatchInterval <= 0 {
		return nil, fmt.Errorf("DISPATCH_INTERVAL must be positive")
	}
	if cfg.JobLeaseTTL <= 0 {
		return nil, fmt.Errorf("JOB_LEASE_TTL must be positive")
	}

	return cfg, nil
}

// Addr returns the HTTP server address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
