// Package server provides configuration helpers that define runtime
// defaults, environment parsing, and sanitization for the Warren relay.
package server

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// RateLimitConfig defines the parameters for per-connection frame rate
// limiting.
type RateLimitConfig struct {
	Burst          int           `env:"RATE_LIMIT_BURST" envDefault:"5"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"1s"`
}

// Config holds the relay configuration, including security controls and the
// clip retention schedule.
type Config struct {
	Port              string        `env:"SERVER_PORT" envDefault:":8080"`
	AllowedOrigins    []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:8080"`
	MaxMessageSize    int64         `env:"MAX_MESSAGE_SIZE" envDefault:"4096"`
	MaxVoiceClipBytes int64         `env:"MAX_VOICE_CLIP_BYTES" envDefault:"5242880"`
	BlobRetention     time.Duration `env:"BLOB_RETENTION" envDefault:"24h"`
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RateLimit         RateLimitConfig
}

// NewConfig creates a Config populated with default values for all settings,
// ignoring the process environment.
func NewConfig() *Config {
	cfg := &Config{}
	// Parsing against an empty environment applies the struct defaults only.
	if err := env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}}); err != nil {
		panic(fmt.Sprintf("default config is unparseable: %v", err))
	}
	cfg.sanitize()
	return cfg
}

// NewConfigFromEnv creates a Config from environment variables, falling back
// to defaults for variables that are not set.
func NewConfigFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.sanitize()
	return cfg, nil
}

// sanitize floors nonsense values back to usable defaults.
func (c *Config) sanitize() {
	if c.Port == "" {
		c.Port = ":8080"
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 4096
	}
	if c.MaxVoiceClipBytes <= 0 {
		c.MaxVoiceClipBytes = 5 << 20
	}
	if c.BlobRetention <= 0 {
		c.BlobRetention = DefaultBlobRetention
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 5
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = time.Second
	}
}
