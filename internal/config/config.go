// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"runtime"

	"github.com/okian/gamx/internal/domain/scoring"
	"github.com/okian/gamx/pkg/logger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory result queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the result id cache; zero or less keeps every id.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// TargetUpperBound is the largest total the target solver tries.
	TargetUpperBound int `koanf:"target_upper_bound"`

	// TablesDir, when set, replaces the bundled parameter tables with the
	// CSV files in that directory.
	TablesDir string `koanf:"tables_dir"`

	// DefaultVariant is used when a request names no variant.
	DefaultVariant string `koanf:"default_variant"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           logger.FormatText,
		Addr:                ":9080",
		QueueSize:           100_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          500_000,
		MaxLeaderboardLimit: 100,
		TargetUpperBound:    scoring.DefaultTargetUpperBound,
		DefaultVariant:      scoring.VariantSenior.String(),
	}
}

// Validate reports the first setting the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive, got %d", ErrInvalidConfig, c.MaxLeaderboardLimit)
	case c.TargetUpperBound <= 0:
		return fmt.Errorf("%w: target_upper_bound must be positive, got %d", ErrInvalidConfig, c.TargetUpperBound)
	}
	if c.LogFormat != logger.FormatText && c.LogFormat != logger.FormatJSON {
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if _, err := c.Variant(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Variant parses DefaultVariant.
func (c *Config) Variant() (scoring.Variant, error) {
	return scoring.ParseVariant(c.DefaultVariant)
}
