// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and COACHFIT_* environment variables on top.
// - Errors wrap this package's sentinels.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Roster sources.
const (
	RosterSourceCSV   = "csv"
	RosterSourceRedis = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ArtifactPath points at the trained model artifact.
	ArtifactPath string `koanf:"artifact_path"`

	// RosterSource selects where coach records come from: csv or redis.
	RosterSource string `koanf:"roster_source"`

	// RosterPath is the CSV roster file.
	RosterPath string `koanf:"roster_path"`

	// Redis roster settings.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisKey      string `koanf:"redis_key"`

	// DefaultTopN is used by the ranked endpoint when no limit is given.
	DefaultTopN int `koanf:"default_top_n"`

	// MaxTopN caps the ranked endpoint limit.
	MaxTopN int `koanf:"max_top_n"`

	// MaxBatchSize caps the number of trainees per batch request.
	MaxBatchSize int `koanf:"max_batch_size"`

	// BatchConcurrency bounds concurrent trainees within one batch.
	BatchConcurrency int `koanf:"batch_concurrency"`

	// MaxRosterListing caps GET /coaches?limit.
	MaxRosterListing int `koanf:"max_roster_listing"`

	// RateLimitRPS sheds recommendation requests above this rate with 429.
	// Zero disables shedding.
	RateLimitRPS float64 `koanf:"rate_limit_rps"`

	// RateLimitBurst is the token bucket size for RateLimitRPS.
	RateLimitBurst int `koanf:"rate_limit_burst"`

	// MetricsRefreshInterval is how often runtime metrics are sampled.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		ArtifactPath:     "coach_recommender_model.yaml",
		RosterSource:     RosterSourceCSV,
		RosterPath:       "coach_suitability.csv",
		RedisAddr:        "localhost:6379",
		RedisDB:          0,
		RedisKey:         "coachfit:coaches",
		DefaultTopN:      1,
		MaxTopN:          50,
		MaxBatchSize:     100,
		BatchConcurrency: runtime.NumCPU(),
		MaxRosterListing: 100,
		RateLimitRPS:     0,
		RateLimitBurst:   50,

		MetricsRefreshInterval: 10 * time.Second,
	}
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ArtifactPath == "":
		return fmt.Errorf("%w: artifact_path must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	case c.DefaultTopN < 1:
		return fmt.Errorf("%w: default_top_n must be >= 1", ErrInvalidConfig)
	case c.MaxTopN < c.DefaultTopN:
		return fmt.Errorf("%w: max_top_n must be >= default_top_n", ErrInvalidConfig)
	case c.MaxBatchSize < 1:
		return fmt.Errorf("%w: max_batch_size must be >= 1", ErrInvalidConfig)
	case c.BatchConcurrency < 1:
		return fmt.Errorf("%w: batch_concurrency must be >= 1", ErrInvalidConfig)
	case c.MaxRosterListing < 1:
		return fmt.Errorf("%w: max_roster_listing must be >= 1", ErrInvalidConfig)
	case c.RateLimitRPS < 0:
		return fmt.Errorf("%w: rate_limit_rps must be >= 0", ErrInvalidConfig)
	case c.RateLimitRPS > 0 && c.RateLimitBurst < 1:
		return fmt.Errorf("%w: rate_limit_burst must be >= 1 when rate limiting", ErrInvalidConfig)
	case c.MetricsRefreshInterval <= 0:
		return fmt.Errorf("%w: metrics_refresh_interval must be positive", ErrInvalidConfig)
	}

	switch c.RosterSource {
	case RosterSourceCSV:
		if c.RosterPath == "" {
			return fmt.Errorf("%w: roster_path must not be empty", ErrInvalidConfig)
		}
	case RosterSourceRedis:
		if c.RedisAddr == "" || c.RedisKey == "" {
			return fmt.Errorf("%w: redis_addr and redis_key are required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: roster_source %q", ErrInvalidConfig, c.RosterSource)
	}
	return nil
}
