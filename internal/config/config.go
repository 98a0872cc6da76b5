// Package config defines sync run configuration and loading.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers sources.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"time"

	"github.com/edupulse/edusync/internal/domain/transform"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// SourceBaseURL is the root of the source HTTP API.
	SourceBaseURL string `koanf:"source_base_url" validate:"required,url"`

	// SourceAppID and SourceAPIKey authenticate against the source.
	SourceAppID  string `koanf:"source_app_id" validate:"required"`
	SourceAPIKey string `koanf:"source_api_key" validate:"required"`

	// DatabaseURL is the destination PostgreSQL connection string.
	// Dry runs still read lookup state through it.
	DatabaseURL string `koanf:"database_url" validate:"required"`

	// CheckpointPath locates the resume checkpoint file.
	CheckpointPath string `koanf:"checkpoint_path" validate:"required"`

	// PageSize sets rows per source page request.
	PageSize int `koanf:"page_size" validate:"gt=0"`

	// PageDelayMS spaces successive source requests.
	PageDelayMS int `koanf:"page_delay_ms" validate:"gte=0"`

	// FetchRetries bounds retries of a failing source request.
	FetchRetries int `koanf:"fetch_retries" validate:"gte=0"`

	// BatchSize is the buffered-row flush threshold per entity kind.
	BatchSize int `koanf:"batch_size" validate:"gt=0"`

	// WriteRetries bounds retries of a failing destination batch
	// before bisection.
	WriteRetries int `koanf:"write_retries" validate:"gte=0"`

	// StatsMinSampleSize marks smaller statistic groups low confidence.
	StatsMinSampleSize int `koanf:"stats_min_sample_size" validate:"gt=0"`

	// HealthAddr is the /healthz and /metrics listen address. Empty
	// disables the listener.
	HealthAddr string `koanf:"health_addr"`

	// Fields maps source field identifiers to their pipeline roles.
	// Set through the YAML config file; identifiers vary per deployment.
	Fields transform.Fields `koanf:"fields"`
}

// PageDelay returns the source request spacing as a duration.
func (c *Config) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMS) * time.Millisecond
}

// New creates a Config with defaults. Credentials and field mappings
// have no defaults and must come from the environment or file.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		CheckpointPath:     ".edusync-checkpoint.json",
		PageSize:           500,
		PageDelayMS:        350,
		FetchRetries:       5,
		BatchSize:          200,
		WriteRetries:       3,
		StatsMinSampleSize: 10,
		HealthAddr:         ":9090",
	}
}
