// Package config defines the global configuration structure for the plantcare
// service. Configuration is loaded once at process initialization and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved from the OS environment, with a .env file as a
// development fallback. Any missing required value or invalid format causes
// the application to fail immediately on startup.
package config

import (
	"time"

	"plantcare/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// specific config subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"plantcare-service"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server   ServerConfig
	Database DatabaseConfig
	AWS      AWSConfig
	Engine   EngineConfig
	Archive  ArchiveConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
// An empty URL selects the in-memory store, which is only meaningful for
// local development.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"omitempty,url"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// ReminderQueue is the SQS queue consumed by the reminder worker. Empty
	// disables reminder dispatch.
	ReminderQueue string `envconfig:"SQS_REMINDERS" validate:"omitempty,url"`

	// ArchiveBucket is the cold-storage destination for exported event
	// history. Empty disables archiving.
	ArchiveBucket string `envconfig:"ARCHIVE_BUCKET"`

	// MetricsEnabled controls CloudWatch metric emission.
	MetricsEnabled bool `envconfig:"CLOUDWATCH_METRICS_ENABLED" default:"false"`

	// LocalStack support; empty in production.
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// EngineConfig holds care plan engine tuning.
type EngineConfig struct {
	// ConfidenceThreshold is the minimum classifier confidence for a
	// detection to be accepted into a transition.
	ConfidenceThreshold float64 `envconfig:"DETECTION_CONFIDENCE_THRESHOLD" default:"0.35" validate:"gte=0,lte=1"`

	// WorkerQueueSize bounds the pending detection jobs.
	WorkerQueueSize int `envconfig:"ENGINE_WORKER_QUEUE_SIZE" default:"64" validate:"gt=0"`
}

// ArchiveConfig holds event history export settings.
type ArchiveConfig struct {
	// Retention is how long completed events stay in the hot store before
	// the archiver exports them.
	Retention time.Duration `envconfig:"ARCHIVE_RETENTION" default:"2160h"`

	// Concurrency bounds the parallel per-plant export workers.
	Concurrency int `envconfig:"ARCHIVE_CONCURRENCY" default:"4" validate:"gt=0"`
}
