// Package config defines the hubwatch runtime configuration. It is loaded once
// at process start and treated as immutable afterwards.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// A missing required value or an invalid format fails startup.
package config

import (
	"time"

	"hubwatch/internal/types"
)

// SecretString is an alias for types.SecretString so config consumers do not
// need to import types for it.
type SecretString = types.SecretString

// Config is the top-level configuration. Sub-components receive only the
// subset they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"hubwatch"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	Database      DatabaseConfig
	Upstream      UpstreamConfig
	Refresh       RefreshConfig
	Notify        NotifyConfig
	Archive       ArchiveConfig
	AWS           AWSConfig
	Observability ObservabilityConfig

	// Injected via ldflags, not env.
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string   `envconfig:"PORT" default:"8080"`
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	// MigrateOnStart applies the embedded schema before serving.
	MigrateOnStart bool `envconfig:"MIGRATE_ON_START" default:"true"`
}

// DatabaseConfig holds connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10" validate:"gte=1"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"1" validate:"gte=0"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// UpstreamConfig points at the weather and FAA services.
type UpstreamConfig struct {
	NWSBaseURL          string        `envconfig:"NWS_BASE_URL" default:"https://api.weather.gov" validate:"url"`
	NWSUserAgent        string        `envconfig:"NWS_USER_AGENT" default:"hubwatch/1.0"`
	FAAOpsPlanURL       string        `envconfig:"FAA_OPS_PLAN_URL" default:"https://nasstatus.faa.gov/api/operations-plan" validate:"url"`
	FAAAirportStatusURL string        `envconfig:"FAA_AIRPORT_STATUS_URL" default:"https://nasstatus.faa.gov/api/airport-status-information" validate:"url"`
	HTTPTimeout         time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s" validate:"gte=10s,lte=30s"`
	// UseStubs serves canned forecasts and advisories instead of calling out.
	UseStubs bool `envconfig:"UPSTREAM_STUBS" default:"false"`
}

// RefreshConfig tunes the refresh scheduler.
type RefreshConfig struct {
	Interval         time.Duration `envconfig:"REFRESH_INTERVAL" default:"30s" validate:"gte=1s"`
	AdvisoryInterval time.Duration `envconfig:"ADVISORY_REFRESH_INTERVAL" default:"600s" validate:"gte=1s"`
	AdvisoryCacheTTL time.Duration `envconfig:"ADVISORY_CACHE_TTL" default:"600s" validate:"gte=1s"`
	HubConcurrency   int           `envconfig:"HUB_CONCURRENCY" default:"4" validate:"gte=1,lte=64"`
	HubTickTimeout   time.Duration `envconfig:"HUB_TICK_TIMEOUT" default:"45s" validate:"gte=1s"`
	StuckCeiling     time.Duration `envconfig:"TICK_STUCK_CEILING" default:"10m" validate:"gte=1s"`
	// CarryoverLastHour caps how far into a later day a stale AFTER advisory
	// is annotated: -1 disables, 23 is unbounded.
	CarryoverLastHour int    `envconfig:"STALE_AFTER_CARRYOVER_LAST_HOUR" default:"2" validate:"gte=-1,lte=23"`
	ConstraintLogPath string `envconfig:"CONSTRAINT_LOG_PATH"`
	// HubCataloguePath replaces the built-in hub catalogue with a YAML file.
	HubCataloguePath string `envconfig:"HUB_CATALOGUE_PATH"`
}

// NotifyConfig selects the DashboardChanged sinks. The in-process broadcaster
// that feeds SSE clients is always on.
type NotifyConfig struct {
	SQSQueueURL  string   `envconfig:"NOTIFY_SQS_QUEUE_URL" validate:"omitempty,url"`
	KafkaBrokers []string `envconfig:"NOTIFY_KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"NOTIFY_KAFKA_TOPIC" validate:"required_with=KafkaBrokers"`
}

// ArchiveConfig controls the daily archive export.
type ArchiveConfig struct {
	Bucket   string `envconfig:"ARCHIVE_BUCKET"`
	ExportAt string `envconfig:"ARCHIVE_EXPORT_AT" default:"00:15" validate:"datetime=15:04"`
}

// AWSConfig holds regional configuration shared by all AWS clients.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`
	// LocalStack support; empty in prod.
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace  string `envconfig:"METRIC_NAMESPACE" default:"HubWatch"`
	EnableCloudWatch bool   `envconfig:"ENABLE_CLOUDWATCH" default:"false"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates an environment value could not be parsed.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
