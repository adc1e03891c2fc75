// Package config defines the process configuration for the sunpump service
// and its advisory worker. Configuration is loaded once at startup and is
// immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// Any missing required value or invalid format fails startup.
package config

import (
	"fmt"
	"time"

	"sunpump/internal/types"
)

// SecretString is an alias for types.SecretString so that secrets never
// appear in logs.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"sunpump"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	Forecast      ForecastConfig
	AWS           AWSConfig
	Advisory      AdvisoryConfig
	Security      SecurityConfig
	Observability ObservabilityConfig

	// Injected via ldflags, not env.
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	// DisplayTimezone is the IANA zone used for timestamps on the dashboard.
	DisplayTimezone string `envconfig:"DISPLAY_TIMEZONE" default:"Asia/Kolkata" validate:"timezone"`
}

// ForecastConfig describes where the precomputed forecast lives and how alerts
// are derived from it.
type ForecastConfig struct {
	// Source is a local path, s3://bucket/key or http(s):// URL. A .zst
	// suffix marks a zstd-compressed file.
	Source    string          `envconfig:"FORECAST_SOURCE" validate:"required"`
	AlertRule types.AlertRule `envconfig:"ALERT_RULE" default:"sustained" validate:"oneof=sustained pointwise"`

	HTTPTimeout time.Duration `envconfig:"FORECAST_HTTP_TIMEOUT" default:"10s"`
	UserAgent   string        `envconfig:"FORECAST_USER_AGENT" default:"sunpump/1.0"`
}

// AWSConfig holds regional configuration shared by every AWS client.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"ap-south-1"`
	// LocalStack support. Empty in prod.
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
}

// AdvisoryConfig holds the advisory worker settings.
type AdvisoryConfig struct {
	QueueURL string `envconfig:"ADVISORY_QUEUE_URL" validate:"omitempty,url"`
	// PublishAll publishes every run, not only runs where alert-now is set.
	PublishAll bool   `envconfig:"ADVISORY_PUBLISH_ALL" default:"false"`
	Language   string `envconfig:"ADVISORY_LANGUAGE" default:"mr" validate:"oneof=en mr"`
}

// SecurityConfig holds admin access and CORS settings.
type SecurityConfig struct {
	// AdminAPIKeyHash is the bcrypt hash of the key accepted on admin
	// routes. Admin routes are disabled when empty.
	AdminAPIKeyHash    SecretString `envconfig:"ADMIN_API_KEY_HASH"`
	CorsAllowedOrigins []string     `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"SunPump"`
}

// Location resolves DisplayTimezone. The value is validated at load time so
// an error here means the zone database is missing.
func (c ServerConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return nil, fmt.Errorf("loading display timezone %q: %w", c.DisplayTimezone, err)
	}
	return loc, nil
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
	// ErrParsing indicates an environment value could not be parsed into its
	// target type.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
