package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/RishithDsouza/Hackethon/internal/dataset"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

var (
	validSources    = []string{"csv", "sqlite", "postgres"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"json", "console"}
)

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	var errs []error
	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateDataset()...)
	errs = append(errs, c.validateAnalytics()...)
	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validateTracing()...)

	if c.MCP.Enabled && !strings.HasPrefix(c.MCP.Path, "/") {
		errs = append(errs, &ValidationError{
			Field:   "mcp.path",
			Message: fmt.Sprintf("path must start with '/', got %q", c.MCP.Path),
		})
	}
	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", c.Server.Port),
		})
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		errs = append(errs, &ValidationError{
			Field:   "server.grpc_port",
			Message: fmt.Sprintf("grpc_port must be between 0 and 65535, got %d", c.Server.GRPCPort),
		})
	} else if c.Server.GRPCPort != 0 && c.Server.GRPCPort == c.Server.Port {
		errs = append(errs, &ValidationError{
			Field:   "server.grpc_port",
			Message: "grpc_port must differ from port",
		})
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, &ValidationError{
			Field:   "server.timeouts",
			Message: "read_timeout, write_timeout and shutdown_timeout must be positive",
		})
	}
	if c.Server.RateLimitPerSec < 0 {
		errs = append(errs, &ValidationError{
			Field:   "server.rate_limit_per_sec",
			Message: "rate_limit_per_sec cannot be negative (0 disables limiting)",
		})
	}
	if c.Server.RateLimitPerSec > 0 && c.Server.RateLimitBurst < 1 {
		errs = append(errs, &ValidationError{
			Field:   "server.rate_limit_burst",
			Message: "rate_limit_burst must be at least 1 when rate limiting is enabled",
		})
	}
	return errs
}

func (c *Config) validateDataset() []error {
	var errs []error

	switch c.Dataset.Source {
	case "csv":
		if c.Dataset.Path == "" {
			errs = append(errs, &ValidationError{
				Field:   "dataset.path",
				Message: "path is required for csv source",
			})
		}
	case "sqlite":
		if c.Dataset.Path == "" && c.Dataset.DSN == "" {
			errs = append(errs, &ValidationError{
				Field:   "dataset.path",
				Message: "path or dsn is required for sqlite source",
			})
		}
	case "postgres":
		if c.Dataset.DSN == "" {
			errs = append(errs, &ValidationError{
				Field:   "dataset.dsn",
				Message: "dsn is required for postgres source",
			})
		}
	default:
		errs = append(errs, &ValidationError{
			Field:   "dataset.source",
			Message: fmt.Sprintf("invalid dataset source %q, must be one of: %s", c.Dataset.Source, strings.Join(validSources, ", ")),
		})
	}
	if c.Dataset.Source == "csv" {
		if err := dataset.ValidateEncoding(c.Dataset.Encoding); err != nil {
			errs = append(errs, &ValidationError{
				Field:   "dataset.encoding",
				Message: err.Error(),
			})
		}
		if d := c.Dataset.Delimiter; d != "" && (utf8.RuneCountInString(d) != 1 || d == "\n" || d == "\r" || d == "\"") {
			errs = append(errs, &ValidationError{
				Field:   "dataset.delimiter",
				Message: fmt.Sprintf("delimiter must be a single character other than a quote or newline, got %q", d),
			})
		}
	}
	if c.Dataset.Source != "csv" && c.Dataset.Table == "" {
		errs = append(errs, &ValidationError{
			Field:   "dataset.table",
			Message: "table is required for sql sources",
		})
	}
	return errs
}

func (c *Config) validateAnalytics() []error {
	var errs []error
	a := c.Analytics

	if a.ForecastHorizonDays < 1 {
		errs = append(errs, &ValidationError{
			Field:   "analytics.forecast_horizon_days",
			Message: fmt.Sprintf("forecast_horizon_days must be positive, got %d", a.ForecastHorizonDays),
		})
	}
	if a.ForecastMinPoints < 2 {
		errs = append(errs, &ValidationError{
			Field:   "analytics.forecast_min_points",
			Message: fmt.Sprintf("forecast_min_points must be at least 2, got %d", a.ForecastMinPoints),
		})
	}
	if a.ForecastBand < 0 || a.ForecastBand >= 1 {
		errs = append(errs, &ValidationError{
			Field:   "analytics.forecast_band",
			Message: fmt.Sprintf("forecast_band must be in [0, 1), got %v", a.ForecastBand),
		})
	}
	if a.AnomalyMinPoints < 2 {
		errs = append(errs, &ValidationError{
			Field:   "analytics.anomaly_min_points",
			Message: fmt.Sprintf("anomaly_min_points must be at least 2, got %d", a.AnomalyMinPoints),
		})
	}
	if a.AnomalyContamination <= 0 || a.AnomalyContamination > 0.5 {
		errs = append(errs, &ValidationError{
			Field:   "analytics.anomaly_contamination",
			Message: fmt.Sprintf("anomaly_contamination must be in (0, 0.5], got %v", a.AnomalyContamination),
		})
	}
	if a.AnomalyTrees < 1 {
		errs = append(errs, &ValidationError{
			Field:   "analytics.anomaly_trees",
			Message: fmt.Sprintf("anomaly_trees must be positive, got %d", a.AnomalyTrees),
		})
	}
	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error

	if !contains(validLogLevels, strings.ToLower(c.Logging.Level)) {
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level %q, must be one of: %s", c.Logging.Level, strings.Join(validLogLevels, ", ")),
		})
	}
	if !contains(validLogFormats, strings.ToLower(c.Logging.Format)) {
		errs = append(errs, &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format %q, must be one of: %s", c.Logging.Format, strings.Join(validLogFormats, ", ")),
		})
	}
	if c.Logging.File != "" && c.Logging.MaxSizeMB < 1 {
		errs = append(errs, &ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max_size_mb must be positive when logging to a file",
		})
	}
	return errs
}

func (c *Config) validateTracing() []error {
	var errs []error
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		errs = append(errs, &ValidationError{
			Field:   "tracing.sampling_rate",
			Message: fmt.Sprintf("sampling_rate must be between 0 and 1, got %v", c.Tracing.SamplingRate),
		})
	}
	return errs
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// CSVOptions returns the dataset CSV settings as source options.
func (c *Config) CSVOptions() []dataset.CSVOption {
	var opts []dataset.CSVOption
	if c.Dataset.Encoding != "" {
		opts = append(opts, dataset.WithEncoding(c.Dataset.Encoding))
	}
	if r, _ := utf8.DecodeRuneInString(c.Dataset.Delimiter); c.Dataset.Delimiter != "" && r != utf8.RuneError {
		opts = append(opts, dataset.WithDelimiter(r))
	}
	return opts
}
