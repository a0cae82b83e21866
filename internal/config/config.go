// Package config provides configuration management for the enrolpulse service.
//
// Configuration Sources (priority order, high to low):
//  1. Environment variables (ENROLPULSE_* prefix, "." replaced by "_")
//  2. YAML config file (default: ./config.yaml, optional)
//  3. Built-in defaults
//
// Sections:
//
//	server     listen address, gRPC health port, CORS origins, timeouts, rate limit
//	dataset    snapshot source: csv file, sqlite table or postgres table
//	analytics  forecast horizon/band/minimum points, anomaly contamination/seed/minimum points
//	logging    level, format, optional rotated log file
//	tracing    OTLP endpoint and sampling
//	mcp        MCP tool endpoint
package config

import "context"

// Config struct contains all configuration fields
type Config struct {
	// Server configuration
	Server struct {
		Host     string
		Port     int
		GRPCPort int // 0 disables the gRPC health server
		// AllowedOrigins is the CORS allow-list. ["*"] allows any origin.
		AllowedOrigins  []string
		ReadTimeout     int // seconds
		WriteTimeout    int // seconds
		ShutdownTimeout int // seconds
		RateLimitPerSec float64
		RateLimitBurst  int

		// TrustProxyHeaders keys rate limiting on X-Forwarded-For / X-Real-IP.
		TrustProxyHeaders bool
	}

	// Dataset configuration
	Dataset struct {
		Source string // csv | sqlite | postgres
		Path   string // CSV file or SQLite database file
		DSN    string // postgres connection string, or sqlite DSN overriding Path
		Table  string
		// Encoding is the CSV character set, e.g. windows-1252. Empty means UTF-8.
		Encoding  string
		Delimiter string // single character, default ","
	}

	// Analytics configuration
	Analytics AnalyticsConfig

	// Logging configuration
	Logging struct {
		Level      string
		Format     string
		File       string // empty logs to stderr only
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
		Compress   bool
	}

	// Tracing configuration
	Tracing struct {
		Endpoint     string // empty disables tracing
		ServiceName  string
		SamplingRate float64
	}

	// MCP configuration
	MCP struct {
		Enabled bool
		Path    string
	}
}

// AnalyticsConfig holds the statistical model parameters.
type AnalyticsConfig struct {
	ForecastHorizonDays  int
	ForecastMinPoints    int
	ForecastBand         float64
	AnomalyMinPoints     int
	AnomalyContamination float64
	AnomalySeed          int64
	AnomalyTrees         int
}

// ConfigManager defines the interface for configuration access.
type ConfigManager interface {
	// Load loads configuration from all sources.
	Load(ctx context.Context) error

	// Get returns the current configuration.
	Get(ctx context.Context) *Config

	// Validate validates configuration is correct and complete.
	Validate(ctx context.Context) error

	// Watch watches the config file and emits the reloaded configuration.
	Watch(ctx context.Context) <-chan Config

	// Reload reloads configuration from sources.
	Reload(ctx context.Context) error
}

// NewConfigManager creates a new configuration manager.
func NewConfigManager(configPath string) (ConfigManager, error) {
	mgr := &viperConfigManager{
		configPath: configPath,
		config:     DefaultConfig(),
		watchChan:  make(chan Config, 1),
	}
	return mgr, nil
}

// NewConfigManagerWithDefaults creates a config manager with default config path.
func NewConfigManagerWithDefaults() (ConfigManager, error) {
	return NewConfigManager(DefaultConfigPath)
}
