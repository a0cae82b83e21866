package config

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "./config.yaml"

// DefaultConfig returns a configuration with all default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Server defaults
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8000
	cfg.Server.GRPCPort = 0
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Server.ReadTimeout = 15
	cfg.Server.WriteTimeout = 30
	cfg.Server.ShutdownTimeout = 15
	cfg.Server.RateLimitPerSec = 50
	cfg.Server.RateLimitBurst = 100
	cfg.Server.TrustProxyHeaders = false

	// Dataset defaults
	cfg.Dataset.Source = "csv"
	cfg.Dataset.Path = "data/service_usage.csv"
	cfg.Dataset.DSN = ""
	cfg.Dataset.Table = "service_usage"

	// Analytics defaults
	cfg.Analytics.ForecastHorizonDays = 30
	cfg.Analytics.ForecastMinPoints = 5
	cfg.Analytics.ForecastBand = 0.15
	cfg.Analytics.AnomalyMinPoints = 10
	cfg.Analytics.AnomalyContamination = 0.1
	cfg.Analytics.AnomalySeed = 42
	cfg.Analytics.AnomalyTrees = 100

	// Logging defaults
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.File = ""
	cfg.Logging.MaxSizeMB = 100
	cfg.Logging.MaxBackups = 5
	cfg.Logging.MaxAgeDays = 28
	cfg.Logging.Compress = true

	// Tracing defaults
	cfg.Tracing.Endpoint = ""
	cfg.Tracing.ServiceName = "enrolpulse"
	cfg.Tracing.SamplingRate = 1.0

	// MCP defaults
	cfg.MCP.Enabled = true
	cfg.MCP.Path = "/mcp"

	return cfg
}
