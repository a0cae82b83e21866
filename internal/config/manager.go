package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ENROLPULSE_SERVER_PORT.
const EnvPrefix = "ENROLPULSE"

// viperConfigManager implements ConfigManager using Viper.
type viperConfigManager struct {
	configPath string
	mu         sync.RWMutex
	config     *Config
	viper      *viper.Viper
	watchChan  chan Config
}

// Load loads configuration from all sources.
func (m *viperConfigManager) Load(ctx context.Context) error {
	m.viper = viper.New()

	m.viper.SetConfigFile(m.configPath)
	m.viper.SetConfigType("yaml")

	m.viper.SetEnvPrefix(EnvPrefix)
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	m.setDefaults()

	// Config file is optional: defaults + env vars still apply
	if err := m.readConfigFile(); err != nil {
		return err
	}

	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	return nil
}

func (m *viperConfigManager) readConfigFile() error {
	if m.configPath == "" {
		return nil
	}
	err := m.viper.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || os.IsNotExist(err) || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("error reading config file: %w", err)
}

// Get returns the current configuration.
func (m *viperConfigManager) Get(ctx context.Context) *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Validate validates configuration is correct and complete.
func (m *viperConfigManager) Validate(ctx context.Context) error {
	errs := m.Get(ctx).Validate()
	if len(errs) > 0 {
		var errMsgs []string
		for _, err := range errs {
			errMsgs = append(errMsgs, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errMsgs, "\n  - "))
	}
	return nil
}

// Watch watches for configuration changes and reloads. Invalid reloads are dropped.
// The dataset is never reloaded; consumers decide which settings apply live.
func (m *viperConfigManager) Watch(ctx context.Context) <-chan Config {
	if m.viper == nil || m.configPath == "" {
		return m.watchChan
	}
	m.viper.OnConfigChange(func(e fsnotify.Event) {
		if ctx.Err() != nil {
			return
		}
		if err := m.unmarshalConfig(); err != nil {
			return
		}
		cfg := *m.Get(ctx)
		if len(cfg.Validate()) > 0 {
			return
		}
		// Latest wins: drop a pending stale update rather than the new one
		for {
			select {
			case m.watchChan <- cfg:
				return
			default:
				select {
				case <-m.watchChan:
				default:
				}
			}
		}
	})
	m.viper.WatchConfig()

	return m.watchChan
}

// Reload reloads configuration from sources.
func (m *viperConfigManager) Reload(ctx context.Context) error {
	if m.viper == nil {
		return m.Load(ctx)
	}
	if err := m.readConfigFile(); err != nil {
		return err
	}
	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	return nil
}

// setDefaults sets default values in viper.
func (m *viperConfigManager) setDefaults() {
	defaults := DefaultConfig()

	// Server defaults
	m.viper.SetDefault("server.host", defaults.Server.Host)
	m.viper.SetDefault("server.port", defaults.Server.Port)
	m.viper.SetDefault("server.grpc_port", defaults.Server.GRPCPort)
	m.viper.SetDefault("server.allowed_origins", defaults.Server.AllowedOrigins)
	m.viper.SetDefault("server.read_timeout", defaults.Server.ReadTimeout)
	m.viper.SetDefault("server.write_timeout", defaults.Server.WriteTimeout)
	m.viper.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)
	m.viper.SetDefault("server.rate_limit_per_sec", defaults.Server.RateLimitPerSec)
	m.viper.SetDefault("server.rate_limit_burst", defaults.Server.RateLimitBurst)
	m.viper.SetDefault("server.trust_proxy_headers", defaults.Server.TrustProxyHeaders)

	// Dataset defaults
	m.viper.SetDefault("dataset.source", defaults.Dataset.Source)
	m.viper.SetDefault("dataset.path", defaults.Dataset.Path)
	m.viper.SetDefault("dataset.dsn", defaults.Dataset.DSN)
	m.viper.SetDefault("dataset.table", defaults.Dataset.Table)
	m.viper.SetDefault("dataset.encoding", defaults.Dataset.Encoding)
	m.viper.SetDefault("dataset.delimiter", defaults.Dataset.Delimiter)

	// Analytics defaults
	m.viper.SetDefault("analytics.forecast_horizon_days", defaults.Analytics.ForecastHorizonDays)
	m.viper.SetDefault("analytics.forecast_min_points", defaults.Analytics.ForecastMinPoints)
	m.viper.SetDefault("analytics.forecast_band", defaults.Analytics.ForecastBand)
	m.viper.SetDefault("analytics.anomaly_min_points", defaults.Analytics.AnomalyMinPoints)
	m.viper.SetDefault("analytics.anomaly_contamination", defaults.Analytics.AnomalyContamination)
	m.viper.SetDefault("analytics.anomaly_seed", defaults.Analytics.AnomalySeed)
	m.viper.SetDefault("analytics.anomaly_trees", defaults.Analytics.AnomalyTrees)

	// Logging defaults
	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.format", defaults.Logging.Format)
	m.viper.SetDefault("logging.file", defaults.Logging.File)
	m.viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	m.viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	m.viper.SetDefault("logging.max_age_days", defaults.Logging.MaxAgeDays)
	m.viper.SetDefault("logging.compress", defaults.Logging.Compress)

	// Tracing defaults
	m.viper.SetDefault("tracing.endpoint", defaults.Tracing.Endpoint)
	m.viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)
	m.viper.SetDefault("tracing.sampling_rate", defaults.Tracing.SamplingRate)

	// MCP defaults
	m.viper.SetDefault("mcp.enabled", defaults.MCP.Enabled)
	m.viper.SetDefault("mcp.path", defaults.MCP.Path)
}

// unmarshalConfig unmarshals viper config into Config struct.
func (m *viperConfigManager) unmarshalConfig() error {
	cfg := &Config{}

	// Server
	cfg.Server.Host = m.viper.GetString("server.host")
	cfg.Server.Port = m.viper.GetInt("server.port")
	cfg.Server.GRPCPort = m.viper.GetInt("server.grpc_port")
	cfg.Server.AllowedOrigins = m.viper.GetStringSlice("server.allowed_origins")
	cfg.Server.ReadTimeout = m.viper.GetInt("server.read_timeout")
	cfg.Server.WriteTimeout = m.viper.GetInt("server.write_timeout")
	cfg.Server.ShutdownTimeout = m.viper.GetInt("server.shutdown_timeout")
	cfg.Server.RateLimitPerSec = m.viper.GetFloat64("server.rate_limit_per_sec")
	cfg.Server.RateLimitBurst = m.viper.GetInt("server.rate_limit_burst")
	cfg.Server.TrustProxyHeaders = m.viper.GetBool("server.trust_proxy_headers")

	// Dataset
	cfg.Dataset.Source = strings.ToLower(m.viper.GetString("dataset.source"))
	cfg.Dataset.Path = m.viper.GetString("dataset.path")
	cfg.Dataset.DSN = m.viper.GetString("dataset.dsn")
	cfg.Dataset.Table = m.viper.GetString("dataset.table")
	cfg.Dataset.Encoding = m.viper.GetString("dataset.encoding")
	cfg.Dataset.Delimiter = m.viper.GetString("dataset.delimiter")

	// Analytics
	cfg.Analytics.ForecastHorizonDays = m.viper.GetInt("analytics.forecast_horizon_days")
	cfg.Analytics.ForecastMinPoints = m.viper.GetInt("analytics.forecast_min_points")
	cfg.Analytics.ForecastBand = m.viper.GetFloat64("analytics.forecast_band")
	cfg.Analytics.AnomalyMinPoints = m.viper.GetInt("analytics.anomaly_min_points")
	cfg.Analytics.AnomalyContamination = m.viper.GetFloat64("analytics.anomaly_contamination")
	cfg.Analytics.AnomalySeed = m.viper.GetInt64("analytics.anomaly_seed")
	cfg.Analytics.AnomalyTrees = m.viper.GetInt("analytics.anomaly_trees")

	// Logging
	cfg.Logging.Level = m.viper.GetString("logging.level")
	cfg.Logging.Format = m.viper.GetString("logging.format")
	cfg.Logging.File = m.viper.GetString("logging.file")
	cfg.Logging.MaxSizeMB = m.viper.GetInt("logging.max_size_mb")
	cfg.Logging.MaxBackups = m.viper.GetInt("logging.max_backups")
	cfg.Logging.MaxAgeDays = m.viper.GetInt("logging.max_age_days")
	cfg.Logging.Compress = m.viper.GetBool("logging.compress")

	// Tracing
	cfg.Tracing.Endpoint = m.viper.GetString("tracing.endpoint")
	cfg.Tracing.ServiceName = m.viper.GetString("tracing.service_name")
	cfg.Tracing.SamplingRate = m.viper.GetFloat64("tracing.sampling_rate")

	// MCP
	cfg.MCP.Enabled = m.viper.GetBool("mcp.enabled")
	cfg.MCP.Path = m.viper.GetString("mcp.path")

	m.applyEnvOverrides(cfg)

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// applyEnvOverrides applies the conventional unprefixed environment variables.
func (m *viperConfigManager) applyEnvOverrides(cfg *Config) {
	// PORT is set by most container platforms
	if _, ok := os.LookupEnv(EnvPrefix + "_SERVER_PORT"); !ok {
		if portEnv := os.Getenv("PORT"); portEnv != "" {
			var port int
			if _, err := fmt.Sscanf(portEnv, "%d", &port); err == nil {
				cfg.Server.Port = port
			}
		}
	}

	// DATABASE_URL selects a postgres snapshot unless the dataset source is set explicitly
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" && cfg.Dataset.DSN == "" {
		cfg.Dataset.DSN = dsn
		if _, ok := os.LookupEnv(EnvPrefix + "_DATASET_SOURCE"); !ok && !m.viper.InConfig("dataset.source") {
			cfg.Dataset.Source = "postgres"
		}
	}
}
