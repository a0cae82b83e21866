package main

// Command server runs the enrolment analytics service.
//
// Startup order:
//   1. Load and validate configuration (YAML file, ENROLPULSE_* env, defaults)
//   2. Build the zap logger and, when an endpoint is configured, the OTLP tracer
//   3. Load the dataset snapshot once; any failure exits before serving
//   4. Serve REST, /metrics, MCP and optionally gRPC health
//   5. Apply logging.level changes from the config file while running
//   6. Drain on SIGINT/SIGTERM within server.shutdown_timeout

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/RishithDsouza/Hackethon/internal/config"
	"github.com/RishithDsouza/Hackethon/internal/logging"
	"github.com/RishithDsouza/Hackethon/internal/server"
	"github.com/RishithDsouza/Hackethon/internal/tracing"
)

// Version is set at build time via -ldflags "-X main.Version=...".
var Version = "dev"

var (
	configPath = flag.String("config", config.DefaultConfigPath, "Path to configuration file")
	port       = flag.Int("port", 0, "Server port (overrides config)")
	debugMode  = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "enrolpulse: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mgr, err := config.NewConfigManager(*configPath)
	if err != nil {
		return err
	}
	if err := mgr.Load(ctx); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := mgr.Get(ctx)
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *debugMode {
		cfg.Logging.Level = "debug"
	}
	if err := mgr.Validate(ctx); err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()
	log := logger.Logger

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: Version,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}()

	log.Info("Enrolpulse starting",
		zap.String("version", Version),
		zap.String("config", *configPath),
		zap.String("dataset_source", cfg.Dataset.Source),
	)

	engine, err := server.LoadEngine(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to load dataset", zap.Error(err))
		return err
	}

	srv := server.New(cfg, engine, Version, log)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	go watchConfig(ctx, mgr, logger)

	select {
	case <-ctx.Done():
		log.Info("Shutting down server")
	case err := <-srv.Errors():
		log.Error("Server failed, shutting down", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("Server forced to shutdown", zap.Error(err))
		return err
	}
	log.Info("Server exited gracefully")
	return nil
}

// watchConfig applies log level changes. Everything else needs a restart; the dataset
// snapshot in particular is never reloaded.
func watchConfig(ctx context.Context, mgr config.ConfigManager, logger *logging.Logger) {
	updates := mgr.Watch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			if err := logger.SetLevel(cfg.Logging.Level); err != nil {
				logger.Warn("Ignoring invalid log level from config", zap.String("level", cfg.Logging.Level), zap.Error(err))
				continue
			}
			logger.Info("Log level updated", zap.String("level", cfg.Logging.Level))
		}
	}
}
