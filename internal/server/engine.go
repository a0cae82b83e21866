package server

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/RishithDsouza/Hackethon/internal/analytics"
	"github.com/RishithDsouza/Hackethon/internal/config"
	"github.com/RishithDsouza/Hackethon/internal/dataset"
	"github.com/RishithDsouza/Hackethon/internal/metrics"
)

// EngineOptions maps the analytics section onto engine options.
func EngineOptions(cfg config.AnalyticsConfig) analytics.Options {
	opts := analytics.DefaultOptions()
	opts.ForecastHorizon = cfg.ForecastHorizonDays
	opts.ForecastMinPoints = cfg.ForecastMinPoints
	opts.ForecastBand = cfg.ForecastBand
	opts.AnomalyMinPoints = cfg.AnomalyMinPoints
	opts.AnomalyContamination = cfg.AnomalyContamination
	opts.AnomalySeed = cfg.AnomalySeed
	opts.AnomalyTrees = cfg.AnomalyTrees
	return opts
}

// LoadEngine reads the configured dataset source once and builds the engine over it.
// A failure here means the process must not serve.
func LoadEngine(ctx context.Context, cfg *config.Config, log *zap.Logger) (*analytics.Engine, error) {
	src, err := dataset.NewSource(cfg.Dataset.Source, cfg.Dataset.Path, cfg.Dataset.DSN, cfg.Dataset.Table, cfg.CSVOptions()...)
	if err != nil {
		return nil, fmt.Errorf("dataset source: %w", err)
	}

	start := time.Now()
	ds, err := dataset.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	metrics.DatasetLoadDuration.Observe(elapsed.Seconds())
	metrics.DatasetRecords.Set(float64(ds.Len()))

	info := ds.Info()
	log.Info("Dataset loaded",
		zap.String("source", info.Source),
		zap.Int("records", info.Records),
		zap.Int("states", info.States),
		zap.String("first_date", info.FirstDate),
		zap.String("last_date", info.LastDate),
		zap.Duration("duration", elapsed),
	)

	return analytics.NewEngine(ds, EngineOptions(cfg.Analytics), log), nil
}
