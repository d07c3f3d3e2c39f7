package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"FallScope/internal/barstore"
	"FallScope/internal/batch"
	"FallScope/internal/collector"
	"FallScope/internal/config"
	"FallScope/internal/pipeline"
)

func newFetcher(cfg *config.Config) (collector.Fetcher, error) {
	switch cfg.DataSource.Provider {
	case config.ProviderYahoo:
		return collector.NewYahooFetcher(cfg.DataSource.BaseURL, cfg.Proxy), nil
	case config.ProviderFinanceGo:
		return collector.NewFinanceGoFetcher(), nil
	case config.ProviderAlpaca:
		return collector.NewAlpacaFetcher(cfg.DataSource.AlpacaAPIKey, cfg.DataSource.AlpacaSecretKey), nil
	case config.ProviderMock:
		return &collector.MockFetcher{Price: 100}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.DataSource.Provider)
	}
}

// newStore opens the bar cache, falling back to no cache when it cannot be
// opened.
func newStore(cfg *config.Config, log *zap.Logger) barstore.Store {
	if !cfg.Cache.Enabled || cfg.Cache.SQLitePath == "" {
		return barstore.NewNoopStore()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Cache.SQLitePath), 0o755); err != nil {
		log.Warn("create cache dir failed, caching disabled", zap.Error(err))
		return barstore.NewNoopStore()
	}
	s, err := barstore.NewSQLiteStore(cfg.Cache.SQLitePath,
		barstore.WithMaxAge(cfg.Cache.MaxAge),
		barstore.WithLogger(log))
	if err != nil {
		log.Warn("init sqlite bar cache failed, caching disabled", zap.Error(err))
		return barstore.NewNoopStore()
	}
	return s
}

// newPipeline builds the fetch and analysis chain. The returned store must
// be closed by the caller.
func newPipeline(cfg *config.Config, log *zap.Logger, window pipeline.Window) (*pipeline.Pipeline, barstore.Store, error) {
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, nil, err
	}
	log.Info("data source", zap.String("provider", fetcher.Name()))

	runner, err := batch.NewRunner(batch.Options{
		FallThresholdPct:   cfg.Analysis.FallThresholdPct,
		ForwardHorizonDays: cfg.Analysis.ForwardHorizonDays,
		Workers:            cfg.Analysis.Workers,
	})
	if err != nil {
		return nil, nil, err
	}

	store := newStore(cfg, log)
	col := collector.NewCollector(fetcher,
		collector.WithStore(store),
		collector.WithRateLimit(cfg.DataSource.RequestsPerSecond, 1),
		collector.WithWorkers(cfg.DataSource.Workers),
		collector.WithRetry(cfg.DataSource.MaxRetries, time.Second),
		collector.WithLogger(log.Named("collector")))

	return &pipeline.Pipeline{
		Source:  col,
		Runner:  runner,
		Symbols: cfg.Universe.Symbols,
		Window:  window,
		Log:     log.Named("pipeline"),
	}, store, nil
}

func yamlString(v any) (string, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	return string(b), nil
}

func closeStore(s barstore.Store, log *zap.Logger) {
	if err := s.Close(); err != nil {
		log.Warn("close bar cache", zap.Error(err))
	}
}
