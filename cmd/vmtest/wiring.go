package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/miradorstack/vmtest/internal/cache"
	"github.com/miradorstack/vmtest/internal/clock"
	"github.com/miradorstack/vmtest/internal/collector"
	"github.com/miradorstack/vmtest/internal/config"
	"github.com/miradorstack/vmtest/internal/consensus"
	"github.com/miradorstack/vmtest/internal/engine"
	"github.com/miradorstack/vmtest/internal/extractors"
	"github.com/miradorstack/vmtest/internal/hostinfo"
	"github.com/miradorstack/vmtest/internal/repo"
	"github.com/miradorstack/vmtest/internal/services"
)

func buildPipeline(cfg *config.Config, logger *slog.Logger) (*engine.Pipeline, error) {
	var spawner collector.Spawner
	if cfg.Probes.Multiproc {
		sp, err := collector.NewExecSpawner(cfg.Probes.ThreadWorkCycles)
		if err != nil {
			logger.Warn("multiprocess probe disabled", slog.Any("error", err))
		} else {
			spawner = sp
		}
	}
	sampler := collector.New(cfg.Probes.Collector(), clock.Real(), spawner, logger)

	classifier, err := engine.NewClassifier(cfg.Classifier.Thresholds, logger)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	return engine.NewPipeline(
		logger,
		sampler,
		hostinfo.New(),
		cfg.Probes.Suite(),
		extractors.NewTimingExtractor(cfg.Stats.Bounds()),
		extractors.NewCacheExtractor(),
		extractors.NewMemoryExtractor(cfg.Stats.EntropyBins, cfg.Stats.EntropyFallback),
		engine.NewSynthesizer(cfg.Stats.IndexBounds(), logger),
		classifier,
	), nil
}

func buildCache(cfg config.CacheConfig) (cache.Provider, error) {
	if !cfg.Enabled {
		return cache.NoopProvider{}, nil
	}
	switch cfg.Backend {
	case config.CacheFile:
		return cache.NewFileProvider(cfg.Dir)
	default:
		return cache.NewMemoryProvider(), nil
	}
}

// buildService wires the pipeline, cache, history and consensus store into
// the fingerprint service used by both the CLI and the gRPC server.
func buildService(cfg *config.Config, logger *slog.Logger, store consensus.Store) (*services.FingerprintService, *repo.HistoryStore, func(), error) {
	pipeline, err := buildPipeline(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	provider, err := buildCache(cfg.Cache)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("cache: %w", err)
	}

	var history *repo.HistoryStore
	var appender services.HistoryAppender
	if cfg.History.Path != "" {
		history = repo.NewHistoryStore(cfg.History.Path)
		appender = history
	}

	hostname, _ := os.Hostname()
	ttl := cfg.Cache.TTL
	if !cfg.Cache.Enabled {
		ttl = 0
	}

	miner := consensus.NewMiner(logger, consensus.NewAnalyzer(consensus.DefaultConsistencyCV), store)
	svc := services.NewFingerprintService(logger, pipeline, provider, appender, miner, services.Options{
		CacheTTL:      ttl,
		LockTTL:       cfg.Cache.LockTTL,
		KeyParts:      []any{cfg.Probes, cfg.Stats, cfg.Classifier.Thresholds},
		Hostname:      hostname,
		MaxIterations: cfg.Probes.MaxIterations,
	})
	cleanup := func() {
		if err := provider.Close(); err != nil {
			logger.Warn("close cache", slog.Any("error", err))
		}
	}
	return svc, history, cleanup, nil
}
