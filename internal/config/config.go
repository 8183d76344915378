package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/vmtest/internal/collector"
	"github.com/miradorstack/vmtest/internal/engine"
	"github.com/miradorstack/vmtest/internal/extractors"
	"github.com/miradorstack/vmtest/internal/stats"
)

// Config captures every setting needed to run the probe suite or the service.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Probes     ProbesConfig     `yaml:"probes"`
	Stats      StatsConfig      `yaml:"stats"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Output     OutputConfig     `yaml:"output"`
	History    HistoryConfig    `yaml:"history"`
	Server     ServerConfig     `yaml:"server"`
	Cache      CacheConfig      `yaml:"cache"`
	Webhook    WebhookConfig    `yaml:"webhook"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ProbesConfig sizes the suite and the individual workloads.
type ProbesConfig struct {
	Iterations        int    `yaml:"iterations"`
	// MaxIterations caps the iteration budget a single request may ask for.
	MaxIterations     int    `yaml:"maxIterations"`
	CacheTrials       int    `yaml:"cacheTrials"`
	MemoryAllocations int    `yaml:"memoryAllocations"`
	WorkCycles        int    `yaml:"workCycles"`
	ThreadCount       int    `yaml:"threadCount"`
	ThreadWorkCycles  int    `yaml:"threadWorkCycles"`
	ConsecutiveBlock  int    `yaml:"consecutiveBlock"`
	ConsecutiveOps    int    `yaml:"consecutiveOps"`
	CacheElements     int    `yaml:"cacheElements"`
	CacheStride       int    `yaml:"cacheStride"`
	AllocBaseBytes    int    `yaml:"allocBaseBytes"`
	AllocStepBytes    int    `yaml:"allocStepBytes"`
	MaxScratchBytes   int64  `yaml:"maxScratchBytes"`
	Seed              uint64 `yaml:"seed"`
	Multiproc         bool   `yaml:"multiproc"`
}

// StatsConfig holds the clamp bounds applied to derived statistics.
type StatsConfig struct {
	SkewnessLimit   float64 `yaml:"skewnessLimit"`
	KurtosisMin     float64 `yaml:"kurtosisMin"`
	KurtosisMax     float64 `yaml:"kurtosisMax"`
	EntropyBins     int     `yaml:"entropyBins"`
	EntropyFallback float64 `yaml:"entropyFallback"`
	PMISentinel     float64 `yaml:"pmiSentinel"`
	PMIMin          float64 `yaml:"pmiMin"`
	PMIMax          float64 `yaml:"pmiMax"`
}

// ClassifierConfig carries the inline rule pack and an optional YAML pack
// overlaid on top of it.
type ClassifierConfig struct {
	ThresholdsPath string            `yaml:"thresholdsPath"`
	Thresholds     engine.Thresholds `yaml:"thresholds"`
}

// OutputConfig controls where and how reports are written.
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	Format    string `yaml:"format"`
	ChartPath string `yaml:"chartPath"`
}

// HistoryConfig points at the parquet run history. Empty disables it.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// CacheConfig controls caching of fingerprints between requests.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Backend string        `yaml:"backend"`
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl"`
	LockTTL time.Duration `yaml:"lockTTL"`
}

// WebhookConfig configures the optional CSV report upload.
type WebhookConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Output formats.
const (
	FormatJSON    = "json"
	FormatCSV     = "csv"
	FormatConsole = "console"
)

// DefaultMaxIterations caps request budgets when the configuration does not.
const DefaultMaxIterations = 100000

// Cache backends.
const (
	CacheMemory = "memory"
	CacheFile   = "file"
)

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("VMTEST_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	th, err := engine.LoadThresholds(cfg.Classifier.ThresholdsPath, cfg.Classifier.Thresholds)
	if err != nil {
		return nil, err
	}
	cfg.Classifier.Thresholds = th

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	cfg := defaultConfig()
	return &cfg
}

func defaultConfig() Config {
	suite := engine.DefaultSuiteConfig()
	col := collector.DefaultConfig()
	bounds := stats.DefaultBounds()
	idx := engine.DefaultIndexBounds()
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Probes: ProbesConfig{
			Iterations:        suite.Iterations,
			MaxIterations:     DefaultMaxIterations,
			CacheTrials:       suite.CacheTrials,
			MemoryAllocations: suite.MemoryAllocations,
			WorkCycles:        col.WorkCycles,
			ThreadCount:       col.ThreadCount,
			ThreadWorkCycles:  col.ThreadWorkCycles,
			ConsecutiveBlock:  col.ConsecutiveBlock,
			ConsecutiveOps:    col.ConsecutiveOps,
			CacheElements:     col.CacheElements,
			CacheStride:       col.CacheStride,
			AllocBaseBytes:    col.AllocBaseBytes,
			AllocStepBytes:    col.AllocStepBytes,
			MaxScratchBytes:   col.MaxScratchBytes,
			Multiproc:         true,
		},
		Stats: StatsConfig{
			SkewnessLimit:   bounds.SkewnessLimit,
			KurtosisMin:     bounds.KurtosisMin,
			KurtosisMax:     bounds.KurtosisMax,
			EntropyBins:     stats.DefaultBins,
			EntropyFallback: extractors.DefaultEntropyFallback,
			PMISentinel:     idx.Sentinel,
			PMIMin:          idx.Min,
			PMIMax:          idx.Max,
		},
		Classifier: ClassifierConfig{Thresholds: engine.DefaultThresholds()},
		Output:     OutputConfig{Dir: ".", Format: FormatConsole},
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: false,
			Backend: CacheMemory,
			TTL:     10 * time.Minute,
			LockTTL: 5 * time.Minute,
		},
		Webhook: WebhookConfig{Timeout: 30 * time.Second},
	}
}

// Validate rejects settings the probe suite cannot run with.
func (c *Config) Validate() error {
	if c.Probes.Iterations <= 0 {
		return fmt.Errorf("probes.iterations must be positive, got %d", c.Probes.Iterations)
	}
	if c.Probes.MaxIterations < c.Probes.Iterations {
		return fmt.Errorf("probes.maxIterations %d must be at least probes.iterations %d", c.Probes.MaxIterations, c.Probes.Iterations)
	}
	if c.Probes.CacheTrials <= 0 || c.Probes.MemoryAllocations <= 0 {
		return errors.New("probes.cacheTrials and probes.memoryAllocations must be positive")
	}
	if c.Stats.KurtosisMin >= c.Stats.KurtosisMax {
		return fmt.Errorf("stats.kurtosisMin %g must be below kurtosisMax %g", c.Stats.KurtosisMin, c.Stats.KurtosisMax)
	}
	if c.Stats.SkewnessLimit <= 0 {
		return fmt.Errorf("stats.skewnessLimit must be positive, got %g", c.Stats.SkewnessLimit)
	}
	if c.Stats.EntropyBins < 2 {
		return fmt.Errorf("stats.entropyBins must be at least 2, got %d", c.Stats.EntropyBins)
	}
	if c.Stats.PMIMin >= c.Stats.PMIMax {
		return fmt.Errorf("stats.pmiMin %g must be below pmiMax %g", c.Stats.PMIMin, c.Stats.PMIMax)
	}
	switch c.Output.Format {
	case FormatJSON, FormatCSV, FormatConsole:
	default:
		return fmt.Errorf("output.format %q must be json, csv or console", c.Output.Format)
	}
	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case CacheMemory:
		case CacheFile:
			if c.Cache.Dir == "" {
				return errors.New("cache.dir is required for the file backend")
			}
		default:
			return fmt.Errorf("cache.backend %q must be memory or file", c.Cache.Backend)
		}
	}
	return c.Classifier.Thresholds.Validate()
}

// Collector maps the probe settings onto the collector's workload sizes.
func (p ProbesConfig) Collector() collector.Config {
	return collector.Config{
		WorkCycles:       p.WorkCycles,
		ThreadCount:      p.ThreadCount,
		ThreadWorkCycles: p.ThreadWorkCycles,
		ConsecutiveBlock: p.ConsecutiveBlock,
		ConsecutiveOps:   p.ConsecutiveOps,
		CacheElements:    p.CacheElements,
		CacheStride:      p.CacheStride,
		AllocBaseBytes:   p.AllocBaseBytes,
		AllocStepBytes:   p.AllocStepBytes,
		MaxScratchBytes:  p.MaxScratchBytes,
		Seed:             p.Seed,
	}
}

// Suite maps the probe settings onto the suite's trial budget.
func (p ProbesConfig) Suite() engine.SuiteConfig {
	return engine.SuiteConfig{
		Iterations:        p.Iterations,
		CacheTrials:       p.CacheTrials,
		MemoryAllocations: p.MemoryAllocations,
	}
}

// Bounds returns the moment clamp bounds.
func (s StatsConfig) Bounds() stats.Bounds {
	return stats.Bounds{SkewnessLimit: s.SkewnessLimit, KurtosisMin: s.KurtosisMin, KurtosisMax: s.KurtosisMax}
}

// IndexBounds returns the machine index sentinel and clamp range.
func (s StatsConfig) IndexBounds() engine.IndexBounds {
	return engine.IndexBounds{Sentinel: s.PMISentinel, Min: s.PMIMin, Max: s.PMIMax}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VMTEST_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VMTEST_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("VMTEST_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Probes.Iterations = n
		}
	}
	if v := os.Getenv("VMTEST_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Probes.MaxIterations = n
		}
	}
	if v := os.Getenv("VMTEST_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Probes.Seed = n
		}
	}
	if v := os.Getenv("VMTEST_MULTIPROC"); v != "" {
		cfg.Probes.Multiproc = parseBool(v)
	}
	if v := os.Getenv("VMTEST_MAX_SCRATCH_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Probes.MaxScratchBytes = n
		}
	}
	if v := os.Getenv("VMTEST_THRESHOLDS_PATH"); v != "" {
		cfg.Classifier.ThresholdsPath = v
	}
	if v := os.Getenv("VMTEST_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("VMTEST_OUTPUT_FORMAT"); v != "" {
		cfg.Output.Format = strings.ToLower(v)
	}
	if v := os.Getenv("VMTEST_CHART_PATH"); v != "" {
		cfg.Output.ChartPath = v
	}
	if v := os.Getenv("VMTEST_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
	if v := os.Getenv("VMTEST_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("VMTEST_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("VMTEST_GRACEFUL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.GracefulTimeout = d
		}
	}
	if v := os.Getenv("VMTEST_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("VMTEST_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("VMTEST_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("VMTEST_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if v := os.Getenv("VMTEST_WEBHOOK_URL"); v != "" {
		cfg.Webhook.URL = v
	}
	if v := os.Getenv("VMTEST_WEBHOOK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Webhook.Timeout = d
		}
	}
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
