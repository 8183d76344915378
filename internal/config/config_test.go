package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VMTEST_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Probes.Iterations != 1000 {
		t.Fatalf("expected 1000 iterations, got %d", cfg.Probes.Iterations)
	}
	if cfg.Stats.PMISentinel != -10 || cfg.Stats.PMIMin != -20 || cfg.Stats.PMIMax != 10 {
		t.Fatalf("unexpected PMI bounds %+v", cfg.Stats)
	}
	if cfg.Classifier.Thresholds.SchedulingCV != 0.15 {
		t.Fatalf("expected default scheduling threshold, got %g", cfg.Classifier.Thresholds.SchedulingCV)
	}
	if cfg.Output.Format != FormatConsole {
		t.Fatalf("expected console output, got %s", cfg.Output.Format)
	}
}

func TestLoadYAMLAndThresholdPack(t *testing.T) {
	dir := t.TempDir()
	pack := writeConfig(t, dir, "thresholds.yaml", "schedulingCV: 0.25\nweights:\n  cache: 0.4\n")
	path := writeConfig(t, dir, "vmtest.yaml", strings.Join([]string{
		"probes:",
		"  iterations: 200",
		"  seed: 7",
		"output:",
		"  format: json",
		"  dir: /tmp/out",
		"classifier:",
		"  thresholdsPath: " + pack,
		"  thresholds:",
		"    entropyBelow: 3.0",
		"cache:",
		"  enabled: true",
		"  ttl: 1m",
	}, "\n"))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Probes.Iterations != 200 || cfg.Probes.Seed != 7 {
		t.Fatalf("unexpected probes %+v", cfg.Probes)
	}
	if cfg.Probes.Suite().Iterations != 200 || cfg.Probes.Collector().Seed != 7 {
		t.Fatal("expected probe settings to map onto suite and collector")
	}
	th := cfg.Classifier.Thresholds
	if th.SchedulingCV != 0.25 || th.EntropyBelow != 3.0 || th.Weights.Cache != 0.4 {
		t.Fatalf("expected pack overlaid on inline thresholds, got %+v", th)
	}
	if th.Weights.Scheduling != 0.30 {
		t.Fatalf("expected untouched weights to keep defaults, got %g", th.Weights.Scheduling)
	}
	if cfg.Cache.TTL != time.Minute || cfg.Cache.Backend != CacheMemory {
		t.Fatalf("unexpected cache config %+v", cfg.Cache)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VMTEST_CONFIG", "")
	t.Setenv("VMTEST_ITERATIONS", "50")
	t.Setenv("VMTEST_OUTPUT_FORMAT", "CSV")
	t.Setenv("VMTEST_MULTIPROC", "false")
	t.Setenv("VMTEST_LOG_FORMAT", "json")
	t.Setenv("VMTEST_CACHE_TTL", "90s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Probes.Iterations != 50 {
		t.Fatalf("expected 50 iterations, got %d", cfg.Probes.Iterations)
	}
	if cfg.Output.Format != FormatCSV {
		t.Fatalf("expected csv, got %s", cfg.Output.Format)
	}
	if cfg.Probes.Multiproc {
		t.Fatal("expected multiproc disabled")
	}
	if !cfg.Logging.JSON {
		t.Fatal("expected json logging")
	}
	if cfg.Cache.TTL != 90*time.Second {
		t.Fatalf("expected 90s ttl, got %s", cfg.Cache.TTL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"iterations": func(c *Config) { c.Probes.Iterations = 0 },
		"maxIterations": func(c *Config) {
			c.Probes.MaxIterations = c.Probes.Iterations - 1
		},
		"format":     func(c *Config) { c.Output.Format = "xml" },
		"kurtosis":   func(c *Config) { c.Stats.KurtosisMin = 5000 },
		"pmi":        func(c *Config) { c.Stats.PMIMin = 20 },
		"bins":       func(c *Config) { c.Stats.EntropyBins = 1 },
		"cacheDir": func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.Backend = CacheFile
		},
		"weights": func(c *Config) { c.Classifier.Thresholds.Weights.Cache = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected %s to be rejected", name)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}
