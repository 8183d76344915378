package main

import (
	"testing"

	"github.com/miradorstack/vmtest/internal/config"
)

func parseFlags(t *testing.T, args ...string) (*options, *config.Config, error) {
	t.Helper()
	var opts options
	flagSet := newFlagSet(&opts)
	if err := flagSet.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg := config.Default()
	return &opts, cfg, applyFlags(flagSet, &opts, cfg)
}

func TestApplyFlagsOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	_, cfg, err := parseFlags(t, "-n", "250", "--format", "csv", "--no-multiproc", "--cache-dir", dir, "--seed", "7")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Probes.Iterations != 250 {
		t.Fatalf("expected 250 iterations, got %d", cfg.Probes.Iterations)
	}
	if cfg.Output.Format != config.FormatCSV {
		t.Fatalf("expected csv format, got %q", cfg.Output.Format)
	}
	if cfg.Probes.Multiproc {
		t.Fatalf("expected multiproc disabled")
	}
	if !cfg.Cache.Enabled || cfg.Cache.Backend != config.CacheFile || cfg.Cache.Dir != dir {
		t.Fatalf("expected file cache in %s, got %+v", dir, cfg.Cache)
	}
	if cfg.Probes.Seed != 7 {
		t.Fatalf("expected seed 7, got %d", cfg.Probes.Seed)
	}
}

func TestApplyFlagsKeepsDefaultsWhenUnset(t *testing.T) {
	_, cfg, err := parseFlags(t)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	def := config.Default()
	if cfg.Probes.Iterations != def.Probes.Iterations {
		t.Fatalf("expected default iterations %d, got %d", def.Probes.Iterations, cfg.Probes.Iterations)
	}
	if cfg.Output.Format != def.Output.Format {
		t.Fatalf("expected default format, got %q", cfg.Output.Format)
	}
}

func TestApplyFlagsRejectsInvalid(t *testing.T) {
	if _, _, err := parseFlags(t, "--format", "xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if _, _, err := parseFlags(t, "--runs", "0"); err == nil {
		t.Fatalf("expected error for zero runs")
	}
	if _, _, err := parseFlags(t, "-n", "0"); err == nil {
		t.Fatalf("expected error for zero iterations")
	}
}

func TestRunLabelPrefix(t *testing.T) {
	if got := prefix(""); got != "" {
		t.Fatalf("expected empty prefix, got %q", got)
	}
	if got := prefix("ci"); got != "ci-" {
		t.Fatalf("expected ci-, got %q", got)
	}
}
