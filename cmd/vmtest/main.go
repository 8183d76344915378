// vmtest fingerprints the host it runs on with timing, scheduling, cache and
// allocator probes and reports whether it looks virtualised.
//
// Modes:
//
//	vmtest [flags]           run the probe suite and write reports
//	vmtest serve [flags]     expose the suite over gRPC with /metrics
//	vmtest query [flags]     call a remote vmtest service
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/miradorstack/vmtest/internal/collector"
	"github.com/miradorstack/vmtest/internal/config"
	"github.com/miradorstack/vmtest/internal/engine"
	"github.com/miradorstack/vmtest/internal/utils"
)

type options struct {
	configPath     string
	iterations     int
	runs           int
	label          string
	format         string
	outputDir      string
	chartPath      string
	historyPath    string
	thresholdsPath string
	webhookURL     string
	seed           uint64
	noMultiproc    bool
	refresh        bool
	logLevel       string
	jsonLogs       bool
	cacheDir       string

	addr      string
	latest    bool
	consensus bool
}

func main() {
	// Worker children re-exec this binary; they must not parse flags or log.
	if collector.IsWorkerProcess() {
		os.Exit(collector.RunWorkerProcess())
	}

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newFlagSet(opts *options) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("vmtest", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "path to YAML configuration file")
	flagSet.IntVarP(&opts.iterations, "iterations", "n", 0, "timing iterations per run (default from config)")
	flagSet.IntVar(&opts.runs, "runs", 1, "number of suite runs; more than one adds a consensus report")
	flagSet.StringVar(&opts.label, "label", "", "label attached to each run")
	flagSet.StringVarP(&opts.format, "format", "f", "", "stdout format: console, json or csv")
	flagSet.StringVarP(&opts.outputDir, "output-dir", "o", "", "directory for result files")
	flagSet.StringVar(&opts.chartPath, "chart", "", "write an HTML trend chart of the run history to this path")
	flagSet.StringVar(&opts.historyPath, "history", "", "parquet file accumulating run history")
	flagSet.StringVar(&opts.thresholdsPath, "thresholds", "", "YAML classifier rule pack")
	flagSet.StringVar(&opts.webhookURL, "webhook", "", "upload the CSV report to this webhook URL")
	flagSet.Uint64Var(&opts.seed, "seed", 0, "seed for the cache probe shuffle (0 picks one)")
	flagSet.BoolVar(&opts.noMultiproc, "no-multiproc", false, "skip the multiprocess scheduling probe")
	flagSet.BoolVar(&opts.refresh, "refresh", false, "ignore cached fingerprints")
	flagSet.StringVar(&opts.cacheDir, "cache-dir", "", "reuse fingerprints across invocations from this directory")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flagSet.BoolVar(&opts.jsonLogs, "json-logs", false, "force JSON log output")
	flagSet.StringVar(&opts.addr, "addr", "localhost:50051", "service address for query mode")
	flagSet.BoolVar(&opts.latest, "latest", false, "query mode: fetch the latest fingerprint instead of running")
	flagSet.BoolVar(&opts.consensus, "consensus", false, "query mode: fetch the service consensus")
	return flagSet
}

func run(args []string) error {
	var opts options
	flagSet := newFlagSet(&opts)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	mode := ""
	if rest := flagSet.Args(); len(rest) > 0 {
		mode = rest[0]
		if len(rest) > 1 {
			return fmt.Errorf("unexpected argument: %s", rest[1])
		}
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(flagSet, &opts, cfg); err != nil {
		return err
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "":
		return runSuite(ctx, logger, cfg, opts)
	case "serve":
		return serve(ctx, stop, logger, cfg)
	case "query":
		return query(ctx, cfg, opts)
	default:
		return fmt.Errorf("unknown mode %q (want serve or query)", mode)
	}
}

// applyFlags overlays explicitly set flags onto cfg and revalidates.
func applyFlags(flagSet *pflag.FlagSet, opts *options, cfg *config.Config) error {
	if flagSet.Changed("iterations") {
		cfg.Probes.Iterations = opts.iterations
	}
	if flagSet.Changed("format") {
		cfg.Output.Format = opts.format
	}
	if flagSet.Changed("output-dir") {
		cfg.Output.Dir = opts.outputDir
	}
	if flagSet.Changed("chart") {
		cfg.Output.ChartPath = opts.chartPath
	}
	if flagSet.Changed("history") {
		cfg.History.Path = opts.historyPath
	}
	if flagSet.Changed("webhook") {
		cfg.Webhook.URL = opts.webhookURL
	}
	if flagSet.Changed("seed") {
		cfg.Probes.Seed = opts.seed
	}
	if opts.noMultiproc {
		cfg.Probes.Multiproc = false
	}
	if flagSet.Changed("cache-dir") {
		cfg.Cache.Enabled = true
		cfg.Cache.Backend = config.CacheFile
		cfg.Cache.Dir = opts.cacheDir
	}
	if flagSet.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.jsonLogs {
		cfg.Logging.JSON = true
	}
	if flagSet.Changed("thresholds") {
		cfg.Classifier.ThresholdsPath = opts.thresholdsPath
		th, err := engine.LoadThresholds(opts.thresholdsPath, cfg.Classifier.Thresholds)
		if err != nil {
			return err
		}
		cfg.Classifier.Thresholds = th
	}
	if opts.runs < 1 {
		return fmt.Errorf("--runs must be at least 1, got %d", opts.runs)
	}
	return cfg.Validate()
}
