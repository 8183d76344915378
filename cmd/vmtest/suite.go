package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/miradorstack/vmtest/internal/config"
	"github.com/miradorstack/vmtest/internal/consensus"
	"github.com/miradorstack/vmtest/internal/models"
	"github.com/miradorstack/vmtest/internal/report"
	"github.com/miradorstack/vmtest/internal/repo"
	"github.com/miradorstack/vmtest/internal/utils"
)

func runSuite(ctx context.Context, logger *slog.Logger, cfg *config.Config, opts options) error {
	store, err := repo.NewFileStore(cfg.Output.Dir)
	if err != nil {
		return err
	}

	svc, history, cleanup, err := buildService(cfg, logger, store)
	if err != nil {
		return err
	}
	defer cleanup()

	runs := make([]models.Fingerprint, 0, opts.runs)
	for i := 0; i < opts.runs; i++ {
		label := opts.label
		if opts.runs > 1 {
			label = fmt.Sprintf("%srun-%d", prefix(opts.label), i+1)
		}
		fp, err := svc.Fingerprint(ctx, models.RunRequest{
			Iterations: cfg.Probes.Iterations,
			Label:      label,
			Refresh:    opts.refresh || opts.runs > 1,
		})
		if err != nil {
			if len(runs) > 0 && ctx.Err() != nil {
				logger.Warn("interrupted, reporting completed runs", slog.Int("completed", len(runs)))
				break
			}
			return err
		}
		runs = append(runs, fp)

		path, err := store.Save(fp)
		if err != nil {
			return fmt.Errorf("save results: %w", err)
		}
		logger.Info("results saved", slog.String("path", path), slog.String("category", fp.Verdict.Category.String()))
	}

	var rep *models.ConsensusReport
	if len(runs) > 1 {
		r := consensus.NewMiner(logger, consensus.NewAnalyzer(consensus.DefaultConsistencyCV), store).Mine(ctx, runs[0].Host.Hostname, runs)
		rep = &r
	}

	if err := writeStdout(cfg.Output.Format, runs, rep); err != nil {
		return err
	}

	if cfg.Output.ChartPath != "" {
		if err := writeChart(cfg.Output.ChartPath, history); err != nil {
			logger.Warn("trend chart skipped", slog.Any("error", err))
		}
	}

	webhook := repo.NewWebhookClient(cfg.Webhook.URL, cfg.Webhook.Timeout)
	if webhook.Enabled() {
		if err := upload(ctx, logger, webhook, store, runs); err != nil {
			logger.Error("webhook upload failed", slog.Any("error", err))
		}
	}
	return nil
}

func prefix(label string) string {
	if label == "" {
		return ""
	}
	return label + "-"
}

func writeStdout(format string, runs []models.Fingerprint, rep *models.ConsensusReport) error {
	switch format {
	case config.FormatJSON:
		for _, fp := range runs {
			if err := report.WriteJSON(os.Stdout, fp); err != nil {
				return err
			}
		}
		if rep != nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		}
		return nil
	case config.FormatCSV:
		return report.WriteCSV(os.Stdout, runs)
	default:
		console := report.NewConsole(os.Stdout, utils.IsTerminal(os.Stdout))
		for _, fp := range runs {
			if err := console.Print(fp); err != nil {
				return err
			}
		}
		if rep != nil {
			return console.PrintConsensus(*rep)
		}
		return nil
	}
}

func writeChart(path string, history *repo.HistoryStore) error {
	if history == nil {
		return errors.New("chart requires a history path")
	}
	points, err := history.Trend()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteTrendChart(f, points); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func upload(ctx context.Context, logger *slog.Logger, webhook *repo.WebhookClient, store *repo.FileStore, runs []models.Fingerprint) error {
	data, err := report.CSV(runs)
	if err != nil {
		return err
	}
	path, err := store.SaveCSV(data)
	if err != nil {
		return err
	}
	logger.Info("csv saved", slog.String("path", path))

	now := time.Now()
	if err := webhook.PostReport(ctx, filepath.Base(path), data, report.Summary(runs, now)); err != nil {
		return err
	}
	logger.Info("report uploaded")
	return nil
}
