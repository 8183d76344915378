// Package consensus aggregates repeated fingerprints of one host into a
// single verdict and flags measurements that drift between runs.
package consensus

import (
	"context"
	"log/slog"
	"math"

	"github.com/miradorstack/vmtest/internal/models"
	"github.com/miradorstack/vmtest/internal/report"
	"github.com/miradorstack/vmtest/internal/stats"
)

// DefaultConsistencyCV is the cross-run CV below which a measurement counts
// as consistent.
const DefaultConsistencyCV = 0.2

// Analyzer summarises several fingerprints.
type Analyzer struct {
	consistencyCV float64
}

// NewAnalyzer uses DefaultConsistencyCV when consistencyCV is not positive.
func NewAnalyzer(consistencyCV float64) *Analyzer {
	if consistencyCV <= 0 {
		consistencyCV = DefaultConsistencyCV
	}
	return &Analyzer{consistencyCV: consistencyCV}
}

// Analyze returns per-measurement spread and the majority verdict. The
// consensus is virtual only when more than half of the runs were virtual.
func (a *Analyzer) Analyze(runs []models.Fingerprint) models.ConsensusReport {
	rep := models.ConsensusReport{Runs: len(runs), Category: models.CategoryPhysical}
	if len(runs) == 0 {
		return rep
	}

	columns := make(map[string][]float64, len(report.MeasurementKeys))
	confidences := make([]float64, 0, len(runs))
	for _, fp := range runs {
		if fp.Verdict.Category == models.CategoryVirtual {
			rep.VirtualRuns++
		}
		confidences = append(confidences, fp.Verdict.Confidence)
		for key, v := range report.Measurements(fp) {
			columns[key] = append(columns[key], v)
		}
	}

	rep.DetectionRate = float64(rep.VirtualRuns) / float64(len(runs))
	rep.MeanConfidence = stats.Mean(confidences)
	switch {
	case rep.DetectionRate > 0.5:
		rep.Category = models.CategoryVirtual
	case rep.VirtualRuns > 0 || meanCategory(runs) >= float64(models.CategoryAmbiguous):
		rep.Category = models.CategoryAmbiguous
	}

	for _, key := range report.MeasurementKeys {
		values, ok := columns[key]
		if !ok {
			continue
		}
		summary := models.MeasurementSummary{Key: key, Mean: stats.Mean(values)}
		summary.StdDev = math.Sqrt(stats.Variance(values, summary.Mean))
		if summary.Mean != 0 {
			summary.CV = summary.StdDev / math.Abs(summary.Mean)
		}
		summary.Consistent = summary.CV < a.consistencyCV
		if summary.Consistent {
			rep.Consistent++
		}
		rep.Measurements = append(rep.Measurements, summary)
	}
	return rep
}

func meanCategory(runs []models.Fingerprint) float64 {
	values := make([]float64, len(runs))
	for i, fp := range runs {
		values[i] = float64(fp.Verdict.Category)
	}
	return stats.Mean(values)
}

// Miner analyses a batch of runs and persists the resulting report.
type Miner struct {
	analyzer *Analyzer
	store    Store
	logger   *slog.Logger
}

// NewMiner constructs a Miner; store may be nil for dry runs.
func NewMiner(logger *slog.Logger, analyzer *Analyzer, store Store) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	if analyzer == nil {
		analyzer = NewAnalyzer(0)
	}
	return &Miner{analyzer: analyzer, store: store, logger: logger}
}

// Mine analyses runs for host. Store failures are logged, not returned.
func (m *Miner) Mine(ctx context.Context, host string, runs []models.Fingerprint) models.ConsensusReport {
	rep := m.analyzer.Analyze(runs)
	if len(runs) == 0 {
		return rep
	}

	m.logger.Info("consensus computed",
		slog.String("host", host),
		slog.Int("runs", rep.Runs),
		slog.Float64("detection_rate", rep.DetectionRate),
		slog.String("category", rep.Category.String()),
		slog.Int("consistent", rep.Consistent),
	)

	if m.store != nil {
		if err := m.store.StoreConsensus(ctx, host, rep); err != nil {
			m.logger.Warn("consensus store failed", slog.Any("error", err))
		}
	}
	return rep
}
