package consensus

import (
	"context"
	"errors"
	"testing"

	"github.com/miradorstack/vmtest/internal/models"
)

func run(category models.Category, confidence, basicMean float64) models.Fingerprint {
	return models.Fingerprint{
		BasicTiming: models.FeatureRecord{Mean: basicMean, Samples: 10},
		Composite:   models.CompositeIndices{OverallTimingCV: 0.1},
		Verdict:     models.Verdict{Category: category, Confidence: confidence},
	}
}

func summary(rep models.ConsensusReport, key string) (models.MeasurementSummary, bool) {
	for _, m := range rep.Measurements {
		if m.Key == key {
			return m, true
		}
	}
	return models.MeasurementSummary{}, false
}

func TestAnalyzeMajorityVirtual(t *testing.T) {
	rep := NewAnalyzer(0).Analyze([]models.Fingerprint{
		run(models.CategoryVirtual, 0.8, 100),
		run(models.CategoryVirtual, 0.7, 100),
		run(models.CategoryPhysical, 0.2, 100),
	})
	if rep.Runs != 3 || rep.VirtualRuns != 2 {
		t.Fatalf("unexpected counts %+v", rep)
	}
	if rep.Category != models.CategoryVirtual {
		t.Fatalf("expected virtual consensus, got %s", rep.Category)
	}
	if diff := rep.MeanConfidence - (0.8+0.7+0.2)/3; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("unexpected mean confidence %v", rep.MeanConfidence)
	}
}

func TestAnalyzeHalfIsNotVirtual(t *testing.T) {
	rep := NewAnalyzer(0).Analyze([]models.Fingerprint{
		run(models.CategoryVirtual, 0.8, 100),
		run(models.CategoryPhysical, 0.1, 100),
	})
	if rep.DetectionRate != 0.5 {
		t.Fatalf("expected detection rate 0.5, got %v", rep.DetectionRate)
	}
	if rep.Category != models.CategoryAmbiguous {
		t.Fatalf("expected ambiguous consensus, got %s", rep.Category)
	}
}

func TestAnalyzeAllPhysical(t *testing.T) {
	rep := NewAnalyzer(0).Analyze([]models.Fingerprint{
		run(models.CategoryPhysical, 0.1, 100),
		run(models.CategoryPhysical, 0.0, 100),
	})
	if rep.Category != models.CategoryPhysical {
		t.Fatalf("expected physical consensus, got %s", rep.Category)
	}
}

func TestAnalyzeConsistency(t *testing.T) {
	rep := NewAnalyzer(0.2).Analyze([]models.Fingerprint{
		run(models.CategoryPhysical, 0.1, 100),
		run(models.CategoryPhysical, 0.1, 300),
	})
	basic, ok := summary(rep, "TIMING_BASIC_MEAN")
	if !ok {
		t.Fatal("expected TIMING_BASIC_MEAN summary")
	}
	if basic.Mean != 200 || basic.Consistent {
		t.Fatalf("expected inconsistent mean 200, got %+v", basic)
	}
	overall, ok := summary(rep, "OVERALL_TIMING_CV")
	if !ok || !overall.Consistent || overall.StdDev != 0 {
		t.Fatalf("expected identical values to be consistent, got %+v", overall)
	}
	if _, ok := summary(rep, "SCHEDULING_THREAD_MEAN"); ok {
		t.Fatal("expected unmeasured keys to be skipped")
	}
	if rep.Consistent == 0 || rep.Consistent >= len(rep.Measurements) {
		t.Fatalf("unexpected consistent count %d of %d", rep.Consistent, len(rep.Measurements))
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	rep := NewAnalyzer(0).Analyze(nil)
	if rep.Runs != 0 || rep.DetectionRate != 0 || len(rep.Measurements) != 0 {
		t.Fatalf("expected empty report, got %+v", rep)
	}
}

func TestMinerStoresReport(t *testing.T) {
	var stored models.ConsensusReport
	var storedHost string
	store := StoreFunc(func(_ context.Context, host string, rep models.ConsensusReport) error {
		storedHost = host
		stored = rep
		return nil
	})
	miner := NewMiner(nil, nil, store)
	rep := miner.Mine(context.Background(), "bench-01", []models.Fingerprint{run(models.CategoryVirtual, 0.9, 10)})
	if storedHost != "bench-01" || stored.Runs != 1 || rep.Category != models.CategoryVirtual {
		t.Fatalf("expected report to be stored, got host=%q %+v", storedHost, stored)
	}
}

func TestMinerIgnoresStoreFailure(t *testing.T) {
	miner := NewMiner(nil, nil, StoreFunc(func(context.Context, string, models.ConsensusReport) error {
		return errors.New("disk full")
	}))
	rep := miner.Mine(context.Background(), "h", []models.Fingerprint{run(models.CategoryPhysical, 0.1, 10)})
	if rep.Runs != 1 {
		t.Fatalf("expected report despite store failure, got %+v", rep)
	}
}
