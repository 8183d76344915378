// Package report renders fingerprints as JSON result documents, CSV tables,
// console summaries and trend charts.
package report

import (
	"github.com/miradorstack/vmtest/internal/models"
	"github.com/miradorstack/vmtest/internal/stats"
)

// MeasurementKeys lists every flat measurement in report order.
var MeasurementKeys = []string{
	"TIMING_BASIC_MEAN", "TIMING_BASIC_VARIANCE", "TIMING_BASIC_CV",
	"TIMING_BASIC_SKEWNESS", "TIMING_BASIC_KURTOSIS",
	"TIMING_CONSECUTIVE_MEAN", "TIMING_CONSECUTIVE_VARIANCE", "TIMING_CONSECUTIVE_CV",
	"TIMING_CONSECUTIVE_SKEWNESS", "TIMING_CONSECUTIVE_KURTOSIS",
	"SCHEDULING_THREAD_MEAN", "SCHEDULING_THREAD_VARIANCE", "SCHEDULING_THREAD_CV",
	"SCHEDULING_THREAD_SKEWNESS", "SCHEDULING_THREAD_KURTOSIS",
	"PHYSICAL_MACHINE_INDEX",
	"SCHEDULING_MULTIPROC_MEAN", "SCHEDULING_MULTIPROC_VARIANCE", "SCHEDULING_MULTIPROC_CV",
	"SCHEDULING_MULTIPROC_SKEWNESS", "SCHEDULING_MULTIPROC_KURTOSIS",
	"MULTIPROC_PHYSICAL_MACHINE_INDEX",
	"CACHE_ACCESS_RATIO", "CACHE_MISS_RATIO",
	"MEMORY_ADDRESS_ENTROPY",
	"OVERALL_TIMING_CV", "OVERALL_SCHEDULING_CV",
}

// scientificKeys are printed in exponent notation in tables.
var scientificKeys = map[string]bool{
	"PHYSICAL_MACHINE_INDEX":           true,
	"MULTIPROC_PHYSICAL_MACHINE_INDEX": true,
}

// Measurements flattens a fingerprint into the report keys. Probes that
// produced no samples contribute no keys.
func Measurements(fp models.Fingerprint) map[string]float64 {
	out := make(map[string]float64, len(MeasurementKeys))
	put := func(key string, v float64) {
		if stats.IsFinite(v) {
			out[key] = v
		}
	}
	record := func(prefix string, r models.FeatureRecord) bool {
		if r.Samples == 0 {
			return false
		}
		put(prefix+"_MEAN", r.Mean)
		put(prefix+"_VARIANCE", r.Variance)
		put(prefix+"_CV", r.CoefficientOfVariation)
		put(prefix+"_SKEWNESS", r.Skewness)
		put(prefix+"_KURTOSIS", r.Kurtosis)
		return true
	}

	record("TIMING_BASIC", fp.BasicTiming)
	record("TIMING_CONSECUTIVE", fp.ConsecutiveTiming)
	if record("SCHEDULING_THREAD", fp.ThreadScheduling) {
		put("PHYSICAL_MACHINE_INDEX", fp.Composite.PhysicalMachineIndex)
	}
	if record("SCHEDULING_MULTIPROC", fp.MultiprocScheduling) {
		put("MULTIPROC_PHYSICAL_MACHINE_INDEX", fp.Composite.MultiprocPhysicalMachineIndex)
	}
	if fp.Cache.FriendlySamples > 0 && fp.Cache.UnfriendlySamples > 0 {
		put("CACHE_ACCESS_RATIO", fp.Composite.CacheAccessRatio)
		put("CACHE_MISS_RATIO", fp.Composite.CacheMissRatio)
	}
	if fp.Memory.Allocations > 0 {
		put("MEMORY_ADDRESS_ENTROPY", fp.Composite.MemoryAddressEntropy)
	}
	put("OVERALL_TIMING_CV", fp.Composite.OverallTimingCV)
	put("OVERALL_SCHEDULING_CV", fp.Composite.OverallSchedulingCV)
	return out
}

// ColumnLabel names a fingerprint in multi-run tables.
func ColumnLabel(fp models.Fingerprint) string {
	if fp.Label != "" {
		return fp.Label
	}
	if len(fp.RunID) > 8 {
		return fp.RunID[:8]
	}
	return fp.RunID
}
