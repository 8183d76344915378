package engine

import (
	"log/slog"
	"math"

	"github.com/miradorstack/vmtest/internal/models"
)

// IndexBounds configures the physical machine index guard rails.
type IndexBounds struct {
	// Sentinel is returned when the index is undefined; it reads as VM-like.
	Sentinel float64
	Min      float64
	Max      float64
}

// DefaultIndexBounds returns sentinel -10 and clamp range [-20, 10].
func DefaultIndexBounds() IndexBounds {
	return IndexBounds{Sentinel: -10, Min: -20, Max: 10}
}

// Synthesizer derives cross-probe composite indices.
type Synthesizer struct {
	bounds IndexBounds
	logger *slog.Logger
}

// NewSynthesizer constructs a Synthesizer.
func NewSynthesizer(bounds IndexBounds, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{bounds: bounds, logger: logger}
}

// Synthesize computes every composite index from the fingerprint's records.
func (s *Synthesizer) Synthesize(fp models.Fingerprint) models.CompositeIndices {
	ratio, miss := CacheRatios(fp.Cache.FriendlyMean, fp.Cache.UnfriendlyMean)
	idx := models.CompositeIndices{
		PhysicalMachineIndex:          s.PhysicalMachineIndex(fp.ThreadScheduling),
		MultiprocPhysicalMachineIndex: s.PhysicalMachineIndex(fp.MultiprocScheduling),
		OverallTimingCV: OverallCV(
			fp.BasicTiming.CoefficientOfVariation,
			fp.ConsecutiveTiming.CoefficientOfVariation,
		),
		OverallSchedulingCV: OverallCV(
			fp.ThreadScheduling.CoefficientOfVariation,
			fp.MultiprocScheduling.CoefficientOfVariation,
		),
		CacheAccessRatio:     ratio,
		CacheMissRatio:       miss,
		MemoryAddressEntropy: fp.Memory.Entropy,
	}
	s.logger.Debug("composite indices",
		slog.Float64("pmi", idx.PhysicalMachineIndex),
		slog.Float64("cache_miss_ratio", idx.CacheMissRatio),
		slog.Float64("overall_scheduling_cv", idx.OverallSchedulingCV),
	)
	return idx
}

// PhysicalMachineIndex returns log10(kurtosis*skewness/variance) of record,
// or the sentinel when any input leaves the log undefined.
func (s *Synthesizer) PhysicalMachineIndex(record models.FeatureRecord) float64 {
	if record.Variance <= 0 || record.Kurtosis <= 0 || record.Skewness <= 0 {
		return s.bounds.Sentinel
	}
	ratio := (record.Kurtosis * record.Skewness) / record.Variance
	if !(ratio > 0) || math.IsInf(ratio, 0) {
		return s.bounds.Sentinel
	}
	pmi := math.Log10(ratio)
	if math.IsNaN(pmi) || math.IsInf(pmi, 0) {
		return s.bounds.Sentinel
	}
	return clamp(pmi, s.bounds.Min, s.bounds.Max)
}

// CacheRatios returns unfriendly/friendly and the relative slowdown. A
// non-positive friendly mean carries no information and yields 1 and 0.
func CacheRatios(friendlyMean, unfriendlyMean float64) (ratio, miss float64) {
	if !(friendlyMean > 0) {
		return 1.0, 0.0
	}
	ratio = unfriendlyMean / friendlyMean
	miss = (unfriendlyMean - friendlyMean) / friendlyMean
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) || math.IsNaN(miss) || math.IsInf(miss, 0) {
		return 1.0, 0.0
	}
	return ratio, miss
}

// OverallCV averages the strictly positive coefficients of variation. A zero
// CV means the probe produced no signal and is left out.
func OverallCV(cvs ...float64) float64 {
	total := 0.0
	count := 0
	for _, cv := range cvs {
		if cv > 0 {
			total += cv
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
