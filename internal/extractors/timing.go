package extractors

import (
	"github.com/miradorstack/vmtest/internal/models"
	"github.com/miradorstack/vmtest/internal/stats"
)

// TimingExtractor reduces a timing sequence to its feature record.
type TimingExtractor struct {
	bounds stats.Bounds
}

// NewTimingExtractor creates a reducer clamping the higher moments to bounds.
func NewTimingExtractor(bounds stats.Bounds) *TimingExtractor {
	return &TimingExtractor{bounds: bounds}
}

// Reduce computes the feature record of samples. An empty sequence yields a
// zero record.
func (e *TimingExtractor) Reduce(samples []float64) models.FeatureRecord {
	m := stats.Describe(samples, e.bounds)
	return models.FeatureRecord{
		Mean:                   m.Mean,
		Variance:               m.Variance,
		CoefficientOfVariation: m.CoefficientOfVariation,
		Skewness:               m.Skewness,
		Kurtosis:               m.Kurtosis,
		Samples:                m.N,
	}
}
