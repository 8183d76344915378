package extractors

import (
	"github.com/miradorstack/vmtest/internal/models"
	"github.com/miradorstack/vmtest/internal/stats"
)

// DefaultEntropyFallback is the entropy (bits) under which raw addresses are
// considered degenerate and their consecutive differences are used instead.
const DefaultEntropyFallback = 1.0

// MemoryExtractor turns allocation addresses into a placement entropy.
type MemoryExtractor struct {
	bins     int
	fallback float64
}

// NewMemoryExtractor creates a reducer using bins histogram buckets and the
// given fallback floor.
func NewMemoryExtractor(bins int, fallback float64) *MemoryExtractor {
	if bins <= 0 {
		bins = stats.DefaultBins
	}
	return &MemoryExtractor{bins: bins, fallback: fallback}
}

// Reduce estimates entropy over the raw addresses, retrying over the deltas
// between consecutive allocations when the first estimate is below the floor.
func (e *MemoryExtractor) Reduce(addresses []float64) models.MemoryFeatures {
	addresses = stats.Finite(addresses)
	features := models.MemoryFeatures{Allocations: len(addresses)}
	features.Entropy = stats.Entropy(addresses, e.bins)
	if features.Entropy < e.fallback && len(addresses) > 1 {
		features.Entropy = stats.Entropy(stats.Differences(addresses), e.bins)
		features.UsedDifferences = true
	}
	return features
}
