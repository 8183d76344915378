package extractors

import (
	"github.com/miradorstack/vmtest/internal/models"
	"github.com/miradorstack/vmtest/internal/stats"
)

// CacheExtractor reduces the cache probe's two latency sequences to means.
type CacheExtractor struct{}

// NewCacheExtractor creates a cache probe reducer.
func NewCacheExtractor() *CacheExtractor {
	return &CacheExtractor{}
}

// Reduce averages the sequential and shuffled access latencies.
func (e *CacheExtractor) Reduce(friendly, unfriendly []float64) models.CacheFeatures {
	friendly = stats.Finite(friendly)
	unfriendly = stats.Finite(unfriendly)
	return models.CacheFeatures{
		FriendlyMean:      stats.Mean(friendly),
		UnfriendlyMean:    stats.Mean(unfriendly),
		FriendlySamples:   len(friendly),
		UnfriendlySamples: len(unfriendly),
	}
}
