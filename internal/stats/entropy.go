package stats

import "math"

// DefaultBins is the histogram width used for entropy estimates. The bin
// count is fixed rather than scaled with the sample size, so estimates from
// sequences of very different lengths are not directly comparable.
const DefaultBins = 20

// Entropy bins xs into equal-width buckets over [min, max] and returns the
// Shannon entropy in bits. A constant or empty sequence has zero entropy.
func Entropy(xs []float64, bins int) float64 {
	xs = Finite(xs)
	if len(xs) == 0 {
		return 0
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	if lo == hi {
		return 0
	}

	width := (hi - lo) / float64(bins)
	counts := make([]int, bins)
	for _, x := range xs {
		idx := int((x - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		counts[idx]++
	}

	total := float64(len(xs))
	entropy := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// Differences returns the consecutive deltas xs[i+1]-xs[i].
func Differences(xs []float64) []float64 {
	if len(xs) < 2 {
		return nil
	}
	out := make([]float64, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		out[i-1] = xs[i] - xs[i-1]
	}
	return out
}
