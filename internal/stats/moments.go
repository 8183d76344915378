// Package stats reduces sample sequences to distribution moments and
// binned entropy.
package stats

import "math"

// Bounds clamps the higher moments so a single pathological sample cannot
// produce an unusable value. The limits are tunable, not derived.
type Bounds struct {
	SkewnessLimit float64
	KurtosisMin   float64
	KurtosisMax   float64
}

// DefaultBounds returns skewness in [-100, 100] and kurtosis in [-10, 1000].
func DefaultBounds() Bounds {
	return Bounds{SkewnessLimit: 100, KurtosisMin: -10, KurtosisMax: 1000}
}

// Moments is the full reduction of one sample sequence.
type Moments struct {
	N                      int
	Mean                   float64
	Variance               float64
	StdDev                 float64
	CoefficientOfVariation float64
	Skewness               float64
	Kurtosis               float64
}

// Describe computes every moment of xs. Non-finite samples are ignored.
func Describe(xs []float64, bounds Bounds) Moments {
	xs = Finite(xs)
	m := Moments{N: len(xs)}
	if m.N == 0 {
		return m
	}
	m.Mean = Mean(xs)
	m.Variance = Variance(xs, m.Mean)
	m.StdDev = math.Sqrt(m.Variance)
	m.CoefficientOfVariation = CoefficientOfVariation(m.StdDev, m.Mean)
	m.Skewness = Skewness(xs, m.Mean, m.StdDev, bounds)
	m.Kurtosis = Kurtosis(xs, m.Mean, m.StdDev, bounds)
	return m
}

// Mean returns the arithmetic mean, 0 for an empty sequence.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var acc sum
	for _, x := range xs {
		acc.add(x)
	}
	return acc.value() / float64(len(xs))
}

// Variance returns the sample variance (divisor n-1), 0 when n < 2.
func Variance(xs []float64, mean float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	var acc sum
	for _, x := range xs {
		d := x - mean
		acc.add(d * d)
	}
	v := acc.value() / float64(n-1)
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

// CoefficientOfVariation returns stdDev/mean, 0 when mean is 0.
func CoefficientOfVariation(stdDev, mean float64) float64 {
	if mean == 0 {
		return 0
	}
	return stdDev / mean
}

// Skewness returns the bias-corrected sample skewness. It is 0 when fewer
// than three samples are present or the spread is zero.
func Skewness(xs []float64, mean, stdDev float64, bounds Bounds) float64 {
	n := float64(len(xs))
	if len(xs) < 3 || !(stdDev > 0) {
		return 0
	}
	var acc sum
	for _, x := range xs {
		d := x - mean
		acc.add(d * d * d)
	}
	skew := (acc.value() / n) / (stdDev * stdDev * stdDev)
	skew *= math.Sqrt(n*(n-1)) / (n - 2)
	return clamp(skew, -bounds.SkewnessLimit, bounds.SkewnessLimit)
}

// Kurtosis returns the bias-corrected excess kurtosis. It is 0 when fewer
// than four samples are present or the spread is zero.
func Kurtosis(xs []float64, mean, stdDev float64, bounds Bounds) float64 {
	n := float64(len(xs))
	if len(xs) < 4 || !(stdDev > 0) {
		return 0
	}
	var acc sum
	for _, x := range xs {
		d := x - mean
		d2 := d * d
		acc.add(d2 * d2)
	}
	sd2 := stdDev * stdDev
	raw := (acc.value()/n)/(sd2*sd2) - 3
	kurt := ((n - 1) / ((n - 2) * (n - 3))) * ((n+1)*raw + 6)
	return clamp(kurt, bounds.KurtosisMin, bounds.KurtosisMax)
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Finite returns xs without NaN or infinite values. The input is returned
// unchanged when every value is finite.
func Finite(xs []float64) []float64 {
	for i, x := range xs {
		if !IsFinite(x) {
			out := make([]float64, i, len(xs))
			copy(out, xs[:i])
			for _, y := range xs[i+1:] {
				if IsFinite(y) {
					out = append(out, y)
				}
			}
			return out
		}
	}
	return xs
}

// sum is a Neumaier compensated accumulator.
type sum struct {
	total, comp float64
}

func (s *sum) add(x float64) {
	t := s.total + x
	if math.Abs(s.total) >= math.Abs(x) {
		s.comp += (s.total - t) + x
	} else {
		s.comp += (x - t) + s.total
	}
	s.total = t
}

func (s *sum) value() float64 {
	return s.total + s.comp
}

func clamp(value, min, max float64) float64 {
	if math.IsNaN(value) {
		return 0
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
