package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestShortSequencesYieldZeroMoments(t *testing.T) {
	bounds := DefaultBounds()

	if v := Variance([]float64{42}, 42); v != 0 {
		t.Fatalf("expected zero variance for single sample, got %f", v)
	}
	xs := []float64{1, 5}
	m := Describe(xs, bounds)
	if m.Skewness != 0 {
		t.Fatalf("expected zero skewness for two samples, got %f", m.Skewness)
	}
	xs = []float64{1, 5, 20}
	m = Describe(xs, bounds)
	if m.Skewness == 0 {
		t.Fatalf("expected non-zero skewness for three asymmetric samples")
	}
	if m.Kurtosis != 0 {
		t.Fatalf("expected zero kurtosis for three samples, got %f", m.Kurtosis)
	}
}

func TestConstantSequence(t *testing.T) {
	xs := make([]float64, 1000)
	for i := range xs {
		xs[i] = 100.0
	}
	m := Describe(xs, DefaultBounds())
	if m.Mean != 100.0 {
		t.Fatalf("expected mean 100, got %f", m.Mean)
	}
	if m.Variance != 0 || m.CoefficientOfVariation != 0 || m.Skewness != 0 || m.Kurtosis != 0 {
		t.Fatalf("expected zero dispersion moments, got %+v", m)
	}
	if e := Entropy(xs, DefaultBins); e != 0 {
		t.Fatalf("expected zero entropy, got %f", e)
	}
}

func TestKnownMoments(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	m := Describe(xs, DefaultBounds())
	if m.Mean != 5 {
		t.Fatalf("expected mean 5, got %f", m.Mean)
	}
	// Σd² = 32, n-1 = 7.
	if !almostEqual(m.Variance, 32.0/7.0, 1e-12) {
		t.Fatalf("expected variance %f, got %f", 32.0/7.0, m.Variance)
	}
	sd := math.Sqrt(32.0 / 7.0)
	if !almostEqual(m.CoefficientOfVariation, sd/5, 1e-12) {
		t.Fatalf("expected cv %f, got %f", sd/5, m.CoefficientOfVariation)
	}

	// Σd³ = 42, Σd⁴ = 356.
	n := 8.0
	wantSkew := (42.0 / n) / (sd * sd * sd) * math.Sqrt(n*(n-1)) / (n - 2)
	if !almostEqual(m.Skewness, wantSkew, 1e-9) {
		t.Fatalf("expected skewness %f, got %f", wantSkew, m.Skewness)
	}
	raw := (356.0/n)/(sd*sd*sd*sd) - 3
	wantKurt := ((n - 1) / ((n - 2) * (n - 3))) * ((n+1)*raw + 6)
	if !almostEqual(m.Kurtosis, wantKurt, 1e-9) {
		t.Fatalf("expected kurtosis %f, got %f", wantKurt, m.Kurtosis)
	}
}

func TestCoefficientOfVariationScaleInvariant(t *testing.T) {
	xs := []float64{12, 15, 9, 22, 18, 11, 30, 14}
	base := Describe(xs, DefaultBounds())
	for _, k := range []float64{0.001, 3, 1e6} {
		scaled := make([]float64, len(xs))
		for i, x := range xs {
			scaled[i] = k * x
		}
		got := Describe(scaled, DefaultBounds())
		if !almostEqual(got.CoefficientOfVariation, base.CoefficientOfVariation, 1e-12) {
			t.Fatalf("k=%g: expected cv %f, got %f", k, base.CoefficientOfVariation, got.CoefficientOfVariation)
		}
	}
}

func TestCoefficientOfVariationZeroMean(t *testing.T) {
	if cv := CoefficientOfVariation(3, 0); cv != 0 {
		t.Fatalf("expected zero cv for zero mean, got %f", cv)
	}
	m := Describe([]float64{-1, 1, -1, 1}, DefaultBounds())
	if m.CoefficientOfVariation != 0 {
		t.Fatalf("expected zero cv for zero-mean sequence, got %f", m.CoefficientOfVariation)
	}
}

func TestMomentsAreClamped(t *testing.T) {
	xs := make([]float64, 10000)
	for i := range xs {
		xs[i] = 1
	}
	xs[0] = 1e9
	bounds := Bounds{SkewnessLimit: 5, KurtosisMin: -1, KurtosisMax: 50}
	m := Describe(xs, bounds)
	if m.Skewness != 5 {
		t.Fatalf("expected skewness clamped to 5, got %f", m.Skewness)
	}
	if m.Kurtosis != 50 {
		t.Fatalf("expected kurtosis clamped to 50, got %f", m.Kurtosis)
	}
}

func TestDescribeIgnoresNonFinite(t *testing.T) {
	xs := []float64{math.NaN(), 1, 2, math.Inf(1), 3}
	m := Describe(xs, DefaultBounds())
	if m.N != 3 || m.Mean != 2 {
		t.Fatalf("expected 3 finite samples with mean 2, got n=%d mean=%f", m.N, m.Mean)
	}
}

func TestIsFinite(t *testing.T) {
	for _, x := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if IsFinite(x) {
			t.Fatalf("expected %v to be non-finite", x)
		}
	}
	if !IsFinite(0) || !IsFinite(-1e300) {
		t.Fatal("expected ordinary values to be finite")
	}
}

func TestMeanCompensatedSummation(t *testing.T) {
	xs := []float64{1e16, 1, -1e16, 1}
	if got := Mean(xs); got != 0.5 {
		t.Fatalf("expected compensated mean 0.5, got %f", got)
	}
}
