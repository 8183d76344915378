package stats

import (
	"math"
	"testing"
)

func TestEntropyTwoClusters(t *testing.T) {
	xs := make([]float64, 0, 1000)
	for i := 0; i < 500; i++ {
		xs = append(xs, 100.0)
	}
	for i := 0; i < 500; i++ {
		xs = append(xs, 200.0)
	}
	got := Entropy(xs, DefaultBins)
	if math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("expected entropy close to 1 bit, got %f", got)
	}
	if got >= math.Log2(DefaultBins) {
		t.Fatalf("expected entropy below the %d-bin maximum, got %f", DefaultBins, got)
	}
}

func TestEntropyUniformReachesMaximum(t *testing.T) {
	xs := make([]float64, 0, 2000)
	for i := 0; i < 2000; i++ {
		xs = append(xs, float64(i%20)+0.5)
	}
	got := Entropy(xs, 20)
	if math.Abs(got-math.Log2(20)) > 1e-9 {
		t.Fatalf("expected maximum entropy %f, got %f", math.Log2(20), got)
	}
}

func TestEntropyDegenerate(t *testing.T) {
	if got := Entropy(nil, DefaultBins); got != 0 {
		t.Fatalf("expected zero entropy for empty input, got %f", got)
	}
	if got := Entropy([]float64{7, 7, 7}, DefaultBins); got != 0 {
		t.Fatalf("expected zero entropy for constant input, got %f", got)
	}
}

func TestDifferences(t *testing.T) {
	got := Differences([]float64{10, 13, 19})
	if len(got) != 2 || got[0] != 3 || got[1] != 6 {
		t.Fatalf("unexpected differences %v", got)
	}
	if Differences([]float64{1}) != nil {
		t.Fatalf("expected nil differences for a single value")
	}
}
