package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("expected duplicate registration to be ignored, got %v", err)
	}
}

func TestObserveRunNormalisesOutcome(t *testing.T) {
	before := testutil.ToFloat64(runsTotal.WithLabelValues(OutcomeSuccess))
	ObserveRun(2*time.Second, "weird")
	after := testutil.ToFloat64(runsTotal.WithLabelValues(OutcomeSuccess))
	if after != before+1 {
		t.Fatalf("expected success counter to grow by 1, got %f -> %f", before, after)
	}
}

func TestObserveProbe(t *testing.T) {
	abortsBefore := testutil.ToFloat64(probeAbortsTotal.WithLabelValues("cache_access"))
	ObserveProbe("cache_access", 10*time.Millisecond, 0, true)
	ObserveProbe("timing_basic", 5*time.Millisecond, 1000, false)

	if got := testutil.ToFloat64(probeSamples.WithLabelValues("timing_basic")); got != 1000 {
		t.Fatalf("expected 1000 samples gauge, got %f", got)
	}
	if got := testutil.ToFloat64(probeAbortsTotal.WithLabelValues("cache_access")); got != abortsBefore+1 {
		t.Fatalf("expected abort counter to grow by 1, got %f", got)
	}
}

func TestObserveVerdict(t *testing.T) {
	ObserveVerdict("virtual", 0.75)
	if got := testutil.ToFloat64(confidenceScore); got != 0.75 {
		t.Fatalf("expected confidence 0.75, got %f", got)
	}
	if n := testutil.CollectAndCount(verdictsTotal); n < 1 {
		t.Fatalf("expected at least one verdict series, got %d", n)
	}
}
