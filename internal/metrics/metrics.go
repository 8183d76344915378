package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels runs that produced a verdict.
	OutcomeSuccess = "success"
	// OutcomeError labels runs that were interrupted or misconfigured.
	OutcomeError = "error"
	// OutcomeCached labels runs answered from the fingerprint cache.
	OutcomeCached = "cached"
)

const namespace = "vmtest"

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of probe suite runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	runDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_seconds",
			Help:      "Probe suite wall time in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	probeDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_seconds",
			Help:      "Per-probe wall time in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9),
		},
		[]string{"probe"},
	)

	probeSamples = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "probe_samples",
			Help:      "Samples collected by the most recent run of each probe.",
		},
		[]string{"probe"},
	)

	probeAbortsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_aborts_total",
			Help:      "Probes abandoned because they could not run.",
		},
		[]string{"probe"},
	)

	confidenceScore = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "confidence_score",
			Help:      "Virtualization confidence of the most recent run.",
		},
	)

	verdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Verdicts issued, partitioned by category.",
		},
		[]string{"category"},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Fingerprint cache lookups, partitioned by result.",
		},
		[]string{"result"},
	)
)

// Register attaches vmtest collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		runsTotal,
		runDurationSeconds,
		probeDurationSeconds,
		probeSamples,
		probeAbortsTotal,
		confidenceScore,
		verdictsTotal,
		cacheLookupsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRun records a run duration and outcome label.
func ObserveRun(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError && label != OutcomeCached {
		label = OutcomeSuccess
	}
	runsTotal.WithLabelValues(label).Inc()
	if label == OutcomeCached {
		return
	}
	if duration < 0 {
		duration = 0
	}
	runDurationSeconds.Observe(duration.Seconds())
}

// ObserveProbe records one probe's duration and collected sample count.
func ObserveProbe(probe string, duration time.Duration, samples int, aborted bool) {
	if duration < 0 {
		duration = 0
	}
	probeDurationSeconds.WithLabelValues(probe).Observe(duration.Seconds())
	probeSamples.WithLabelValues(probe).Set(float64(samples))
	if aborted {
		probeAbortsTotal.WithLabelValues(probe).Inc()
	}
}

// ObserveVerdict records the latest confidence and counts its category.
func ObserveVerdict(category string, confidence float64) {
	confidenceScore.Set(confidence)
	verdictsTotal.WithLabelValues(category).Inc()
}

// ObserveCacheLookup counts a fingerprint cache hit or miss.
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(result).Inc()
}
