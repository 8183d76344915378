package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/vmtest/internal/collector"
	"github.com/miradorstack/vmtest/internal/extractors"
	"github.com/miradorstack/vmtest/internal/metrics"
	"github.com/miradorstack/vmtest/internal/models"
)

// SampleCollector defines the measurement behaviour used by the pipeline.
type SampleCollector interface {
	Collect(ctx context.Context, kind models.ProbeKind, count int) ([]float64, error)
	CacheAccess(trials int) (collector.CacheSamples, error)
}

// HostProber identifies the machine being fingerprinted.
type HostProber interface {
	Probe() models.HostInfo
}

// SuiteConfig sizes a probe suite run.
type SuiteConfig struct {
	Iterations        int
	CacheTrials       int
	MemoryAllocations int
}

// DefaultSuiteConfig returns 1000 iterations, 100 cache trials and 1000
// allocations.
func DefaultSuiteConfig() SuiteConfig {
	return SuiteConfig{Iterations: 1000, CacheTrials: 100, MemoryAllocations: 1000}
}

type probeStep struct {
	kind  models.ProbeKind
	count int
}

// plan derives per-probe trial counts from the iteration budget. Scheduling
// probes are far more expensive per trial and get a fraction of it.
func (s SuiteConfig) plan(iterations int) []probeStep {
	return []probeStep{
		{models.ProbeBasicTiming, atLeastOne(iterations)},
		{models.ProbeThreadScheduling, atLeastOne(iterations / 10)},
		{models.ProbeMultiprocScheduling, atLeastOne(iterations / 20)},
		{models.ProbeConsecutiveTiming, atLeastOne(iterations / 2)},
		{models.ProbeCacheAccess, atLeastOne(s.CacheTrials)},
		{models.ProbeMemoryAddress, atLeastOne(s.MemoryAllocations)},
	}
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// Pipeline runs the probe suite sequentially and turns the samples into a
// classified fingerprint.
type Pipeline struct {
	logger     *slog.Logger
	collector  SampleCollector
	host       HostProber
	suite      SuiteConfig
	timing     *extractors.TimingExtractor
	cache      *extractors.CacheExtractor
	memory     *extractors.MemoryExtractor
	synth      *Synthesizer
	classifier *Classifier
	now        func() time.Time
}

// NewPipeline constructs a new probe pipeline. The host prober is optional.
func NewPipeline(
	logger *slog.Logger,
	sampler SampleCollector,
	host HostProber,
	suite SuiteConfig,
	timing *extractors.TimingExtractor,
	cache *extractors.CacheExtractor,
	memory *extractors.MemoryExtractor,
	synth *Synthesizer,
	classifier *Classifier,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultSuiteConfig()
	if suite.Iterations <= 0 {
		suite.Iterations = def.Iterations
	}
	if suite.CacheTrials <= 0 {
		suite.CacheTrials = def.CacheTrials
	}
	if suite.MemoryAllocations <= 0 {
		suite.MemoryAllocations = def.MemoryAllocations
	}
	if cache == nil {
		cache = extractors.NewCacheExtractor()
	}
	if synth == nil {
		synth = NewSynthesizer(DefaultIndexBounds(), logger)
	}

	return &Pipeline{
		logger:     logger,
		collector:  sampler,
		host:       host,
		suite:      suite,
		timing:     timing,
		cache:      cache,
		memory:     memory,
		synth:      synth,
		classifier: classifier,
		now:        time.Now,
	}
}

// Run executes every probe once and returns the classified fingerprint.
// Probes that fail leave their records at zero values; only a cancelled
// context stops the run early, returning what was measured so far.
func (p *Pipeline) Run(ctx context.Context, req models.RunRequest) (models.Fingerprint, error) {
	if p.collector == nil {
		return models.Fingerprint{}, fmt.Errorf("sample collector not configured")
	}
	if p.timing == nil || p.memory == nil || p.classifier == nil {
		return models.Fingerprint{}, fmt.Errorf("pipeline reducers not configured")
	}

	iterations := req.Iterations
	if iterations <= 0 {
		iterations = p.suite.Iterations
	}

	fp := models.Fingerprint{
		RunID:      uuid.NewString(),
		Label:      req.Label,
		Iterations: iterations,
		StartedAt:  p.now().UTC(),
	}
	if p.host != nil {
		fp.Host = p.host.Probe()
	}

	logger := p.logger.With(slog.String("run_id", fp.RunID))
	logger.Info("probe suite started", slog.Int("iterations", iterations))

	for _, step := range p.suite.plan(iterations) {
		if err := ctx.Err(); err != nil {
			fp.FinishedAt = p.now().UTC()
			return fp, fmt.Errorf("run interrupted before %s: %w", step.kind, err)
		}
		status := p.runProbe(ctx, logger, &fp, step)
		fp.Probes = append(fp.Probes, status)
	}

	fp.Composite = p.synth.Synthesize(fp)
	fp.Verdict = p.classifier.Classify(fp.ThreadScheduling, fp.Composite)
	fp.FinishedAt = p.now().UTC()

	metrics.ObserveVerdict(fp.Verdict.Category.String(), fp.Verdict.Confidence)
	logger.Info("probe suite finished",
		slog.String("category", fp.Verdict.Category.String()),
		slog.Float64("confidence", fp.Verdict.Confidence),
		slog.Duration("elapsed", fp.FinishedAt.Sub(fp.StartedAt)),
	)
	return fp, nil
}

func (p *Pipeline) runProbe(ctx context.Context, logger *slog.Logger, fp *models.Fingerprint, step probeStep) models.ProbeStatus {
	status := models.ProbeStatus{Kind: step.kind, Requested: step.count}
	start := time.Now()

	var err error
	switch step.kind {
	case models.ProbeCacheAccess:
		var samples collector.CacheSamples
		samples, err = p.collector.CacheAccess(step.count)
		if err == nil {
			fp.Cache = p.cache.Reduce(samples.Friendly, samples.Unfriendly)
			status.Collected = min(fp.Cache.FriendlySamples, fp.Cache.UnfriendlySamples)
		}
	case models.ProbeMemoryAddress:
		var addrs []float64
		addrs, err = p.collector.Collect(ctx, step.kind, step.count)
		if err == nil {
			fp.Memory = p.memory.Reduce(addrs)
			status.Collected = fp.Memory.Allocations
		}
	default:
		var samples []float64
		samples, err = p.collector.Collect(ctx, step.kind, step.count)
		if err == nil {
			record := p.timing.Reduce(samples)
			status.Collected = record.Samples
			assignRecord(fp, step.kind, record)
		}
	}
	status.Duration = time.Since(start)

	if err != nil {
		status.Aborted = true
		status.Error = err.Error()
		logger.Warn("probe aborted", slog.String("probe", string(step.kind)), slog.Any("error", err))
	} else if status.Collected < status.Requested {
		logger.Warn("probe under-sampled",
			slog.String("probe", string(step.kind)),
			slog.Int("requested", status.Requested),
			slog.Int("collected", status.Collected),
		)
	} else {
		logger.Debug("probe complete",
			slog.String("probe", string(step.kind)),
			slog.Int("samples", status.Collected),
			slog.Duration("elapsed", status.Duration),
		)
	}
	metrics.ObserveProbe(string(step.kind), status.Duration, status.Collected, status.Aborted)
	return status
}

func assignRecord(fp *models.Fingerprint, kind models.ProbeKind, record models.FeatureRecord) {
	switch kind {
	case models.ProbeBasicTiming:
		fp.BasicTiming = record
	case models.ProbeConsecutiveTiming:
		fp.ConsecutiveTiming = record
	case models.ProbeThreadScheduling:
		fp.ThreadScheduling = record
	case models.ProbeMultiprocScheduling:
		fp.MultiprocScheduling = record
	}
}
