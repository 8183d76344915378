package models

import "time"

// ProbeKind names a measurement probe.
type ProbeKind string

const (
	ProbeBasicTiming         ProbeKind = "timing_basic"
	ProbeConsecutiveTiming   ProbeKind = "timing_consecutive"
	ProbeThreadScheduling    ProbeKind = "scheduling_thread"
	ProbeMultiprocScheduling ProbeKind = "scheduling_multiproc"
	ProbeCacheAccess         ProbeKind = "cache_access"
	ProbeMemoryAddress       ProbeKind = "memory_address"
)

// ProbeKinds lists every probe in execution order.
var ProbeKinds = []ProbeKind{
	ProbeBasicTiming,
	ProbeThreadScheduling,
	ProbeMultiprocScheduling,
	ProbeConsecutiveTiming,
	ProbeCacheAccess,
	ProbeMemoryAddress,
}

// FeatureRecord holds the distribution moments of one probe's samples.
type FeatureRecord struct {
	Mean                   float64 `json:"mean" cbor:"1,keyasint"`
	Variance               float64 `json:"variance" cbor:"2,keyasint"`
	CoefficientOfVariation float64 `json:"cv" cbor:"3,keyasint"`
	Skewness               float64 `json:"skewness" cbor:"4,keyasint"`
	Kurtosis               float64 `json:"kurtosis" cbor:"5,keyasint"`
	Samples                int     `json:"samples" cbor:"6,keyasint"`
}

// CacheFeatures captures sequential versus shuffled access latency.
type CacheFeatures struct {
	FriendlyMean      float64 `json:"friendly_mean" cbor:"1,keyasint"`
	UnfriendlyMean    float64 `json:"unfriendly_mean" cbor:"2,keyasint"`
	FriendlySamples   int     `json:"friendly_samples" cbor:"3,keyasint"`
	UnfriendlySamples int     `json:"unfriendly_samples" cbor:"4,keyasint"`
}

// MemoryFeatures captures allocator placement entropy.
type MemoryFeatures struct {
	Entropy         float64 `json:"entropy" cbor:"1,keyasint"`
	Allocations     int     `json:"allocations" cbor:"2,keyasint"`
	UsedDifferences bool    `json:"used_differences" cbor:"3,keyasint"`
}

// CompositeIndices are cross-probe indices derived after every probe ran.
type CompositeIndices struct {
	PhysicalMachineIndex          float64 `json:"physical_machine_index" cbor:"1,keyasint"`
	MultiprocPhysicalMachineIndex float64 `json:"multiproc_physical_machine_index" cbor:"2,keyasint"`
	OverallTimingCV               float64 `json:"overall_timing_cv" cbor:"3,keyasint"`
	OverallSchedulingCV           float64 `json:"overall_scheduling_cv" cbor:"4,keyasint"`
	CacheAccessRatio              float64 `json:"cache_access_ratio" cbor:"5,keyasint"`
	CacheMissRatio                float64 `json:"cache_miss_ratio" cbor:"6,keyasint"`
	MemoryAddressEntropy          float64 `json:"memory_address_entropy" cbor:"7,keyasint"`
}

// ProbeStatus records how a single probe went.
type ProbeStatus struct {
	Kind      ProbeKind     `json:"kind" cbor:"1,keyasint"`
	Requested int           `json:"requested" cbor:"2,keyasint"`
	Collected int           `json:"collected" cbor:"3,keyasint"`
	Duration  time.Duration `json:"duration" cbor:"4,keyasint"`
	Aborted   bool          `json:"aborted" cbor:"5,keyasint"`
	Error     string        `json:"error,omitempty" cbor:"6,keyasint,omitempty"`
}

// Fingerprint is the per-run context filled in by the pipeline.
type Fingerprint struct {
	RunID               string           `json:"run_id" cbor:"1,keyasint"`
	Label               string           `json:"label,omitempty" cbor:"2,keyasint,omitempty"`
	Iterations          int              `json:"iterations" cbor:"3,keyasint"`
	Host                HostInfo         `json:"host" cbor:"4,keyasint"`
	BasicTiming         FeatureRecord    `json:"timing_basic" cbor:"5,keyasint"`
	ConsecutiveTiming   FeatureRecord    `json:"timing_consecutive" cbor:"6,keyasint"`
	ThreadScheduling    FeatureRecord    `json:"scheduling_thread" cbor:"7,keyasint"`
	MultiprocScheduling FeatureRecord    `json:"scheduling_multiproc" cbor:"8,keyasint"`
	Cache               CacheFeatures    `json:"cache" cbor:"9,keyasint"`
	Memory              MemoryFeatures   `json:"memory" cbor:"10,keyasint"`
	Composite           CompositeIndices `json:"composite" cbor:"11,keyasint"`
	Verdict             Verdict          `json:"verdict" cbor:"12,keyasint"`
	Probes              []ProbeStatus    `json:"probes" cbor:"13,keyasint"`
	StartedAt           time.Time        `json:"started_at" cbor:"14,keyasint"`
	FinishedAt          time.Time        `json:"finished_at" cbor:"15,keyasint"`
}

// Probe returns the recorded status for kind, if the probe ran.
func (f Fingerprint) Probe(kind ProbeKind) (ProbeStatus, bool) {
	for _, status := range f.Probes {
		if status.Kind == kind {
			return status, true
		}
	}
	return ProbeStatus{}, false
}
