package models

// RunRequest parameterises one probe suite run.
type RunRequest struct {
	// Iterations scales the timing probes; zero uses the configured default.
	Iterations int
	Label      string
	// Refresh bypasses any cached fingerprint.
	Refresh bool
}

// MeasurementSummary describes one measurement across several runs.
type MeasurementSummary struct {
	Key        string  `json:"key"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	CV         float64 `json:"cv"`
	Consistent bool    `json:"consistent"`
}

// ConsensusReport aggregates several fingerprints of the same host.
type ConsensusReport struct {
	Runs           int                  `json:"runs"`
	VirtualRuns    int                  `json:"virtual_runs"`
	DetectionRate  float64              `json:"detection_rate"`
	MeanConfidence float64              `json:"mean_confidence"`
	Category       Category             `json:"category"`
	Measurements   []MeasurementSummary `json:"measurements"`
	Consistent     int                  `json:"consistent"`
}
