package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/miradorstack/vmtest/internal/models"
	"github.com/miradorstack/vmtest/internal/report"
)

// ErrNoHistory is returned when the history file does not exist yet.
var ErrNoHistory = errors.New("no run history")

// HistoryRow is one fingerprint flattened for columnar storage.
type HistoryRow struct {
	RunID            string  `parquet:"run_id"`
	Label            string  `parquet:"label"`
	Hostname         string  `parquet:"hostname"`
	MachineID        string  `parquet:"machine_id"`
	StartedAt        int64   `parquet:"started_at_unix_nano"`
	DurationNanos    int64   `parquet:"duration_nanos"`
	Iterations       int64   `parquet:"iterations"`
	Category         string  `parquet:"category"`
	Confidence       float64 `parquet:"confidence"`
	Triggered        int64   `parquet:"triggered"`
	BasicMean        float64 `parquet:"timing_basic_mean"`
	BasicCV          float64 `parquet:"timing_basic_cv"`
	ConsecutiveCV    float64 `parquet:"timing_consecutive_cv"`
	ThreadMean       float64 `parquet:"scheduling_thread_mean"`
	ThreadCV         float64 `parquet:"scheduling_thread_cv"`
	MultiprocCV      float64 `parquet:"scheduling_multiproc_cv"`
	PMI              float64 `parquet:"physical_machine_index"`
	MultiprocPMI     float64 `parquet:"multiproc_physical_machine_index"`
	CacheAccessRatio float64 `parquet:"cache_access_ratio"`
	CacheMissRatio   float64 `parquet:"cache_miss_ratio"`
	MemoryEntropy    float64 `parquet:"memory_address_entropy"`
	OverallTimingCV  float64 `parquet:"overall_timing_cv"`
	OverallSchedCV   float64 `parquet:"overall_scheduling_cv"`
}

// RowFromFingerprint flattens fp.
func RowFromFingerprint(fp models.Fingerprint) HistoryRow {
	return HistoryRow{
		RunID:            fp.RunID,
		Label:            fp.Label,
		Hostname:         fp.Host.Hostname,
		MachineID:        fp.Host.MachineID,
		StartedAt:        fp.StartedAt.UnixNano(),
		DurationNanos:    fp.FinishedAt.Sub(fp.StartedAt).Nanoseconds(),
		Iterations:       int64(fp.Iterations),
		Category:         fp.Verdict.Category.String(),
		Confidence:       fp.Verdict.Confidence,
		Triggered:        int64(fp.Verdict.Triggered()),
		BasicMean:        fp.BasicTiming.Mean,
		BasicCV:          fp.BasicTiming.CoefficientOfVariation,
		ConsecutiveCV:    fp.ConsecutiveTiming.CoefficientOfVariation,
		ThreadMean:       fp.ThreadScheduling.Mean,
		ThreadCV:         fp.ThreadScheduling.CoefficientOfVariation,
		MultiprocCV:      fp.MultiprocScheduling.CoefficientOfVariation,
		PMI:              fp.Composite.PhysicalMachineIndex,
		MultiprocPMI:     fp.Composite.MultiprocPhysicalMachineIndex,
		CacheAccessRatio: fp.Composite.CacheAccessRatio,
		CacheMissRatio:   fp.Composite.CacheMissRatio,
		MemoryEntropy:    fp.Composite.MemoryAddressEntropy,
		OverallTimingCV:  fp.Composite.OverallTimingCV,
		OverallSchedCV:   fp.Composite.OverallSchedulingCV,
	}
}

// TrendPoint projects the row onto the trend chart.
func (r HistoryRow) TrendPoint() report.TrendPoint {
	return report.TrendPoint{
		At:           time.Unix(0, r.StartedAt),
		Confidence:   r.Confidence,
		PMI:          r.PMI,
		SchedulingCV: r.ThreadCV,
	}
}

// HistoryStore keeps every run in a single parquet file.
type HistoryStore struct {
	mu   sync.Mutex
	path string
}

// NewHistoryStore targets the parquet file at path.
func NewHistoryStore(path string) *HistoryStore {
	return &HistoryStore{path: path}
}

// Load reads every stored row, oldest first.
func (h *HistoryStore) Load() ([]HistoryRow, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load()
}

// Append adds rows and rewrites the file atomically.
func (h *HistoryStore) Append(rows ...HistoryRow) error {
	if len(rows) == 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	existing, err := h.load()
	if err != nil && !errors.Is(err, ErrNoHistory) {
		return err
	}
	all := append(existing, rows...)

	tmp := h.path + ".tmp"
	if err := parquet.WriteFile(tmp, all); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write history: %w", err)
	}
	if err := os.Rename(tmp, h.path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}

// Trend loads the history as chart points.
func (h *HistoryStore) Trend() ([]report.TrendPoint, error) {
	rows, err := h.Load()
	if err != nil {
		return nil, err
	}
	points := make([]report.TrendPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, row.TrendPoint())
	}
	return points, nil
}

func (h *HistoryStore) load() ([]HistoryRow, error) {
	if _, err := os.Stat(h.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoHistory
		}
		return nil, err
	}
	rows, err := parquet.ReadFile[HistoryRow](h.path)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return rows, nil
}
