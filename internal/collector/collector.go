// Package collector runs the timed micro-benchmarks and returns their raw
// sample sequences. It computes no statistics.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"

	"github.com/miradorstack/vmtest/internal/clock"
	"github.com/miradorstack/vmtest/internal/models"
)

// ErrScratchUnavailable reports that a probe could not obtain its scratch
// memory and was abandoned.
var ErrScratchUnavailable = errors.New("scratch memory unavailable")

// ErrNoSpawner is returned by the multiprocess probe when no Spawner was
// configured.
var ErrNoSpawner = errors.New("no process spawner configured")

// Config sizes the probe workloads.
type Config struct {
	WorkCycles       int
	ThreadCount      int
	ThreadWorkCycles int
	ConsecutiveBlock int
	ConsecutiveOps   int
	CacheElements    int
	CacheStride      int
	AllocBaseBytes   int
	AllocStepBytes   int
	MaxScratchBytes  int64
	Seed             uint64
}

// DefaultConfig mirrors the reference workload sizes.
func DefaultConfig() Config {
	return Config{
		WorkCycles:       10000,
		ThreadCount:      4,
		ThreadWorkCycles: 5000,
		ConsecutiveBlock: 10,
		ConsecutiveOps:   1000,
		CacheElements:    1 << 20,
		CacheStride:      1000,
		AllocBaseBytes:   64,
		AllocStepBytes:   64,
		MaxScratchBytes:  256 << 20,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.WorkCycles <= 0 {
		c.WorkCycles = def.WorkCycles
	}
	if c.ThreadCount <= 0 {
		c.ThreadCount = def.ThreadCount
	}
	if c.ThreadWorkCycles <= 0 {
		c.ThreadWorkCycles = def.ThreadWorkCycles
	}
	if c.ConsecutiveBlock <= 0 {
		c.ConsecutiveBlock = def.ConsecutiveBlock
	}
	if c.ConsecutiveOps <= 0 {
		c.ConsecutiveOps = def.ConsecutiveOps
	}
	if c.CacheElements <= 0 {
		c.CacheElements = def.CacheElements
	}
	if c.CacheStride <= 0 {
		c.CacheStride = def.CacheStride
	}
	if c.AllocBaseBytes <= 0 {
		c.AllocBaseBytes = def.AllocBaseBytes
	}
	if c.AllocStepBytes < 0 {
		c.AllocStepBytes = def.AllocStepBytes
	}
	if c.MaxScratchBytes <= 0 {
		c.MaxScratchBytes = def.MaxScratchBytes
	}
	return c
}

// Collector executes probes against an injected clock and process spawner.
// A Collector is not safe for concurrent use; probes are meant to run one at
// a time.
type Collector struct {
	cfg     Config
	clock   clock.Clock
	spawner Spawner
	logger  *slog.Logger
	rng     *rand.Rand

	// sink keeps workload results observable so the loops are not elided.
	sink      atomic.Int64
	floatSink float64
}

// New constructs a Collector. A nil clock uses clock.Real().
func New(cfg Config, clk clock.Clock, spawner Spawner, logger *slog.Logger) *Collector {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Collector{
		cfg:     cfg,
		clock:   clk,
		spawner: spawner,
		logger:  logger,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Config returns the effective workload configuration.
func (c *Collector) Config() Config {
	return c.cfg
}

// Collect runs count trials of a single-sequence probe. The returned slice
// may be shorter than count when trials fail; an error is returned only when
// the probe could not run at all.
func (c *Collector) Collect(ctx context.Context, kind models.ProbeKind, count int) ([]float64, error) {
	if count <= 0 {
		return nil, nil
	}
	switch kind {
	case models.ProbeMemoryAddress:
		return c.memoryAddresses(count)
	case models.ProbeBasicTiming, models.ProbeConsecutiveTiming, models.ProbeThreadScheduling, models.ProbeMultiprocScheduling:
	default:
		return nil, fmt.Errorf("collect: unsupported probe %q", kind)
	}

	out, err := c.sampleBuffer(count)
	if err != nil {
		return nil, err
	}
	switch kind {
	case models.ProbeBasicTiming:
		return c.basicTiming(out, count), nil
	case models.ProbeConsecutiveTiming:
		return c.consecutiveTiming(out, count), nil
	case models.ProbeThreadScheduling:
		return c.threadScheduling(out, count), nil
	default:
		return c.multiprocScheduling(ctx, out, count)
	}
}

// sampleBuffer reserves room for count samples within the scratch budget.
func (c *Collector) sampleBuffer(count int) ([]float64, error) {
	buf, err := scratch[float64](count, 8, c.cfg.MaxScratchBytes)
	if err != nil {
		return nil, err
	}
	return buf[:0], nil
}

// spin is the fixed-cost CPU workload shared by every timing probe and the
// worker process.
func spin(cycles int) int64 {
	var acc int64
	for i := 0; i < cycles; i++ {
		acc += int64(i) * int64(i)
	}
	return acc
}

// scratch allocates n elements of T, failing with ErrScratchUnavailable when
// the allocation exceeds the remaining budget or the runtime refuses it.
func scratch[T any](n int, elemSize, budget int64) (buf []T, err error) {
	if n < 0 || int64(n)*elemSize > budget {
		return nil, fmt.Errorf("%w: %d elements of %d bytes exceeds budget %d", ErrScratchUnavailable, n, elemSize, budget)
	}
	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = fmt.Errorf("%w: %v", ErrScratchUnavailable, r)
		}
	}()
	return make([]T, n), nil
}
