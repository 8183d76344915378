package collector

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
)

func (c *Collector) threadScheduling(out []float64, count int) []float64 {
	dropped := 0
	for i := 0; i < count; i++ {
		d, ok := c.threadTrial()
		if !ok {
			dropped++
			continue
		}
		out = append(out, d)
	}
	if dropped > 0 {
		c.logger.Warn("thread scheduling trials dropped", slog.Int("dropped", dropped), slog.Int("requested", count))
	}
	return out
}

// threadTrial fans out ThreadCount workers pinned to their own OS threads,
// releases them together and joins them. The trial only counts when every
// worker finished its workload.
func (c *Collector) threadTrial() (float64, bool) {
	n := c.cfg.ThreadCount
	cycles := c.cfg.ThreadWorkCycles

	var ready, done sync.WaitGroup
	var completed atomic.Int32
	release := make(chan struct{})

	start := c.clock.Now()
	for w := 0; w < n; w++ {
		ready.Add(1)
		done.Add(1)
		go func() {
			defer done.Done()
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("scheduling worker panicked", slog.Any("panic", r))
				}
			}()
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			ready.Done()
			<-release
			c.sink.Add(spin(cycles))
			completed.Add(1)
		}()
	}
	ready.Wait()
	close(release)
	done.Wait()
	end := c.clock.Now()

	return float64(end - start), int(completed.Load()) == n
}

func (c *Collector) multiprocScheduling(ctx context.Context, out []float64, count int) ([]float64, error) {
	if c.spawner == nil {
		return nil, ErrNoSpawner
	}
	for i := 0; i < count; i++ {
		d, ok := c.processTrial(ctx)
		if !ok {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// processTrial starts ThreadCount worker processes and reaps every one that
// started. A spawn or wait failure drops the trial.
func (c *Collector) processTrial(ctx context.Context) (float64, bool) {
	n := c.cfg.ThreadCount
	procs := make([]Process, 0, n)
	failed := false

	start := c.clock.Now()
	for w := 0; w < n; w++ {
		proc, err := c.spawner.Spawn(ctx)
		if err != nil {
			c.logger.Warn("worker process spawn failed", slog.Int("worker", w), slog.Any("error", err))
			failed = true
			continue
		}
		procs = append(procs, proc)
	}
	for _, proc := range procs {
		if err := proc.Wait(); err != nil {
			c.logger.Warn("worker process exited abnormally", slog.Any("error", err))
			failed = true
		}
	}
	end := c.clock.Now()

	return float64(end - start), !failed
}
