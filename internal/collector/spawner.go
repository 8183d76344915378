package collector

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

const (
	// WorkerEnv marks a process started by ExecSpawner.
	WorkerEnv = "VMTEST_WORKER"
	// WorkerCyclesEnv carries the workload size to the worker process.
	WorkerCyclesEnv = "VMTEST_WORKER_CYCLES"
)

// Process is a started child that can be reaped.
type Process interface {
	Wait() error
}

// Spawner starts one worker process running the fixed-cost workload.
type Spawner interface {
	Spawn(ctx context.Context) (Process, error)
}

// ExecSpawner re-executes a binary with WorkerEnv set so that it runs the
// workload and exits.
type ExecSpawner struct {
	Path string
	Args []string
	Env  []string
}

// NewExecSpawner returns a spawner that re-executes the running binary.
func NewExecSpawner(cycles int) (*ExecSpawner, error) {
	path, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}
	return &ExecSpawner{Path: path, Env: WorkerEnviron(cycles)}, nil
}

// WorkerEnviron returns the environment entries that switch a binary into
// worker mode.
func WorkerEnviron(cycles int) []string {
	return []string{WorkerEnv + "=1", WorkerCyclesEnv + "=" + strconv.Itoa(cycles)}
}

// Spawn starts the worker. The returned *exec.Cmd must be waited on.
func (s *ExecSpawner) Spawn(ctx context.Context) (Process, error) {
	cmd := exec.CommandContext(ctx, s.Path, s.Args...)
	cmd.Env = append(os.Environ(), s.Env...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// IsWorkerProcess reports whether this process was started by ExecSpawner.
func IsWorkerProcess() bool {
	return os.Getenv(WorkerEnv) == "1"
}

// RunWorkerProcess executes the worker workload and returns the exit code.
func RunWorkerProcess() int {
	cycles := DefaultConfig().ThreadWorkCycles
	if v := os.Getenv(WorkerCyclesEnv); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			return 2
		}
		cycles = parsed
	}
	if spin(cycles) < 0 {
		return 1
	}
	return 0
}
