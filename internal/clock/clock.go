// Package clock provides the monotonic nanosecond source used to time probes.
// Production code injects Real(); tests inject a Fake with scripted readings.
package clock

import (
	"sync"
	"time"
)

// Clock returns monotonic nanosecond readings. Only differences between
// readings are meaningful.
type Clock interface {
	Now() int64
}

type realClock struct {
	base time.Time
}

// Real returns a Clock backed by the runtime monotonic clock.
func Real() Clock {
	return realClock{base: time.Now()}
}

func (c realClock) Now() int64 {
	return int64(time.Since(c.base))
}

// Fake is a deterministic Clock. Each call to Now advances the reading by
// the next scripted step, cycling through the steps; with no steps the
// reading never moves.
type Fake struct {
	mu    sync.Mutex
	now   int64
	steps []int64
	next  int
	calls int
}

// NewFake returns a Fake starting at zero that advances by steps in turn.
func NewFake(steps ...int64) *Fake {
	return &Fake{steps: steps}
}

// Now returns the current reading and then advances it.
func (f *Fake) Now() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	reading := f.now
	if len(f.steps) > 0 {
		f.now += f.steps[f.next%len(f.steps)]
		f.next++
	}
	return reading
}

// Advance moves the reading forward by d without consuming a step.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now += int64(d)
	f.mu.Unlock()
}

// Calls reports how many readings were taken.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
