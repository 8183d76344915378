package clock

import (
	"testing"
	"time"
)

func TestFakeCyclesSteps(t *testing.T) {
	fake := NewFake(10, 30)
	readings := []int64{fake.Now(), fake.Now(), fake.Now(), fake.Now()}
	want := []int64{0, 10, 40, 50}
	for i := range want {
		if readings[i] != want[i] {
			t.Fatalf("reading %d: expected %d, got %d", i, want[i], readings[i])
		}
	}
	if fake.Calls() != 4 {
		t.Fatalf("expected 4 calls, got %d", fake.Calls())
	}
}

func TestFakeAdvance(t *testing.T) {
	fake := NewFake()
	fake.Advance(time.Microsecond)
	if got := fake.Now(); got != 1000 {
		t.Fatalf("expected 1000ns, got %d", got)
	}
}

func TestRealIsMonotonic(t *testing.T) {
	c := Real()
	a := c.Now()
	b := c.Now()
	if b < a {
		t.Fatalf("expected monotonic readings, got %d then %d", a, b)
	}
}
