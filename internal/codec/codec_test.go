package codec

import (
	"testing"
	"time"

	"github.com/miradorstack/vmtest/internal/models"
)

func TestPackUnpackFingerprint(t *testing.T) {
	started := time.Date(2026, 3, 4, 5, 6, 7, 890, time.UTC)
	fp := models.Fingerprint{
		RunID:     "run-1",
		StartedAt: started,
		Composite: models.CompositeIndices{PhysicalMachineIndex: -10, CacheAccessRatio: 2.5},
		Verdict: models.Verdict{
			Confidence: 0.65,
			Category:   models.CategoryVirtual,
			Indicators: []models.Indicator{{Name: "cache_miss_ratio", Triggered: true, Weight: 0.2}},
		},
	}

	packed, err := Pack(fp)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	var got models.Fingerprint
	if err := Unpack(packed, &got); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got.Verdict.Category != models.CategoryVirtual || got.Verdict.Confidence != 0.65 {
		t.Fatalf("unexpected verdict %+v", got.Verdict)
	}
	if !got.StartedAt.Equal(started) {
		t.Fatalf("expected nanosecond timestamp to survive, got %v", got.StartedAt)
	}
}

func TestUnpackRejectsGarbage(t *testing.T) {
	var fp models.Fingerprint
	if err := Unpack([]byte("not zstd"), &fp); err == nil {
		t.Fatalf("expected error for corrupt payload")
	}
}

func TestDigestIsDeterministic(t *testing.T) {
	type settings struct {
		Iterations int
		Threshold  float64
	}
	a, err := Digest(settings{1000, 0.15}, "host-a")
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	b, _ := Digest(settings{1000, 0.15}, "host-a")
	c, _ := Digest(settings{1000, 0.25}, "host-a")
	if a != b {
		t.Fatalf("expected identical digests, got %s and %s", a, b)
	}
	if a == c {
		t.Fatalf("expected different digests for different settings")
	}
	if len(a) != 64 {
		t.Fatalf("expected 32-byte hex digest, got %d chars", len(a))
	}
}
