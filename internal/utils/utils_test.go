package utils

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", true)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("probe", "cache_access"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected info to be filtered at warn level, got %q", out)
	}
	if !strings.Contains(out, `"probe":"cache_access"`) {
		t.Fatalf("expected JSON attribute, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG") != slog.LevelDebug {
		t.Fatalf("expected debug level")
	}
	if ParseLevel("unknown") != slog.LevelInfo {
		t.Fatalf("expected info fallback")
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := NewAppError("Run", "probe suite failed", base)
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to match")
	}
	if err.Error() != "Run: probe suite failed: boom" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestKindOf(t *testing.T) {
	err := NewKindError(KindUnavailable, "Run", "probe run in progress", nil)
	wrapped := fmt.Errorf("serve: %w", err)
	if KindOf(wrapped) != KindUnavailable {
		t.Fatalf("expected KindUnavailable, got %v", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Fatal("expected plain errors to be internal")
	}
	if err.Error() != "Run: probe run in progress" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestLockStampRoundTrip(t *testing.T) {
	if _, err := ParseLockStamp(nil); err == nil {
		t.Fatalf("expected error for empty stamp")
	}
	if _, err := ParseLockStamp([]byte("yesterday")); err == nil {
		t.Fatalf("expected error for malformed stamp")
	}
	at := time.Date(2026, 1, 2, 3, 4, 5, 600, time.FixedZone("CET", 3600))
	got, err := ParseLockStamp(LockStamp(at))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.Equal(at) || got.Location() != time.UTC {
		t.Fatalf("expected %v in UTC, got %v", at, got)
	}
}

func TestFormatNanos(t *testing.T) {
	cases := map[float64]string{
		512:       "512.0ns",
		2500:      "2.500µs",
		3_200_000: "3.200ms",
		1.5e9:     "1.500s",
	}
	for in, want := range cases {
		if got := FormatNanos(in); got != want {
			t.Fatalf("FormatNanos(%f): expected %q, got %q", in, want, got)
		}
	}
}
