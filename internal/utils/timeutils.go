package utils

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// LockStamp encodes the acquisition time stored as a run lock value.
func LockStamp(t time.Time) []byte {
	return []byte(t.UTC().Format(time.RFC3339Nano))
}

// ParseLockStamp decodes a value written by LockStamp.
func ParseLockStamp(value []byte) (time.Time, error) {
	if len(value) == 0 {
		return time.Time{}, errors.New("empty lock stamp")
	}
	t, err := time.Parse(time.RFC3339Nano, string(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse lock stamp: %w", err)
	}
	return t, nil
}

// FormatNanos renders a nanosecond measurement with a readable unit.
func FormatNanos(ns float64) string {
	abs := math.Abs(ns)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.3fs", ns/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.3fms", ns/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.3fµs", ns/1e3)
	default:
		return fmt.Sprintf("%.1fns", ns)
	}
}
