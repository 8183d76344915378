// Package cache stores encoded fingerprints between runs and carries the
// host-wide run lock.
package cache

import (
	"context"
	"errors"
	"time"
)

// Provider is a byte store with per-entry expiry. Fingerprints are written
// with Set under a configuration digest; the run lock is taken with SetNX and
// dropped with Del.
type Provider interface {
	// Get returns ErrCacheMiss for absent or expired keys.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value until ttl elapses. A non-positive ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only when key is absent or expired and reports
	// whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
	Close() error
}

// ErrCacheMiss is returned by Get when no live entry exists.
var ErrCacheMiss = errors.New("cache miss")

// NoopProvider is used when fingerprint caching is disabled. Every lookup
// misses and every lock is granted, so only in-process serialization applies.
type NoopProvider struct{}

func (NoopProvider) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }

func (NoopProvider) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NoopProvider) SetNX(context.Context, string, []byte, time.Duration) (bool, error) {
	return true, nil
}

func (NoopProvider) Del(context.Context, string) error { return nil }

func (NoopProvider) Close() error { return nil }
