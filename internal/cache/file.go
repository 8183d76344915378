package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// FileProvider keeps entries as files in a directory so separate processes on
// the same host share them. Each file holds an 8-byte big-endian expiry
// (unix nanoseconds, zero for none) followed by the value.
type FileProvider struct {
	dir string
	now func() time.Time
}

// NewFileProvider creates dir if needed and returns a provider rooted there.
func NewFileProvider(dir string) (*FileProvider, error) {
	if dir == "" {
		return nil, errors.New("cache dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileProvider{dir: dir, now: time.Now}, nil
}

// Get returns the stored value, or ErrCacheMiss when absent or expired.
func (p *FileProvider) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(p.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	if len(data) < 8 {
		_ = os.Remove(p.path(key))
		return nil, ErrCacheMiss
	}
	if p.expired(data) {
		_ = os.Remove(p.path(key))
		return nil, ErrCacheMiss
	}
	return data[8:], nil
}

// Set writes value atomically through a temporary file.
func (p *FileProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	tmp, err := os.CreateTemp(p.dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(p.encode(value, ttl)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p.path(key))
}

// SetNX creates the entry exclusively. An expired entry is replaced.
func (p *FileProvider) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(p.path(key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, werr := f.Write(p.encode(value, ttl))
			cerr := f.Close()
			if werr != nil {
				return false, werr
			}
			return true, cerr
		}
		if !errors.Is(err, fs.ErrExist) {
			return false, err
		}
		if _, gerr := p.Get(ctx, key); !errors.Is(gerr, ErrCacheMiss) {
			return false, gerr
		}
	}
	return false, nil
}

// Del removes key; a missing key is not an error.
func (p *FileProvider) Del(_ context.Context, key string) error {
	err := os.Remove(p.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Close is a no-op; entries persist on disk.
func (p *FileProvider) Close() error { return nil }

func (p *FileProvider) path(key string) string {
	return filepath.Join(p.dir, url.PathEscape(key))
}

func (p *FileProvider) encode(value []byte, ttl time.Duration) []byte {
	out := make([]byte, 8, 8+len(value))
	if ttl > 0 {
		binary.BigEndian.PutUint64(out, uint64(p.now().Add(ttl).UnixNano()))
	}
	return append(out, value...)
}

func (p *FileProvider) expired(data []byte) bool {
	expiry := int64(binary.BigEndian.Uint64(data[:8]))
	return expiry != 0 && p.now().UnixNano() >= expiry
}
