package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/miradorstack/vmtest/internal/models"
	"github.com/miradorstack/vmtest/internal/report"
)

// FileStore writes result documents into an output directory.
type FileStore struct {
	dir string
	now func() time.Time
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

// Dir returns the output directory.
func (s *FileStore) Dir() string { return s.dir }

// Save writes fp as vmtest_results_<unix>.json and returns the path.
func (s *FileStore) Save(fp models.Fingerprint) (string, error) {
	f, path, err := s.create("vmtest_results", ".json")
	if err != nil {
		return "", err
	}
	if err := report.WriteJSON(f, fp); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// SaveCSV writes a CSV table for runs and returns the path.
func (s *FileStore) SaveCSV(data []byte) (string, error) {
	f, path, err := s.create("vmtest_results", ".csv")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// StoreConsensus writes a multi-run consensus report for host.
func (s *FileStore) StoreConsensus(_ context.Context, host string, rep models.ConsensusReport) error {
	f, _, err := s.create("vmtest_consensus", ".json")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	payload := struct {
		Host string `json:"host"`
		models.ConsensusReport
	}{Host: host, ConsensusReport: rep}
	if err := enc.Encode(payload); err != nil {
		f.Close()
		return fmt.Errorf("encode consensus: %w", err)
	}
	return f.Close()
}

// create opens a fresh <prefix>_<unix><ext> file, adding a counter when runs
// land in the same second.
func (s *FileStore) create(prefix, ext string) (*os.File, string, error) {
	base := prefix + "_" + strconv.FormatInt(s.now().Unix(), 10)
	for i := 0; i < 100; i++ {
		name := base + ext
		if i > 0 {
			name = base + "_" + strconv.Itoa(i) + ext
		}
		path := filepath.Join(s.dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("create %s: %w", name, err)
		}
	}
	return nil, "", fmt.Errorf("too many result files for %s", base)
}
