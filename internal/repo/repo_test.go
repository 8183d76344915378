package repo

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/miradorstack/vmtest/internal/models"
	"github.com/miradorstack/vmtest/internal/report"
)

func fingerprint(label string, category models.Category, confidence float64, started time.Time) models.Fingerprint {
	return models.Fingerprint{
		RunID:            "run-" + label,
		Label:            label,
		Iterations:       100,
		Host:             models.HostInfo{Hostname: "bench-01", MachineID: "abc"},
		ThreadScheduling: models.FeatureRecord{Mean: 2000, CoefficientOfVariation: 0.2, Samples: 10},
		Composite:        models.CompositeIndices{PhysicalMachineIndex: -1.5, CacheMissRatio: 0.4},
		Verdict: models.Verdict{
			Confidence: confidence,
			Category:   category,
			Indicators: []models.Indicator{{Name: "scheduling_thread_cv", Triggered: true}},
		},
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
	}
}

func TestFileStoreSave(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	store.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	fp := fingerprint("a", models.CategoryVirtual, 0.7, time.Unix(1_700_000_000, 0))
	first, err := store.Save(fp)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Base(first) != "vmtest_results_1700000000.json" {
		t.Fatalf("unexpected file name %s", first)
	}
	second, err := store.Save(fp)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if filepath.Base(second) != "vmtest_results_1700000000_1.json" {
		t.Fatalf("expected suffixed name, got %s", second)
	}

	f, err := os.Open(first)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	doc, err := report.ReadJSON(f)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if doc.RunID != "run-a" || doc.Measurements["PHYSICAL_MACHINE_INDEX"] != -1.5 {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestFileStoreConsensus(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	rep := models.ConsensusReport{Runs: 3, VirtualRuns: 2, Category: models.CategoryVirtual}
	if err := store.StoreConsensus(context.Background(), "bench-01", rep); err != nil {
		t.Fatalf("store consensus: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "vmtest_consensus_*.json"))
	if len(matches) != 1 {
		t.Fatalf("expected one consensus file, got %v", matches)
	}
	data, _ := os.ReadFile(matches[0])
	if !strings.Contains(string(data), `"host": "bench-01"`) || !strings.Contains(string(data), `"category": "virtual"`) {
		t.Fatalf("unexpected consensus file %s", data)
	}
}

func TestHistoryStoreAppendLoad(t *testing.T) {
	store := NewHistoryStore(filepath.Join(t.TempDir(), "history.parquet"))
	if _, err := store.Load(); !errors.Is(err, ErrNoHistory) {
		t.Fatalf("expected ErrNoHistory, got %v", err)
	}

	start := time.Unix(1_700_000_000, 0)
	if err := store.Append(RowFromFingerprint(fingerprint("a", models.CategoryVirtual, 0.7, start))); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(RowFromFingerprint(fingerprint("b", models.CategoryPhysical, 0.1, start.Add(time.Hour)))); err != nil {
		t.Fatalf("second append: %v", err)
	}

	rows, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Category != "virtual" || rows[1].Label != "b" {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if rows[0].DurationNanos != (3 * time.Second).Nanoseconds() || rows[0].Triggered != 1 {
		t.Fatalf("unexpected flattening %+v", rows[0])
	}

	points, err := store.Trend()
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(points) != 2 || points[0].PMI != -1.5 || points[0].SchedulingCV != 0.2 {
		t.Fatalf("unexpected points %+v", points)
	}
	if !points[1].At.Equal(start.Add(time.Hour)) {
		t.Fatalf("expected second point at %s, got %s", start.Add(time.Hour), points[1].At)
	}
}

func TestWebhookPostReport(t *testing.T) {
	var gotSummary, gotFile, gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotSummary = r.FormValue("content")
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		gotName = header.Filename
		data, _ := io.ReadAll(file)
		gotFile = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewWebhookClient(srv.URL, time.Second)
	if err := client.PostReport(context.Background(), "vmtest.csv", []byte("Measurement,a\n"), "summary text"); err != nil {
		t.Fatalf("post: %v", err)
	}
	if gotSummary != "summary text" || gotFile != "Measurement,a\n" || gotName != "vmtest.csv" {
		t.Fatalf("unexpected upload %q %q %q", gotSummary, gotFile, gotName)
	}
}

func TestWebhookErrorStatus(t *testing.T) {
	client := NewWebhookClient("https://hooks.example.com/upload", time.Second)
	client.httpClient = newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadRequest,
			Status:     "400 Bad Request",
			Body:       io.NopCloser(bytes.NewReader([]byte("payload too large"))),
			Header:     make(http.Header),
		}, nil
	}))
	err := client.PostReport(context.Background(), "r.csv", nil, "s")
	if err == nil || !strings.Contains(err.Error(), "payload too large") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestWebhookDisabled(t *testing.T) {
	client := NewWebhookClient("", 0)
	if client.Enabled() {
		t.Fatal("expected disabled client")
	}
	if err := client.PostReport(context.Background(), "r.csv", nil, ""); err != nil {
		t.Fatalf("expected disabled client to no-op, got %v", err)
	}
}
