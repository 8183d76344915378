package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/miradorstack/vmtest/internal/models"
)

// Document is the persisted results file.
type Document struct {
	RunID        string               `json:"run_id"`
	Label        string               `json:"label,omitempty"`
	Iterations   int                  `json:"iterations"`
	SystemInfo   models.HostInfo      `json:"system_info"`
	Measurements map[string]float64   `json:"measurements"`
	Verdict      models.Verdict       `json:"verdict"`
	Probes       []models.ProbeStatus `json:"probes"`
	StartedAt    time.Time            `json:"started_at"`
	FinishedAt   time.Time            `json:"finished_at"`
}

// NewDocument builds the results document for fp.
func NewDocument(fp models.Fingerprint) Document {
	return Document{
		RunID:        fp.RunID,
		Label:        fp.Label,
		Iterations:   fp.Iterations,
		SystemInfo:   fp.Host,
		Measurements: Measurements(fp),
		Verdict:      fp.Verdict,
		Probes:       fp.Probes,
		StartedAt:    fp.StartedAt,
		FinishedAt:   fp.FinishedAt,
	}
}

// WriteJSON writes the indented results document for fp.
func WriteJSON(w io.Writer, fp models.Fingerprint) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(fp)); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}

// ReadJSON decodes a results document.
func ReadJSON(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode results: %w", err)
	}
	return doc, nil
}
