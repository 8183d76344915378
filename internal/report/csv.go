package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/miradorstack/vmtest/internal/models"
)

// WriteCSV writes one row per measurement key and one column per run.
func WriteCSV(w io.Writer, runs []models.Fingerprint) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(runs)+1)
	header = append(header, "Measurement")
	columns := make([]map[string]float64, len(runs))
	for i, fp := range runs {
		header = append(header, ColumnLabel(fp))
		columns[i] = Measurements(fp)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, key := range MeasurementKeys {
		row := make([]string, 0, len(runs)+1)
		row = append(row, key)
		for _, col := range columns {
			row = append(row, formatValue(key, col))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", key, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSV renders WriteCSV into memory.
func CSV(runs []models.Fingerprint) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, runs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatValue(key string, values map[string]float64) string {
	v, ok := values[key]
	if !ok {
		return "N/A"
	}
	if scientificKeys[key] {
		return fmt.Sprintf("%.6e", v)
	}
	return fmt.Sprintf("%.6f", v)
}
