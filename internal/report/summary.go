package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/miradorstack/vmtest/internal/models"
)

// Summary is the short plain-text message attached to uploaded reports.
func Summary(runs []models.Fingerprint, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "VMTest results - %s\n\n", at.UTC().Format("2006-01-02 15:04:05"))
	if len(runs) == 0 {
		b.WriteString("No runs completed.\n")
		return b.String()
	}

	host := runs[0].Host
	b.WriteString("System:\n")
	fmt.Fprintf(&b, "- Machine: %s\n", orUnknown(host.Hostname))
	fmt.Fprintf(&b, "- Platform: %s\n", orUnknown(host.Platform))
	fmt.Fprintf(&b, "- Architecture: %s\n", orUnknown(host.Machine))
	if host.MachineID != "" {
		fmt.Fprintf(&b, "- Machine ID: %s\n", host.MachineID)
	}
	fmt.Fprintf(&b, "- CPU cores: %d\n\n", host.CPUCount)

	virtual := 0
	for _, fp := range runs {
		if fp.Verdict.Category == models.CategoryVirtual {
			virtual++
		}
	}
	rate := float64(virtual) / float64(len(runs))
	if rate > 0.5 {
		fmt.Fprintf(&b, "VM DETECTED (%d/%d runs, %.1f%%)\n", virtual, len(runs), rate*100)
	} else {
		fmt.Fprintf(&b, "PHYSICAL MACHINE (%d/%d runs virtual)\n", virtual, len(runs))
	}
	for _, fp := range runs {
		fmt.Fprintf(&b, "- %s: %s, confidence %.2f, %s\n", ColumnLabel(fp), fp.Verdict.Category,
			fp.Verdict.Confidence, fp.FinishedAt.Sub(fp.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(&b, "\nCSV report attached with %d measurements\n", len(MeasurementKeys))
	return b.String()
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
