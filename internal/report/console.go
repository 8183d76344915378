package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/miradorstack/vmtest/internal/models"
	"github.com/miradorstack/vmtest/internal/utils"
)

// Console prints a human readable summary of a fingerprint.
type Console struct {
	w     io.Writer
	color bool

	title   lipgloss.Style
	label   lipgloss.Style
	hit     lipgloss.Style
	ok      lipgloss.Style
	faint   lipgloss.Style
	verdict map[models.Category]lipgloss.Style
}

// NewConsole writes to w. Colour is applied only when color is set.
func NewConsole(w io.Writer, color bool) *Console {
	r := lipgloss.NewRenderer(w)
	c := &Console{
		w:     w,
		color: color,
		title: r.NewStyle().Bold(true).Underline(true),
		label: r.NewStyle().Width(34),
		hit:   r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		ok:    r.NewStyle().Foreground(lipgloss.Color("42")),
		faint: r.NewStyle().Foreground(lipgloss.Color("245")),
		verdict: map[models.Category]lipgloss.Style{
			models.CategoryPhysical:  r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
			models.CategoryAmbiguous: r.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
			models.CategoryVirtual:   r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		},
	}
	return c
}

func (c *Console) style(s lipgloss.Style, text string) string {
	if !c.color {
		return text
	}
	return s.Render(text)
}

// Render formats fp as the console report.
func (c *Console) Render(fp models.Fingerprint) string {
	var b strings.Builder

	fmt.Fprintln(&b, c.style(c.title, "VMTEST - Virtual Machine Detection"))
	host := fp.Host
	fmt.Fprintf(&b, "%s %s (%s, %d CPUs)\n", c.style(c.label, "Host"), host.Hostname, host.Platform, host.CPUCount)
	if host.CPUModel != "" {
		fmt.Fprintf(&b, "%s %s\n", c.style(c.label, "CPU"), host.CPUModel)
	}
	if host.Hints.Any() {
		fmt.Fprintf(&b, "%s %s\n", c.style(c.label, "Platform hints"), c.style(c.hit, hintSummary(host.Hints)))
	}
	b.WriteString("\n")

	fmt.Fprintln(&b, c.style(c.title, "Measurements"))
	measured := Measurements(fp)
	for _, key := range MeasurementKeys {
		v, ok := measured[key]
		if !ok {
			fmt.Fprintf(&b, "%s %s\n", c.style(c.label, key), c.style(c.faint, "N/A"))
			continue
		}
		fmt.Fprintf(&b, "%s %s\n", c.style(c.label, key), formatValue(key, map[string]float64{key: v}))
	}
	for _, status := range fp.Probes {
		if status.Aborted {
			fmt.Fprintf(&b, "%s %s\n", c.style(c.label, "probe "+string(status.Kind)),
				c.style(c.faint, fmt.Sprintf("aborted after %d/%d samples: %s", status.Collected, status.Requested, status.Error)))
		}
	}
	b.WriteString("\n")

	fmt.Fprintln(&b, c.style(c.title, "Indicators"))
	for _, ind := range fp.Verdict.Indicators {
		mark := c.style(c.ok, "[OK]")
		if ind.Triggered {
			mark = c.style(c.hit, "[VM]")
		}
		line := fmt.Sprintf("%s %s value=%.4f threshold=%.4f weight=%.2f", mark, c.style(c.label, ind.Name), ind.Value, ind.Threshold, ind.Weight)
		if ind.Detail != "" {
			line += " (" + ind.Detail + ")"
		}
		fmt.Fprintln(&b, line)
	}
	b.WriteString("\n")

	cat := fp.Verdict.Category
	fmt.Fprintf(&b, "Verdict: %s (confidence %.0f%%, %d indicators triggered)\n",
		c.style(c.verdict[cat], strings.ToUpper(cat.String())), fp.Verdict.Confidence*100, fp.Verdict.Triggered())
	if !fp.StartedAt.IsZero() && !fp.FinishedAt.IsZero() {
		elapsed := fp.FinishedAt.Sub(fp.StartedAt)
		fmt.Fprintf(&b, "Elapsed: %s\n", utils.FormatNanos(float64(elapsed.Nanoseconds())))
	}
	return b.String()
}

// Print writes Render(fp) to the console writer.
func (c *Console) Print(fp models.Fingerprint) error {
	_, err := io.WriteString(c.w, c.Render(fp))
	return err
}

// PrintConsensus writes a multi-run summary.
func (c *Console) PrintConsensus(rep models.ConsensusReport) error {
	var b strings.Builder
	fmt.Fprintln(&b, c.style(c.title, "Consensus"))
	for _, m := range rep.Measurements {
		mark := c.style(c.ok, "stable  ")
		if !m.Consistent {
			mark = c.style(c.faint, "unstable")
		}
		fmt.Fprintf(&b, "%s %s mean=%.6g cv=%.4f\n", mark, c.style(c.label, m.Key), m.Mean, m.CV)
	}
	fmt.Fprintf(&b, "\n%d/%d runs virtual (rate %.0f%%), mean confidence %.0f%%: %s\n",
		rep.VirtualRuns, rep.Runs, rep.DetectionRate*100, rep.MeanConfidence*100,
		c.style(c.verdict[rep.Category], strings.ToUpper(rep.Category.String())))
	_, err := io.WriteString(c.w, b.String())
	return err
}

func hintSummary(h models.VirtHints) string {
	var parts []string
	if h.HypervisorFlag {
		parts = append(parts, "cpu hypervisor flag")
	}
	if h.OpenVZ {
		parts = append(parts, "openvz")
	}
	if h.Xen {
		parts = append(parts, "xen")
	}
	if h.KnownVMVendor != "" {
		parts = append(parts, "vendor "+h.KnownVMVendor)
	}
	return strings.Join(parts, ", ")
}
