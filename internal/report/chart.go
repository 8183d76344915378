package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// TrendPoint is one historical run plotted on the trend chart.
type TrendPoint struct {
	At           time.Time
	Confidence   float64
	PMI          float64
	SchedulingCV float64
}

// WriteTrendChart renders confidence, machine index and scheduling CV over
// time as an HTML line chart.
func WriteTrendChart(w io.Writer, points []TrendPoint) error {
	if len(points) == 0 {
		return fmt.Errorf("no history to chart")
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "vmtest history", Subtitle: fmt.Sprintf("%d runs", len(points))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
	)

	labels := make([]string, 0, len(points))
	confidence := make([]opts.LineData, 0, len(points))
	pmi := make([]opts.LineData, 0, len(points))
	cv := make([]opts.LineData, 0, len(points))
	for _, p := range points {
		labels = append(labels, p.At.UTC().Format("2006-01-02 15:04:05"))
		confidence = append(confidence, opts.LineData{Value: p.Confidence})
		pmi = append(pmi, opts.LineData{Value: p.PMI})
		cv = append(cv, opts.LineData{Value: p.SchedulingCV})
	}

	line.SetXAxis(labels).
		AddSeries("confidence", confidence).
		AddSeries("physical machine index", pmi).
		AddSeries("scheduling cv", cv)
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(true)}))

	return line.Render(w)
}
