package diagnostics

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// YieldEntry is the window yield of one recording.
type YieldEntry struct {
	Label     string
	Kept      int
	Discarded int
	Skipped   int
}

// WindowYieldChart renders an HTML bar chart of kept, discarded and skipped
// windows per recording.
func WindowYieldChart(w io.Writer, entries []YieldEntry) error {
	x := make([]string, len(entries))
	kept := make([]opts.BarData, len(entries))
	discarded := make([]opts.BarData, len(entries))
	skipped := make([]opts.BarData, len(entries))
	var totalKept, totalDiscarded int
	for i, e := range entries {
		x[i] = e.Label
		kept[i] = opts.BarData{Value: e.Kept}
		discarded[i] = opts.BarData{Value: e.Discarded}
		skipped[i] = opts.BarData{Value: e.Skipped}
		totalKept += e.Kept
		totalDiscarded += e.Discarded
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Window Yield", Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: "Window Yield", Subtitle: fmt.Sprintf("recordings=%d kept=%d discarded=%d", len(entries), totalKept, totalDiscarded)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	label := charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"})
	bar.SetXAxis(x).
		AddSeries("kept", kept, label).
		AddSeries("discarded", discarded, label).
		AddSeries("skipped", skipped, label)

	page := components.NewPage()
	page.AddCharts(bar)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render window yield chart: %w", err)
	}
	return nil
}
