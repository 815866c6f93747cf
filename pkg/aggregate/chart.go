package aggregate

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartTitle  = "Backports per support line"
	chartWidth  = "100%"
	chartHeight = "560px"

	// missingValue renders a gap for a tool without a report on a line.
	missingValue = "-"
)

// NewChart builds a grouped bar chart with one group per line and one bar per tool.
func NewChart(m *Matrix) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: chartTitle,
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{Title: chartTitle, Subtitle: "last minus first count per report"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "commits"}),
	)

	lines := m.Lines()
	bar.SetXAxis(lines)

	for _, tool := range m.Tools() {
		data := make([]opts.BarData, len(lines))

		for i, line := range lines {
			if v, ok := m.Get(line, tool); ok {
				data[i] = opts.BarData{Value: v}
			} else {
				data[i] = opts.BarData{Value: missingValue}
			}
		}

		bar.AddSeries(tool, data)
	}

	return bar
}

// RenderChart writes m as a standalone HTML page.
func RenderChart(w io.Writer, m *Matrix) error {
	err := NewChart(m).Render(w)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}

// WriteChart writes the HTML chart of m to path.
func WriteChart(path string, m *Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}
	defer f.Close()

	return RenderChart(f, m)
}
