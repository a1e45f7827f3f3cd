package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/husnusametd/spectra/internal/walkforward"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorPass          = "#34d399"
	colorFail          = "#f87171"

	chartWidthPx  = 1200
	chartHeightPx = 520
)

// RenderWalkChart writes a standalone HTML page with one bar per window's
// OOS score and reference lines at the gate threshold and the median.
func RenderWalkChart(w io.Writer, rep walkforward.Report) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         fmt.Sprintf("%s %s walk-forward", rep.Symbol, rep.Timeframe),
			Subtitle:      fmt.Sprintf("median %.3f | min %.2f | %s", rep.Median, rep.MinScore, Verdict(rep)),
			Left:          "left",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			Name:      "test window",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      "OOS score",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)

	xAxis := make([]string, len(rep.Records))
	data := make([]opts.BarData, len(rep.Records))
	for i, r := range rep.Records {
		xAxis[i] = date(r.TestStart)
		color := colorFail
		if r.OOSScore >= rep.MinScore {
			color = colorPass
		}
		data[i] = opts.BarData{Value: r.OOSScore, ItemStyle: &opts.ItemStyle{Color: color}}
	}
	bar.SetXAxis(xAxis).AddSeries("OOS score", data,
		charts.WithMarkLineNameYAxisItemOpts(
			opts.MarkLineNameYAxisItem{Name: "min score", YAxis: rep.MinScore},
			opts.MarkLineNameYAxisItem{Name: "median", YAxis: rep.Median},
		),
	)
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("walk-forward %s %s", rep.Symbol, rep.Timeframe)
	page.AddCharts(bar)
	return page.Render(w)
}

// WriteWalkChart renders the chart into dir and returns the file path.
func WriteWalkChart(dir, name string, rep walkforward.Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := RenderWalkChart(f, rep); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
