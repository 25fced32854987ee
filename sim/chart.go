package sim

import (
	"fmt"
	"io"
	"strconv"

	"github.com/calvinmclean/autoshift/controller"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderChart writes an HTML page with expected and measured cadence against the target band, and the
// believed gear as a single index where 1 is the lowest gear
func RenderChart(w io.Writer, title string, steps []Step, cfg controller.Config) error {
	ticks := make([]string, len(steps))
	expected := make([]opts.LineData, len(steps))
	measured := make([]opts.LineData, len(steps))
	lower := make([]opts.LineData, len(steps))
	upper := make([]opts.LineData, len(steps))
	gear := make([]opts.LineData, len(steps))

	rears := len(cfg.Table.Rear)
	for i, step := range steps {
		out := step.Output
		ticks[i] = strconv.Itoa(out.Tick)

		if step.Err == nil {
			expected[i] = opts.LineData{Value: out.ExpectedCadence}
		} else {
			expected[i] = opts.LineData{Value: "-"}
		}
		if out.MeasuredCadence > 0 {
			measured[i] = opts.LineData{Value: out.MeasuredCadence}
		} else {
			measured[i] = opts.LineData{Value: "-"}
		}

		lo, hi := cfg.BandFor(step.Input)
		lower[i] = opts.LineData{Value: lo}
		upper[i] = opts.LineData{Value: hi}

		gear[i] = opts.LineData{Value: (out.Position.Front-1)*rears + out.Position.Rear}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("ticks=%d", len(steps))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "tick"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "rpm / gear"}),
	)

	line.SetXAxis(ticks).
		AddSeries("expected cadence", expected).
		AddSeries("measured cadence", measured).
		AddSeries("band low", lower).
		AddSeries("band high", upper).
		AddSeries("gear", gear, charts.WithLineChartOpts(opts.LineChart{Step: true}))

	if err := line.Render(w); err != nil {
		return fmt.Errorf("error rendering chart: %w", err)
	}
	return nil
}
