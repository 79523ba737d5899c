// Package charts renders affect session series as self-contained
// ECharts HTML documents and static PNG plots.
package charts

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ethogram-labs/affect.monitor/internal/analyst"
)

// MaxChartPoints is the default per-series point cap. Long sessions are
// downsampled by stride so rendered documents stay small.
const MaxChartPoints = 600

var kindColors = map[analyst.EventKind]string{
	analyst.GlobalDeviation:        "#ff5252",
	analyst.LocalDeviation:         "#ff9800",
	analyst.GlobalSigmoidDeviation: "#e040fb",
	analyst.LocalSigmoidDeviation:  "#7c4dff",
	analyst.GlobalRapidDeprecation: "#00bcd4",
	analyst.LocalRapidDeprecation:  "#4caf50",
	analyst.LongTermTrouble:        "#9e9e9e",
}

// Series is one named line on a chart. Values align index-for-index
// with the x values passed alongside.
type Series struct {
	Name   string
	Values []float64
}

// LineConfig describes one rendered line chart.
type LineConfig struct {
	Title     string
	Subtitle  string
	X         []float64 // elapsed seconds per frame
	Series    []Series
	Intervals []analyst.DetectionInterval // shaded spans, optional
	MaxPoints int                         // 0 means MaxChartPoints
}

// stride returns the sampling stride that keeps n points under max.
func stride(n, max int) int {
	if max <= 0 || n <= max {
		return 1
	}
	return int(math.Ceil(float64(n) / float64(max)))
}

// RenderLines renders the configured chart as a standalone HTML
// document.
func RenderLines(w io.Writer, cfg LineConfig) error {
	maxPoints := cfg.MaxPoints
	if maxPoints == 0 {
		maxPoints = MaxChartPoints
	}
	step := stride(len(cfg.X), maxPoints)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: cfg.Title, Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: cfg.Title, Subtitle: cfg.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		// Value axis so interval coordinates land at exact times rather
		// than the nearest sampled frame.
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "elapsed (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value"}),
	)

	for si, s := range cfg.Series {
		n := len(s.Values)
		if len(cfg.X) < n {
			n = len(cfg.X)
		}
		data := make([]opts.LineData, 0, n/step+1)
		for i := 0; i < n; i += step {
			data = append(data, opts.LineData{Value: []interface{}{cfg.X[i], s.Values[i]}})
		}

		seriesOpts := []charts.SeriesOpts{
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		}
		// Attach interval shading to the first series only so each span
		// is drawn once.
		if si == 0 && len(cfg.Intervals) > 0 {
			for _, span := range cfg.Intervals {
				itemColor := kindColors[span.Kind]
				seriesOpts = append(seriesOpts, charts.WithMarkAreaNameCoordItemOpts(opts.MarkAreaNameCoordItem{
					Name:        string(span.Kind),
					Coordinate0: []interface{}{span.Start.Seconds()},
					Coordinate1: []interface{}{span.End.Seconds()},
					ItemStyle:   &opts.ItemStyle{Color: itemColor, Opacity: opts.Float(0.25)},
				}))
			}
		}

		line.AddSeries(s.Name, data, seriesOpts...)
	}

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render %q: %w", cfg.Title, err)
	}
	return nil
}

// RenderAffect renders the raw valence/arousal trace for a session.
func RenderAffect(w io.Writer, subtitle string, x, valence, arousal []float64) error {
	return RenderLines(w, LineConfig{
		Title:    "Affect Signal",
		Subtitle: subtitle,
		X:        x,
		Series: []Series{
			{Name: "valence", Values: valence},
			{Name: "arousal", Values: arousal},
		},
	})
}

// RenderDeviation renders the smoothed valence against both deviation
// threshold curves, with detected anomalous spans shaded.
func RenderDeviation(w io.Writer, subtitle string, x []float64, a *analyst.Analyst) error {
	return RenderLines(w, LineConfig{
		Title:    "Deviation Thresholds",
		Subtitle: subtitle,
		X:        x,
		Series: []Series{
			{Name: "valence (smoothed)", Values: a.MovingAverage()},
			{Name: "global threshold", Values: a.ThresholdCurve(analyst.GlobalDeviation)},
			{Name: "local threshold", Values: a.ThresholdCurve(analyst.LocalDeviation)},
		},
		Intervals: deviationIntervals(a),
	})
}

// RenderDeprecation renders the smoothed derivative against both rapid
// deprecation threshold curves.
func RenderDeprecation(w io.Writer, subtitle string, x []float64, a *analyst.Analyst) error {
	return RenderLines(w, LineConfig{
		Title:    "Rapid Deprecation Thresholds",
		Subtitle: subtitle,
		X:        x,
		Series: []Series{
			{Name: "derivative (smoothed)", Values: a.DerivativeMovingAverage()},
			{Name: "global threshold", Values: a.ThresholdCurve(analyst.GlobalRapidDeprecation)},
			{Name: "local threshold", Values: a.ThresholdCurve(analyst.LocalRapidDeprecation)},
		},
		Intervals: deprecationIntervals(a),
	})
}

func deviationIntervals(a *analyst.Analyst) []analyst.DetectionInterval {
	return filterIntervals(a, analyst.GlobalDeviation, analyst.LocalDeviation,
		analyst.GlobalSigmoidDeviation, analyst.LocalSigmoidDeviation)
}

func deprecationIntervals(a *analyst.Analyst) []analyst.DetectionInterval {
	return filterIntervals(a, analyst.GlobalRapidDeprecation, analyst.LocalRapidDeprecation)
}

func filterIntervals(a *analyst.Analyst, kinds ...analyst.EventKind) []analyst.DetectionInterval {
	var spans []analyst.DetectionInterval
	for _, span := range a.Timeline().Intervals(a.Elapsed()) {
		for _, kind := range kinds {
			if span.Kind == kind {
				spans = append(spans, span)
				break
			}
		}
	}
	return spans
}
