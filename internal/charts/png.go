package charts

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ethogram-labs/affect.monitor/internal/analyst"
)

// SaveDetectionPNG writes a static detection plot to path: the
// smoothed valence with both deviation thresholds, and vertical
// markers at each detected interval boundary.
func SaveDetectionPNG(path, title string, x []float64, a *analyst.Analyst) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "elapsed (s)"
	p.Y.Label.Text = "valence"
	p.Legend.Top = true

	lines := []struct {
		name   string
		values []float64
		color  color.Color
	}{
		{"valence (smoothed)", a.MovingAverage(), color.RGBA{R: 0x21, G: 0x96, B: 0xf3, A: 255}},
		{"global threshold", a.ThresholdCurve(analyst.GlobalDeviation), color.RGBA{R: 0xff, G: 0x52, B: 0x52, A: 255}},
		{"local threshold", a.ThresholdCurve(analyst.LocalDeviation), color.RGBA{R: 0xff, G: 0x98, B: 0x00, A: 255}},
	}

	yMin, yMax := 0.0, 0.0
	for _, l := range lines {
		n := len(l.values)
		if len(x) < n {
			n = len(x)
		}
		pts := make(plotter.XYs, 0, n)
		for i := 0; i < n; i++ {
			pts = append(pts, plotter.XY{X: x[i], Y: l.values[i]})
			if l.values[i] < yMin {
				yMin = l.values[i]
			}
			if l.values[i] > yMax {
				yMax = l.values[i]
			}
		}
		if len(pts) == 0 {
			continue
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("build %s line: %w", l.name, err)
		}
		line.Color = l.color
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(l.name, line)
	}
	if yMin == yMax {
		yMin, yMax = -1, 1
	}

	for _, span := range deviationIntervals(a) {
		for _, bound := range []float64{span.Start.Seconds(), span.End.Seconds()} {
			marker, err := plotter.NewLine(plotter.XYs{
				{X: bound, Y: yMin},
				{X: bound, Y: yMax},
			})
			if err != nil {
				return fmt.Errorf("build interval marker: %w", err)
			}
			marker.Color = color.RGBA{R: 0x9e, G: 0x9e, B: 0x9e, A: 255}
			marker.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
			p.Add(marker)
		}
	}

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save detection plot: %w", err)
	}
	return nil
}
