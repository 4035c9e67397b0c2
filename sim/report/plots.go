// Package report renders an aggregated ensemble as plots and text/JSON summaries.
package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/gainsim/gainsim/sim/stats"
)

// Figure size shared by every chart.
const (
	figureWidth  = 10 * vg.Inch
	figureHeight = 6 * vg.Inch
)

var (
	bandColor = color.RGBA{R: 230, G: 230, B: 250, A: 200} // lavender
	meanColor = color.RGBA{B: 255, A: 255}
)

// PlotPreferenceHistogram renders the preferred-gain histogram to path.
// The image format follows the file extension (png, svg, pdf, ...).
func PlotPreferenceHistogram(s *stats.Summary, path string) error {
	pref := s.Preference
	if len(pref.Bins) == 0 {
		return fmt.Errorf("preference histogram has no bins")
	}
	p := newPlot(
		fmt.Sprintf("Preferred Gain Distribution (n=%d)", pref.Count),
		"Preferred Gain (dB)", "Users",
	)

	bins := make([]plotter.HistogramBin, len(pref.Bins))
	for i, b := range pref.Bins {
		bins[i] = plotter.HistogramBin{Min: b.Low, Max: b.High, Weight: float64(b.Count)}
	}
	hist := &plotter.Histogram{
		Bins:      bins,
		Width:     pref.BinWidth,
		FillColor: plotutil.Color(2),
		LineStyle: plotter.DefaultLineStyle,
	}
	p.Add(hist)

	peak := float64(pref.Bins[pref.ModeBin].Count)
	mean, err := verticalLine(pref.Mean, peak, plotutil.Color(0))
	if err != nil {
		return err
	}
	mode, err := verticalLine(pref.Mode(), peak, plotutil.Color(1))
	if err != nil {
		return err
	}
	p.Add(mean, mode)
	p.Legend.Add(fmt.Sprintf("Mean %.1f dB", pref.Mean), mean)
	p.Legend.Add(fmt.Sprintf("Mode bin %.1f dB", pref.Mode()), mode)
	return savePlot(p, path)
}

// PlotConvergence renders the mean gain per step with its confidence band.
func PlotConvergence(s *stats.Summary, path string) error {
	p := newPlot("Monte Carlo Simulation of Adjustments to Preferred Gain",
		"Number of Adjustments", "Gain (dB)")
	label := fmt.Sprintf("%.0f%% CI of Mean", s.Confidence*100)
	if err := addBand(p, s.Gain, label, func(st stats.StepStats) (float64, float64) {
		return st.CILow, st.CIHigh
	}); err != nil {
		return err
	}
	if err := addMean(p, s.Gain, "Mean Gain"); err != nil {
		return err
	}
	target := referenceLine(s.Preference.Mean, plotutil.Color(1))
	p.Add(target)
	p.Legend.Add("Mean Preferred Gain", target)
	return savePlot(p, path)
}

// PlotDelta renders the mean Δ gain (gain - preferred) with its percentile band.
func PlotDelta(s *stats.Summary, path string) error {
	p := newPlot("Monte Carlo Simulation of Adjustments to Preferred Gain",
		"Number of Adjustments", "Δ Gain (dB)")
	label := fmt.Sprintf("%.0f%% Percentile Band", s.Confidence*100)
	if err := addBand(p, s.Delta, label, func(st stats.StepStats) (float64, float64) {
		return st.PLow, st.PHigh
	}); err != nil {
		return err
	}
	if err := addMean(p, s.Delta, "Mean Δ Gain from Preference"); err != nil {
		return err
	}
	return savePlot(p, path)
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Legend.Top = false
	p.Legend.Left = false
	grid := plotter.NewGrid()
	grid.Vertical.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	grid.Horizontal.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	p.Add(grid)
	return p
}

// addBand adds a filled polygon spanning bounds(step) across all steps.
func addBand(p *plot.Plot, steps []stats.StepStats, label string, bounds func(stats.StepStats) (float64, float64)) error {
	n := len(steps)
	pts := make(plotter.XYs, 2*n)
	for i, st := range steps {
		lo, hi := bounds(st)
		pts[i] = plotter.XY{X: float64(st.Step), Y: lo}
		pts[2*n-1-i] = plotter.XY{X: float64(st.Step), Y: hi}
	}
	band, err := plotter.NewPolygon(pts)
	if err != nil {
		return fmt.Errorf("building band: %w", err)
	}
	band.Color = bandColor
	band.LineStyle.Width = 0
	p.Add(band)
	p.Legend.Add(label, band)
	return nil
}

func addMean(p *plot.Plot, steps []stats.StepStats, label string) error {
	pts := make(plotter.XYs, len(steps))
	for i, st := range steps {
		pts[i] = plotter.XY{X: float64(st.Step), Y: st.Mean}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("building mean line: %w", err)
	}
	line.Color = meanColor
	line.Width = vg.Points(3)
	p.Add(line)
	p.Legend.Add(label, line)
	return nil
}

// referenceLine returns a dashed horizontal line at y.
func referenceLine(y float64, c color.Color) *plotter.Function {
	f := plotter.NewFunction(func(float64) float64 { return y })
	f.Color = c
	f.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	f.Width = vg.Points(1.5)
	return f
}

// verticalLine returns a dashed line at x from 0 to height.
func verticalLine(x, height float64, c color.Color) (*plotter.Line, error) {
	line, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: height}})
	if err != nil {
		return nil, fmt.Errorf("building marker at %.2f: %w", x, err)
	}
	line.Color = c
	line.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	line.Width = vg.Points(1.5)
	return line, nil
}

func savePlot(p *plot.Plot, path string) error {
	if err := p.Save(figureWidth, figureHeight, path); err != nil {
		return fmt.Errorf("saving plot %s: %w", path, err)
	}
	return nil
}
