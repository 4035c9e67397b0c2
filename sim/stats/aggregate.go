// Package stats aggregates ensemble trajectories into per-step summary
// statistics and summarizes the preferred-gain distribution.
package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gainsim/gainsim/sim"
)

// StepStats holds the cross-trial statistics of one adjustment step.
type StepStats struct {
	Step   int     `yaml:"step"`
	Mean   float64 `yaml:"mean"`
	StdDev float64 `yaml:"std_dev"`
	StdErr float64 `yaml:"std_err"`
	CILow  float64 `yaml:"ci_low"`  // mean - t*SE
	CIHigh float64 `yaml:"ci_high"` // mean + t*SE
	PLow   float64 `yaml:"p_low"`   // (1-c)/2 quantile
	PHigh  float64 `yaml:"p_high"`  // (1+c)/2 quantile
}

// Bin is one preferred-gain histogram bin covering [Low, High).
type Bin struct {
	Low   float64 `yaml:"low"`
	High  float64 `yaml:"high"`
	Count int     `yaml:"count"`
}

// Center returns the bin midpoint.
func (b Bin) Center() float64 { return (b.Low + b.High) / 2 }

// PreferenceSummary describes the drawn preferred gains.
type PreferenceSummary struct {
	Count    int     `yaml:"count"`
	Mean     float64 `yaml:"mean"`
	Median   float64 `yaml:"median"`
	StdDev   float64 `yaml:"std_dev"`
	Min      float64 `yaml:"min"`
	Max      float64 `yaml:"max"`
	BinWidth float64 `yaml:"bin_width"`
	Bins     []Bin   `yaml:"bins"`
	ModeBin  int     `yaml:"mode_bin"` // index into Bins of the highest count; first wins ties
	Overflow int     `yaml:"overflow"` // draws at or above the last bin's High
}

// Mode returns the center of the mode bin.
func (p *PreferenceSummary) Mode() float64 {
	if len(p.Bins) == 0 {
		return math.NaN()
	}
	return p.Bins[p.ModeBin].Center()
}

// Summary is the aggregate view of one ensemble.
type Summary struct {
	Users      int               `yaml:"users"`
	Steps      int               `yaml:"steps"`
	Confidence float64           `yaml:"confidence"`
	Gain       []StepStats       `yaml:"gain"`  // absolute gain per step
	Delta      []StepStats       `yaml:"delta"` // gain - preferred per step
	Preference PreferenceSummary `yaml:"preference"`
}

// Final returns the gain statistics after the last step.
func (s *Summary) Final() StepStats { return s.Gain[len(s.Gain)-1] }

// SettleStep returns the first step at which the mean Δ gain lies within
// tolerance dB of 0, or -1 if the mean never gets that close.
func (s *Summary) SettleStep(tolerance float64) int {
	for _, d := range s.Delta {
		if math.Abs(d.Mean) <= tolerance {
			return d.Step
		}
	}
	return -1
}

// Summarize aggregates ens using its configured confidence level and bin width.
func Summarize(ens *sim.Ensemble) (*Summary, error) {
	if ens == nil || ens.Len() == 0 {
		return nil, fmt.Errorf("cannot summarize an empty ensemble")
	}
	cfg := ens.Config
	m := ens.Matrix()
	preferred := ens.PreferredGains()

	gain, err := SummarizeSteps(m, cfg.Confidence)
	if err != nil {
		return nil, err
	}
	delta, err := SummarizeDelta(m, preferred, cfg.Confidence)
	if err != nil {
		return nil, err
	}
	pref, err := SummarizePreferences(preferred, cfg.HistogramBinWidth)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Users:      ens.Len(),
		Steps:      ens.Steps(),
		Confidence: cfg.Confidence,
		Gain:       gain,
		Delta:      delta,
		Preference: *pref,
	}, nil
}

// SummarizeSteps computes per-column statistics of a trials × steps matrix.
func SummarizeSteps(m mat.Matrix, confidence float64) ([]StepStats, error) {
	if m == nil {
		return nil, fmt.Errorf("nil trajectory matrix")
	}
	if math.IsNaN(confidence) || confidence <= 0 || confidence >= 1 {
		return nil, fmt.Errorf("confidence must be in (0, 1), got %f", confidence)
	}
	rows, cols := m.Dims()
	tq := criticalT(rows, confidence)
	lowP, highP := (1-confidence)/2, (1+confidence)/2

	out := make([]StepStats, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, m)
		mean := stat.Mean(col, nil)
		std := 0.0
		if rows > 1 {
			std = stat.StdDev(col, nil)
		}
		se := std / math.Sqrt(float64(rows))

		sorted := append([]float64(nil), col...)
		sort.Float64s(sorted)
		out[j] = StepStats{
			Step:   j,
			Mean:   mean,
			StdDev: std,
			StdErr: se,
			CILow:  mean - tq*se,
			CIHigh: mean + tq*se,
			PLow:   stat.Quantile(lowP, stat.LinInterp, sorted, nil),
			PHigh:  stat.Quantile(highP, stat.LinInterp, sorted, nil),
		}
	}
	return out, nil
}

// SummarizeDelta computes per-step statistics of gain - preferred.
func SummarizeDelta(m mat.Matrix, preferred []float64, confidence float64) ([]StepStats, error) {
	if m == nil {
		return nil, fmt.Errorf("nil trajectory matrix")
	}
	rows, _ := m.Dims()
	if rows != len(preferred) {
		return nil, fmt.Errorf("trajectory matrix has %d rows but %d preferred gains", rows, len(preferred))
	}
	var delta mat.Dense
	delta.Apply(func(i, _ int, v float64) float64 {
		return v - preferred[i]
	}, m)
	return SummarizeSteps(&delta, confidence)
}

// MaxHistogramBins bounds the preferred-gain histogram. When the drawn range
// needs more bins, the histogram stops at the OverflowQuantile of the draws
// (or at MaxHistogramBins bins, whichever is lower) and the values beyond it
// are counted in PreferenceSummary.Overflow.
const (
	MaxHistogramBins = 500
	OverflowQuantile = 0.999
)

// SummarizePreferences summarizes preferred gains with a fixed-width histogram
// whose first bin starts at 0 dB.
func SummarizePreferences(preferred []float64, binWidth float64) (*PreferenceSummary, error) {
	if len(preferred) == 0 {
		return nil, fmt.Errorf("no preferred gains to summarize")
	}
	if math.IsNaN(binWidth) || math.IsInf(binWidth, 0) || binWidth <= 0 {
		return nil, fmt.Errorf("histogram bin width must be positive, got %f", binWidth)
	}
	sorted := append([]float64(nil), preferred...)
	sort.Float64s(sorted)
	if sorted[0] <= 0 {
		return nil, fmt.Errorf("preferred gains must be positive, got %f", sorted[0])
	}
	lo, hi := sorted[0], sorted[len(sorted)-1]

	nBins := histogramBins(hi, binWidth)
	if nBins > MaxHistogramBins {
		upper := stat.Quantile(OverflowQuantile, stat.Empirical, sorted, nil)
		nBins = min(histogramBins(upper, binWidth), MaxHistogramBins)
	}
	top := float64(nBins) * binWidth
	dividers := make([]float64, nBins+1)
	floats.Span(dividers, 0, top)
	dividers[nBins] = top // Span can round the last step below top
	// stat.Histogram requires every value below the last divider.
	inRange := sort.SearchFloat64s(sorted, top)
	counts := stat.Histogram(nil, dividers, sorted[:inRange], nil)

	bins := make([]Bin, nBins)
	for i := range bins {
		bins[i] = Bin{Low: dividers[i], High: dividers[i+1], Count: int(counts[i])}
	}

	std := 0.0
	if len(sorted) > 1 {
		std = stat.StdDev(sorted, nil)
	}
	return &PreferenceSummary{
		Count:    len(sorted),
		Mean:     stat.Mean(sorted, nil),
		Median:   stat.Quantile(0.5, stat.LinInterp, sorted, nil),
		StdDev:   std,
		Min:      lo,
		Max:      hi,
		BinWidth: binWidth,
		Bins:     bins,
		ModeBin:  floats.MaxIdx(counts),
		Overflow: len(sorted) - inRange,
	}, nil
}

// histogramBins returns the number of binWidth bins from 0 needed so the last
// divider strictly exceeds hi. The count is computed in float64 and saturates
// at MaxHistogramBins+1, so huge ratios never reach an int conversion.
func histogramBins(hi, binWidth float64) int {
	n := math.Floor(hi/binWidth) + 1
	if n*binWidth <= hi {
		n++
	}
	if !(n <= MaxHistogramBins) {
		return MaxHistogramBins + 1
	}
	return int(n)
}

// criticalT returns the two-sided Student-t critical value for n samples.
// With fewer than two samples the interval collapses to the mean.
func criticalT(n int, confidence float64) float64 {
	if n < 2 {
		return 0
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
	return t.Quantile((1 + confidence) / 2)
}
