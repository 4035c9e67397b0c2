package stats

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/gainsim/gainsim/sim"
	"github.com/gainsim/gainsim/sim/internal/testutil"
)

func TestSummarizeSteps_KnownColumns(t *testing.T) {
	// GIVEN 4 trials × 2 steps with a known second column
	m := mat.NewDense(4, 2, []float64{
		0, 1,
		0, 2,
		0, 3,
		0, 4,
	})

	got, err := SummarizeSteps(m, 0.95)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// THEN step 0 collapses to zero width
	assert.Equal(t, StepStats{Step: 0}, got[0])

	// AND step 1 has mean 2.5, sd sqrt(5/3), t_{0.975,3} = 3.182
	s := got[1]
	assert.Equal(t, 1, s.Step)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3.0), s.StdDev, 1e-12)
	assert.InDelta(t, s.StdDev/2, s.StdErr, 1e-12)
	testutil.AssertWithin(t, "ci half-width", 3.1824*s.StdErr, s.CIHigh-s.Mean, 1e-3)
	assert.InDelta(t, s.Mean-s.CILow, s.CIHigh-s.Mean, 1e-12)
	assert.GreaterOrEqual(t, s.PLow, 1.0)
	assert.LessOrEqual(t, s.PHigh, 4.0)
	assert.Less(t, s.PLow, s.PHigh)
}

func TestSummarizeSteps_HigherConfidence_WiderInterval(t *testing.T) {
	ens := testutil.MustRun(t, testutil.SmallConfig())
	m := ens.Matrix()

	narrow, err := SummarizeSteps(m, 0.8)
	require.NoError(t, err)
	wide, err := SummarizeSteps(m, 0.99)
	require.NoError(t, err)

	for j := 1; j < len(narrow); j++ {
		n, w := narrow[j], wide[j]
		if !(w.CIHigh-w.CILow > n.CIHigh-n.CILow) {
			t.Errorf("step %d: 99%% CI width %v not wider than 80%% width %v", j, w.CIHigh-w.CILow, n.CIHigh-n.CILow)
		}
		if !(n.CILow <= n.Mean && n.Mean <= n.CIHigh) {
			t.Errorf("step %d: mean %v outside CI [%v, %v]", j, n.Mean, n.CILow, n.CIHigh)
		}
		if w.PHigh-w.PLow < n.PHigh-n.PLow {
			t.Errorf("step %d: 99%% band narrower than 80%% band", j)
		}
	}
}

func TestSummarizeSteps_SingleTrial_ZeroWidth(t *testing.T) {
	m := mat.NewDense(1, 3, []float64{0, 5, 7})
	got, err := SummarizeSteps(m, 0.9)
	require.NoError(t, err)
	for _, s := range got {
		assert.Equal(t, s.Mean, s.CILow)
		assert.Equal(t, s.Mean, s.CIHigh)
		assert.Zero(t, s.StdDev)
	}
}

func TestSummarizeSteps_InvalidInput(t *testing.T) {
	_, err := SummarizeSteps(nil, 0.9)
	assert.Error(t, err)
	_, err = SummarizeSteps(mat.NewDense(2, 2, nil), 1.2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confidence must be in (0, 1)")
}

func TestSummarizeDelta_StepZeroIsNegativeMeanPreference(t *testing.T) {
	ens := testutil.MustRun(t, testutil.SmallConfig())
	pref, err := SummarizePreferences(ens.PreferredGains(), 2)
	require.NoError(t, err)

	delta, err := SummarizeDelta(ens.Matrix(), ens.PreferredGains(), 0.9)
	require.NoError(t, err)

	assert.InDelta(t, -pref.Mean, delta[0].Mean, 1e-9)
}

func TestSummarizeDelta_RowMismatch(t *testing.T) {
	_, err := SummarizeDelta(mat.NewDense(3, 2, nil), []float64{1, 2}, 0.9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 rows but 2 preferred gains")
}

func TestSummarizePreferences_Histogram(t *testing.T) {
	// GIVEN values spanning three 2 dB bins, the middle one most frequent
	got, err := SummarizePreferences([]float64{1, 2.5, 3, 3.5, 5.9}, 2)
	require.NoError(t, err)

	assert.Equal(t, []Bin{
		{Low: 0, High: 2, Count: 1},
		{Low: 2, High: 4, Count: 3},
		{Low: 4, High: 6, Count: 1},
	}, got.Bins)
	assert.Equal(t, 1, got.ModeBin)
	assert.Equal(t, 3.0, got.Mode())
	assert.Equal(t, 5, got.Count)
	assert.Equal(t, 1.0, got.Min)
	assert.Equal(t, 5.9, got.Max)
	assert.InDelta(t, 3.18, got.Mean, 1e-12)
}

func TestSummarizePreferences_MaxOnDivider(t *testing.T) {
	// A maximum exactly on a bin edge lands in a bin of its own.
	got, err := SummarizePreferences([]float64{1, 4}, 2)
	require.NoError(t, err)
	require.Len(t, got.Bins, 3)
	assert.Equal(t, 1, got.Bins[2].Count)
}

func TestSummarizePreferences_CountsSumToUsers(t *testing.T) {
	ens := testutil.MustRun(t, testutil.SmallConfig())
	got, err := SummarizePreferences(ens.PreferredGains(), 1.5)
	require.NoError(t, err)
	total := 0
	for _, b := range got.Bins {
		total += b.Count
	}
	assert.Equal(t, ens.Len(), total)
}

func TestSummarizePreferences_InvalidInput(t *testing.T) {
	_, err := SummarizePreferences(nil, 2)
	assert.Error(t, err)
	_, err = SummarizePreferences([]float64{3, 4}, 0)
	assert.Error(t, err)
	_, err = SummarizePreferences([]float64{-1, 4}, 2)
	assert.Error(t, err)
}

func TestSummarize_LargeEnsemble_ModeBinNearTwentyDB(t *testing.T) {
	// GIVEN the default log-normal (mode 20 dB) and 100,000 users
	cfg := sim.DefaultConfig()
	cfg.Users = 100000
	cfg.Adjustment.Steps = 1
	ens := testutil.MustRun(t, cfg)
	sampler, err := sim.NewPreferenceSampler(cfg.Preference)
	require.NoError(t, err)

	// WHEN summarized
	s, err := Summarize(ens)
	require.NoError(t, err)

	// THEN the mode bin is one of the two 2 dB bins touching 20 dB
	mode := s.Preference.Mode()
	if math.Abs(mode-20) > 1 {
		t.Errorf("mode bin center = %.1f dB, want 19 or 21", mode)
	}
	assert.Zero(t, s.Preference.Overflow)
	// AND the sample mean matches the analytic log-normal mean
	testutil.AssertFloat64Equal(t, "preference mean", sampler.Mean(), s.Preference.Mean, 0.01)
	// AND the tail pulls the mean above the median, and the median above the mode
	assert.Greater(t, s.Preference.Mean, s.Preference.Median)
	assert.Greater(t, s.Preference.Median, 20.0)
}

func TestSummarizePreferences_HugeRange_BoundedBinsWithOverflow(t *testing.T) {
	// GIVEN one draw nine orders of magnitude above the rest
	got, err := SummarizePreferences([]float64{1, 3, 1e18}, 2)
	require.NoError(t, err)

	// THEN the histogram stops at MaxHistogramBins and the outlier is counted as overflow
	require.Len(t, got.Bins, MaxHistogramBins)
	assert.Equal(t, float64(2*MaxHistogramBins), got.Bins[len(got.Bins)-1].High)
	assert.Equal(t, 1, got.Overflow)
	assert.Equal(t, 1e18, got.Max)
	assert.Equal(t, 1, got.Bins[0].Count)
	assert.Equal(t, 1, got.Bins[1].Count)
}

func TestSummarize_HeavyTailedPreference_ValidConfigSummarizes(t *testing.T) {
	// GIVEN a validated configuration whose preferred gains span many orders of magnitude
	cfg := sim.DefaultConfig()
	cfg.Users = 1000
	cfg.Adjustment.Steps = 3
	cfg.Preference.Params = map[string]float64{"mode": 20, "sigma": 5}
	require.NoError(t, cfg.Validate())
	ens := testutil.MustRun(t, cfg)

	// WHEN summarized
	s, err := Summarize(ens)
	require.NoError(t, err)

	// THEN the histogram is bounded and every user is either binned or counted as overflow
	pref := s.Preference
	require.NotEmpty(t, pref.Bins)
	assert.LessOrEqual(t, len(pref.Bins), MaxHistogramBins)
	total := pref.Overflow
	for _, b := range pref.Bins {
		total += b.Count
	}
	assert.Equal(t, cfg.Users, total)
	assert.Greater(t, pref.Overflow, 0)
	assert.Greater(t, pref.Max, pref.Bins[len(pref.Bins)-1].High)
}

func TestHistogramBins_SaturatesInsteadOfOverflowing(t *testing.T) {
	assert.Equal(t, 3, histogramBins(4, 2))
	assert.Equal(t, 3, histogramBins(5.9, 2))
	assert.Equal(t, MaxHistogramBins+1, histogramBins(1e300, 1e-300))
	assert.Equal(t, MaxHistogramBins+1, histogramBins(math.MaxFloat64, 1))
}

func TestSummarize_SameSeed_IdenticalSummaries(t *testing.T) {
	cfg := testutil.SmallConfig()
	a, err := Summarize(testutil.MustRun(t, cfg))
	require.NoError(t, err)
	b, err := Summarize(testutil.MustRun(t, cfg))
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed produced different summaries:\n%s", diff)
	}
}

func TestSummarize_ShapeAndSettling(t *testing.T) {
	cfg := testutil.SmallConfig()
	cfg.Adjustment.Steps = 60
	s, err := Summarize(testutil.MustRun(t, cfg))
	require.NoError(t, err)

	assert.Equal(t, cfg.Users, s.Users)
	assert.Len(t, s.Gain, 61)
	assert.Len(t, s.Delta, 61)
	assert.Equal(t, 60, s.Final().Step)

	// damping 0.2 closes ~25 dB to within 1 dB in about 15 steps
	step := s.SettleStep(1)
	assert.Greater(t, step, 5)
	assert.Less(t, step, 30)
	assert.Equal(t, -1, s.SettleStep(-1))
}

func TestSummarize_EmptyEnsemble(t *testing.T) {
	_, err := Summarize(&sim.Ensemble{Config: sim.DefaultConfig()})
	assert.Error(t, err)
	_, err = Summarize(nil)
	assert.Error(t, err)
}
