package sim

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// AdjustmentNoise provides the Gaussian imprecision added to every step.
type AdjustmentNoise struct {
	dist distuv.Normal
	off  bool
}

// NewAdjustmentNoise creates a noise source drawing N(mean, stdDev^2) from rng.
// With mean == 0 and stdDev == 0 the source is silent and consumes no randomness.
func NewAdjustmentNoise(rng *rand.Rand, mean, stdDev float64) *AdjustmentNoise {
	return &AdjustmentNoise{
		dist: distuv.Normal{Mu: mean, Sigma: stdDev, Src: rng},
		off:  mean == 0 && stdDev == 0,
	}
}

// Next returns the noise for one adjustment step.
func (n *AdjustmentNoise) Next() float64 {
	if n.off {
		return 0
	}
	if n.dist.Sigma == 0 {
		return n.dist.Mu
	}
	return n.dist.Rand()
}

// RunTrajectory simulates one user's self-adjustment toward preferred.
//
// The returned slice has Steps+1 values and starts at InitialGainDB. Each step
// closes the fraction Damping of the remaining gap and adds noise:
//
//	g[k+1] = g[k] + Damping*(preferred - g[k]) + noise
//
// so the expected residual shrinks by (1 - Damping) per step. When MaxGain > 0
// every value is clamped to [0, MaxGain].
func RunTrajectory(preferred float64, adj AdjustmentConfig, noise *AdjustmentNoise) []float64 {
	gains := make([]float64, adj.Steps+1)
	gains[0] = InitialGainDB
	current := InitialGainDB
	for k := 1; k <= adj.Steps; k++ {
		gap := preferred - current
		current += adj.Damping*gap + noise.Next()
		if adj.MaxGain > 0 {
			current = math.Min(adj.MaxGain, math.Max(0, current))
		}
		gains[k] = current
	}
	return gains
}

// ExpectedGain returns E[g[k]] for an unclamped trajectory:
// preferred + (g0 - preferred)(1-d)^k + (noiseMean/d)(1 - (1-d)^k).
func ExpectedGain(preferred float64, adj AdjustmentConfig, k int) float64 {
	decay := math.Pow(1-adj.Damping, float64(k))
	return preferred + (InitialGainDB-preferred)*decay + adj.NoiseMean/adj.Damping*(1-decay)
}
