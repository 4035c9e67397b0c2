package sim

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Preference distribution types.
const (
	PreferenceLogNormal        = "lognormal"         // params: mu, sigma of ln(X)
	PreferenceLogNormalMode    = "lognormal_mode"    // params: mode, sigma
	PreferenceLogNormalMoments = "lognormal_moments" // params: mean, std_dev of X
)

// maxRedraws bounds the retry loop for degenerate draws (0 from underflow, +Inf from overflow).
const maxRedraws = 64

// PreferenceSampler draws preferred gains (dB) from a log-normal distribution.
type PreferenceSampler struct {
	mu    float64 // mean of ln(X)
	sigma float64 // std dev of ln(X)
}

// NewPreferenceSampler creates a sampler from a PreferenceSpec.
// Every parameterization is reduced to (mu, sigma) of ln(X).
func NewPreferenceSampler(spec PreferenceSpec) (*PreferenceSampler, error) {
	var mu, sigma float64
	switch spec.Type {
	case PreferenceLogNormal:
		if err := requireParam(spec.Params, "mu", "sigma"); err != nil {
			return nil, err
		}
		mu, sigma = spec.Params["mu"], spec.Params["sigma"]
		if math.IsNaN(mu) || math.IsInf(mu, 0) {
			return nil, fmt.Errorf("preference.params.mu must be a finite number, got %f", mu)
		}

	case PreferenceLogNormalMode:
		if err := requireParam(spec.Params, "mode", "sigma"); err != nil {
			return nil, err
		}
		if err := validateFinitePositive("preference.params.mode", spec.Params["mode"]); err != nil {
			return nil, err
		}
		sigma = spec.Params["sigma"]
		// mode = exp(mu - sigma^2)
		mu = math.Log(spec.Params["mode"]) + sigma*sigma

	case PreferenceLogNormalMoments:
		if err := requireParam(spec.Params, "mean", "std_dev"); err != nil {
			return nil, err
		}
		mean, std := spec.Params["mean"], spec.Params["std_dev"]
		if err := validateFinitePositive("preference.params.mean", mean); err != nil {
			return nil, err
		}
		if err := validateFinitePositive("preference.params.std_dev", std); err != nil {
			return nil, err
		}
		variance := math.Log1p(std * std / (mean * mean))
		sigma = math.Sqrt(variance)
		mu = math.Log(mean) - variance/2

	default:
		return nil, fmt.Errorf("unknown preference distribution type %q; valid: %s, %s, %s",
			spec.Type, PreferenceLogNormal, PreferenceLogNormalMode, PreferenceLogNormalMoments)
	}
	if err := validateFinitePositive("preference.params.sigma", sigma); err != nil {
		return nil, err
	}
	return &PreferenceSampler{mu: mu, sigma: sigma}, nil
}

// Mu returns the location of ln(X).
func (s *PreferenceSampler) Mu() float64 { return s.mu }

// Sigma returns the scale of ln(X).
func (s *PreferenceSampler) Sigma() float64 { return s.sigma }

// Mode returns the analytic mode exp(mu - sigma^2).
func (s *PreferenceSampler) Mode() float64 {
	return math.Exp(s.mu - s.sigma*s.sigma)
}

// Mean returns the analytic mean exp(mu + sigma^2/2).
func (s *PreferenceSampler) Mean() float64 {
	return math.Exp(s.mu + s.sigma*s.sigma/2)
}

// Sample returns a strictly positive, finite preferred gain.
func (s *PreferenceSampler) Sample(rng *rand.Rand) float64 {
	dist := distuv.LogNormal{Mu: s.mu, Sigma: s.sigma, Src: rng}
	for i := 0; i < maxRedraws; i++ {
		val := dist.Rand()
		if val > 0 && !math.IsInf(val, 0) && !math.IsNaN(val) {
			return val
		}
	}
	// Unreachable for any sigma that passed validation and fits in float64.
	return s.Mode()
}

// requireParam checks that all required keys exist in a params map.
func requireParam(params map[string]float64, keys ...string) error {
	for _, k := range keys {
		if _, ok := params[k]; !ok {
			return fmt.Errorf("preference distribution requires parameter %q", k)
		}
	}
	return nil
}
