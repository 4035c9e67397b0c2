// Package testutil provides shared test infrastructure for the gain simulator.
// It consolidates configuration builders and assertion helpers used across
// sim/, sim/stats/ and sim/report/ test packages.
package testutil

import (
	"math"
	"testing"

	"github.com/gainsim/gainsim/sim"
)

// SmallConfig returns a valid, fast configuration for unit tests.
func SmallConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.Users = 200
	cfg.Adjustment.Steps = 30
	return cfg
}

// NoiselessConfig returns a configuration whose trajectories are deterministic
// given the preferred gains.
func NoiselessConfig(users, steps int, damping float64) sim.Config {
	cfg := sim.DefaultConfig()
	cfg.Users = users
	cfg.Adjustment = sim.AdjustmentConfig{Steps: steps, Damping: damping}
	return cfg
}

// MustRun runs an ensemble and fails the test on a configuration error.
func MustRun(t *testing.T, cfg sim.Config) *sim.Ensemble {
	t.Helper()
	ens, err := sim.RunEnsemble(cfg)
	if err != nil {
		t.Fatalf("RunEnsemble: %v", err)
	}
	return ens
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
// A NaN on either side always fails.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if math.IsNaN(want) || math.IsNaN(got) {
		t.Errorf("%s: got %v, want %v", name, got, want)
		return
	}
	if want == got {
		return
	}
	relDiff := math.Abs(want-got) / math.Max(math.Abs(want), math.Abs(got))
	if relDiff > relTol {
		t.Errorf("%s: got %v, want %v within %.2g%% (relDiff=%.3g)", name, got, want, relTol*100, relDiff)
	}
}

// AssertWithin compares two float64 values with absolute tolerance.
func AssertWithin(t *testing.T, name string, want, got, absTol float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(want-got) > absTol {
		t.Errorf("%s: got %v, want %v ± %v", name, got, want, absTol)
	}
}
