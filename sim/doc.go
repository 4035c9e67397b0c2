// Package sim provides the Monte Carlo engine for hearing-aid gain self-adjustment.
//
// # Reading Guide
//
// Start with these files to understand a run:
//   - config.go: run parameters, YAML loading and validation
//   - preference.go: log-normal preferred-gain sampler
//   - trajectory.go: the damped, noisy per-user adjustment loop
//   - simulator.go: draws preferences and runs every trial into an Ensemble
//
// # Determinism
//
// All randomness flows from one seed through PartitionedRNG (rng.go). Preferred
// gains come from the "preference" stream and each trial's noise from its own
// "trial_<i>" stream, so identical configurations reproduce identical ensembles.
//
// # Sub-packages
//   - sim/stats/: per-step mean, confidence interval and percentile bands;
//     preferred-gain histogram
//   - sim/report/: plots, text summary and JSON summary
package sim
