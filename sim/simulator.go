package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Simulator runs one Monte Carlo ensemble of gain-adjustment trials.
// Construct with NewSimulator; the zero value is not usable.
type Simulator struct {
	config     Config
	preference *PreferenceSampler
	rng        *PartitionedRNG
}

// NewSimulator validates cfg and prepares the RNG streams.
// An invalid configuration is rejected here, before any draw.
func NewSimulator(cfg Config) (*Simulator, error) {
	sampler, err := cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &Simulator{
		config:     cfg,
		preference: sampler,
		rng:        NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
	}, nil
}

// Config returns the validated configuration.
func (s *Simulator) Config() Config { return s.config }

// Preference returns the preferred-gain sampler.
func (s *Simulator) Preference() *PreferenceSampler { return s.preference }

// DrawPreferredGains draws n preferred gains from the preference stream.
func (s *Simulator) DrawPreferredGains(n int) []float64 {
	rng := s.rng.ForSubsystem(SubsystemPreference)
	out := make([]float64, n)
	for i := range out {
		out[i] = s.preference.Sample(rng)
	}
	return out
}

// RunTrial generates trial id's trajectory toward preferred using the trial's own stream.
func (s *Simulator) RunTrial(id int, preferred float64) Trial {
	name := SubsystemTrial(id)
	defer s.rng.Release(name)
	adj := s.config.Adjustment
	noise := NewAdjustmentNoise(s.rng.ForSubsystem(name), adj.NoiseMean, adj.NoiseStdDev)
	return Trial{
		ID:            id,
		PreferredGain: preferred,
		Gains:         RunTrajectory(preferred, adj, noise),
	}
}

// Run draws every preferred gain, then runs each trial in order.
// Calling Run twice on the same Simulator continues the preference stream;
// build a new Simulator to reproduce a run.
func (s *Simulator) Run() *Ensemble {
	cfg := s.config
	logrus.Infof("Starting ensemble: users=%d, steps=%d, damping=%g, noise=N(%g, %g^2), seed=%d",
		cfg.Users, cfg.Adjustment.Steps, cfg.Adjustment.Damping,
		cfg.Adjustment.NoiseMean, cfg.Adjustment.NoiseStdDev, cfg.Seed)
	logrus.Debugf("preference log-normal: mu=%.4f sigma=%.4f (mode=%.2f dB, mean=%.2f dB)",
		s.preference.Mu(), s.preference.Sigma(), s.preference.Mode(), s.preference.Mean())

	preferred := s.DrawPreferredGains(cfg.Users)
	ens := &Ensemble{Config: cfg, Trials: make([]Trial, cfg.Users)}
	for i, p := range preferred {
		ens.Trials[i] = s.RunTrial(i, p)
	}

	logrus.Infof("Ensemble complete: %d trajectories of %d values", ens.Len(), cfg.Adjustment.Steps+1)
	return ens
}

// RunEnsemble validates cfg and runs a full ensemble in one call.
func RunEnsemble(cfg Config) (*Ensemble, error) {
	s, err := NewSimulator(cfg)
	if err != nil {
		return nil, err
	}
	return s.Run(), nil
}
