package sim

import (
	"gonum.org/v1/gonum/mat"
)

// Trial is one simulated user.
type Trial struct {
	ID            int
	PreferredGain float64   // dB, > 0, fixed for the trial
	Gains         []float64 // Steps+1 values, Gains[0] == InitialGainDB
}

// TerminalGain returns the gain after the last adjustment step.
func (t *Trial) TerminalGain() float64 {
	return t.Gains[len(t.Gains)-1]
}

// Ensemble is the full set of trials of one run.
type Ensemble struct {
	Config Config
	Trials []Trial
}

// Len returns the number of trials.
func (e *Ensemble) Len() int { return len(e.Trials) }

// Steps returns the number of adjustment steps per trial.
func (e *Ensemble) Steps() int { return e.Config.Adjustment.Steps }

// PreferredGains returns the drawn preferred gains in trial order.
func (e *Ensemble) PreferredGains() []float64 {
	out := make([]float64, len(e.Trials))
	for i := range e.Trials {
		out[i] = e.Trials[i].PreferredGain
	}
	return out
}

// Matrix returns the trials × (steps+1) trajectory matrix.
// Returns nil for an empty ensemble.
func (e *Ensemble) Matrix() *mat.Dense {
	if len(e.Trials) == 0 {
		return nil
	}
	m := mat.NewDense(len(e.Trials), e.Steps()+1, nil)
	for i := range e.Trials {
		m.SetRow(i, e.Trials[i].Gains)
	}
	return m
}
