package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// InitialGainDB is the gain every trial starts from.
const InitialGainDB = 0.0

// Config is the complete parameter set of one Monte Carlo run.
// Loaded from YAML via LoadConfig(path) or built from DefaultConfig().
type Config struct {
	Seed              int64            `yaml:"seed"`
	Users             int              `yaml:"users"`
	Preference        PreferenceSpec   `yaml:"preference"`
	Adjustment        AdjustmentConfig `yaml:"adjustment"`
	Confidence        float64          `yaml:"confidence"`          // CI and percentile band level, in (0,1)
	HistogramBinWidth float64          `yaml:"histogram_bin_width"` // dB per preferred-gain histogram bin
}

// AdjustmentConfig groups the per-step update parameters.
type AdjustmentConfig struct {
	Steps       int     `yaml:"steps"`              // adjustment events per trial (trajectory has Steps+1 values)
	Damping     float64 `yaml:"damping"`            // fraction of the remaining gap applied per step, in (0,1]
	NoiseMean   float64 `yaml:"noise_mean"`         // mean of the additive adjustment noise (dB)
	NoiseStdDev float64 `yaml:"noise_std_dev"`      // std dev of the additive adjustment noise (dB)
	MaxGain     float64 `yaml:"max_gain,omitempty"` // 0 = unbounded; otherwise gains are clamped to [0, MaxGain]
}

// PreferenceSpec parameterizes the preferred-gain distribution.
type PreferenceSpec struct {
	Type   string             `yaml:"type"`
	Params map[string]float64 `yaml:"params"`
}

// DefaultConfig returns a configuration whose preferred-gain distribution
// peaks near 20 dB with a long tail toward higher gains.
func DefaultConfig() Config {
	return Config{
		Seed:  42,
		Users: 1000,
		Preference: PreferenceSpec{
			Type:   PreferenceLogNormalMode,
			Params: map[string]float64{"mode": 20, "sigma": 0.4},
		},
		Adjustment: AdjustmentConfig{
			Steps:       25,
			Damping:     0.2,
			NoiseMean:   0,
			NoiseStdDev: 1,
		},
		Confidence:        0.9,
		HistogramBinWidth: 2,
	}
}

// LoadConfig reads and parses a YAML run configuration.
// Keys missing from the file keep their DefaultConfig values.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := DefaultConfig()
	// Params maps merge on decode; a file-supplied preference must replace the default.
	cfg.Preference = PreferenceSpec{}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Preference.Type == "" && len(cfg.Preference.Params) == 0 {
		cfg.Preference = DefaultConfig().Preference
	}
	return &cfg, nil
}

// Validate checks every field before any random draw is made.
func (c *Config) Validate() error {
	_, err := c.validate()
	return err
}

// validate checks c and returns the preference sampler it describes.
func (c *Config) validate() (*PreferenceSampler, error) {
	if c.Users < 1 {
		return nil, fmt.Errorf("users must be positive, got %d", c.Users)
	}
	if err := c.Adjustment.Validate(); err != nil {
		return nil, err
	}
	sampler, err := NewPreferenceSampler(c.Preference)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(c.Confidence) || c.Confidence <= 0 || c.Confidence >= 1 {
		return nil, fmt.Errorf("confidence must be in (0, 1), got %f", c.Confidence)
	}
	if err := validateFinitePositive("histogram_bin_width", c.HistogramBinWidth); err != nil {
		return nil, err
	}
	return sampler, nil
}

// Validate checks the adjustment parameters.
func (a *AdjustmentConfig) Validate() error {
	if a.Steps < 1 {
		return fmt.Errorf("adjustment.steps must be positive, got %d", a.Steps)
	}
	if math.IsNaN(a.Damping) || a.Damping <= 0 || a.Damping > 1 {
		return fmt.Errorf("adjustment.damping must be in (0, 1], got %f", a.Damping)
	}
	if math.IsNaN(a.NoiseMean) || math.IsInf(a.NoiseMean, 0) {
		return fmt.Errorf("adjustment.noise_mean must be a finite number, got %f", a.NoiseMean)
	}
	if math.IsNaN(a.NoiseStdDev) || math.IsInf(a.NoiseStdDev, 0) || a.NoiseStdDev < 0 {
		return fmt.Errorf("adjustment.noise_std_dev must be finite and non-negative, got %f", a.NoiseStdDev)
	}
	if math.IsNaN(a.MaxGain) || math.IsInf(a.MaxGain, 0) || a.MaxGain < 0 {
		return fmt.Errorf("adjustment.max_gain must be finite and non-negative, got %f", a.MaxGain)
	}
	return nil
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}
