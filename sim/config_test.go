package sim

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate_InvalidFields_DescriptiveErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"zero steps", func(c *Config) { c.Adjustment.Steps = 0 }, "adjustment.steps must be positive, got 0"},
		{"negative steps", func(c *Config) { c.Adjustment.Steps = -3 }, "adjustment.steps must be positive"},
		{"zero users", func(c *Config) { c.Users = 0 }, "users must be positive"},
		{"zero damping", func(c *Config) { c.Adjustment.Damping = 0 }, "adjustment.damping must be in (0, 1]"},
		{"damping above one", func(c *Config) { c.Adjustment.Damping = 1.5 }, "adjustment.damping must be in (0, 1]"},
		{"NaN damping", func(c *Config) { c.Adjustment.Damping = math.NaN() }, "adjustment.damping"},
		{"negative noise", func(c *Config) { c.Adjustment.NoiseStdDev = -1 }, "adjustment.noise_std_dev"},
		{"infinite noise mean", func(c *Config) { c.Adjustment.NoiseMean = math.Inf(1) }, "adjustment.noise_mean"},
		{"negative max gain", func(c *Config) { c.Adjustment.MaxGain = -70 }, "adjustment.max_gain"},
		{"confidence zero", func(c *Config) { c.Confidence = 0 }, "confidence must be in (0, 1)"},
		{"confidence one", func(c *Config) { c.Confidence = 1 }, "confidence must be in (0, 1)"},
		{"zero bin width", func(c *Config) { c.HistogramBinWidth = 0 }, "histogram_bin_width must be positive"},
		{"zero sigma", func(c *Config) { c.Preference.Params = map[string]float64{"mode": 20, "sigma": 0} }, "preference.params.sigma must be positive"},
		{"negative mode", func(c *Config) { c.Preference.Params = map[string]float64{"mode": -5, "sigma": 0.4} }, "preference.params.mode must be positive"},
		{"unknown preference type", func(c *Config) { c.Preference.Type = "gaussian" }, `unknown preference distribution type "gaussian"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAdjustmentValidate_ZeroNoiseAllowed(t *testing.T) {
	adj := AdjustmentConfig{Steps: 50, Damping: 0.1}
	assert.NoError(t, adj.Validate())
}

func TestAdjustmentValidate_FullDampingAllowed(t *testing.T) {
	adj := AdjustmentConfig{Steps: 5, Damping: 1}
	assert.NoError(t, adj.Validate())
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_PartialFile_KeepsDefaults(t *testing.T) {
	// GIVEN a file that only sets the seed and step count
	path := writeConfigFile(t, "seed: 7\nadjustment:\n  steps: 40\n  damping: 0.3\n")

	// WHEN loaded
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// THEN file values win and everything else is the default
	want := DefaultConfig()
	want.Seed = 7
	want.Adjustment.Steps = 40
	want.Adjustment.Damping = 0.3
	assert.Equal(t, want, *cfg)
}

func TestLoadConfig_PreferenceReplacesDefault(t *testing.T) {
	// GIVEN a file with a moments-parameterized preference
	path := writeConfigFile(t, `
preference:
  type: lognormal_moments
  params:
    mean: 30
    std_dev: 10
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// THEN the default mode/sigma params are not merged in
	assert.Equal(t, PreferenceSpec{
		Type:   PreferenceLogNormalMoments,
		Params: map[string]float64{"mean": 30, "std_dev": 10},
	}, cfg.Preference)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_UnknownKey_Rejected(t *testing.T) {
	path := writeConfigFile(t, "seed: 1\nsteps: 40\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field steps not found")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}
