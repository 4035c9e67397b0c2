package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/gainsim/gainsim/sim"
)

// buildConfig assembles the run configuration. Without --config every flag
// applies; with --config only flags set explicitly override the file.
func buildConfig(cmd *cobra.Command) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	fromFlags := configPath == ""
	if !fromFlags {
		loaded, err := sim.LoadConfig(configPath)
		if err != nil {
			return sim.Config{}, err
		}
		cfg = *loaded
		logrus.Infof("Loaded configuration from %s", configPath)
	}

	flags := cmd.Flags()
	override := func(name string) bool {
		return fromFlags || flags.Changed(name)
	}
	if override("seed") {
		cfg.Seed = seed
	}
	if override("users") {
		cfg.Users = users
	}
	if override("steps") {
		cfg.Adjustment.Steps = steps
	}
	if override("damping") {
		cfg.Adjustment.Damping = damping
	}
	if override("noise-mean") {
		cfg.Adjustment.NoiseMean = noiseMean
	}
	if override("noise-std") {
		cfg.Adjustment.NoiseStdDev = noiseStd
	}
	if override("max-gain") {
		cfg.Adjustment.MaxGain = maxGain
	}
	if override("confidence") {
		cfg.Confidence = confidence
	}
	if override("bin-width") {
		cfg.HistogramBinWidth = binWidth
	}

	pref, err := preferenceFromFlags(flags, cfg.Preference, fromFlags)
	if err != nil {
		return sim.Config{}, err
	}
	cfg.Preference = pref
	return cfg, nil
}

// preferenceFromFlags picks the preferred-gain parameterization from the
// preference flags: --pref-mu selects lognormal, --pref-mean/--pref-std select
// lognormal_moments, --pref-mode selects lognormal_mode.
func preferenceFromFlags(flags *pflag.FlagSet, base sim.PreferenceSpec, fromFlags bool) (sim.PreferenceSpec, error) {
	useMu := flags.Changed("pref-mu")
	useMode := flags.Changed("pref-mode")
	useMoments := flags.Changed("pref-mean") || flags.Changed("pref-std")
	selected := 0
	for _, b := range []bool{useMu, useMode, useMoments} {
		if b {
			selected++
		}
	}
	if selected > 1 {
		return sim.PreferenceSpec{}, fmt.Errorf("--pref-mu, --pref-mode and --pref-mean/--pref-std are mutually exclusive")
	}

	sigma := prefSigma
	if !flags.Changed("pref-sigma") && !fromFlags {
		if s, ok := base.Params["sigma"]; ok {
			sigma = s
		}
	}

	switch {
	case useMu:
		return sim.PreferenceSpec{
			Type:   sim.PreferenceLogNormal,
			Params: map[string]float64{"mu": prefMu, "sigma": sigma},
		}, nil
	case useMoments:
		if !flags.Changed("pref-mean") || !flags.Changed("pref-std") {
			return sim.PreferenceSpec{}, fmt.Errorf("--pref-mean and --pref-std must be set together")
		}
		if flags.Changed("pref-sigma") {
			return sim.PreferenceSpec{}, fmt.Errorf("--pref-sigma cannot be combined with --pref-mean/--pref-std")
		}
		return sim.PreferenceSpec{
			Type:   sim.PreferenceLogNormalMoments,
			Params: map[string]float64{"mean": prefMean, "std_dev": prefStd},
		}, nil
	case useMode || fromFlags:
		return sim.PreferenceSpec{
			Type:   sim.PreferenceLogNormalMode,
			Params: map[string]float64{"mode": prefMode, "sigma": sigma},
		}, nil
	case flags.Changed("pref-sigma"):
		if base.Type == sim.PreferenceLogNormalMoments {
			return sim.PreferenceSpec{}, fmt.Errorf("--pref-sigma cannot override a %s preference", base.Type)
		}
		params := make(map[string]float64, len(base.Params))
		for k, v := range base.Params {
			params[k] = v
		}
		params["sigma"] = sigma
		return sim.PreferenceSpec{Type: base.Type, Params: params}, nil
	}
	return base, nil
}

// --- gainsim defaults ---

var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the default run configuration as YAML",
	Long:  "Print the default run configuration as YAML. Output is written to stdout so it can be saved and edited for --config.",
	Run: func(cmd *cobra.Command, args []string) {
		writeConfig(cmd, sim.DefaultConfig())
	},
}

// --- gainsim validate ---

var validatePath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a YAML run configuration without running it",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := sim.LoadConfig(validatePath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("%s: %v", validatePath, err)
		}
		writeConfig(cmd, *cfg)
	},
}

// writeConfig marshals a Config to YAML and writes it to the command's stdout.
func writeConfig(cmd *cobra.Command, cfg sim.Config) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		logrus.Fatalf("YAML marshal failed: %v", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
}

func init() {
	validateCmd.Flags().StringVar(&validatePath, "config", "", "Path to the YAML run configuration")
	_ = validateCmd.MarkFlagRequired("config")

	rootCmd.AddCommand(defaultsCmd)
	rootCmd.AddCommand(validateCmd)
}
