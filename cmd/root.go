package cmd

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gainsim/gainsim/sim"
	"github.com/gainsim/gainsim/sim/report"
	"github.com/gainsim/gainsim/sim/stats"
)

var (
	configPath string  // Optional YAML run configuration
	seed       int64   // Seed for all random draws
	users      int     // Number of simulated users (Monte Carlo trials)
	steps      int     // Adjustment steps per user
	damping    float64 // Fraction of the remaining gap closed per step
	noiseMean  float64 // Mean of the per-step adjustment noise (dB)
	noiseStd   float64 // Std dev of the per-step adjustment noise (dB)
	maxGain    float64 // Gain ceiling in dB (0 = unbounded)
	confidence float64 // Confidence level for CI and percentile bands
	binWidth   float64 // Preferred-gain histogram bin width (dB)
	logLevel   string  // Log verbosity level

	// Preferred-gain distribution
	prefMode  float64 // Mode of the log-normal (dB)
	prefSigma float64 // Scale of ln(X)
	prefMu    float64 // Location of ln(X)
	prefMean  float64 // Mean of X (dB)
	prefStd   float64 // Std dev of X (dB)

	// Outputs
	outDir      string // Directory for rendered figures
	imageFormat string // png, svg, pdf, ...
	summaryPath string // Optional JSON summary path
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "gainsim",
	Short: "Monte Carlo simulator of hearing-aid gain self-adjustment",
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a Monte Carlo ensemble and render its plots",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := buildConfig(cmd)
		if err != nil {
			logrus.Fatalf("Unable to build configuration: %v", err)
		}
		// Output locations are checked up front so a bad format never costs a full run.
		if _, err := report.FigurePaths(outDir, imageFormat); err != nil {
			logrus.Fatalf("%v", err)
		}

		startTime := time.Now()
		simulator, err := sim.NewSimulator(cfg)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		pref := simulator.Preference()
		logrus.Infof("Preferred gain ~ LogNormal(mu=%.3f, sigma=%.3f): mode %.1f dB, mean %.1f dB",
			pref.Mu(), pref.Sigma(), pref.Mode(), pref.Mean())
		ens := simulator.Run()
		summary, err := stats.Summarize(ens)
		if err != nil {
			logrus.Fatalf("Aggregation failed: %v", err)
		}
		report.Print(os.Stdout, summary)

		figs, err := report.RenderAll(summary, outDir, imageFormat)
		if err != nil {
			logrus.Fatalf("Rendering failed: %v", err)
		}
		logrus.Infof("Figures: %s, %s, %s", figs.Preferences, figs.Convergence, figs.Delta)

		if summaryPath != "" {
			if err := report.WriteJSON(summaryPath, simulator.Config(), summary); err != nil {
				logrus.Fatalf("%v", err)
			}
			logrus.Infof("Summary written to %s", summaryPath)
		}
		logrus.Infof("Simulation complete in %s.", time.Since(startTime))
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerRunFlags binds the run flags to fs.
func registerRunFlags(fs *pflag.FlagSet) {
	defaults := sim.DefaultConfig()

	fs.StringVar(&configPath, "config", "", "Path to a YAML run configuration (flags set explicitly override it)")
	fs.Int64Var(&seed, "seed", defaults.Seed, "Seed for all random draws")
	fs.StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// Ensemble and adjustment
	fs.IntVar(&users, "users", defaults.Users, "Number of simulated users")
	fs.IntVar(&steps, "steps", defaults.Adjustment.Steps, "Adjustment steps per user")
	fs.Float64Var(&damping, "damping", defaults.Adjustment.Damping, "Fraction of the remaining gap closed per step, in (0, 1]")
	fs.Float64Var(&noiseMean, "noise-mean", defaults.Adjustment.NoiseMean, "Mean of the per-step adjustment noise (dB)")
	fs.Float64Var(&noiseStd, "noise-std", defaults.Adjustment.NoiseStdDev, "Std dev of the per-step adjustment noise (dB)")
	fs.Float64Var(&maxGain, "max-gain", defaults.Adjustment.MaxGain, "Gain ceiling in dB; gains are clamped to [0, max] (0 = unbounded)")

	// Preferred-gain distribution
	fs.Float64Var(&prefMode, "pref-mode", defaults.Preference.Params["mode"], "Mode of the log-normal preferred gain (dB)")
	fs.Float64Var(&prefSigma, "pref-sigma", defaults.Preference.Params["sigma"], "Scale of ln(preferred gain)")
	fs.Float64Var(&prefMu, "pref-mu", 0, "Location of ln(preferred gain); replaces --pref-mode")
	fs.Float64Var(&prefMean, "pref-mean", 0, "Mean preferred gain (dB); use with --pref-std")
	fs.Float64Var(&prefStd, "pref-std", 0, "Std dev of preferred gain (dB); use with --pref-mean")

	// Aggregation and outputs
	fs.Float64Var(&confidence, "confidence", defaults.Confidence, "Confidence level for CI and percentile bands, in (0, 1)")
	fs.Float64Var(&binWidth, "bin-width", defaults.HistogramBinWidth, "Preferred-gain histogram bin width (dB)")
	fs.StringVar(&outDir, "out-dir", ".", "Directory for rendered figures")
	fs.StringVar(&imageFormat, "format", "png", "Figure format (png, svg, pdf, eps, jpg, tif)")
	fs.StringVar(&summaryPath, "summary", "", "Write a JSON summary to this path")
}

// init sets up CLI flags and subcommands
func init() {
	registerRunFlags(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}
