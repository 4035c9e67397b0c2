package report

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/gainsim/gainsim/sim"
	"github.com/gainsim/gainsim/sim/stats"
)

// SettleTolerance is the |mean Δ gain| (dB) at which the ensemble counts as settled.
const SettleTolerance = 1.0

// runNamespace scopes run ids derived from configurations.
var runNamespace = uuid.MustParse("8d3f6a52-1c4e-4b7a-9e21-5f0c7d9b3a64")

// json reuses the yaml tags so summary keys match config file keys.
// Map keys are sorted, which keeps the encoding of a Config canonical.
var json = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	TagKey:                 "yaml",
}.Froze()

// Document is the JSON summary written by WriteJSON.
type Document struct {
	RunID   string         `yaml:"run_id"`
	Config  sim.Config     `yaml:"config"`
	Summary *stats.Summary `yaml:"summary"`
}

// RunID derives a stable identifier from the full configuration (seed included).
// Identical configurations always map to the same id.
func RunID(cfg sim.Config) (uuid.UUID, error) {
	canonical, err := json.Marshal(cfg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encoding config: %w", err)
	}
	return uuid.NewSHA1(runNamespace, canonical), nil
}

// Print writes a human-readable summary block to w.
func Print(w io.Writer, s *stats.Summary) {
	final := s.Final()
	finalDelta := s.Delta[len(s.Delta)-1]
	pct := s.Confidence * 100

	fmt.Fprintln(w, "=== Gain Adjustment Summary ===")
	fmt.Fprintf(w, "Simulated Users      : %d\n", s.Users)
	fmt.Fprintf(w, "Adjustment Steps     : %d\n", s.Steps)
	fmt.Fprintf(w, "Preferred Gain Mean  : %.2f dB (sd %.2f, median %.2f)\n",
		s.Preference.Mean, s.Preference.StdDev, s.Preference.Median)
	fmt.Fprintf(w, "Preferred Gain Range : [%.2f, %.2f] dB\n", s.Preference.Min, s.Preference.Max)
	fmt.Fprintf(w, "Preferred Gain Mode  : %.2f dB (bin width %.2f)\n", s.Preference.Mode(), s.Preference.BinWidth)
	if s.Preference.Overflow > 0 {
		fmt.Fprintf(w, "Beyond Histogram     : %d users above %.2f dB\n",
			s.Preference.Overflow, s.Preference.Bins[len(s.Preference.Bins)-1].High)
	}
	fmt.Fprintf(w, "Final Mean Gain      : %.2f dB\n", final.Mean)
	fmt.Fprintf(w, "Final %2.0f%% CI        : [%.2f, %.2f] dB\n", pct, final.CILow, final.CIHigh)
	fmt.Fprintf(w, "Final Mean Δ Gain    : %.2f dB\n", finalDelta.Mean)
	fmt.Fprintf(w, "Final %2.0f%% Δ Band    : [%.2f, %.2f] dB\n", pct, finalDelta.PLow, finalDelta.PHigh)
	if step := s.SettleStep(SettleTolerance); step >= 0 {
		fmt.Fprintf(w, "Settled (±%.0f dB)     : step %d\n", SettleTolerance, step)
	} else {
		fmt.Fprintf(w, "Settled (±%.0f dB)     : not within %d steps\n", SettleTolerance, s.Steps)
	}
}

// WriteJSON writes the configuration, run id and summary to path.
func WriteJSON(path string, cfg sim.Config, s *stats.Summary) error {
	id, err := RunID(cfg)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(Document{RunID: id.String(), Config: cfg, Summary: s}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing summary %s: %w", path, err)
	}
	return nil
}

// ReadJSON loads a summary document written by WriteJSON.
func ReadJSON(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading summary: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing summary %s: %w", path, err)
	}
	return &doc, nil
}
