package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gainsim/gainsim/sim/stats"
)

// Base names of the rendered figures.
const (
	PreferencesFigure = "preferences"
	ConvergenceFigure = "convergence"
	DeltaFigure       = "delta"
)

var validFormats = map[string]bool{
	"png": true, "svg": true, "pdf": true, "eps": true, "jpg": true, "jpeg": true, "tif": true, "tiff": true,
}

// Figures lists the paths of the rendered figures.
type Figures struct {
	Preferences string
	Convergence string
	Delta       string
}

// FigurePaths returns the figure paths under dir for the given image format.
func FigurePaths(dir, format string) (Figures, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if !validFormats[format] {
		return Figures{}, fmt.Errorf("unsupported image format %q; valid: png, svg, pdf, eps, jpg, tif", format)
	}
	return Figures{
		Preferences: filepath.Join(dir, PreferencesFigure+"."+format),
		Convergence: filepath.Join(dir, ConvergenceFigure+"."+format),
		Delta:       filepath.Join(dir, DeltaFigure+"."+format),
	}, nil
}

// RenderAll writes every figure for s under dir, creating dir if needed.
func RenderAll(s *stats.Summary, dir, format string) (Figures, error) {
	figs, err := FigurePaths(dir, format)
	if err != nil {
		return Figures{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Figures{}, fmt.Errorf("creating output directory: %w", err)
	}
	if err := PlotPreferenceHistogram(s, figs.Preferences); err != nil {
		return Figures{}, err
	}
	if err := PlotConvergence(s, figs.Convergence); err != nil {
		return Figures{}, err
	}
	if err := PlotDelta(s, figs.Delta); err != nil {
		return Figures{}, err
	}
	logrus.Debugf("wrote %s, %s, %s", figs.Preferences, figs.Convergence, figs.Delta)
	return figs, nil
}
