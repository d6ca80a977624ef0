package monitor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/dockgrid/internal/grid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// maxHistBins caps the number of histogram bins.
const maxHistBins = 50

// PlotOccupancyHistogram writes a histogram of candidates per cell to path.
// The image format follows the file extension (.png, .svg, .pdf).
func PlotOccupancyHistogram(g *grid.Grid, path string) error {
	if g == nil {
		return fmt.Errorf("nil grid")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}

	counts := g.Counts()
	bins := int(floats.Max(counts)-floats.Min(counts)) + 1
	if bins > maxHistBins {
		bins = maxHistBins
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Candidates per cell (%s)", g.Dims())
	p.X.Label.Text = "candidates"
	p.Y.Label.Text = "cells"

	h, err := plotter.NewHist(plotter.Values(counts), bins)
	if err != nil {
		return fmt.Errorf("failed to build histogram: %w", err)
	}
	h.LineStyle.Width = vg.Points(1)
	p.Add(h)

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
