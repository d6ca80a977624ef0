package grid

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// OccupancyStats summarises candidate list lengths across all cells.
type OccupancyStats struct {
	Cells  int
	Total  int
	Empty  int
	Min    int
	Max    int
	Mean   float64
	StdDev float64
	Median float64
	P90    float64
}

// String formats the stats on one line.
func (s OccupancyStats) String() string {
	return fmt.Sprintf("cells=%d total=%d empty=%d min=%d max=%d mean=%.2f sd=%.2f median=%.1f p90=%.1f",
		s.Cells, s.Total, s.Empty, s.Min, s.Max, s.Mean, s.StdDev, s.Median, s.P90)
}

// Counts returns the candidate list length of every cell in x-major order.
func (g *Grid) Counts() []float64 {
	counts := make([]float64, len(g.cells))
	for i, c := range g.cells {
		counts[i] = float64(len(c))
	}
	return counts
}

// Occupancy computes OccupancyStats for the grid.
func (g *Grid) Occupancy() OccupancyStats {
	counts := g.Counts()
	s := OccupancyStats{
		Cells: len(counts),
		Total: int(floats.Sum(counts)),
		Min:   int(floats.Min(counts)),
		Max:   int(floats.Max(counts)),
	}
	for _, c := range counts {
		if c == 0 {
			s.Empty++
		}
	}

	if len(counts) > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(counts, nil)
	} else {
		s.Mean = counts[0]
	}

	sort.Float64s(counts)
	s.Median = stat.Quantile(0.5, stat.Empirical, counts, nil)
	s.P90 = stat.Quantile(0.9, stat.Empirical, counts, nil)
	return s
}
