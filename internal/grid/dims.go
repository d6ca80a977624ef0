package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// PreferredCellSize is the cell width, in Å, that DimsForBox aims for.
const PreferredCellSize = 3.0

// AxisDims describes one axis of the grid: the covered interval and the
// number of equal-width cells it is split into.
type AxisDims struct {
	Begin float64
	End   float64
	N     int
}

// Range returns End - Begin.
func (a AxisDims) Range() float64 { return a.End - a.Begin }

// Dims is the box and resolution of a grid, one entry per axis (x, y, z).
type Dims [3]AxisDims

// NewDims returns Dims covering b with n cells per axis.
func NewDims(b r3.Box, n [3]int) Dims {
	return Dims{
		{Begin: b.Min.X, End: b.Max.X, N: n[0]},
		{Begin: b.Min.Y, End: b.Max.Y, N: n[1]},
		{Begin: b.Min.Z, End: b.Max.Z, N: n[2]},
	}
}

// Box returns the covered region.
func (d Dims) Box() r3.Box {
	return r3.Box{
		Min: r3.Vec{X: d[0].Begin, Y: d[1].Begin, Z: d[2].Begin},
		Max: r3.Vec{X: d[0].End, Y: d[1].End, Z: d[2].End},
	}
}

// Cells returns the total number of cells.
func (d Dims) Cells() int { return d[0].N * d[1].N * d[2].N }

// Resolution returns the cell count per axis.
func (d Dims) Resolution() [3]int { return [3]int{d[0].N, d[1].N, d[2].N} }

// Validate checks that every axis is finite, ordered and has at least one cell.
func (d Dims) Validate() error {
	for i, a := range d {
		if math.IsNaN(a.Begin) || math.IsNaN(a.End) || math.IsInf(a.Begin, 0) || math.IsInf(a.End, 0) {
			return fmt.Errorf("axis %d: non-finite bounds [%g, %g]", i, a.Begin, a.End)
		}
		if a.Begin > a.End {
			return fmt.Errorf("axis %d: begin %g > end %g", i, a.Begin, a.End)
		}
		if a.N < 1 {
			return fmt.Errorf("axis %d: cell count %d < 1", i, a.N)
		}
	}
	return nil
}

// String formats the dims as "[b,e]xN" per axis.
func (d Dims) String() string {
	return fmt.Sprintf("x[%g,%g]x%d y[%g,%g]x%d z[%g,%g]x%d",
		d[0].Begin, d[0].End, d[0].N,
		d[1].Begin, d[1].End, d[1].N,
		d[2].Begin, d[2].End, d[2].N)
}

// DimsForBox picks a resolution for b using PreferredCellSize.
func DimsForBox(b r3.Box) Dims {
	return DimsForBoxWithCellSize(b, PreferredCellSize)
}

// DimsForBoxWithCellSize picks a resolution for b so that cells are about
// size wide: each axis range is divided by size and truncated, with at
// least one cell per axis.
func DimsForBoxWithCellSize(b r3.Box, size float64) Dims {
	if !(size > 0) {
		panic(fmt.Sprintf("grid: preferred cell size must be positive, got %g", size))
	}
	d := NewDims(b, [3]int{})
	for i := range d {
		n := int(d[i].Range() / size)
		if n < 1 {
			n = 1
		}
		d[i].N = n
	}
	return d
}
