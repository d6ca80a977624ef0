package grid

import (
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/dockgrid/internal/brick"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultEpsilon is the tolerance, in Å, by which a query may fall outside
// the grid box and still be answered.
const DefaultEpsilon = 1e-6

// AtomSource supplies the atoms a grid is built over. Implementations must
// tolerate concurrent reads when Options.Workers > 1.
type AtomSource interface {
	// Len returns the number of atoms; valid indices are [0, Len).
	Len() int
	// Coords returns the position of atom i.
	Coords(i int) r3.Vec
	// Type returns the category of atom i under the active typing.
	Type(i int) int
	// NumTypes returns the number of valid categories. Atoms whose Type is
	// not below it are never indexed.
	NumTypes() int
}

// Options tunes grid construction. The zero value (or nil) uses defaults.
type Options struct {
	// Epsilon widens the box for Possibilities. Zero or negative values
	// mean DefaultEpsilon; an exact, zero-tolerance box is not supported.
	Epsilon float64
	// Workers bounds the goroutines filling cells. Values below 2 build on
	// the calling goroutine.
	Workers int
}

func (o *Options) epsilon() float64 {
	if o == nil || o.Epsilon <= 0 {
		return DefaultEpsilon
	}
	return o.Epsilon
}

func (o *Options) workers() int {
	if o == nil || o.Workers < 1 {
		return 1
	}
	return o.Workers
}

// Grid maps each cell of a box to the atoms that may lie within the cutoff
// of some point in that cell.
type Grid struct {
	dims      Dims
	begin     [3]float64
	rng       [3]float64
	n         [3]int
	cutoffSqr float64
	eps       float64

	relevant []int   // coarse filter result, in scan order
	cells    [][]int // indexed by idx(x, y, z)
}

// New builds a grid over src for the box and resolution in gd. cutoffSqr
// is the squared cutoff distance. New panics if gd is invalid or cutoffSqr
// is negative or NaN.
//
// An atom is listed in a cell iff it is eligible (Type < NumTypes) and its
// squared distance to the cell's box is below cutoffSqr, so the lists are a
// superset of the atoms within the cutoff of any point in the cell.
func New(src AtomSource, gd Dims, cutoffSqr float64, opts *Options) *Grid {
	if err := gd.Validate(); err != nil {
		panic("grid: invalid dims: " + err.Error())
	}
	if !(cutoffSqr >= 0) {
		panic(fmt.Sprintf("grid: squared cutoff must be non-negative, got %g", cutoffSqr))
	}

	start := time.Now()
	g := newGrid(gd, cutoffSqr, opts.epsilon())

	// Coarse pass against the whole box so the per-cell pass only scans
	// atoms that can reach at least one cell.
	box := gd.Box()
	nat := src.NumTypes()
	for i := range src.Len() {
		if src.Type(i) < nat && brick.DistanceSqr(box, src.Coords(i)) < cutoffSqr {
			g.relevant = append(g.relevant, i)
		}
	}

	workers := opts.workers()
	if workers < 2 || g.n[0] < 2 {
		for x := range g.n[0] {
			g.fillSlab(src, x)
		}
	} else {
		// Each slab owns a disjoint range of cells, so no locking is needed.
		var eg errgroup.Group
		eg.SetLimit(workers)
		for x := range g.n[0] {
			eg.Go(func() error {
				g.fillSlab(src, x)
				return nil
			})
		}
		_ = eg.Wait()
	}

	diagf("built %s cutoff_sqr=%g atoms=%d relevant=%d avg=%.2f workers=%d in %v",
		gd, cutoffSqr, src.Len(), len(g.relevant), g.AverageNumPossibilities(), workers, time.Since(start))
	return g
}

func newGrid(gd Dims, cutoffSqr, eps float64) *Grid {
	g := &Grid{
		dims:      gd,
		cutoffSqr: cutoffSqr,
		eps:       eps,
		cells:     make([][]int, gd.Cells()),
	}
	for i, a := range gd {
		g.begin[i] = a.Begin
		g.rng[i] = a.Range()
		g.n[i] = a.N
	}
	return g
}

// fillSlab populates every cell with x index x.
func (g *Grid) fillSlab(src AtomSource, x int) {
	added := 0
	for y := range g.n[1] {
		for z := range g.n[2] {
			cell := r3.Box{Min: g.IndexToCoord(x, y, z), Max: g.IndexToCoord(x+1, y+1, z+1)}
			var list []int
			for _, i := range g.relevant {
				if brick.DistanceSqr(cell, src.Coords(i)) < g.cutoffSqr {
					list = append(list, i)
				}
			}
			g.cells[g.idx(x, y, z)] = list
			added += len(list)
		}
	}
	tracef("slab x=%d filled, %d entries", x, added)
}

func (g *Grid) idx(x, y, z int) int {
	return (x*g.n[1]+y)*g.n[2] + z
}

// IndexToCoord returns the position of cell corner (i, j, k). Corners run
// from 0 to N inclusive on each axis, so (x+1, y+1, z+1) is the upper
// corner of cell (x, y, z).
func (g *Grid) IndexToCoord(i, j, k int) r3.Vec {
	return r3.Vec{
		X: g.begin[0] + g.rng[0]*float64(i)/float64(g.n[0]),
		Y: g.begin[1] + g.rng[1]*float64(j)/float64(g.n[1]),
		Z: g.begin[2] + g.rng[2]*float64(k)/float64(g.n[2]),
	}
}

// CellOf returns the cell containing p. Points on a face shared by two
// cells go to the upper one, except on the far boundary of the box where
// they are clamped into the last cell. CellOf panics if p lies outside the
// box widened by the grid's epsilon.
func (g *Grid) CellOf(p r3.Vec) (x, y, z int) {
	return g.axisCell(0, p.X), g.axisCell(1, p.Y), g.axisCell(2, p.Z)
}

func (g *Grid) axisCell(axis int, v float64) int {
	begin, rng := g.begin[axis], g.rng[axis]
	if !(v+g.eps >= begin && v <= begin+rng+g.eps) {
		panic(fmt.Sprintf("grid: coordinate %g on axis %d outside [%g, %g] (eps %g)",
			v, axis, begin, begin+rng, g.eps))
	}
	if rng == 0 {
		return 0
	}
	return clampCell((v-begin)*float64(g.n[axis])/rng, g.n[axis]-1)
}

// clampCell floors f into [0, last].
func clampCell(f float64, last int) int {
	if f <= 0 {
		return 0
	}
	if f >= float64(last) {
		return last
	}
	return int(math.Floor(f))
}

// Possibilities returns the candidate atom indices for the cell containing
// p. The slice is owned by the grid and shared by every query that lands
// in the same cell; callers must not modify it. Possibilities panics if p
// lies outside the box widened by the grid's epsilon.
func (g *Grid) Possibilities(p r3.Vec) []int {
	x, y, z := g.CellOf(p)
	return g.cells[g.idx(x, y, z)]
}

// Cell returns the candidate list of cell (x, y, z). Like Possibilities, the
// slice is shared and must not be modified.
func (g *Grid) Cell(x, y, z int) []int {
	if x < 0 || x >= g.n[0] || y < 0 || y >= g.n[1] || z < 0 || z >= g.n[2] {
		panic(fmt.Sprintf("grid: cell (%d, %d, %d) outside %v", x, y, z, g.n))
	}
	return g.cells[g.idx(x, y, z)]
}

// AverageNumPossibilities returns the mean candidate list length over all
// cells. It is a tuning aid for the resolution.
func (g *Grid) AverageNumPossibilities() float64 {
	total := 0
	for _, c := range g.cells {
		total += len(c)
	}
	return float64(total) / float64(len(g.cells))
}

// Dims returns the box and resolution the grid was built with.
func (g *Grid) Dims() Dims { return g.dims }

// CutoffSqr returns the squared cutoff the grid was built with.
func (g *Grid) CutoffSqr() float64 { return g.cutoffSqr }

// Epsilon returns the query tolerance.
func (g *Grid) Epsilon() float64 { return g.eps }

// NumCells returns the number of cells.
func (g *Grid) NumCells() int { return len(g.cells) }

// Relevant returns the atoms that survived the whole-box filter. The slice
// is shared and must not be modified.
func (g *Grid) Relevant() []int { return g.relevant }
