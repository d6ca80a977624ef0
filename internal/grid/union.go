package grid

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Union returns the set of atoms listed in any cell that overlaps b. Parts
// of b outside the grid are ignored; a box entirely outside yields an empty
// set. Union panics if b is inverted on any axis.
//
// The result covers every atom within the cutoff of any point of b that is
// inside the grid, which is what a caller needs before placing a whole
// ligand fragment in b.
func (g *Grid) Union(b r3.Box) *roaring.Bitmap {
	lo := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	hi := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}

	var from, to [3]int
	for axis := range 3 {
		if lo[axis] > hi[axis] {
			panic(fmt.Sprintf("grid: inverted query box on axis %d: [%g, %g]", axis, lo[axis], hi[axis]))
		}
		begin, end := g.begin[axis], g.begin[axis]+g.rng[axis]
		if hi[axis] < begin || lo[axis] > end {
			return roaring.New()
		}
		from[axis] = g.clampedCell(axis, lo[axis])
		to[axis] = g.clampedCell(axis, hi[axis])
	}

	bm := roaring.New()
	for x := from[0]; x <= to[0]; x++ {
		for y := from[1]; y <= to[1]; y++ {
			for z := from[2]; z <= to[2]; z++ {
				for _, i := range g.cells[g.idx(x, y, z)] {
					bm.Add(uint32(i))
				}
			}
		}
	}
	return bm
}

// clampedCell is axisCell without the bounds check.
func (g *Grid) clampedCell(axis int, v float64) int {
	if g.rng[axis] == 0 {
		return 0
	}
	return clampCell((v-g.begin[axis])*float64(g.n[axis])/g.rng[axis], g.n[axis]-1)
}
