package grid

import (
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// pointSet is a minimal AtomSource for tests.
type pointSet struct {
	coords   []r3.Vec
	types    []int
	numTypes int
}

func (p *pointSet) Len() int            { return len(p.coords) }
func (p *pointSet) Coords(i int) r3.Vec { return p.coords[i] }
func (p *pointSet) Type(i int) int      { return p.types[i] }
func (p *pointSet) NumTypes() int       { return p.numTypes }

func (p *pointSet) add(v r3.Vec, typ int) {
	p.coords = append(p.coords, v)
	p.types = append(p.types, typ)
}

func newPointSet(vs ...r3.Vec) *pointSet {
	ps := &pointSet{numTypes: 1}
	for _, v := range vs {
		ps.add(v, 0)
	}
	return ps
}

func cube(lo, hi float64) r3.Box {
	return r3.Box{Min: r3.Vec{X: lo, Y: lo, Z: lo}, Max: r3.Vec{X: hi, Y: hi, Z: hi}}
}

// randomPointSet scatters n atoms over box with a quarter of them ineligible.
func randomPointSet(rng *rand.Rand, n int, box r3.Box) *pointSet {
	ps := &pointSet{numTypes: 3}
	for range n {
		v := r3.Vec{
			X: box.Min.X + rng.Float64()*(box.Max.X-box.Min.X),
			Y: box.Min.Y + rng.Float64()*(box.Max.Y-box.Min.Y),
			Z: box.Min.Z + rng.Float64()*(box.Max.Z-box.Min.Z),
		}
		ps.add(v, rng.IntN(4))
	}
	return ps
}

func TestNew_SingleAtomAtOrigin(t *testing.T) {
	gd := DimsForBox(cube(0, 6))
	require.Equal(t, [3]int{2, 2, 2}, gd.Resolution())

	g := New(newPointSet(r3.Vec{}), gd, 2, nil)

	for x := range 2 {
		for y := range 2 {
			for z := range 2 {
				if x == 0 && y == 0 && z == 0 {
					assert.Equal(t, []int{0}, g.Cell(x, y, z))
					continue
				}
				// The nearest face of every other cell is 3 Å away.
				assert.Empty(t, g.Cell(x, y, z), "cell (%d,%d,%d)", x, y, z)
			}
		}
	}
	assert.Equal(t, []int{0}, g.Possibilities(r3.Vec{X: 1, Y: 1, Z: 1}))
	assert.InDelta(t, 1.0/8, g.AverageNumPossibilities(), 1e-12)
}

func TestNew_AtomNearSharedFace(t *testing.T) {
	g := New(newPointSet(r3.Vec{X: 2.5, Y: 1, Z: 1}), DimsForBox(cube(0, 6)), 1, nil)

	assert.Equal(t, []int{0}, g.Cell(0, 0, 0))
	assert.Equal(t, []int{0}, g.Cell(1, 0, 0))
	assert.Empty(t, g.Cell(0, 1, 0))
	assert.Empty(t, g.Cell(1, 1, 1))
}

func TestNew_CoarseFilter(t *testing.T) {
	ps := newPointSet(
		r3.Vec{X: 3, Y: 3, Z: 3},  // inside
		r3.Vec{X: -1, Y: 3, Z: 3}, // 1 Å outside, within cutoff
		r3.Vec{X: 20, Y: 3, Z: 3}, // far away
	)
	ps.add(r3.Vec{X: 2, Y: 2, Z: 2}, 5) // ineligible type
	ps.numTypes = 2

	g := New(ps, DimsForBox(cube(0, 6)), 4, nil)

	assert.Equal(t, []int{0, 1}, g.Relevant())
	for i := range g.NumCells() {
		assert.NotContains(t, g.cells[i], 2)
		assert.NotContains(t, g.cells[i], 3)
	}
}

func TestNew_CutoffBoundaryIsExclusive(t *testing.T) {
	ps := newPointSet(r3.Vec{X: 5, Y: 1, Z: 1}) // exactly 2 Å from the box
	gd := NewDims(cube(0, 3), [3]int{1, 1, 1})

	g := New(ps, gd, 4, nil)
	assert.Empty(t, g.Relevant())
	assert.Empty(t, g.Cell(0, 0, 0))

	g = New(ps, gd, 4.0001, nil)
	assert.Equal(t, []int{0}, g.Cell(0, 0, 0))
}

func TestNew_InsertionOrderFollowsScan(t *testing.T) {
	ps := newPointSet(
		r3.Vec{X: 1, Y: 1, Z: 1},
		r3.Vec{X: 0.5, Y: 0.5, Z: 0.5},
		r3.Vec{X: 2, Y: 2, Z: 2},
	)
	g := New(ps, NewDims(cube(0, 3), [3]int{1, 1, 1}), 1, nil)
	assert.Equal(t, []int{0, 1, 2}, g.Cell(0, 0, 0))
}

// Every eligible atom within the cutoff of a query point must be a candidate
// for that point.
func TestPossibilities_NoFalseNegatives(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	box := cube(0, 12)
	ps := randomPointSet(rng, 300, cube(-5, 17))
	const cutoffSqr = 16.0

	g := New(ps, DimsForBox(box), cutoffSqr, nil)
	require.Equal(t, [3]int{4, 4, 4}, g.Dims().Resolution())

	for range 2000 {
		q := r3.Vec{X: 12 * rng.Float64(), Y: 12 * rng.Float64(), Z: 12 * rng.Float64()}
		cands := g.Possibilities(q)
		for i := range ps.Len() {
			if ps.Type(i) >= ps.NumTypes() {
				assert.NotContains(t, cands, i)
				continue
			}
			if r3.Norm2(r3.Sub(ps.Coords(i), q)) < cutoffSqr {
				require.Contains(t, cands, i, "atom %d missing for query %v", i, q)
			}
		}
	}
}

func TestPossibilities_SameCellSharesList(t *testing.T) {
	ps := newPointSet(r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{X: 2, Y: 2, Z: 2})
	g := New(ps, DimsForBox(cube(0, 6)), 9, nil)

	a := g.Possibilities(r3.Vec{X: 0.2, Y: 0.7, Z: 2.9})
	b := g.Possibilities(r3.Vec{X: 2.5, Y: 1.5, Z: 0.1})
	require.NotEmpty(t, a)
	assert.Equal(t, a, b)
	assert.Same(t, &a[0], &b[0])

	again := g.Possibilities(r3.Vec{X: 0.2, Y: 0.7, Z: 2.9})
	assert.Same(t, &a[0], &again[0])
}

func TestPossibilities_SharedFace(t *testing.T) {
	ps := newPointSet(r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{X: 5, Y: 1, Z: 1})
	g := New(ps, DimsForBox(cube(0, 6)), 1, nil)

	x, y, z := g.CellOf(r3.Vec{X: 3, Y: 1, Z: 1})
	assert.Equal(t, [3]int{1, 0, 0}, [3]int{x, y, z})

	got := g.Possibilities(r3.Vec{X: 3, Y: 1, Z: 1})
	assert.Equal(t, g.Cell(1, 0, 0), got)
}

func TestPossibilities_FarCorner(t *testing.T) {
	ps := newPointSet(r3.Vec{X: 6, Y: 6, Z: 6})
	g := New(ps, NewDims(cube(0, 6), [3]int{2, 3, 4}), 1, nil)

	x, y, z := g.CellOf(r3.Vec{X: 6, Y: 6, Z: 6})
	assert.Equal(t, [3]int{1, 2, 3}, [3]int{x, y, z})
	assert.Equal(t, []int{0}, g.Possibilities(r3.Vec{X: 6, Y: 6, Z: 6}))
}

func TestPossibilities_Tolerance(t *testing.T) {
	g := New(newPointSet(), DimsForBox(cube(0, 6)), 1, &Options{Epsilon: 0.01})

	assert.NotPanics(t, func() { g.Possibilities(r3.Vec{X: -0.005, Y: 3, Z: 6.005}) })
	x, y, z := g.CellOf(r3.Vec{X: -0.005, Y: 3, Z: 6.005})
	assert.Equal(t, [3]int{0, 1, 1}, [3]int{x, y, z})

	tests := []struct {
		name string
		p    r3.Vec
	}{
		{"below x", r3.Vec{X: -0.02, Y: 1, Z: 1}},
		{"above y", r3.Vec{X: 1, Y: 6.02, Z: 1}},
		{"far z", r3.Vec{X: 1, Y: 1, Z: 100}},
		{"nan", r3.Vec{X: math.NaN(), Y: 1, Z: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { g.Possibilities(tt.p) })
		})
	}
}

func TestPossibilities_FlatAxis(t *testing.T) {
	box := r3.Box{Min: r3.Vec{X: 0, Y: 0, Z: 2}, Max: r3.Vec{X: 6, Y: 6, Z: 2}}
	gd := DimsForBox(box)
	require.Equal(t, [3]int{2, 2, 1}, gd.Resolution())

	g := New(newPointSet(r3.Vec{X: 4, Y: 4, Z: 2.5}), gd, 1, nil)
	assert.Equal(t, []int{0}, g.Possibilities(r3.Vec{X: 4, Y: 4, Z: 2}))
}

func TestAverageNumPossibilities_Empty(t *testing.T) {
	g := New(newPointSet(), NewDims(cube(0, 9), [3]int{3, 2, 1}), 100, nil)
	assert.Equal(t, 0.0, g.AverageNumPossibilities())
	assert.Equal(t, 6, g.NumCells())
}

func TestNew_ParallelMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	box := r3.Box{Min: r3.Vec{X: -10, Y: 0, Z: 5}, Max: r3.Vec{X: 14, Y: 9, Z: 20}}
	ps := randomPointSet(rng, 400, r3.Box{Min: r3.Sub(box.Min, r3.Vec{X: 4, Y: 4, Z: 4}), Max: r3.Add(box.Max, r3.Vec{X: 4, Y: 4, Z: 4})})
	gd := DimsForBox(box)

	seq := New(ps, gd, 12.25, nil)
	par := New(ps, gd, 12.25, &Options{Workers: 4})

	if diff := cmp.Diff(seq.cells, par.cells, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("parallel build differs (-seq +par):\n%s", diff)
	}
	assert.Equal(t, seq.Relevant(), par.Relevant())
}

func TestNew_Panics(t *testing.T) {
	ps := newPointSet()
	good := DimsForBox(cube(0, 6))

	bad := good
	bad[1].Begin, bad[1].End = 5, 1
	assert.Panics(t, func() { New(ps, bad, 1, nil) })

	zero := good
	zero[2].N = 0
	assert.Panics(t, func() { New(ps, zero, 1, nil) })

	assert.Panics(t, func() { New(ps, good, -1, nil) })
	assert.Panics(t, func() { New(ps, good, math.NaN(), nil) })
}

func TestIndexToCoord(t *testing.T) {
	box := r3.Box{Min: r3.Vec{X: -3, Y: 0, Z: 10}, Max: r3.Vec{X: 3, Y: 4, Z: 19}}
	g := New(newPointSet(), NewDims(box, [3]int{2, 4, 3}), 0, nil)

	assert.Equal(t, box.Min, g.IndexToCoord(0, 0, 0))
	assert.Equal(t, box.Max, g.IndexToCoord(2, 4, 3))
	assert.Equal(t, r3.Vec{X: 0, Y: 1, Z: 13}, g.IndexToCoord(1, 1, 1))
}

func TestCell_OutOfRangePanics(t *testing.T) {
	g := New(newPointSet(), DimsForBox(cube(0, 6)), 1, nil)
	assert.Panics(t, func() { g.Cell(2, 0, 0) })
	assert.Panics(t, func() { g.Cell(0, -1, 0) })
}

func TestAccessors(t *testing.T) {
	gd := DimsForBox(cube(0, 6))
	g := New(newPointSet(), gd, 2.5, &Options{Epsilon: 0.5})

	assert.Equal(t, gd, g.Dims())
	assert.Equal(t, 2.5, g.CutoffSqr())
	assert.Equal(t, 0.5, g.Epsilon())

	d := New(newPointSet(), gd, 2.5, &Options{})
	assert.Equal(t, DefaultEpsilon, d.Epsilon())

	neg := New(newPointSet(), gd, 2.5, &Options{Epsilon: -1})
	assert.Equal(t, DefaultEpsilon, neg.Epsilon())
}

func TestClampCell(t *testing.T) {
	tests := []struct {
		f    float64
		last int
		want int
	}{
		{-0.5, 3, 0},
		{0, 3, 0},
		{0.99, 3, 0},
		{1, 3, 1},
		{2.5, 3, 2},
		{3, 3, 3},
		{4, 3, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampCell(tt.f, tt.last), "clampCell(%g, %d)", tt.f, tt.last)
	}
}

func TestRelevant_IsSorted(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	ps := randomPointSet(rng, 100, cube(-2, 8))
	g := New(ps, DimsForBox(cube(0, 6)), 4, nil)
	assert.True(t, slices.IsSorted(g.Relevant()))
}

// A built grid is read-only, so any number of goroutines may query it.
// Run with -race to check.
func TestGrid_ConcurrentQueries(t *testing.T) {
	box := cube(0, 12)
	rng := rand.New(rand.NewPCG(5, 9))
	g := New(randomPointSet(rng, 200, cube(-3, 15)), DimsForBox(box), 9, &Options{Workers: 4})

	queries := make([]r3.Vec, 64)
	for i := range queries {
		queries[i] = r3.Vec{X: rng.Float64() * 12, Y: rng.Float64() * 12, Z: rng.Float64() * 12}
	}
	want := make([][]int, len(queries))
	for i, q := range queries {
		want[i] = slices.Clone(g.Possibilities(q))
	}
	wantUnion := g.Union(cube(2, 7)).ToArray()

	const goroutines = 8
	gotUnion := make([][]uint32, goroutines)
	mismatches := make([]int, goroutines)
	var wg sync.WaitGroup
	for w := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, q := range queries {
				if !slices.Equal(want[i], g.Possibilities(q)) {
					mismatches[w]++
				}
			}
			gotUnion[w] = g.Union(cube(2, 7)).ToArray()
		}()
	}
	wg.Wait()

	for w := range goroutines {
		assert.Zero(t, mismatches[w], "goroutine %d", w)
		assert.Equal(t, wantUnion, gotUnion[w], "goroutine %d", w)
	}
}
