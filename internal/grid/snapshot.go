package grid

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/klauspost/compress/gzip"
)

// snapshotData is the gob-encoded form of a Grid.
type snapshotData struct {
	Dims      Dims
	CutoffSqr float64
	Epsilon   float64
	Relevant  []int
	Cells     [][]int
}

// Snapshot serialises the grid with gob and gzip so it can be stored and
// later restored without rescanning the atoms.
func (g *Grid) Snapshot() ([]byte, error) {
	data := snapshotData{
		Dims:      g.dims,
		CutoffSqr: g.cutoffSqr,
		Epsilon:   g.eps,
		Relevant:  g.relevant,
		Cells:     g.cells,
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(&data); err != nil {
		gz.Close()
		return nil, fmt.Errorf("failed to encode grid: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress grid: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore rebuilds a grid from a Snapshot blob. The restored grid answers
// every query exactly as the original did.
func Restore(blob []byte) (*Grid, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty grid blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var data snapshotData
	if err := gob.NewDecoder(gz).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode grid: %w", err)
	}
	if err := data.Dims.Validate(); err != nil {
		opsf("rejected snapshot: %v", err)
		return nil, fmt.Errorf("invalid grid dims: %w", err)
	}
	if !(data.CutoffSqr >= 0) || !(data.Epsilon > 0) {
		opsf("rejected snapshot: cutoff_sqr=%g epsilon=%g", data.CutoffSqr, data.Epsilon)
		return nil, fmt.Errorf("invalid grid parameters: cutoff_sqr=%g epsilon=%g", data.CutoffSqr, data.Epsilon)
	}
	if len(data.Cells) != data.Dims.Cells() {
		opsf("rejected snapshot: %d cells for %s", len(data.Cells), data.Dims)
		return nil, fmt.Errorf("grid blob has %d cells, dims need %d", len(data.Cells), data.Dims.Cells())
	}

	if err := data.checkIndices(); err != nil {
		opsf("rejected snapshot: %v", err)
		return nil, fmt.Errorf("invalid grid contents: %w", err)
	}

	g := newGrid(data.Dims, data.CutoffSqr, data.Epsilon)
	g.relevant = data.Relevant
	copy(g.cells, data.Cells)
	diagf("restored %s cutoff_sqr=%g", data.Dims, data.CutoffSqr)
	return g, nil
}

// checkIndices verifies the atom lists the way New produces them: Relevant
// is strictly increasing and fits in uint32, and every cell is a strictly
// increasing subset of Relevant.
func (d *snapshotData) checkIndices() error {
	relevant := roaring.New()
	prev := -1
	for _, i := range d.Relevant {
		if i <= prev || int64(i) > math.MaxUint32 {
			return fmt.Errorf("relevant atom %d out of order or range", i)
		}
		relevant.Add(uint32(i))
		prev = i
	}
	for c, cell := range d.Cells {
		prev := -1
		for _, i := range cell {
			if i <= prev {
				return fmt.Errorf("cell %d: atom %d out of order", c, i)
			}
			if int64(i) > math.MaxUint32 || !relevant.Contains(uint32(i)) {
				return fmt.Errorf("cell %d: atom %d not in relevant set", c, i)
			}
			prev = i
		}
	}
	return nil
}
