package grid

import (
	"fmt"
	"time"
)

// SnapshotRecord is the persisted form of a grid, one row of the
// grid_snapshots table.
type SnapshotRecord struct {
	SnapshotID       string  // set by the store when empty
	Receptor         string  // receptor name or path the grid was built from
	Typing           string  // atom typing used for eligibility
	CutoffSqr        float64 // squared cutoff
	NX, NY, NZ       int     // resolution
	AvgPossibilities float64 // AverageNumPossibilities at build time
	GridBlob         []byte  // Snapshot output
	CreatedAtNs      int64
}

// SnapshotStore persists snapshot records. Implemented by gridstore.Store.
type SnapshotStore interface {
	InsertSnapshot(rec *SnapshotRecord) error
}

// SnapshotLoader fetches snapshot records by id.
type SnapshotLoader interface {
	GetSnapshot(id string) (*SnapshotRecord, error)
}

// Persist serialises the grid and writes it via store, returning the
// snapshot id assigned by the store.
func (g *Grid) Persist(store SnapshotStore, receptor, typing string) (string, error) {
	if store == nil {
		return "", fmt.Errorf("nil snapshot store")
	}
	blob, err := g.Snapshot()
	if err != nil {
		return "", err
	}

	n := g.dims.Resolution()
	rec := &SnapshotRecord{
		Receptor:         receptor,
		Typing:           typing,
		CutoffSqr:        g.cutoffSqr,
		NX:               n[0],
		NY:               n[1],
		NZ:               n[2],
		AvgPossibilities: g.AverageNumPossibilities(),
		GridBlob:         blob,
		CreatedAtNs:      time.Now().UnixNano(),
	}
	if err := store.InsertSnapshot(rec); err != nil {
		opsf("failed to persist grid for %s: %v", receptor, err)
		return "", fmt.Errorf("persist grid: %w", err)
	}
	diagf("persisted grid %s for %s (%d bytes)", rec.SnapshotID, receptor, len(blob))
	return rec.SnapshotID, nil
}

// Load restores the grid stored under id.
func Load(store SnapshotLoader, id string) (*Grid, error) {
	rec, err := store.GetSnapshot(id)
	if err != nil {
		return nil, err
	}
	g, err := Restore(rec.GridBlob)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	if got := g.dims.Resolution(); got != [3]int{rec.NX, rec.NY, rec.NZ} {
		return nil, fmt.Errorf("snapshot %s: resolution %v does not match record %dx%dx%d",
			id, got, rec.NX, rec.NY, rec.NZ)
	}
	return g, nil
}
