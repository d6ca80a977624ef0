// Package grid is a static neighbour grid over receptor atoms.
//
// A box is split into a regular lattice of cells. For every cell the grid
// stores, at construction time, the indices of every eligible atom that
// lies closer than a cutoff to some point of that cell. A query then maps a
// coordinate to its cell and returns that list, so scoring code looking for
// atoms near a ligand position scans a handful of candidates rather than
// the whole receptor.
//
// Key types: Grid, Dims, AtomSource.
//
// The grid is build-once: nothing mutates it after New or Restore returns,
// so a *Grid may be shared by any number of concurrent readers. Caller
// contract violations (inverted boxes, queries outside the box) panic.
package grid
