// Package atoms holds the receptor atoms indexed by the neighbour grid.
//
// Responsibilities: atom typing schemes (element, AutoDock 4, X-Score),
// PDBQT parsing, and bounding boxes over atom coordinates.
// Key types: Atom, Typing, Model.
//
// No grid or storage code is allowed in this package; the grid consumes a
// Model through its AtomSource interface.
package atoms
