// Package gridstore persists neighbour grid snapshots in SQLite.
//
// The schema lives in migrations/ and is applied with golang-migrate when a
// store is opened. Grid encoding is owned by package grid; this package
// only moves SnapshotRecord rows in and out of the database.
package gridstore
