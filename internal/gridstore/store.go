package gridstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/banshee-data/dockgrid/internal/grid"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store provides persistence for grid snapshots.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and brings its schema
// up to date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open grid store: %w", err)
	}
	s := &Store{db: db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing database whose schema is already migrated.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertSnapshot writes rec. If rec.SnapshotID is empty a new UUID is
// generated; if rec.CreatedAtNs is zero the current time is used.
func (s *Store) InsertSnapshot(rec *grid.SnapshotRecord) error {
	if rec.SnapshotID == "" {
		rec.SnapshotID = uuid.New().String()
	}
	if rec.CreatedAtNs == 0 {
		rec.CreatedAtNs = time.Now().UnixNano()
	}

	query := `
		INSERT INTO grid_snapshots (
			snapshot_id, receptor, typing, cutoff_sqr, nx, ny, nz,
			avg_possibilities, grid_blob, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		rec.SnapshotID,
		rec.Receptor,
		rec.Typing,
		rec.CutoffSqr,
		rec.NX, rec.NY, rec.NZ,
		rec.AvgPossibilities,
		rec.GridBlob,
		rec.CreatedAtNs,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT snapshot_id, receptor, typing, cutoff_sqr, nx, ny, nz,
	       avg_possibilities, grid_blob, created_at_ns
	FROM grid_snapshots
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*grid.SnapshotRecord, error) {
	var rec grid.SnapshotRecord
	err := row.Scan(
		&rec.SnapshotID,
		&rec.Receptor,
		&rec.Typing,
		&rec.CutoffSqr,
		&rec.NX, &rec.NY, &rec.NZ,
		&rec.AvgPossibilities,
		&rec.GridBlob,
		&rec.CreatedAtNs,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetSnapshot retrieves a snapshot by ID.
func (s *Store) GetSnapshot(id string) (*grid.SnapshotRecord, error) {
	rec, err := scanSnapshot(s.db.QueryRow(selectColumns+` WHERE snapshot_id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return rec, nil
}

// LatestSnapshot returns the most recent snapshot for receptor.
func (s *Store) LatestSnapshot(receptor string) (*grid.SnapshotRecord, error) {
	rec, err := scanSnapshot(s.db.QueryRow(
		selectColumns+` WHERE receptor = ? ORDER BY created_at_ns DESC LIMIT 1`, receptor))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no snapshot for receptor: %s", receptor)
	}
	if err != nil {
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return rec, nil
}

// ListSnapshots returns every snapshot for receptor, newest first, without
// their grid blobs.
func (s *Store) ListSnapshots(receptor string) ([]*grid.SnapshotRecord, error) {
	rows, err := s.db.Query(`
		SELECT snapshot_id, receptor, typing, cutoff_sqr, nx, ny, nz,
		       avg_possibilities, created_at_ns
		FROM grid_snapshots
		WHERE receptor = ?
		ORDER BY created_at_ns DESC
	`, receptor)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []*grid.SnapshotRecord
	for rows.Next() {
		var rec grid.SnapshotRecord
		if err := rows.Scan(
			&rec.SnapshotID,
			&rec.Receptor,
			&rec.Typing,
			&rec.CutoffSqr,
			&rec.NX, &rec.NY, &rec.NZ,
			&rec.AvgPossibilities,
			&rec.CreatedAtNs,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}
