package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/axpulse/axpulse/internal/repository"
	"github.com/axpulse/axpulse/internal/snapshot"
)

// SnapshotRepository implements repository.SnapshotRepository for SQLite
type SnapshotRepository struct {
	q dbtx
}

// Create inserts a snapshot record. The UNIQUE index on snapshot_date makes
// this the commit-time guard against duplicate ingestion.
func (r *SnapshotRepository) Create(ctx context.Context, snap *snapshot.Snapshot) error {
	query := `
		INSERT INTO snapshots (id, snapshot_date, source_filename, ingested_at, rows_processed, rows_rejected)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.q.ExecContext(ctx, query,
		snap.ID,
		snap.Date,
		snap.SourceFilename,
		snap.IngestedAt,
		snap.RowsProcessed,
		snap.RowsRejected,
	)

	if err != nil {
		if sentinel := constraintSentinel(err); sentinel != nil {
			return sentinel
		}
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	return nil
}

// GetByDate retrieves a snapshot by its date
func (r *SnapshotRepository) GetByDate(ctx context.Context, date string) (*snapshot.Snapshot, error) {
	query := `
		SELECT id, snapshot_date, source_filename, ingested_at, rows_processed, rows_rejected
		FROM snapshots
		WHERE snapshot_date = ?
	`

	var snap snapshot.Snapshot
	err := r.q.QueryRowContext(ctx, query, date).Scan(
		&snap.ID,
		&snap.Date,
		&snap.SourceFilename,
		&snap.IngestedAt,
		&snap.RowsProcessed,
		&snap.RowsRejected,
	)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	return &snap, nil
}

// LatestDate returns the greatest ingested snapshot date, or "" when the
// ledger is empty
func (r *SnapshotRepository) LatestDate(ctx context.Context) (string, error) {
	var date sql.NullString
	err := r.q.QueryRowContext(ctx, `SELECT MAX(snapshot_date) FROM snapshots`).Scan(&date)
	if err != nil {
		return "", fmt.Errorf("failed to get latest snapshot date: %w", err)
	}
	if !date.Valid {
		return "", nil
	}
	return date.String, nil
}

// List returns all snapshots ordered by date
func (r *SnapshotRepository) List(ctx context.Context) ([]snapshot.Snapshot, error) {
	query := `
		SELECT id, snapshot_date, source_filename, ingested_at, rows_processed, rows_rejected
		FROM snapshots
		ORDER BY snapshot_date ASC
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []snapshot.Snapshot
	for rows.Next() {
		var snap snapshot.Snapshot
		if err := rows.Scan(
			&snap.ID,
			&snap.Date,
			&snap.SourceFilename,
			&snap.IngestedAt,
			&snap.RowsProcessed,
			&snap.RowsRejected,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}

	return snaps, nil
}
