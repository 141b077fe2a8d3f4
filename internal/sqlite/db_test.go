package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	tables := []string{
		"strategies",
		"projects",
		"monthly_events",
		"snapshots",
		"audit_log",
	}

	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}
}

// TestForeignKeys verifies that foreign key constraints are enabled
func TestForeignKeys(t *testing.T) {
	db := NewTestDB(t)

	var enabled int
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled)
	require.NoError(t, err)
	require.Equal(t, 1, enabled, "foreign keys not enabled")
}

// TestSchemaConstraints verifies the CHECK and FK constraints on the event ledger
func TestSchemaConstraints(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO strategies (id, name, normalized_name) VALUES (?, ?, ?)`,
		"s1", "Growth", "growth")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		`INSERT INTO projects (id, name, champion, strategy_id, status, created_snapshot, updated_snapshot)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		"P1", "Pilot", "Kim", "s1", "approved", "2026-01-31", "2026-01-31")
	require.NoError(t, err)

	// Event referencing a missing project must fail
	_, err = db.ExecContext(ctx,
		`INSERT INTO monthly_events (project_id, month_key, kind, count, source_snapshot_date)
		 VALUES (?, ?, ?, ?, ?)`,
		"missing", "2026-01", "proposal", 1, "2026-01-31")
	require.Error(t, err, "should fail with invalid project_id")

	// Unknown kind must fail
	_, err = db.ExecContext(ctx,
		`INSERT INTO monthly_events (project_id, month_key, kind, count, source_snapshot_date)
		 VALUES (?, ?, ?, ?, ?)`,
		"P1", "2026-01", "rejection", 1, "2026-01-31")
	require.Error(t, err, "should fail with unknown kind")

	// Negative count must fail
	_, err = db.ExecContext(ctx,
		`INSERT INTO monthly_events (project_id, month_key, kind, count, source_snapshot_date)
		 VALUES (?, ?, ?, ?, ?)`,
		"P1", "2026-01", "proposal", -1, "2026-01-31")
	require.Error(t, err, "should fail with negative count")

	_, err = db.ExecContext(ctx,
		`INSERT INTO monthly_events (project_id, month_key, kind, count, source_snapshot_date)
		 VALUES (?, ?, ?, ?, ?)`,
		"P1", "2026-01", "proposal", 3, "2026-01-31")
	require.NoError(t, err)
}
