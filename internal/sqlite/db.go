package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema.
func (db *DB) RunMigrations() error {
	migration := `
-- Strategy categories, created lazily on first reference
CREATE TABLE IF NOT EXISTS strategies (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    normalized_name TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    deprecated INTEGER NOT NULL DEFAULT 0
);

-- Projects, keyed by the stable spreadsheet project code
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    champion TEXT NOT NULL,
    strategy_id TEXT NOT NULL,
    status TEXT NOT NULL,
    created_snapshot TEXT NOT NULL,
    updated_snapshot TEXT NOT NULL,
    FOREIGN KEY (strategy_id) REFERENCES strategies(id)
);
CREATE INDEX IF NOT EXISTS idx_projects_champion ON projects(champion);
CREATE INDEX IF NOT EXISTS idx_projects_strategy ON projects(strategy_id);

-- Monthly-event ledger: one row per (project, month, kind, source snapshot).
-- The canonical current value of a tuple is its row with the greatest
-- source_snapshot_date.
CREATE TABLE IF NOT EXISTS monthly_events (
    project_id TEXT NOT NULL,
    month_key TEXT NOT NULL,
    kind TEXT NOT NULL CHECK(kind IN ('proposal', 'approval')),
    count INTEGER NOT NULL CHECK(count >= 0),
    source_snapshot_date TEXT NOT NULL,
    PRIMARY KEY (project_id, month_key, kind, source_snapshot_date),
    FOREIGN KEY (project_id) REFERENCES projects(id)
);
CREATE INDEX IF NOT EXISTS idx_events_month ON monthly_events(month_key);
CREATE INDEX IF NOT EXISTS idx_events_source ON monthly_events(source_snapshot_date);

-- Append-only ledger of ingested snapshots; snapshot_date uniqueness closes
-- the duplicate-ingestion race at commit time.
CREATE TABLE IF NOT EXISTS snapshots (
    id TEXT PRIMARY KEY,
    snapshot_date TEXT NOT NULL UNIQUE,
    source_filename TEXT NOT NULL,
    ingested_at TIMESTAMP NOT NULL,
    rows_processed INTEGER NOT NULL DEFAULT 0,
    rows_rejected INTEGER NOT NULL DEFAULT 0
);

-- Audit trail: exactly one row per entity mutation
CREATE TABLE IF NOT EXISTS audit_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_type TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    change_kind TEXT NOT NULL CHECK(change_kind IN ('create', 'update', 'delete')),
    before_state TEXT NOT NULL DEFAULT '',
    after_state TEXT NOT NULL DEFAULT '',
    actor TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_log(created_at);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
