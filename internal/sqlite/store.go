package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/axpulse/axpulse/internal/repository"
)

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx, letting
// each repository run against either an autocommit connection or a
// transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements repository.Store over SQLite.
type Store struct {
	db *DB
	repoSet
}

// repoSet binds the per-entity repositories to one dbtx handle.
type repoSet struct {
	projects   *ProjectRepository
	strategies *StrategyRepository
	events     *EventRepository
	snapshots  *SnapshotRepository
	audit      *AuditRepository
}

func newRepoSet(q dbtx) repoSet {
	return repoSet{
		projects:   &ProjectRepository{q: q},
		strategies: &StrategyRepository{q: q},
		events:     &EventRepository{q: q},
		snapshots:  &SnapshotRepository{q: q},
		audit:      &AuditRepository{q: q},
	}
}

func (s repoSet) Projects() repository.ProjectRepository    { return s.projects }
func (s repoSet) Strategies() repository.StrategyRepository { return s.strategies }
func (s repoSet) Events() repository.EventRepository        { return s.events }
func (s repoSet) Snapshots() repository.SnapshotRepository  { return s.snapshots }
func (s repoSet) Audit() repository.AuditRepository         { return s.audit }

// NewStore creates a Store over db.
func NewStore(db *DB) *Store {
	return &Store{db: db, repoSet: newRepoSet(db)}
}

// InTx runs fn with all repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise, so a
// failing ingestion leaves no trace in the store.
func (s *Store) InTx(ctx context.Context, fn func(repository.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(newRepoSet(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
