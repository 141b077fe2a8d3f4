// Package repository defines the persistence interfaces for the canonical
// store. Repositories obtained from a Store autocommit; mutations that must
// be atomic run inside InTx, where every repository shares one transaction.
package repository

import (
	"context"

	"github.com/axpulse/axpulse/internal/domain/audit"
	"github.com/axpulse/axpulse/internal/domain/event"
	"github.com/axpulse/axpulse/internal/domain/project"
	"github.com/axpulse/axpulse/internal/domain/strategy"
	"github.com/axpulse/axpulse/internal/snapshot"
)

// ProjectRepository manages project persistence.
type ProjectRepository interface {
	Create(ctx context.Context, proj *project.Project) error
	Get(ctx context.Context, id string) (*project.Project, error)
	Update(ctx context.Context, proj *project.Project) error
	List(ctx context.Context) ([]project.Project, error)
}

// StrategyRepository manages strategy persistence. Strategies are never
// deleted, only deprecated.
type StrategyRepository interface {
	Create(ctx context.Context, strat *strategy.Strategy) error
	Get(ctx context.Context, id string) (*strategy.Strategy, error)
	GetByName(ctx context.Context, normalizedName string) (*strategy.Strategy, error)
	List(ctx context.Context) ([]strategy.Strategy, error)
	SetDeprecated(ctx context.Context, id string, deprecated bool) error
}

// EventRepository manages the monthly-event ledger.
type EventRepository interface {
	// Put upserts a ledger row keyed by (project, month, kind, source
	// snapshot date) and reports whether a new row was created.
	Put(ctx context.Context, evt *event.MonthlyEvent) (created bool, err error)
	// Current returns the latest-known value for a tuple, or ErrNotFound.
	Current(ctx context.Context, projectID string, key event.MonthKey, kind event.Kind) (*event.MonthlyEvent, error)
	// ListCurrent returns the latest-known value per tuple subject to opts.
	ListCurrent(ctx context.Context, opts ListEventsOptions) ([]event.MonthlyEvent, error)
}

// ListEventsOptions filters ledger reads. Zero values mean unbounded.
type ListEventsOptions struct {
	From event.MonthKey
	To   event.MonthKey
	// AsOf restricts the ledger to rows whose source snapshot date is on or
	// before this YYYY-MM-DD date, reconstructing what was known then.
	AsOf string
}

// SnapshotRepository manages the append-only snapshot ledger.
type SnapshotRepository interface {
	Create(ctx context.Context, snap *snapshot.Snapshot) error
	GetByDate(ctx context.Context, date string) (*snapshot.Snapshot, error)
	// LatestDate returns the greatest ingested snapshot date, or "" when no
	// snapshot exists.
	LatestDate(ctx context.Context) (string, error)
	List(ctx context.Context) ([]snapshot.Snapshot, error)
}

// AuditRepository persists the audit trail.
type AuditRepository interface {
	audit.Recorder
	List(ctx context.Context, opts audit.ListOptions) ([]audit.Entry, error)
}

// Repositories groups the per-entity repositories backed by one handle.
type Repositories interface {
	Projects() ProjectRepository
	Strategies() StrategyRepository
	Events() EventRepository
	Snapshots() SnapshotRepository
	Audit() AuditRepository
}

// Store is the root handle on the canonical store. Its repositories
// autocommit; InTx runs fn with repositories bound to a single transaction,
// committing when fn returns nil and rolling back otherwise.
type Store interface {
	Repositories
	InTx(ctx context.Context, fn func(Repositories) error) error
}
