// Package ingest reconciles parsed snapshots and direct edits onto the
// canonical store. It is the only writer: every mutation runs inside one
// store transaction and emits exactly one audit entry.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/axpulse/axpulse/internal/domain/audit"
	"github.com/axpulse/axpulse/internal/domain/event"
	"github.com/axpulse/axpulse/internal/domain/project"
	"github.com/axpulse/axpulse/internal/domain/strategy"
	"github.com/axpulse/axpulse/internal/repository"
	"github.com/axpulse/axpulse/internal/snapshot"
	"github.com/axpulse/axpulse/internal/workbook"
)

// Service handles snapshot ingestion and the per-entity update paths used by
// direct edits.
type Service struct {
	store  repository.Store
	logger *slog.Logger
}

// NewService creates a new ingest service.
func NewService(store repository.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Report summarizes one successful ingestion.
type Report struct {
	SnapshotDate      string   `json:"snapshot_date"`
	AcceptedRows      int      `json:"accepted_rows"`
	RejectedRows      int      `json:"rejected_rows"`
	ProjectsCreated   int      `json:"projects_created"`
	ProjectsUpdated   int      `json:"projects_updated"`
	StrategiesCreated int      `json:"strategies_created"`
	EventsRecorded    int      `json:"events_recorded"`
	Warnings          []string `json:"warnings,omitempty"`
}

// Ingest parses and commits one snapshot document. The filename carries the
// snapshot date (YYYY-MM-DD.xlsx). Either the whole snapshot commits or none
// of it does.
func (s *Service) Ingest(ctx context.Context, doc io.Reader, filename, actor string) (*Report, error) {
	date, err := snapshot.DateFromFilename(filename)
	if err != nil {
		return nil, err
	}

	wb, err := workbook.Open(doc)
	if err != nil {
		return nil, err
	}

	parsed, err := snapshot.Parse(wb, date)
	if err != nil {
		return nil, err
	}

	return s.IngestParsed(ctx, parsed, filename, actor)
}

// IngestParsed commits an already-parsed snapshot in a single transaction.
func (s *Service) IngestParsed(ctx context.Context, parsed *snapshot.ParseResult, filename, actor string) (*Report, error) {
	report := &Report{
		SnapshotDate: parsed.Date,
		AcceptedRows: parsed.RowCount(),
		Warnings:     parsed.Warnings,
	}

	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Snapshots().GetByDate(ctx, parsed.Date); err == nil {
			return fmt.Errorf("%w: %s", ErrDuplicateSnapshot, parsed.Date)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("checking snapshot date: %w", err)
		}

		snap := &snapshot.Snapshot{
			ID:             uuid.NewString(),
			Date:           parsed.Date,
			SourceFilename: filename,
			IngestedAt:     time.Now().UTC(),
			RowsProcessed:  parsed.RowCount(),
		}
		// First write of the transaction: the UNIQUE snapshot_date index
		// closes the check-then-act race against a concurrent ingestion.
		if err := repos.Snapshots().Create(ctx, snap); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("%w: %s", ErrDuplicateSnapshot, parsed.Date)
			}
			return fmt.Errorf("creating snapshot record: %w", err)
		}
		if err := s.emit(ctx, repos, audit.EntitySnapshot, snap.Date, audit.ChangeCreate, nil, snap, actor); err != nil {
			return err
		}

		strategies := make(map[string]*strategy.Strategy)
		for _, row := range parsed.Projects {
			if err := s.reconcileProject(ctx, repos, strategies, row, parsed.Date, actor, report); err != nil {
				return err
			}
		}

		for _, key := range parsed.MonthKeys {
			for _, row := range parsed.Months[key] {
				counts := map[event.Kind]int{
					event.KindProposal: row.Proposals,
					event.KindApproval: row.Approvals,
				}
				for _, kind := range event.Kinds {
					if err := s.reconcileEvent(ctx, repos, row.ProjectID, key, kind, counts[kind], parsed.Date, actor); err != nil {
						return err
					}
					report.EventsRecorded++
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("snapshot ingested",
		"date", parsed.Date,
		"projects_created", report.ProjectsCreated,
		"projects_updated", report.ProjectsUpdated,
		"events", report.EventsRecorded,
	)
	return report, nil
}

// reconcileProject inserts a new project or updates the mutable fields of an
// existing one, emitting one audit entry per actual change.
func (s *Service) reconcileProject(ctx context.Context, repos repository.Repositories, cache map[string]*strategy.Strategy, row snapshot.MasterRow, date, actor string, report *Report) error {
	strat, err := s.resolveStrategy(ctx, repos, cache, row.Strategy, actor, report)
	if err != nil {
		return err
	}

	existing, err := repos.Projects().Get(ctx, row.ProjectID)
	if errors.Is(err, repository.ErrNotFound) {
		proj := &project.Project{
			ID:              row.ProjectID,
			Name:            row.Name,
			Champion:        row.Champion,
			StrategyID:      strat.ID,
			Status:          row.Status,
			CreatedSnapshot: date,
			UpdatedSnapshot: date,
		}
		if err := repos.Projects().Create(ctx, proj); err != nil {
			return fmt.Errorf("creating project %s: %w", proj.ID, err)
		}
		report.ProjectsCreated++
		return s.emit(ctx, repos, audit.EntityProject, proj.ID, audit.ChangeCreate, nil, proj, actor)
	}
	if err != nil {
		return fmt.Errorf("getting project %s: %w", row.ProjectID, err)
	}

	updated := *existing
	updated.Name = row.Name
	updated.Champion = row.Champion
	updated.StrategyID = strat.ID
	updated.Status = row.Status
	if updated == *existing {
		return nil
	}

	updated.UpdatedSnapshot = date
	if err := repos.Projects().Update(ctx, &updated); err != nil {
		return fmt.Errorf("updating project %s: %w", updated.ID, err)
	}
	report.ProjectsUpdated++
	return s.emit(ctx, repos, audit.EntityProject, updated.ID, audit.ChangeUpdate, existing, &updated, actor)
}

// resolveStrategy returns the strategy for a raw name, creating it on first
// encounter. Names are matched after trimming and case folding.
func (s *Service) resolveStrategy(ctx context.Context, repos repository.Repositories, cache map[string]*strategy.Strategy, name, actor string, report *Report) (*strategy.Strategy, error) {
	normalized := strategy.Normalize(name)
	if normalized == "" {
		return nil, strategy.ErrEmptyName
	}
	if strat, ok := cache[normalized]; ok {
		return strat, nil
	}

	strat, err := repos.Strategies().GetByName(ctx, normalized)
	if errors.Is(err, repository.ErrNotFound) {
		strat = &strategy.Strategy{
			ID:             uuid.NewString(),
			Name:           strings.TrimSpace(name),
			NormalizedName: normalized,
		}
		if err := repos.Strategies().Create(ctx, strat); err != nil {
			return nil, fmt.Errorf("creating strategy %q: %w", strat.Name, err)
		}
		if report != nil {
			report.StrategiesCreated++
		}
		if err := s.emit(ctx, repos, audit.EntityStrategy, strat.ID, audit.ChangeCreate, nil, strat, actor); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("getting strategy %q: %w", name, err)
	}

	cache[normalized] = strat
	return strat, nil
}

// reconcileEvent records the latest-known count for a (project, month, kind)
// tuple: a later snapshot overwrites what an earlier one reported for the
// same month, while the ledger keeps the earlier version for as-of reads.
func (s *Service) reconcileEvent(ctx context.Context, repos repository.Repositories, projectID string, key event.MonthKey, kind event.Kind, count int, date, actor string) error {
	prev, err := repos.Events().Current(ctx, projectID, key, kind)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("getting current event: %w", err)
	}

	evt := &event.MonthlyEvent{
		ProjectID:          projectID,
		MonthKey:           key,
		Kind:               kind,
		Count:              count,
		SourceSnapshotDate: date,
	}
	if _, err := repos.Events().Put(ctx, evt); err != nil {
		return fmt.Errorf("recording event %s/%s/%s: %w", projectID, key, kind, err)
	}

	entityID := eventEntityID(projectID, key, kind)
	if prev == nil {
		return s.emit(ctx, repos, audit.EntityEvent, entityID, audit.ChangeCreate, nil, evt, actor)
	}
	return s.emit(ctx, repos, audit.EntityEvent, entityID, audit.ChangeUpdate, prev, evt, actor)
}

// ProjectUpdate carries the optional field edits of a direct project update.
// Strategy is a strategy name, resolved (and created if unseen) like during
// ingestion.
type ProjectUpdate struct {
	Name     *string
	Champion *string
	Strategy *string
	Status   *string
}

// UpdateProject applies a direct edit to one project. It shares the
// reconciler's update path: only changed fields are written and exactly one
// audit entry is emitted.
func (s *Service) UpdateProject(ctx context.Context, id string, upd ProjectUpdate, actor string) (*project.Project, error) {
	var result *project.Project
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		existing, err := repos.Projects().Get(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", project.ErrProjectNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("getting project %s: %w", id, err)
		}

		updated := *existing
		if err := applyField(&updated.Name, upd.Name); err != nil {
			return err
		}
		if err := applyField(&updated.Champion, upd.Champion); err != nil {
			return err
		}
		if err := applyField(&updated.Status, upd.Status); err != nil {
			return err
		}
		if upd.Strategy != nil {
			strat, err := s.resolveStrategy(ctx, repos, make(map[string]*strategy.Strategy), *upd.Strategy, actor, nil)
			if err != nil {
				return err
			}
			updated.StrategyID = strat.ID
		}

		if updated == *existing {
			result = existing
			return nil
		}

		if err := repos.Projects().Update(ctx, &updated); err != nil {
			return fmt.Errorf("updating project %s: %w", id, err)
		}
		if err := s.emit(ctx, repos, audit.EntityProject, id, audit.ChangeUpdate, existing, &updated, actor); err != nil {
			return err
		}
		result = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpsertMonthlyEvent applies a direct edit to one monthly count. An existing
// current value is overwritten in place; a new tuple is recorded against the
// latest ingested snapshot date.
func (s *Service) UpsertMonthlyEvent(ctx context.Context, projectID string, key event.MonthKey, kind event.Kind, count int, actor string) (*event.MonthlyEvent, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: %d", event.ErrNegativeCount, count)
	}

	var result *event.MonthlyEvent
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Projects().Get(ctx, projectID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: %s", project.ErrProjectNotFound, projectID)
			}
			return fmt.Errorf("getting project %s: %w", projectID, err)
		}

		prev, err := repos.Events().Current(ctx, projectID, key, kind)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("getting current event: %w", err)
		}

		source := ""
		if prev != nil {
			source = prev.SourceSnapshotDate
		} else {
			latest, err := repos.Snapshots().LatestDate(ctx)
			if err != nil {
				return fmt.Errorf("getting latest snapshot date: %w", err)
			}
			source = latest
			if source == "" {
				source = time.Now().UTC().Format("2006-01-02")
			}
		}

		evt := &event.MonthlyEvent{
			ProjectID:          projectID,
			MonthKey:           key,
			Kind:               kind,
			Count:              count,
			SourceSnapshotDate: source,
		}
		if _, err := repos.Events().Put(ctx, evt); err != nil {
			return fmt.Errorf("recording event: %w", err)
		}

		entityID := eventEntityID(projectID, key, kind)
		if prev == nil {
			if err := s.emit(ctx, repos, audit.EntityEvent, entityID, audit.ChangeCreate, nil, evt, actor); err != nil {
				return err
			}
		} else if err := s.emit(ctx, repos, audit.EntityEvent, entityID, audit.ChangeUpdate, prev, evt, actor); err != nil {
			return err
		}
		result = evt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeprecateStrategy flags a strategy as no longer assignable. Strategies
// referenced by projects are never deleted.
func (s *Service) DeprecateStrategy(ctx context.Context, id string, deprecated bool, actor string) (*strategy.Strategy, error) {
	var result *strategy.Strategy
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		existing, err := repos.Strategies().Get(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", strategy.ErrStrategyNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("getting strategy %s: %w", id, err)
		}
		if existing.Deprecated == deprecated {
			result = existing
			return nil
		}

		if err := repos.Strategies().SetDeprecated(ctx, id, deprecated); err != nil {
			return fmt.Errorf("updating strategy %s: %w", id, err)
		}
		updated := *existing
		updated.Deprecated = deprecated
		if err := s.emit(ctx, repos, audit.EntityStrategy, id, audit.ChangeUpdate, existing, &updated, actor); err != nil {
			return err
		}
		result = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) emit(ctx context.Context, repos repository.Repositories, entityType, entityID string, kind audit.ChangeKind, before, after any, actor string) error {
	entry, err := audit.NewEntry(entityType, entityID, kind, before, after, actor)
	if err != nil {
		return fmt.Errorf("building audit entry: %w", err)
	}
	if err := repos.Audit().Record(ctx, entry); err != nil {
		return fmt.Errorf("recording audit entry: %w", err)
	}
	return nil
}

func applyField(dst *string, src *string) error {
	if src == nil {
		return nil
	}
	value := strings.TrimSpace(*src)
	if value == "" {
		return project.ErrInvalidInput
	}
	*dst = value
	return nil
}

func eventEntityID(projectID string, key event.MonthKey, kind event.Kind) string {
	return fmt.Sprintf("%s/%s/%s", projectID, key, kind)
}
