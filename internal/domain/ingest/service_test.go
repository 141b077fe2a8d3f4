package ingest

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/axpulse/axpulse/internal/domain/audit"
	"github.com/axpulse/axpulse/internal/domain/event"
	"github.com/axpulse/axpulse/internal/domain/project"
	"github.com/axpulse/axpulse/internal/domain/strategy"
	"github.com/axpulse/axpulse/internal/repository"
	"github.com/axpulse/axpulse/internal/snapshot"
	"github.com/axpulse/axpulse/internal/sqlite"
)

func newTestService(t *testing.T) (*Service, *sqlite.Store) {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	store := sqlite.NewStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, logger), store
}

func masterRow(id, champion, strat string) snapshot.MasterRow {
	return snapshot.MasterRow{
		ProjectID: id,
		Name:      "Project " + id,
		Champion:  champion,
		Strategy:  strat,
		Status:    "approved",
	}
}

func parseResult(date string, projects []snapshot.MasterRow, months map[event.MonthKey][]snapshot.MonthlyRow) *snapshot.ParseResult {
	result := &snapshot.ParseResult{
		Date:     date,
		Projects: projects,
		Months:   months,
	}
	for key := range months {
		result.MonthKeys = append(result.MonthKeys, key)
	}
	for i := range result.MonthKeys {
		for j := i + 1; j < len(result.MonthKeys); j++ {
			if result.MonthKeys[j].Before(result.MonthKeys[i]) {
				result.MonthKeys[i], result.MonthKeys[j] = result.MonthKeys[j], result.MonthKeys[i]
			}
		}
	}
	return result
}

func TestIngestParsed(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	parsed := parseResult("2026-01-31",
		[]snapshot.MasterRow{
			masterRow("P1", "Kim", "Growth"),
			masterRow("P2", "Lee", " growth "),
			masterRow("P3", "Park", "GROWTH"),
		},
		map[event.MonthKey][]snapshot.MonthlyRow{
			"2026-01": {
				{ProjectID: "P1", Proposals: 3, Approvals: 1},
				{ProjectID: "P2", Proposals: 2, Approvals: 0},
			},
		},
	)

	report, err := svc.IngestParsed(ctx, parsed, "2026-01-31.xlsx", "importer:2026-01-31.xlsx")
	require.NoError(t, err)
	require.Equal(t, "2026-01-31", report.SnapshotDate)
	require.Equal(t, 3, report.ProjectsCreated)
	require.Equal(t, 0, report.ProjectsUpdated)
	require.Equal(t, 1, report.StrategiesCreated, "name variants must resolve to one strategy")
	require.Equal(t, 4, report.EventsRecorded)

	// One strategy entity, keeping the casing of the first encounter
	strategies, err := store.Strategies().List(ctx)
	require.NoError(t, err)
	require.Len(t, strategies, 1)
	require.Equal(t, "Growth", strategies[0].Name)

	projects, err := store.Projects().List(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 3)
	for _, proj := range projects {
		require.Equal(t, strategies[0].ID, proj.StrategyID)
		require.Equal(t, "2026-01-31", proj.CreatedSnapshot)
	}

	current, err := store.Events().Current(ctx, "P1", "2026-01", event.KindProposal)
	require.NoError(t, err)
	require.Equal(t, 3, current.Count)

	// Every mutation carries exactly one audit entry:
	// 1 snapshot + 1 strategy + 3 projects + 4 events
	entries, err := store.Audit().List(ctx, audit.ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 9)
	for _, entry := range entries {
		require.Equal(t, "importer:2026-01-31.xlsx", entry.Actor)
	}

	snaps, err := store.Snapshots().List(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	require.Equal(t, "2026-01-31.xlsx", snaps[0].SourceFilename)
}

func TestIngestParsed_DuplicateDate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	parsed := parseResult("2026-01-31",
		[]snapshot.MasterRow{masterRow("P1", "Kim", "Growth")}, nil)

	_, err := svc.IngestParsed(ctx, parsed, "2026-01-31.xlsx", "admin")
	require.NoError(t, err)

	_, err = svc.IngestParsed(ctx, parsed, "2026-01-31.xlsx", "admin")
	require.ErrorIs(t, err, ErrDuplicateSnapshot)

	// The rejected re-ingestion leaves the store untouched
	snaps, err := store.Snapshots().List(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	projects, err := store.Projects().List(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
}

func TestIngestParsed_Atomicity(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	parsed := parseResult("2026-01-31",
		[]snapshot.MasterRow{
			masterRow("P1", "Kim", "Growth"),
			masterRow("P2", "Lee", "   "), // fails strategy resolution
		}, nil)

	_, err := svc.IngestParsed(ctx, parsed, "2026-01-31.xlsx", "admin")
	require.ErrorIs(t, err, strategy.ErrEmptyName)

	// Nothing from the failed snapshot is visible, including the valid rows
	projects, err := store.Projects().List(ctx)
	require.NoError(t, err)
	require.Empty(t, projects)
	snaps, err := store.Snapshots().List(ctx)
	require.NoError(t, err)
	require.Empty(t, snaps)
	entries, err := store.Audit().List(ctx, audit.ListOptions{})
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestIngestParsed_LaterSnapshotOverwrites(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	first := parseResult("2026-02-28",
		[]snapshot.MasterRow{masterRow("P1", "Kim", "Growth")},
		map[event.MonthKey][]snapshot.MonthlyRow{
			"2026-02": {{ProjectID: "P1", Proposals: 3, Approvals: 1}},
		},
	)
	_, err := svc.IngestParsed(ctx, first, "2026-02-28.xlsx", "admin")
	require.NoError(t, err)

	second := parseResult("2026-03-31",
		[]snapshot.MasterRow{masterRow("P1", "Kim", "Growth")},
		map[event.MonthKey][]snapshot.MonthlyRow{
			"2026-02": {{ProjectID: "P1", Proposals: 5, Approvals: 1}},
			"2026-03": {{ProjectID: "P1", Proposals: 2, Approvals: 0}},
		},
	)
	report, err := svc.IngestParsed(ctx, second, "2026-03-31.xlsx", "admin")
	require.NoError(t, err)
	require.Equal(t, 0, report.ProjectsCreated)
	require.Equal(t, 0, report.ProjectsUpdated, "identical master row must not rewrite the project")

	// The later snapshot's value is current
	current, err := store.Events().Current(ctx, "P1", "2026-02", event.KindProposal)
	require.NoError(t, err)
	require.Equal(t, 5, current.Count)

	// The earlier value is still reconstructable as of its snapshot date
	events, err := store.Events().ListCurrent(ctx, repository.ListEventsOptions{AsOf: "2026-02-28"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, evt := range events {
		if evt.Kind == event.KindProposal {
			require.Equal(t, 3, evt.Count)
		}
	}
}

func TestIngest_EndToEnd(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	doc := buildDocument(t)

	report, err := svc.Ingest(ctx, doc, "2026-01-31.xlsx", "importer:2026-01-31.xlsx")
	require.NoError(t, err)
	require.Equal(t, "2026-01-31", report.SnapshotDate)
	require.Equal(t, 2, report.ProjectsCreated)
	require.Equal(t, 2, report.StrategiesCreated)
	require.Equal(t, 4, report.EventsRecorded)

	projects, err := store.Projects().List(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)

	current, err := store.Events().Current(ctx, "P2", "2026-01", event.KindApproval)
	require.NoError(t, err)
	require.Equal(t, 2, current.Count)
}

func TestIngest_RejectsBadFilename(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Ingest(context.Background(), bytes.NewReader(nil), "latest.xlsx", "admin")
	require.ErrorIs(t, err, snapshot.ErrInvalidFilename)
}

func buildDocument(t *testing.T) io.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", snapshot.MasterSheetName))
	master := [][]any{
		{"Project ID", "Name", "Champion", "Strategy", "Status"},
		{"P1", "Chatbot Pilot", "Kim", "Growth", "approved"},
		{"P2", "OCR Automation", "Lee", "Efficiency", "in_progress"},
	}
	for i, row := range master {
		require.NoError(t, f.SetSheetRow(snapshot.MasterSheetName, cellRef(i), &row))
	}

	_, err := f.NewSheet("2026-01")
	require.NoError(t, err)
	monthly := [][]any{
		{"Project ID", "Proposals", "Approvals"},
		{"P1", 3, 1},
		{"P2", 4, 2},
	}
	for i, row := range monthly {
		require.NoError(t, f.SetSheetRow("2026-01", cellRef(i), &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func cellRef(row int) string {
	cell, _ := excelize.CoordinatesToCellName(1, row+1)
	return cell
}

func TestUpdateProject(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	seed := parseResult("2026-01-31",
		[]snapshot.MasterRow{masterRow("P1", "Kim", "Growth")}, nil)
	_, err := svc.IngestParsed(ctx, seed, "2026-01-31.xlsx", "admin")
	require.NoError(t, err)

	champion := "Lee"
	strategyName := "Efficiency"
	updated, err := svc.UpdateProject(ctx, "P1", ProjectUpdate{
		Champion: &champion,
		Strategy: &strategyName,
	}, "admin")
	require.NoError(t, err)
	require.Equal(t, "Lee", updated.Champion)

	// The referenced strategy was created on the fly
	strat, err := store.Strategies().GetByName(ctx, "efficiency")
	require.NoError(t, err)
	require.Equal(t, strat.ID, updated.StrategyID)

	entries, err := store.Audit().List(ctx, audit.ListOptions{
		EntityType: audit.EntityProject,
		EntityID:   "P1",
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, audit.ChangeUpdate, entries[0].ChangeKind)
	require.Contains(t, entries[0].BeforeState, "Kim")
	require.Contains(t, entries[0].AfterState, "Lee")
}

func TestUpdateProject_NoOp(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	seed := parseResult("2026-01-31",
		[]snapshot.MasterRow{masterRow("P1", "Kim", "Growth")}, nil)
	_, err := svc.IngestParsed(ctx, seed, "2026-01-31.xlsx", "admin")
	require.NoError(t, err)

	before, err := store.Audit().List(ctx, audit.ListOptions{})
	require.NoError(t, err)

	champion := "Kim"
	updated, err := svc.UpdateProject(ctx, "P1", ProjectUpdate{Champion: &champion}, "admin")
	require.NoError(t, err)
	require.Equal(t, "Kim", updated.Champion)

	// A no-op edit emits no audit entry
	after, err := store.Audit().List(ctx, audit.ListOptions{})
	require.NoError(t, err)
	require.Len(t, after, len(before))
}

func TestUpdateProject_Invalid(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	seed := parseResult("2026-01-31",
		[]snapshot.MasterRow{masterRow("P1", "Kim", "Growth")}, nil)
	_, err := svc.IngestParsed(ctx, seed, "2026-01-31.xlsx", "admin")
	require.NoError(t, err)

	name := "Renamed"
	_, err = svc.UpdateProject(ctx, "missing", ProjectUpdate{Name: &name}, "admin")
	require.ErrorIs(t, err, project.ErrProjectNotFound)

	blank := "   "
	_, err = svc.UpdateProject(ctx, "P1", ProjectUpdate{Name: &blank}, "admin")
	require.ErrorIs(t, err, project.ErrInvalidInput)
}

func TestUpsertMonthlyEvent(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	seed := parseResult("2026-01-31",
		[]snapshot.MasterRow{masterRow("P1", "Kim", "Growth")},
		map[event.MonthKey][]snapshot.MonthlyRow{
			"2026-01": {{ProjectID: "P1", Proposals: 3, Approvals: 1}},
		})
	_, err := svc.IngestParsed(ctx, seed, "2026-01-31.xlsx", "admin")
	require.NoError(t, err)

	// Correcting an existing tuple overwrites it in place
	evt, err := svc.UpsertMonthlyEvent(ctx, "P1", "2026-01", event.KindProposal, 7, "admin")
	require.NoError(t, err)
	require.Equal(t, 7, evt.Count)
	require.Equal(t, "2026-01-31", evt.SourceSnapshotDate)

	current, err := store.Events().Current(ctx, "P1", "2026-01", event.KindProposal)
	require.NoError(t, err)
	require.Equal(t, 7, current.Count)

	// A new tuple is recorded against the latest ingested snapshot
	evt, err = svc.UpsertMonthlyEvent(ctx, "P1", "2026-02", event.KindApproval, 2, "admin")
	require.NoError(t, err)
	require.Equal(t, "2026-01-31", evt.SourceSnapshotDate)
}

func TestUpsertMonthlyEvent_Invalid(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpsertMonthlyEvent(ctx, "P1", "2026-01", event.KindProposal, -1, "admin")
	require.ErrorIs(t, err, event.ErrNegativeCount)

	_, err = svc.UpsertMonthlyEvent(ctx, "missing", "2026-01", event.KindProposal, 1, "admin")
	require.ErrorIs(t, err, project.ErrProjectNotFound)
}

func TestDeprecateStrategy(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	seed := parseResult("2026-01-31",
		[]snapshot.MasterRow{masterRow("P1", "Kim", "Growth")}, nil)
	_, err := svc.IngestParsed(ctx, seed, "2026-01-31.xlsx", "admin")
	require.NoError(t, err)

	strat, err := store.Strategies().GetByName(ctx, "growth")
	require.NoError(t, err)

	flagged, err := svc.DeprecateStrategy(ctx, strat.ID, true, "admin")
	require.NoError(t, err)
	require.True(t, flagged.Deprecated)

	// Repeating the same flag is a no-op without a second audit entry
	entries, err := store.Audit().List(ctx, audit.ListOptions{
		EntityType: audit.EntityStrategy,
		EntityID:   strat.ID,
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	_, err = svc.DeprecateStrategy(ctx, strat.ID, true, "admin")
	require.NoError(t, err)
	entries, err = store.Audit().List(ctx, audit.ListOptions{
		EntityType: audit.EntityStrategy,
		EntityID:   strat.ID,
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	_, err = svc.DeprecateStrategy(ctx, "missing", true, "admin")
	require.ErrorIs(t, err, strategy.ErrStrategyNotFound)
}
