package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/axpulse/axpulse/internal/domain/audit"
	"github.com/axpulse/axpulse/internal/domain/event"
	"github.com/axpulse/axpulse/internal/domain/ingest"
	"github.com/axpulse/axpulse/internal/domain/metrics"
	"github.com/axpulse/axpulse/internal/domain/project"
	"github.com/axpulse/axpulse/internal/domain/strategy"
	"github.com/axpulse/axpulse/internal/repository"
	"github.com/axpulse/axpulse/internal/snapshot"
)

// defaultActor attributes mutations when the caller doesn't identify itself.
const defaultActor = "admin"

func registerTools(server *sdkmcp.Server, services Services) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "ingest_snapshot",
		Description: "Ingest a snapshot workbook (named YYYY-MM-DD.xlsx) into the canonical record. All-or-nothing: any invalid row rejects the whole file.",
	}, ingestSnapshotHandler(services.Ingest))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "compute_metrics",
		Description: "Compute the dashboard payload (KPIs, champion rankings, strategy distribution, activity heatmap, monthly trend) for an optional month window and as-of snapshot date.",
	}, computeMetricsHandler(services.Metrics))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_project",
		Description: "Edit one project's mutable fields (name, champion, strategy, status). Emits an audit entry with the field-level diff.",
	}, updateProjectHandler(services.Ingest))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_monthly_event",
		Description: "Overwrite the proposal or approval count for one project and month.",
	}, updateMonthlyEventHandler(services.Ingest))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "deprecate_strategy",
		Description: "Mark a strategy as deprecated (or reinstate it). Strategies referenced by projects are never deleted.",
	}, deprecateStrategyHandler(services.Ingest))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List all projects in the canonical record.",
	}, listProjectsHandler(services.Store))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_snapshots",
		Description: "List the ledger of ingested snapshots.",
	}, listSnapshotsHandler(services.Store))

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_recent_audit",
		Description: "List recent audit entries, optionally filtered by entity type and id.",
	}, recentAuditHandler(services.Store))
}

// IngestSnapshotInput identifies a workbook on the server filesystem.
type IngestSnapshotInput struct {
	Path  string `json:"path"`
	Actor string `json:"actor,omitempty"`
}

func ingestSnapshotHandler(svc *ingest.Service) sdkmcp.ToolHandlerFor[IngestSnapshotInput, *ingest.Report] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, input IngestSnapshotInput) (*sdkmcp.CallToolResult, *ingest.Report, error) {
		file, err := os.Open(input.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening document: %w", err)
		}
		defer file.Close()

		report, err := svc.Ingest(ctx, file, filepath.Base(input.Path), actorOrDefault(input.Actor))
		if err != nil {
			return nil, nil, err
		}
		return nil, report, nil
	}
}

// ComputeMetricsInput selects the aggregation window.
type ComputeMetricsInput struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	AsOf string `json:"as_of,omitempty"`
}

func computeMetricsHandler(engine *metrics.Engine) sdkmcp.ToolHandlerFor[ComputeMetricsInput, *metrics.Dashboard] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, input ComputeMetricsInput) (*sdkmcp.CallToolResult, *metrics.Dashboard, error) {
		window := metrics.Window{AsOf: input.AsOf}
		var err error
		if input.From != "" {
			if window.From, err = event.ParseMonthKey(input.From); err != nil {
				return nil, nil, err
			}
		}
		if input.To != "" {
			if window.To, err = event.ParseMonthKey(input.To); err != nil {
				return nil, nil, err
			}
		}
		if input.AsOf != "" {
			if _, err = snapshot.ParseDate(input.AsOf); err != nil {
				return nil, nil, err
			}
		}

		dash, err := engine.Compute(ctx, window)
		if err != nil {
			return nil, nil, err
		}
		return nil, dash, nil
	}
}

// UpdateProjectInput carries a partial project edit; omitted fields keep
// their value.
type UpdateProjectInput struct {
	ID       string  `json:"id"`
	Name     *string `json:"name,omitempty"`
	Champion *string `json:"champion,omitempty"`
	Strategy *string `json:"strategy,omitempty"`
	Status   *string `json:"status,omitempty"`
	Actor    string  `json:"actor,omitempty"`
}

func updateProjectHandler(svc *ingest.Service) sdkmcp.ToolHandlerFor[UpdateProjectInput, *project.Project] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, input UpdateProjectInput) (*sdkmcp.CallToolResult, *project.Project, error) {
		proj, err := svc.UpdateProject(ctx, input.ID, ingest.ProjectUpdate{
			Name:     input.Name,
			Champion: input.Champion,
			Strategy: input.Strategy,
			Status:   input.Status,
		}, actorOrDefault(input.Actor))
		if err != nil {
			return nil, nil, err
		}
		return nil, proj, nil
	}
}

// UpdateMonthlyEventInput overwrites one count.
type UpdateMonthlyEventInput struct {
	ProjectID string `json:"project_id"`
	Month     string `json:"month"`
	Kind      string `json:"kind"`
	Count     int    `json:"count"`
	Actor     string `json:"actor,omitempty"`
}

func updateMonthlyEventHandler(svc *ingest.Service) sdkmcp.ToolHandlerFor[UpdateMonthlyEventInput, *event.MonthlyEvent] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, input UpdateMonthlyEventInput) (*sdkmcp.CallToolResult, *event.MonthlyEvent, error) {
		key, err := event.ParseMonthKey(input.Month)
		if err != nil {
			return nil, nil, err
		}
		kind, err := event.ParseKind(input.Kind)
		if err != nil {
			return nil, nil, err
		}

		evt, err := svc.UpsertMonthlyEvent(ctx, input.ProjectID, key, kind, input.Count, actorOrDefault(input.Actor))
		if err != nil {
			return nil, nil, err
		}
		return nil, evt, nil
	}
}

// DeprecateStrategyInput flips a strategy's deprecated flag.
type DeprecateStrategyInput struct {
	ID         string `json:"id"`
	Deprecated bool   `json:"deprecated"`
	Actor      string `json:"actor,omitempty"`
}

func deprecateStrategyHandler(svc *ingest.Service) sdkmcp.ToolHandlerFor[DeprecateStrategyInput, *strategy.Strategy] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, input DeprecateStrategyInput) (*sdkmcp.CallToolResult, *strategy.Strategy, error) {
		strat, err := svc.DeprecateStrategy(ctx, input.ID, input.Deprecated, actorOrDefault(input.Actor))
		if err != nil {
			return nil, nil, err
		}
		return nil, strat, nil
	}
}

// ListProjectsInput has no parameters.
type ListProjectsInput struct{}

// ListProjectsOutput wraps the project listing.
type ListProjectsOutput struct {
	Projects []project.Project `json:"projects"`
}

func listProjectsHandler(store repository.Store) sdkmcp.ToolHandlerFor[ListProjectsInput, ListProjectsOutput] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ ListProjectsInput) (*sdkmcp.CallToolResult, ListProjectsOutput, error) {
		projects, err := store.Projects().List(ctx)
		if err != nil {
			return nil, ListProjectsOutput{}, err
		}
		return nil, ListProjectsOutput{Projects: projects}, nil
	}
}

// ListSnapshotsInput has no parameters.
type ListSnapshotsInput struct{}

// ListSnapshotsOutput wraps the snapshot ledger.
type ListSnapshotsOutput struct {
	Snapshots []snapshot.Snapshot `json:"snapshots"`
}

func listSnapshotsHandler(store repository.Store) sdkmcp.ToolHandlerFor[ListSnapshotsInput, ListSnapshotsOutput] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ ListSnapshotsInput) (*sdkmcp.CallToolResult, ListSnapshotsOutput, error) {
		snaps, err := store.Snapshots().List(ctx)
		if err != nil {
			return nil, ListSnapshotsOutput{}, err
		}
		return nil, ListSnapshotsOutput{Snapshots: snaps}, nil
	}
}

// RecentAuditInput filters the audit listing.
type RecentAuditInput struct {
	EntityType string `json:"entity_type,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// RecentAuditOutput wraps the audit entries, newest first.
type RecentAuditOutput struct {
	Entries []audit.Entry `json:"entries"`
}

func recentAuditHandler(store repository.Store) sdkmcp.ToolHandlerFor[RecentAuditInput, RecentAuditOutput] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, input RecentAuditInput) (*sdkmcp.CallToolResult, RecentAuditOutput, error) {
		limit := input.Limit
		if limit <= 0 {
			limit = 50
		}
		entries, err := store.Audit().List(ctx, audit.ListOptions{
			EntityType: input.EntityType,
			EntityID:   input.EntityID,
			Limit:      limit,
		})
		if err != nil {
			return nil, RecentAuditOutput{}, err
		}
		return nil, RecentAuditOutput{Entries: entries}, nil
	}
}

func actorOrDefault(actor string) string {
	if actor == "" {
		return defaultActor
	}
	return actor
}
