// Package mcp exposes the ingestion engine to the dashboard shell as MCP
// tools. It is a thin adapter: all validation and transaction handling lives
// in the domain services.
package mcp

import (
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/axpulse/axpulse/internal/domain/ingest"
	"github.com/axpulse/axpulse/internal/domain/metrics"
	"github.com/axpulse/axpulse/internal/repository"
)

const serverInstructions = `axpulse ingests dated portfolio snapshot workbooks (YYYY-MM-DD.xlsx) into a
canonical historical record and computes dashboard aggregates from it.

Use ingest_snapshot to process a workbook, compute_metrics for the dashboard
payload, update_project / update_monthly_event for corrections, and
get_recent_audit to review the change trail. Ingestion is all-or-nothing: a
rejected snapshot leaves the record untouched and can be re-uploaded after
fixing the reported sheet/row.`

// Services contains the domain services the tools dispatch to.
type Services struct {
	Ingest  *ingest.Service
	Metrics *metrics.Engine
	Store   repository.Store
}

// Config contains server configuration.
type Config struct {
	Services Services
	Logger   *slog.Logger
}

// NewServer creates and configures an MCP server with all tools.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "axpulse",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerTools(server, cfg.Services)

	return server
}
