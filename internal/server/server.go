package server

import (
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/crack-kitty/claudememkeep/internal/tools"
)

const (
	Name    = "claudememkeep"
	Version = "0.2.0"
)

const instructions = `Shared memory across assistant sessions. Save decisions, context, notes and
code changes per project, search them with natural language, and log sessions so the
next session can pick up where the last one stopped.`

// New creates a fully configured MCP server with all tools registered. Each
// call runs under timeout when it is positive.
func New(src tools.StoreSource, timeout time.Duration) *mcp.Server {
	mt := tools.New(src)

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    Name,
		Version: Version,
	}, &mcp.ServerOptions{Instructions: instructions})

	// Artifacts
	addTool(srv, &mcp.Tool{
		Name:        "save_context",
		Description: "Save a decision, context, note or code change to shared memory for a project",
	}, timeout, mt.SaveContext)

	addTool(srv, &mcp.Tool{
		Name:        "search_context",
		Description: "Full-text search over a project's saved artifacts, best matches first",
	}, timeout, mt.SearchContext)

	addTool(srv, &mcp.Tool{
		Name:        "log_decision",
		Description: "Record a decision, with optional reasoning, as a decision artifact",
	}, timeout, mt.LogDecision)

	// Overviews
	addTool(srv, &mcp.Tool{
		Name:        "get_project_summary",
		Description: "Get recent decisions, recent sessions and artifact counts by type for a project",
	}, timeout, mt.GetProjectSummary)

	addTool(srv, &mcp.Tool{
		Name:        "get_recent_activity",
		Description: "Get artifacts and sessions recorded for a project within the last N hours",
	}, timeout, mt.GetRecentActivity)

	// Sessions
	addTool(srv, &mcp.Tool{
		Name:        "log_session",
		Description: "Register a session, or update its summary and mark it ended when called again",
	}, timeout, mt.LogSession)

	return srv
}
