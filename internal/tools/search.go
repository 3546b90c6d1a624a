package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ccplugins/workbench/internal/archive"
)

// SearchFindingsTool handles the wb_search_findings MCP tool against
// the cross-project archive.
type SearchFindingsTool struct {
	store *archive.Store
}

// NewSearchFindingsTool creates a SearchFindingsTool. store may be nil
// when the archive failed to open; the tool then reports that instead
// of erroring the server.
func NewSearchFindingsTool(store *archive.Store) *SearchFindingsTool {
	return &SearchFindingsTool{store: store}
}

// Definition returns the MCP tool definition for wb_search_findings.
func (t *SearchFindingsTool) Definition() mcp.Tool {
	return mcp.NewTool("wb_search_findings",
		mcp.WithDescription(
			"Full-text search across findings archived from completed runs in every project. "+
				"An empty query returns the most recent findings.",
		),
		mcp.WithString("query",
			mcp.Description("Search terms"),
		),
		mcp.WithString("severity",
			mcp.Description("Filter by severity"),
		),
		mcp.WithString("project",
			mcp.Description("Filter by project"),
		),
		mcp.WithString("command",
			mcp.Description("Filter by originating command"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default 10)"),
		),
	)
}

// Handle processes the wb_search_findings tool call.
func (t *SearchFindingsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.store == nil {
		return mcp.NewToolResultText("The finding archive is unavailable in this session."), nil
	}

	results, err := t.store.Search(req.GetString("query", ""), archive.SearchOptions{
		Severity: req.GetString("severity", ""),
		Project:  req.GetString("project", ""),
		Command:  req.GetString("command", ""),
		Limit:    int(req.GetFloat("limit", 0)),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("searching archive: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No archived findings matched."), nil
	}
	return jsonResult(results), nil
}
