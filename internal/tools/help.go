package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ccplugins/workbench/internal/registry"
)

// HelpTool handles the wb_help MCP tool.
type HelpTool struct {
	registry *registry.Registry
}

// NewHelpTool creates a HelpTool.
func NewHelpTool(reg *registry.Registry) *HelpTool {
	return &HelpTool{registry: reg}
}

// Definition returns the MCP tool definition for wb_help.
func (t *HelpTool) Definition() mcp.Tool {
	return mcp.NewTool("wb_help",
		mcp.WithDescription(
			"Describe a registered command (or list/search all of them) including its dependency pre-flight check.",
		),
		mcp.WithString("command",
			mcp.Description("Command name or alias; omit to list every command"),
		),
		mcp.WithString("search",
			mcp.Description("Find commands matching a query instead of listing all"),
		),
		mcp.WithString("category",
			mcp.Description("List only commands in one category"),
		),
	)
}

// Handle processes the wb_help tool call.
func (t *HelpTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if query := req.GetString("search", ""); query != "" {
		results := t.registry.Search(query)
		if len(results) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No commands match %q.", query)), nil
		}
		var b strings.Builder
		for _, res := range results {
			fmt.Fprintf(&b, "/%s — %s (relevance %d)\n", res.Descriptor.Name, res.Descriptor.Description, res.Score)
		}
		return mcp.NewToolResultText(b.String()), nil
	}

	if name := req.GetString("command", ""); name != "" {
		text, err := t.registry.Help(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		report, err := t.registry.ValidateDependencies(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !report.Valid {
			text += fmt.Sprintf("Note: unregistered dependencies: %s\n", strings.Join(report.Missing, ", "))
		}
		return mcp.NewToolResultText(text), nil
	}

	list := t.registry.List()
	if category := req.GetString("category", ""); category != "" {
		list = t.registry.ListByCategory(category)
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("No commands registered."), nil
	}
	var b strings.Builder
	for _, d := range list {
		fmt.Fprintf(&b, "/%s [%s] — %s\n", d.Name, d.Category, d.Description)
	}
	return mcp.NewToolResultText(b.String()), nil
}
