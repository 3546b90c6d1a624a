// Package tools implements the MCP tool handlers for Workbench.
//
// Each tool is a struct that receives its dependencies at construction
// and exposes Definition/Handle compatible with mcp-go. New tools are
// added without modifying existing ones.
package tools

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ccplugins/workbench/internal/session"
)

// findProjectRoot walks up from the current working directory looking
// for an existing .workflow/ directory or a workbench.yaml manifest.
// If neither is found, returns cwd — the caller's directory becomes
// the project root.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}

	current := dir
	for {
		for _, marker := range []string{".workflow", "workbench.yaml"} {
			if _, err := os.Stat(filepath.Join(current, marker)); err == nil {
				return current, nil
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return dir, nil
		}
		current = parent
	}
}

// resolveRoot honors an explicit project_root argument, falling back
// to marker-based discovery.
func resolveRoot(req mcp.CallToolRequest) (string, error) {
	if root := req.GetString("project_root", ""); root != "" {
		return root, nil
	}
	return findProjectRoot()
}

// storeFor builds the session store for the request's command,
// honoring project_root and plan_file arguments.
func storeFor(req mcp.CallToolRequest) (*session.FileStore, error) {
	command := req.GetString("command", "")
	if command == "" {
		return nil, fmt.Errorf("'command' is required")
	}
	root, err := resolveRoot(req)
	if err != nil {
		return nil, err
	}
	store := session.NewFileStore(root, command)
	if planFile := req.GetString("plan_file", ""); planFile != "" {
		store.SetPlanFile(planFile)
	}
	return store, nil
}

// jsonResult renders v as a pretty-printed JSON tool result.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// decodeInto converts loosely-typed tool arguments (maps and slices
// from JSON) into a concrete struct.
func decodeInto(v any, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// objectArg returns a map argument, nil when absent or mistyped.
func objectArg(req mcp.CallToolRequest, key string) map[string]any {
	m, _ := req.GetArguments()[key].(map[string]any)
	return m
}

// stringsArg returns a string-array argument.
func stringsArg(req mcp.CallToolRequest, key string) []string {
	raw, _ := req.GetArguments()[key].([]any)
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
