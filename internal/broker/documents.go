// Package broker lets commands exchange derived facts through a
// project-wide shared-context document, suggests complementary commands
// after a run, executes dependency-ordered command chains, and renders
// a project health dashboard. Everything here is advisory: failures
// degrade to empty results and a logged warning, never an abort.
package broker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WorkflowDir holds the project-wide documents, separate from any
// individual command's session folder.
const WorkflowDir = ".workflow"

const (
	sharedContextFile   = "shared-context.json"
	workflowHistoryFile = "workflow-history.json"
	dashboardFile       = "dashboard.json"
	chainsDir           = "chains"
)

// ContextEntry is one command's slot in the shared-context document.
type ContextEntry struct {
	Data      map[string]any `json:"data"`
	Timestamp string         `json:"timestamp"`
	Version   int            `json:"version"`
}

// SharedContext is the project-wide fact exchange document.
type SharedContext struct {
	Commands map[string]ContextEntry `json:"commands"`
}

// HistoryEntry records one completed command run.
type HistoryEntry struct {
	Command   string `json:"command"`
	Timestamp string `json:"timestamp"`
}

// History is the project-wide workflow-history document.
type History struct {
	Entries []HistoryEntry    `json:"entries"`
	LastRun map[string]string `json:"lastRun"`
}

// Documents reads and writes the .workflow/ JSON documents for one
// project. Read-modify-write without version checks; last writer wins.
type Documents struct {
	root string
}

// NewDocuments returns a document store rooted at projectRoot.
func NewDocuments(projectRoot string) *Documents {
	return &Documents{root: projectRoot}
}

func (d *Documents) dir() string {
	return filepath.Join(d.root, WorkflowDir)
}

func (d *Documents) path(name string) string {
	return filepath.Join(d.dir(), name)
}

// ChainPath returns where a chain document is persisted.
func (d *Documents) ChainPath(chainID string) string {
	return filepath.Join(d.dir(), chainsDir, chainID+".json")
}

// readDoc unmarshals a document into out. A missing file leaves out
// untouched and is not an error.
func (d *Documents) readDoc(name string, out any) error {
	data, err := os.ReadFile(d.path(name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

// writeDoc writes a document atomically via a temp file and rename.
func (d *Documents) writeDoc(path string, doc any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating workflow directory: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadSharedContext returns the shared-context document, empty when the
// project has none yet.
func (d *Documents) LoadSharedContext() (*SharedContext, error) {
	sc := &SharedContext{Commands: map[string]ContextEntry{}}
	if err := d.readDoc(sharedContextFile, sc); err != nil {
		return nil, err
	}
	if sc.Commands == nil {
		sc.Commands = map[string]ContextEntry{}
	}
	return sc, nil
}

// SaveSharedContext persists the shared-context document.
func (d *Documents) SaveSharedContext(sc *SharedContext) error {
	return d.writeDoc(d.path(sharedContextFile), sc)
}

// LoadHistory returns the workflow history, empty when absent.
func (d *Documents) LoadHistory() (*History, error) {
	h := &History{LastRun: map[string]string{}}
	if err := d.readDoc(workflowHistoryFile, h); err != nil {
		return nil, err
	}
	if h.LastRun == nil {
		h.LastRun = map[string]string{}
	}
	return h, nil
}

// SaveHistory persists the workflow history.
func (d *Documents) SaveHistory(h *History) error {
	return d.writeDoc(d.path(workflowHistoryFile), h)
}

// SaveDashboard persists the dashboard document.
func (d *Documents) SaveDashboard(dash *Dashboard) error {
	return d.writeDoc(d.path(dashboardFile), dash)
}
