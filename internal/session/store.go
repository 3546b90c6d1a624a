package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	// StateFileName is the per-command state document.
	StateFileName = "state.json"
	// DefaultPlanFileName is the per-command plan document. Commands may
	// override it (analysis.md, report.md, dashboard.md).
	DefaultPlanFileName = "plan.md"
)

// ErrFindingNotFound is returned when updating a finding whose id does
// not exist. This is the one lookup that fails loudly: silently creating
// a new finding would hide a caller bug.
var ErrFindingNotFound = errors.New("finding not found")

// Store defines durable per-command session persistence.
// Abstracted for testability (DIP).
type Store interface {
	Initialize() error
	SessionExists() bool
	LoadState() *State
	SaveState(state *State) error
	LoadPlan() (string, error)
	PlanExists() bool
	SavePlan(content string) error
	UpdateProgress(currentStep string, completedSteps, totalSteps *int) error
	AddFinding(f Finding) (*Finding, error)
	UpdateFinding(id string, patch FindingPatch) (*Finding, error)
	SetMetrics(partial map[string]float64) error
	RecoverSession() (string, error)
	Summary() (*Summary, error)
}

// FileStore implements Store using the local filesystem.
type FileStore struct {
	projectRoot string
	command     string
	planFile    string
}

// NewFileStore creates a filesystem-backed session store for one command.
func NewFileStore(projectRoot, command string) *FileStore {
	return &FileStore{
		projectRoot: projectRoot,
		command:     command,
		planFile:    DefaultPlanFileName,
	}
}

// SetPlanFile overrides the plan document filename for commands that
// persist an alternate artifact (analysis.md, report.md, dashboard.md).
func (fs *FileStore) SetPlanFile(name string) {
	if name != "" {
		fs.planFile = name
	}
}

// Command returns the owning command name.
func (fs *FileStore) Command() string { return fs.command }

// SessionDir returns the absolute path to a command's session directory.
func SessionDir(projectRoot, command string) string {
	return filepath.Join(projectRoot, command)
}

// StatePath returns the absolute path to a command's state.json.
func StatePath(projectRoot, command string) string {
	return filepath.Join(SessionDir(projectRoot, command), StateFileName)
}

func (fs *FileStore) dir() string       { return SessionDir(fs.projectRoot, fs.command) }
func (fs *FileStore) statePath() string { return StatePath(fs.projectRoot, fs.command) }
func (fs *FileStore) planPath() string  { return filepath.Join(fs.dir(), fs.planFile) }

// Initialize ensures the session directory exists and seeds a canonical
// initial state if no state file is present. Idempotent: calling it on
// an already-initialized session never errors and never resets state.
func (fs *FileStore) Initialize() error {
	if err := os.MkdirAll(fs.dir(), 0o755); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	if _, err := os.Stat(fs.statePath()); err == nil {
		return nil
	}
	return fs.writeState(NewState(fs.command))
}

// SessionExists reports whether the state file is readable.
func (fs *FileStore) SessionExists() bool {
	_, err := os.Stat(fs.statePath())
	return err == nil
}

// LoadState reads the state document. A missing file yields a fresh
// initial state, not an error. A file that fails to parse is logged and
// replaced by a fresh initial state in the returned value — callers must
// not assume LoadState reflects disk truth after corruption (use
// RecoverSession to repair the file itself). The parsed document passes
// through ValidateState so partial states are always completed.
func (fs *FileStore) LoadState() *State {
	data, err := os.ReadFile(fs.statePath())
	if err != nil {
		return NewState(fs.command)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Printf("WARNING: session state for %q is corrupt, using fresh state: %v", fs.command, err)
		return NewState(fs.command)
	}

	validated := ValidateState(raw, fs.command)
	normalized, err := json.Marshal(validated)
	if err != nil {
		log.Printf("WARNING: session state for %q failed normalization, using fresh state: %v", fs.command, err)
		return NewState(fs.command)
	}

	var state State
	if err := json.Unmarshal(normalized, &state); err != nil {
		log.Printf("WARNING: session state for %q has invalid shape, using fresh state: %v", fs.command, err)
		return NewState(fs.command)
	}
	if state.Context == nil {
		state.Context = map[string]any{}
	}
	if state.Findings == nil {
		state.Findings = []Finding{}
	}
	if state.Metrics == nil {
		state.Metrics = map[string]float64{}
	}
	return &state
}

// SaveState stamps lastUpdated and writes the document atomically
// (write to a temp file in the same directory, then rename) so a
// reader never observes a half-written file.
func (fs *FileStore) SaveState(state *State) error {
	state.LastUpdated = timeNow().UTC().Format(timeFormat)
	return fs.writeState(state)
}

// LoadPlan reads the plan document. Returns the empty string (not an
// error) when no plan exists yet.
func (fs *FileStore) LoadPlan() (string, error) {
	data, err := os.ReadFile(fs.planPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading plan: %w", err)
	}
	return string(data), nil
}

// PlanExists reports whether a plan document has been saved.
func (fs *FileStore) PlanExists() bool {
	_, err := os.Stat(fs.planPath())
	return err == nil
}

// SavePlan writes the free-text plan document.
func (fs *FileStore) SavePlan(content string) error {
	if err := os.MkdirAll(fs.dir(), 0o755); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	if err := os.WriteFile(fs.planPath(), []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing plan: %w", err)
	}
	return nil
}

// UpdateProgress performs a read-modify-write on the progress object.
// Nil numeric arguments leave the prior values untouched.
func (fs *FileStore) UpdateProgress(currentStep string, completedSteps, totalSteps *int) error {
	state := fs.LoadState()
	state.Progress.CurrentStep = currentStep
	if completedSteps != nil {
		state.Progress.CompletedSteps = *completedSteps
	}
	if totalSteps != nil {
		state.Progress.TotalSteps = *totalSteps
	}
	return fs.SaveState(state)
}

// StampFinding returns f with a generated unique id and a fresh
// timestamp, defaulting status to "open" when unset.
func StampFinding(f Finding) Finding {
	f.ID = uuid.NewString()
	f.Timestamp = timeNow().UTC().Format(timeFormat)
	if f.Status == "" {
		f.Status = "open"
	}
	return f
}

// AddFinding assigns a fresh unique id and timestamp, appends the
// finding, persists, and returns the stored finding including the
// generated fields.
func (fs *FileStore) AddFinding(f Finding) (*Finding, error) {
	f = StampFinding(f)
	state := fs.LoadState()
	state.Findings = append(state.Findings, f)
	if err := fs.SaveState(state); err != nil {
		return nil, err
	}
	return &f, nil
}

// UpdateFinding locates a finding by id, merges the patch fields, stamps
// lastUpdated on the finding itself, and persists. Returns
// ErrFindingNotFound when the id is unknown.
func (fs *FileStore) UpdateFinding(id string, patch FindingPatch) (*Finding, error) {
	state := fs.LoadState()
	for i := range state.Findings {
		if state.Findings[i].ID != id {
			continue
		}
		f := &state.Findings[i]
		if patch.Type != nil {
			f.Type = *patch.Type
		}
		if patch.Severity != nil {
			f.Severity = *patch.Severity
		}
		if patch.Description != nil {
			f.Description = *patch.Description
		}
		if patch.Location != nil {
			f.Location = *patch.Location
		}
		if patch.Remediation != nil {
			f.Remediation = *patch.Remediation
		}
		if patch.Status != nil {
			f.Status = *patch.Status
		}
		f.LastUpdated = timeNow().UTC().Format(timeFormat)
		if err := fs.SaveState(state); err != nil {
			return nil, err
		}
		stored := *f
		return &stored, nil
	}
	return nil, fmt.Errorf("updating finding %q: %w", id, ErrFindingNotFound)
}

// SetMetrics shallow-merges the partial map into the existing metrics
// and persists. Later writes never wholesale replace earlier ones.
func (fs *FileStore) SetMetrics(partial map[string]float64) error {
	state := fs.LoadState()
	if state.Metrics == nil {
		state.Metrics = map[string]float64{}
	}
	for k, v := range partial {
		state.Metrics[k] = v
	}
	return fs.SaveState(state)
}

// RecoverSession backs up the existing state file to a timestamped path,
// then overwrites the live file with a fresh initial state. The corrupt
// data is never deleted — the backup is the trace. Returns the backup
// path, or the empty string when there was nothing to back up.
func (fs *FileStore) RecoverSession() (string, error) {
	data, err := os.ReadFile(fs.statePath())
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("reading state for backup: %w", err)
	}

	backupPath := ""
	if err == nil {
		stamp := timeNow().UTC().Format("20060102-150405")
		backupPath = fs.statePath() + ".bak-" + stamp
		if err := os.WriteFile(backupPath, data, 0o644); err != nil {
			return "", fmt.Errorf("writing backup: %w", err)
		}
		log.Printf("WARNING: session state for %q backed up to %s and reset", fs.command, backupPath)
	}

	if err := os.MkdirAll(fs.dir(), 0o755); err != nil {
		return "", fmt.Errorf("creating session directory: %w", err)
	}
	if err := fs.writeState(NewState(fs.command)); err != nil {
		return "", err
	}
	return backupPath, nil
}

// writeState marshals and writes a state document atomically. It
// creates the session directory on demand so callers that write before
// Initialize (first finding, first metric) still land on disk.
func (fs *FileStore) writeState(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}

	if err := os.MkdirAll(fs.dir(), 0o755); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	path := fs.statePath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing session state: %w", err)
	}
	return nil
}
