// Package session persists per-command working state for workflow commands.
//
// Each command owns one directory inside the project root containing a
// state.json document and an optional free-text plan file. The store is
// deliberately forgiving: a missing file is the legitimate "no session yet"
// condition, and a corrupt file is recovered from rather than propagated.
//
// Design principles follow the rest of the codebase:
// - SRP: types, store, and summary in separate files
// - DIP: Store is an interface; callers depend on the abstraction
package session

import (
	"github.com/google/uuid"
)

// --- Phase enum ---

// Phase represents where a command run currently stands in its lifecycle.
type Phase string

const (
	PhaseSetup      Phase = "setup"
	PhaseDiscovery  Phase = "discovery"
	PhaseAnalysis   Phase = "analysis"
	PhaseExecution  Phase = "execution"
	PhaseValidation Phase = "validation"
	PhaseComplete   Phase = "complete"
)

// PhaseOrder is the fixed run order. PhaseComplete is terminal and
// never appears in the run sequence itself.
var PhaseOrder = []Phase{
	PhaseSetup,
	PhaseDiscovery,
	PhaseAnalysis,
	PhaseExecution,
	PhaseValidation,
}

// --- Severity enum ---

// Severity classifies how serious a finding is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// validSeverities is the set of allowed finding severities.
var validSeverities = map[Severity]bool{
	SeverityCritical: true,
	SeverityHigh:     true,
	SeverityMedium:   true,
	SeverityLow:      true,
}

// ValidSeverity reports whether s is a recognized severity value.
func ValidSeverity(s Severity) bool {
	return validSeverities[s]
}

// --- Core data structures ---

// Progress tracks step-level advancement within a run.
type Progress struct {
	TotalSteps     int    `json:"totalSteps"`
	CompletedSteps int    `json:"completedSteps"`
	CurrentStep    string `json:"currentStep"`
}

// Finding is a discrete, severity-tagged observation recorded during
// a command's analysis. IDs are assigned by the store and are stable.
type Finding struct {
	ID          string   `json:"id"`
	Timestamp   string   `json:"timestamp"`
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Location    string   `json:"location,omitempty"`
	Remediation string   `json:"remediation,omitempty"`
	Status      string   `json:"status"`
	LastUpdated string   `json:"lastUpdated,omitempty"`
}

// FindingPatch holds partial update fields for an existing finding.
// Nil fields are left untouched.
type FindingPatch struct {
	Type        *string   `json:"type,omitempty"`
	Severity    *Severity `json:"severity,omitempty"`
	Description *string   `json:"description,omitempty"`
	Location    *string   `json:"location,omitempty"`
	Remediation *string   `json:"remediation,omitempty"`
	Status      *string   `json:"status,omitempty"`
}

// State is the root document persisted as state.json, one per command
// per project. JSON keys use camelCase so session directories written
// by earlier implementations of this format remain loadable.
type State struct {
	SessionID        string             `json:"sessionId"`
	Command          string             `json:"command"`
	StartTime        string             `json:"startTime"`
	LastUpdated      string             `json:"lastUpdated"`
	Phase            Phase              `json:"phase"`
	Progress         Progress           `json:"progress"`
	Context          map[string]any     `json:"context"`
	Findings         []Finding          `json:"findings"`
	Metrics          map[string]float64 `json:"metrics"`
	ExtendedAnalysis map[string]any     `json:"extendedAnalysis,omitempty"`
}

// requiredFields are the top-level keys every state document must carry.
var requiredFields = []string{
	"sessionId",
	"command",
	"startTime",
	"lastUpdated",
	"phase",
	"progress",
	"context",
	"findings",
	"metrics",
}

// NewState returns the canonical initial state for a command.
func NewState(command string) *State {
	now := timeNow().UTC().Format(timeFormat)
	return &State{
		SessionID:   uuid.NewString(),
		Command:     command,
		StartTime:   now,
		LastUpdated: now,
		Phase:       PhaseSetup,
		Progress: Progress{
			TotalSteps:     0,
			CompletedSteps: 0,
			CurrentStep:    "initializing",
		},
		Context:  map[string]any{},
		Findings: []Finding{},
		Metrics:  map[string]float64{},
	}
}

// ValidateState fills in any required top-level field missing from raw
// with the value from a freshly generated initial state, and ensures the
// progress object carries its three required sub-fields with safe
// defaults. Pure: no I/O, the input map is not modified.
func ValidateState(raw map[string]any, command string) map[string]any {
	fresh := NewState(command)
	defaults := map[string]any{
		"sessionId":   fresh.SessionID,
		"command":     fresh.Command,
		"startTime":   fresh.StartTime,
		"lastUpdated": fresh.LastUpdated,
		"phase":       string(fresh.Phase),
		"progress": map[string]any{
			"totalSteps":     0,
			"completedSteps": 0,
			"currentStep":    "unknown",
		},
		"context":  map[string]any{},
		"findings": []any{},
		"metrics":  map[string]any{},
	}

	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	for _, field := range requiredFields {
		if _, ok := out[field]; !ok {
			out[field] = defaults[field]
		}
	}

	// The progress object itself may be present but incomplete.
	progress, ok := out["progress"].(map[string]any)
	if !ok {
		progress = map[string]any{}
	} else {
		copied := make(map[string]any, len(progress))
		for k, v := range progress {
			copied[k] = v
		}
		progress = copied
	}
	if _, ok := progress["totalSteps"]; !ok {
		progress["totalSteps"] = 0
	}
	if _, ok := progress["completedSteps"]; !ok {
		progress["completedSteps"] = 0
	}
	if _, ok := progress["currentStep"]; !ok {
		progress["currentStep"] = "unknown"
	}
	out["progress"] = progress

	return out
}
