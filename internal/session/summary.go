package session

import (
	"fmt"
	"time"
)

// Summary is a derived, read-only view of a session.
type Summary struct {
	Command          string   `json:"command"`
	Phase            Phase    `json:"phase"`
	Progress         Progress `json:"progress"`
	FindingCount     int      `json:"findingCount"`
	CriticalFindings int      `json:"criticalFindings"`
	HasPlan          bool     `json:"hasPlan"`
	LastUpdated      string   `json:"lastUpdated"`
	SessionAge       string   `json:"sessionAge"`
}

// Summary builds the read-only summary view from the current state.
func (fs *FileStore) Summary() (*Summary, error) {
	state := fs.LoadState()

	critical := 0
	for _, f := range state.Findings {
		if f.Severity == SeverityCritical {
			critical++
		}
	}

	age := ""
	if started, err := time.Parse(timeFormat, state.StartTime); err == nil {
		age = formatAge(timeNow().UTC().Sub(started))
	}

	return &Summary{
		Command:          state.Command,
		Phase:            state.Phase,
		Progress:         state.Progress,
		FindingCount:     len(state.Findings),
		CriticalFindings: critical,
		HasPlan:          fs.PlanExists(),
		LastUpdated:      state.LastUpdated,
		SessionAge:       age,
	}, nil
}

// formatAge renders a duration as a compact human-readable age,
// e.g. "1h 23m" or "2d 4h".
func formatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return "under a minute"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	default:
		days := int(d.Hours()) / 24
		return fmt.Sprintf("%dd %dh", days, int(d.Hours())%24)
	}
}
