package broker

import (
	"log"
	"sort"
	"time"

	"github.com/ccplugins/workbench/internal/session"
)

// Analysis carries a completed command's results into suggestion
// scoring and the pair condition functions.
type Analysis struct {
	Findings []session.Finding
	Metrics  map[string]float64
	Extended map[string]any
	Facts    map[string]any
}

// metric reads a numeric signal from Metrics first, then Facts.
func (a Analysis) metric(name string) float64 {
	if v, ok := a.Metrics[name]; ok {
		return v
	}
	switch v := a.Facts[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Suggestion proposes a follow-up command after a run.
type Suggestion struct {
	Command         string  `json:"command"`
	Priority        string  `json:"priority"`
	Reason          string  `json:"reason"`
	ExpectedBenefit string  `json:"expectedBenefit"`
	Confidence      float64 `json:"confidence"`
}

// suggestionThrottle suppresses re-suggesting a command that already
// ran recently.
const suggestionThrottle = 24 * time.Hour

// maxSuggestions caps the returned list.
const maxSuggestions = 5

// Confidence scoring constants. Base plus fixed bumps for richer
// signal, capped at 1.0.
const (
	confidenceBase     = 0.5
	confidenceFindings = 0.15 // more than 5 findings
	confidenceExtended = 0.2  // extended analysis present
	confidenceMetrics  = 0.1  // more than 3 metrics
	confidenceCap      = 1.0
	findingsRichSignal = 5
	metricsRichSignal  = 3
)

var priorityRank = map[string]int{"high": 3, "medium": 2, "low": 1}

// Suggestions evaluates the current command's suggests list against
// analysis. Targets that ran within the last 24 hours are skipped, and
// each surviving pair's condition function must hold. Failures degrade
// to an empty list.
func (b *Broker) Suggestions(current string, analysis Analysis) []Suggestion {
	targets := ContractFor(current).Suggests
	if len(targets) == 0 {
		return []Suggestion{}
	}

	h, err := b.docs.LoadHistory()
	if err != nil {
		log.Printf("WARNING: workflow history unavailable, skipping suggestions: %v", err)
		return []Suggestion{}
	}

	now := timeNow().UTC()
	out := []Suggestion{}
	for _, target := range targets {
		if ranRecently(h, target, now) {
			continue
		}
		rule := ruleFor(current, target)
		if rule.Condition != nil && !rule.Condition(analysis) {
			continue
		}
		out = append(out, Suggestion{
			Command:         target,
			Priority:        rule.Priority,
			Reason:          rule.Reason,
			ExpectedBenefit: rule.ExpectedBenefit,
			Confidence:      confidence(analysis),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return priorityRank[out[i].Priority] > priorityRank[out[j].Priority]
	})
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

func ranRecently(h *History, command string, now time.Time) bool {
	stamp, ok := h.LastRun[command]
	if !ok {
		return false
	}
	last, err := time.Parse(timeFormat, stamp)
	if err != nil {
		return false
	}
	return now.Sub(last) < suggestionThrottle
}

func confidence(a Analysis) float64 {
	c := confidenceBase
	if len(a.Findings) > findingsRichSignal {
		c += confidenceFindings
	}
	if len(a.Extended) > 0 {
		c += confidenceExtended
	}
	if len(a.Metrics) > metricsRichSignal {
		c += confidenceMetrics
	}
	if c > confidenceCap {
		c = confidenceCap
	}
	return c
}
