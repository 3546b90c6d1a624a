package complexity

import "fmt"

// --- Severity and level enums ---

// Severity classifies a trigger. Numeric threshold breaches and boolean
// rules fire at either high or medium — finer grading lives in the
// session's finding severities, not here.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Level is the qualitative complexity classification.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelVeryHigh Level = "very-high"
)

// LevelRank orders levels for monotonicity comparisons:
// low < medium < high < very-high.
func LevelRank(l Level) int {
	switch l {
	case LevelLow:
		return 0
	case LevelMedium:
		return 1
	case LevelHigh:
		return 2
	case LevelVeryHigh:
		return 3
	}
	return -1
}

// Trigger is a named condition indicating deeper analysis is warranted.
type Trigger struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Value       float64  `json:"value"`
	Threshold   float64  `json:"threshold,omitempty"`
}

// Assessment is the escalation decision for one command invocation.
type Assessment struct {
	RequiresExtendedThinking bool      `json:"requiresExtendedThinking"`
	ComplexityLevel          Level     `json:"complexityLevel"`
	Triggers                 []Trigger `json:"triggers"`
	Approach                 string    `json:"approach,omitempty"`
	EstimatedTime            string    `json:"estimatedTime,omitempty"`
}

// approachByLevel and timeByLevel are fixed lookup tables — approach and
// estimated-time labels are pure functions of complexity level.
var approachByLevel = map[Level]string{
	LevelLow:      "direct single-pass analysis",
	LevelMedium:   "targeted deep-dive on triggered areas",
	LevelHigh:     "systematic multi-pass analysis with checkpoints",
	LevelVeryHigh: "phased analysis with intermediate reviews",
}

var timeByLevel = map[Level]string{
	LevelLow:      "under 30 minutes",
	LevelMedium:   "30-90 minutes",
	LevelHigh:     "2-4 hours",
	LevelVeryHigh: "4-8 hours",
}

// Assess compares the signals against the category's threshold tables
// and classifies the result. Unknown categories produce the quiet
// default (no escalation, level low, no triggers) — never an error.
func Assess(commandCategory string, signals Signals) *Assessment {
	category := CanonicalCategory(commandCategory)
	rules, ok := categoryThresholds[category]
	if !ok {
		return &Assessment{
			RequiresExtendedThinking: false,
			ComplexityLevel:          LevelLow,
			Triggers:                 []Trigger{},
		}
	}

	var triggers []Trigger
	for _, rule := range rules {
		value, present := numberSignal(signals, rule.Signal)
		if !present || value <= rule.Threshold {
			continue
		}
		triggers = append(triggers, Trigger{
			Type:        rule.TriggerType,
			Severity:    rule.Severity,
			Description: fmt.Sprintf("%s (%s=%v)", rule.Description, rule.Signal, value),
			Value:       value,
			Threshold:   rule.Threshold,
		})
	}
	for _, rule := range categoryBoolRules[category] {
		if !boolSignal(signals, rule.Signal) {
			continue
		}
		triggers = append(triggers, Trigger{
			Type:        rule.TriggerType,
			Severity:    rule.Severity,
			Description: rule.Description,
			Value:       1,
		})
	}
	if triggers == nil {
		triggers = []Trigger{}
	}

	level := deriveLevel(triggers)
	return &Assessment{
		RequiresExtendedThinking: len(triggers) > 0,
		ComplexityLevel:          level,
		Triggers:                 triggers,
		Approach:                 approachByLevel[level],
		EstimatedTime:            timeByLevel[level],
	}
}

// deriveLevel classifies purely from trigger counts:
// >=3 high -> very-high; >=2 high -> high; >=1 high or >=3 medium ->
// medium; otherwise low.
func deriveLevel(triggers []Trigger) Level {
	high, medium := 0, 0
	for _, t := range triggers {
		switch t.Severity {
		case SeverityHigh:
			high++
		case SeverityMedium:
			medium++
		}
	}
	switch {
	case high >= 3:
		return LevelVeryHigh
	case high >= 2:
		return LevelHigh
	case high >= 1 || medium >= 3:
		return LevelMedium
	default:
		return LevelLow
	}
}
