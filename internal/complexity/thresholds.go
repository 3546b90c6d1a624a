// Package complexity decides whether a command's default shallow pass
// should escalate into a deeper analysis pass.
//
// The decision is driven entirely by fixed per-category threshold tables
// compared against quantitative/boolean signals gathered during
// discovery. Everything in this package is a pure function of its
// inputs: no I/O, no randomness, no clock.
package complexity

import "strings"

// Signals is the loosely-typed context object of numeric and boolean
// discovery facts a command gathered (bundle size, file count, flags).
type Signals map[string]any

// numberSignal extracts a numeric signal, accepting the types JSON
// decoding and Go callers produce.
func numberSignal(s Signals, key string) (float64, bool) {
	switch v := s[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// boolSignal extracts a boolean signal.
func boolSignal(s Signals, key string) bool {
	v, ok := s[key].(bool)
	return ok && v
}

// --- Threshold tables ---

// thresholdRule compares one numeric signal against a fixed threshold.
// The signal triggers when its value strictly exceeds the threshold.
type thresholdRule struct {
	Signal      string
	Threshold   float64
	Severity    Severity
	TriggerType string
	Description string
}

// boolRule fires at a fixed severity whenever the signal is true,
// regardless of any threshold.
type boolRule struct {
	Signal      string
	Severity    Severity
	TriggerType string
	Description string
}

// categoryThresholds maps a canonical command category to its numeric
// escalation rules.
var categoryThresholds = map[string][]thresholdRule{
	"performance": {
		{Signal: "bundleSize", Threshold: 1_048_576, Severity: SeverityHigh, TriggerType: "large-bundle",
			Description: "bundle size exceeds 1MB"},
		{Signal: "loadTime", Threshold: 3000, Severity: SeverityMedium, TriggerType: "slow-load",
			Description: "page load time exceeds 3s"},
		{Signal: "requestCount", Threshold: 50, Severity: SeverityMedium, TriggerType: "request-storm",
			Description: "page issues more than 50 network requests"},
	},
	"accessibility": {
		{Signal: "violationCount", Threshold: 25, Severity: SeverityHigh, TriggerType: "violation-backlog",
			Description: "more than 25 accessibility violations"},
		{Signal: "componentCount", Threshold: 100, Severity: SeverityMedium, TriggerType: "wide-surface",
			Description: "more than 100 components to audit"},
	},
	"architecture": {
		{Signal: "fileCount", Threshold: 500, Severity: SeverityHigh, TriggerType: "large-codebase",
			Description: "more than 500 source files"},
		{Signal: "moduleCount", Threshold: 50, Severity: SeverityMedium, TriggerType: "module-sprawl",
			Description: "more than 50 modules"},
	},
	"deployment": {
		{Signal: "serviceCount", Threshold: 5, Severity: SeverityHigh, TriggerType: "many-services",
			Description: "more than 5 deployable services"},
		{Signal: "teamSize", Threshold: 10, Severity: SeverityMedium, TriggerType: "large-team",
			Description: "more than 10 people shipping to this pipeline"},
	},
	"testing": {
		{Signal: "untestedFiles", Threshold: 100, Severity: SeverityHigh, TriggerType: "coverage-hole",
			Description: "more than 100 files without tests"},
		{Signal: "coverageGapPercent", Threshold: 40, Severity: SeverityMedium, TriggerType: "coverage-gap",
			Description: "coverage gap exceeds 40 percent"},
	},
	"planning": {
		{Signal: "requirementCount", Threshold: 40, Severity: SeverityHigh, TriggerType: "requirement-volume",
			Description: "more than 40 requirements in scope"},
		{Signal: "stakeholderCount", Threshold: 8, Severity: SeverityMedium, TriggerType: "many-stakeholders",
			Description: "more than 8 stakeholders to reconcile"},
	},
}

// categoryBoolRules holds the boolean escalation rules per category.
var categoryBoolRules = map[string][]boolRule{
	"performance": {
		{Signal: "serverSideRendering", Severity: SeverityHigh, TriggerType: "ssr",
			Description: "uses server-side rendering"},
	},
	"accessibility": {
		{Signal: "dynamicContent", Severity: SeverityMedium, TriggerType: "dynamic-content",
			Description: "renders dynamic content requiring live-region auditing"},
	},
	"architecture": {
		{Signal: "circularDependencies", Severity: SeverityHigh, TriggerType: "circular-deps",
			Description: "circular dependencies detected"},
	},
	"deployment": {
		{Signal: "multiRegion", Severity: SeverityMedium, TriggerType: "multi-region",
			Description: "deploys to multiple regions"},
	},
	"planning": {
		{Signal: "regulatoryCompliance", Severity: SeverityHigh, TriggerType: "regulatory",
			Description: "subject to regulatory compliance requirements"},
	},
}

// commandCategories maps canonical command names to their threshold
// category. Commands absent from this table never escalate.
var commandCategories = map[string]string{
	"performance-audit":       "performance",
	"containerize":            "deployment",
	"requirements":            "planning",
	"plan":                    "planning",
	"adr":                     "planning",
	"feature-status":          "planning",
	"retrospective":           "planning",
	"validate-implementation": "testing",
	"expand-tests":            "testing",
	"expand-api":              "architecture",
	"expand-components":       "architecture",
	"expand-models":           "architecture",
}

// canonicalCommand strips command-name decoration (slash prefix,
// whitespace, an -enhanced suffix) down to the bare command key.
func canonicalCommand(command string) string {
	key := strings.ToLower(strings.TrimSpace(command))
	key = strings.TrimPrefix(key, "/")
	key = strings.TrimSuffix(key, "-enhanced")
	return key
}

// CanonicalCategory resolves a (possibly decorated) command name to its
// threshold category. Returns the empty string for unknown commands —
// which the assessor treats as "no escalation", never an error.
func CanonicalCategory(command string) string {
	key := canonicalCommand(command)

	if cat, ok := commandCategories[key]; ok {
		return cat
	}
	// A category name used directly is its own canonical key.
	if _, ok := categoryThresholds[key]; ok {
		return key
	}
	return ""
}
