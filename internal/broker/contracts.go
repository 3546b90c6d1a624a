package broker

// Contract is a command's static exchange declaration: which fact
// names it publishes, which it reads, and which commands it proposes
// afterwards. Configuration, not computed.
type Contract struct {
	Provides []string
	Consumes []string
	Suggests []string
}

// contracts maps each command to its exchange contract.
var contracts = map[string]Contract{
	"requirements": {
		Provides: []string{"requirements", "acceptanceCriteria"},
		Suggests: []string{"plan"},
	},
	"plan": {
		Provides: []string{"implementationPlan", "phaseEstimates"},
		Consumes: []string{"requirements", "acceptanceCriteria", "architectureDecisions"},
		Suggests: []string{"adr", "validate-implementation"},
	},
	"adr": {
		Provides: []string{"architectureDecisions"},
		Consumes: []string{"implementationPlan"},
	},
	"validate-implementation": {
		Provides: []string{"validationReport", "testCoverage"},
		Consumes: []string{"implementationPlan", "requirements"},
		Suggests: []string{"expand-tests", "retrospective"},
	},
	"feature-status": {
		Provides: []string{"featureProgress"},
		Consumes: []string{"implementationPlan", "validationReport"},
	},
	"retrospective": {
		Provides: []string{"lessons", "followUps"},
		Consumes: []string{"featureProgress", "validationReport"},
	},
	"expand-tests": {
		Provides: []string{"testCoverage"},
		Consumes: []string{"validationReport"},
		Suggests: []string{"validate-implementation"},
	},
	"expand-api": {
		Provides: []string{"apiSurface"},
		Consumes: []string{"requirements"},
		Suggests: []string{"expand-tests"},
	},
	"expand-components": {
		Provides: []string{"componentInventory"},
		Consumes: []string{"apiSurface"},
	},
	"expand-models": {
		Provides: []string{"dataModels"},
		Consumes: []string{"requirements"},
		Suggests: []string{"expand-api"},
	},
	"performance-audit": {
		Provides: []string{"performanceMetrics", "bundleSize"},
		Consumes: []string{"deploymentConfig"},
		Suggests: []string{"containerize"},
	},
	"containerize": {
		Provides: []string{"containerConfig", "deploymentConfig"},
		Consumes: []string{"performanceMetrics"},
		Suggests: []string{"performance-audit"},
	},
}

// ContractFor returns a command's contract; unknown commands get an
// empty one.
func ContractFor(command string) Contract {
	return contracts[command]
}

// largeBundleBytes mirrors the complexity assessor's bundle threshold.
const largeBundleBytes = 1_048_576

// suggestionRule decides whether one command should be proposed after
// another and with what framing. Condition nil means always applicable.
type suggestionRule struct {
	Priority        string
	Reason          string
	ExpectedBenefit string
	Condition       func(a Analysis) bool
}

type pairKey struct{ From, To string }

// suggestionRules holds the pair-specific conditions. Pairs listed in
// a contract's Suggests but absent here fall back to defaultRule.
var suggestionRules = map[pairKey]suggestionRule{
	{"performance-audit", "containerize"}: {
		Priority:        "high",
		Reason:          "Bundle size exceeds 1MB; container build can enforce a slimmer artifact",
		ExpectedBenefit: "Smaller deployable image and faster cold starts",
		Condition: func(a Analysis) bool {
			return a.metric("bundleSize") > largeBundleBytes
		},
	},
	{"containerize", "performance-audit"}: {
		Priority:        "medium",
		Reason:          "New container configuration changes the runtime profile",
		ExpectedBenefit: "Baseline performance numbers for the containerized build",
	},
	{"validate-implementation", "expand-tests"}: {
		Priority:        "high",
		Reason:          "Validation surfaced multiple findings",
		ExpectedBenefit: "Regression coverage for the reported issues",
		Condition: func(a Analysis) bool {
			return len(a.Findings) > 0
		},
	},
	{"requirements", "plan"}: {
		Priority:        "high",
		Reason:          "Requirements are captured and ready to be planned",
		ExpectedBenefit: "Phased implementation plan grounded in the gathered requirements",
	},
	{"plan", "adr"}: {
		Priority:        "medium",
		Reason:          "The plan makes architectural choices worth recording",
		ExpectedBenefit: "Durable record of the decisions behind the plan",
	},
}

var defaultRule = suggestionRule{
	Priority:        "medium",
	Reason:          "Commonly follows the command that just completed",
	ExpectedBenefit: "Keeps the workflow moving without re-deriving context",
}

func ruleFor(from, to string) suggestionRule {
	if r, ok := suggestionRules[pairKey{from, to}]; ok {
		return r
	}
	return defaultRule
}
