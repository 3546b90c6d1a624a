package registry

// builtinVersion stamps every built-in descriptor.
const builtinVersion = "1.0.0"

// defaultFactory returns a command whose hooks complete each phase with
// no findings. Built-ins rely on the runner's assessment and the
// assistant's own analysis for substance.
func defaultFactory() Command { return noopCommand{} }

// Builtins returns descriptors for the standard command set.
func Builtins() []*Descriptor {
	mk := func(d Descriptor) *Descriptor {
		d.Version = builtinVersion
		d.SessionSupport = true
		if d.Factory == nil {
			d.Factory = defaultFactory
		}
		return &d
	}

	return []*Descriptor{
		mk(Descriptor{
			Name:        "requirements",
			Description: "Gather and structure feature requirements before implementation",
			Category:    "planning",
			Aliases:     []string{"reqs"},
			Examples:    []string{"/requirements user authentication"},
		}),
		mk(Descriptor{
			Name:             "plan",
			Description:      "Produce a phased implementation plan from gathered requirements",
			Category:         "planning",
			Dependencies:     []string{"requirements"},
			ExtendedThinking: true,
			Examples:         []string{"/plan payment processing"},
		}),
		mk(Descriptor{
			Name:         "adr",
			Description:  "Record an architecture decision with context and consequences",
			Category:     "planning",
			Dependencies: []string{"plan"},
		}),
		mk(Descriptor{
			Name:             "validate-implementation",
			Description:      "Check implemented code against its plan and requirements",
			Category:         "validation",
			Dependencies:     []string{"plan"},
			ExtendedThinking: true,
			Aliases:          []string{"validate"},
		}),
		mk(Descriptor{
			Name:        "feature-status",
			Description: "Report completion state of in-flight features",
			Category:    "validation",
			Aliases:     []string{"status"},
		}),
		mk(Descriptor{
			Name:        "retrospective",
			Description: "Review a completed feature for lessons and follow-ups",
			Category:    "validation",
			Aliases:     []string{"retro"},
		}),
		mk(Descriptor{
			Name:             "expand-tests",
			Description:      "Grow test coverage around existing behavior",
			Category:         "expansion",
			ExtendedThinking: true,
		}),
		mk(Descriptor{
			Name:        "expand-api",
			Description: "Extend an API surface following existing conventions",
			Category:    "expansion",
		}),
		mk(Descriptor{
			Name:        "expand-components",
			Description: "Add UI components consistent with the existing component library",
			Category:    "expansion",
		}),
		mk(Descriptor{
			Name:        "expand-models",
			Description: "Extend data models and their persistence mappings",
			Category:    "expansion",
		}),
		mk(Descriptor{
			Name:             "performance-audit",
			Description:      "Analyze bundle size, queries, and rendering for performance issues",
			Category:         "performance",
			ExtendedThinking: true,
			Aliases:          []string{"perf"},
			Examples:         []string{"/performance-audit frontend"},
		}),
		mk(Descriptor{
			Name:        "containerize",
			Description: "Produce container and deployment configuration for the project",
			Category:    "deployment",
			Aliases:     []string{"docker"},
		}),
	}
}

// RegisterBuiltins installs the standard command set into r.
func RegisterBuiltins(r *Registry) error {
	for _, d := range Builtins() {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}
