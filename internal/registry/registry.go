// Package registry is the central catalog of workflow commands. It maps
// command names and aliases to descriptors, supports lookup, search,
// categorized listing, and advisory dependency validation. No business
// logic about what commands do lives here.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ccplugins/workbench/internal/phases"
)

// Sentinel errors for lookup and registration failures.
var (
	ErrDuplicateCommand = errors.New("command already registered")
	ErrUnknownCommand   = errors.New("command not registered")
)

// Command is the behavior contract a registered implementation
// satisfies: it supplies the per-phase hook bundle the runner executes.
type Command interface {
	Hooks() phases.Hooks
}

// Factory instantiates a command implementation.
type Factory func() Command

// Descriptor is the registry entity for one command. Immutable after
// registration for the lifetime of the process.
type Descriptor struct {
	Name             string   `json:"name" yaml:"name"`
	Description      string   `json:"description" yaml:"description"`
	Category         string   `json:"category" yaml:"category"`
	Version          string   `json:"version" yaml:"version"`
	Dependencies     []string `json:"dependencies,omitempty" yaml:"dependencies"`
	ExtendedThinking bool     `json:"extendedThinking" yaml:"extendedThinking"`
	SessionSupport   bool     `json:"sessionSupport" yaml:"sessionSupport"`
	Aliases          []string `json:"aliases,omitempty" yaml:"aliases"`
	Examples         []string `json:"examples,omitempty" yaml:"examples"`

	Factory Factory `json:"-" yaml:"-"`
}

// SearchResult pairs a descriptor with its relevance score.
type SearchResult struct {
	Descriptor *Descriptor `json:"descriptor"`
	Score      int         `json:"score"`
}

// DependencyReport is the advisory result of ValidateDependencies.
// It is a pre-flight check, never an execution gate.
type DependencyReport struct {
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing"`
}

// Registry holds all registered commands. Safe for concurrent readers;
// registration normally happens once at startup.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Descriptor
	aliases  map[string]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		commands: map[string]*Descriptor{},
		aliases:  map[string]string{},
	}
}

// Register adds a descriptor. It fails on a duplicate primary name or
// on any alias colliding with an existing name or alias. Dependencies
// are NOT checked here — any registration order is allowed; use
// ValidateDependencies for the advisory check.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil || d.Name == "" {
		return fmt.Errorf("registering command: name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.taken(d.Name) {
		return fmt.Errorf("registering %q: %w", d.Name, ErrDuplicateCommand)
	}
	for _, alias := range d.Aliases {
		if r.taken(alias) {
			return fmt.Errorf("registering alias %q for %q: %w", alias, d.Name, ErrDuplicateCommand)
		}
	}

	r.commands[d.Name] = d
	for _, alias := range d.Aliases {
		r.aliases[alias] = d.Name
	}
	return nil
}

// taken reports whether name is already a primary name or alias.
// Callers must hold the lock.
func (r *Registry) taken(name string) bool {
	if _, ok := r.commands[name]; ok {
		return true
	}
	_, ok := r.aliases[name]
	return ok
}

// Get resolves a primary name or alias to its descriptor.
func (r *Registry) Get(name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.commands[name]; ok {
		return d, nil
	}
	if primary, ok := r.aliases[name]; ok {
		return r.commands[primary], nil
	}
	return nil, fmt.Errorf("looking up %q: %w", name, ErrUnknownCommand)
}

// Has reports whether name resolves to a registered command.
func (r *Registry) Has(name string) bool {
	_, err := r.Get(name)
	return err == nil
}

// Create instantiates the implementation for name. Descriptors without
// a factory produce a command with no hooks (every phase is a no-op
// completion — the assistant drives the actual analysis).
func (r *Registry) Create(name string) (Command, error) {
	d, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if d.Factory == nil {
		return noopCommand{}, nil
	}
	return d.Factory(), nil
}

type noopCommand struct{}

func (noopCommand) Hooks() phases.Hooks { return phases.Hooks{} }

// List returns all descriptors, deduplicated across aliases and sorted
// by primary name.
func (r *Registry) List() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, 0, len(r.commands))
	for _, d := range r.commands {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListByCategory returns the descriptors in one category, sorted by name.
func (r *Registry) ListByCategory(category string) []*Descriptor {
	var out []*Descriptor
	for _, d := range r.List() {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// Fixed relevance scores for search ranking.
const (
	scoreExactName   = 100
	scoreNameMatch   = 50
	scoreDescription = 25
	scoreCategory    = 10
)

// Search performs a case-insensitive substring match across primary
// name, description, and category. Alias matches are not searched —
// primary names only. Results are ranked by the fixed relevance score
// and alphabetically within equal scores.
func (r *Registry) Search(query string) []SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var out []SearchResult
	for _, d := range r.List() {
		score := 0
		name := strings.ToLower(d.Name)
		switch {
		case name == q:
			score = scoreExactName
		case strings.Contains(name, q):
			score = scoreNameMatch
		case strings.Contains(strings.ToLower(d.Description), q):
			score = scoreDescription
		case strings.Contains(strings.ToLower(d.Category), q):
			score = scoreCategory
		}
		if score > 0 {
			out = append(out, SearchResult{Descriptor: d, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// SuggestionContext keys the static suggestion tables.
type SuggestionContext struct {
	Category string
	Phase    string
}

// maxSuggestions caps Suggestions output.
const maxSuggestions = 5

// suggestionsByCategory and suggestionsByPhase are static lookup
// tables; suggestions are deduplicated and capped, never computed.
var suggestionsByCategory = map[string][]string{
	"planning":    {"requirements", "plan", "adr"},
	"validation":  {"validate-implementation", "expand-tests"},
	"expansion":   {"expand-tests", "expand-api", "expand-components", "expand-models"},
	"performance": {"performance-audit", "containerize"},
	"deployment":  {"containerize", "feature-status"},
	"testing":     {"expand-tests", "validate-implementation"},
}

var suggestionsByPhase = map[string][]string{
	"setup":      {"requirements"},
	"discovery":  {"feature-status"},
	"analysis":   {"plan", "adr"},
	"execution":  {"validate-implementation"},
	"validation": {"retrospective", "expand-tests"},
}

// Suggestions returns up to five registered command names matching the
// context's category and phase, deduplicated, in table order.
func (r *Registry) Suggestions(ctx SuggestionContext) []string {
	seen := map[string]bool{}
	var out []string
	add := func(names []string) {
		for _, name := range names {
			if len(out) >= maxSuggestions {
				return
			}
			if seen[name] || !r.Has(name) {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	add(suggestionsByCategory[ctx.Category])
	add(suggestionsByPhase[ctx.Phase])
	return out
}

// ValidateDependencies checks that every declared dependency of name is
// itself registered. It returns a report rather than erroring — callers
// treat it as an optional pre-flight check.
func (r *Registry) ValidateDependencies(name string) (*DependencyReport, error) {
	d, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	report := &DependencyReport{Valid: true, Missing: []string{}}
	for _, dep := range d.Dependencies {
		if !r.Has(dep) {
			report.Valid = false
			report.Missing = append(report.Missing, dep)
		}
	}
	return report, nil
}

// Help renders a human-readable help text for one command.
func (r *Registry) Help(name string) (string, error) {
	d, err := r.Get(name)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "/%s — %s\n", d.Name, d.Description)
	fmt.Fprintf(&b, "Category: %s", d.Category)
	if d.Version != "" {
		fmt.Fprintf(&b, "  Version: %s", d.Version)
	}
	b.WriteString("\n")
	if len(d.Aliases) > 0 {
		fmt.Fprintf(&b, "Aliases: %s\n", strings.Join(d.Aliases, ", "))
	}
	if len(d.Dependencies) > 0 {
		fmt.Fprintf(&b, "Depends on: %s\n", strings.Join(d.Dependencies, ", "))
	}
	if d.ExtendedThinking {
		b.WriteString("Supports extended analysis escalation.\n")
	}
	if len(d.Examples) > 0 {
		b.WriteString("Examples:\n")
		for _, ex := range d.Examples {
			fmt.Fprintf(&b, "  %s\n", ex)
		}
	}
	return b.String(), nil
}
