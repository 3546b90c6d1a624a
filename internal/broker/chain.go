package broker

import (
	"fmt"

	"github.com/google/uuid"
)

// ChainStep is one entry in a workflow chain.
type ChainStep struct {
	Command      string   `json:"command"`
	Args         string   `json:"args,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Chain is a persisted ordered list of steps.
type Chain struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Steps     []ChainStep `json:"steps"`
	CreatedAt string      `json:"createdAt"`
}

// StepResult is one step's outcome during chain execution.
type StepResult struct {
	Command string         `json:"command"`
	Status  string         `json:"status"`
	Context map[string]any `json:"context,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ChainResult is the overall outcome of executing a chain. A failed
// step leaves Success false; a partial chain is never reported as
// successful.
type ChainResult struct {
	ChainID string       `json:"chainId"`
	Success bool         `json:"success"`
	Error   string       `json:"error,omitempty"`
	Steps   []StepResult `json:"steps"`
}

// StepExecutor runs one chain step. shared is the accumulated context
// from prior steps; the returned result's Context is threaded into
// subsequent steps.
type StepExecutor func(step ChainStep, shared map[string]any) (*StepResult, error)

const (
	stepCompleted = "completed"
	stepFailed    = "failed"
)

// CreateChain validates the chain's structure and persists it.
// Validation is structural only: steps must be non-empty, each step
// needs a command, and a dependency may only reference a command that
// appears earlier in the list. Whether those commands exist in the
// registry is not this layer's concern.
func (b *Broker) CreateChain(name string, steps []ChainStep) (*Chain, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("creating chain %q: no steps", name)
	}
	seen := map[string]bool{}
	for i, step := range steps {
		if step.Command == "" {
			return nil, fmt.Errorf("creating chain %q: step %d has no command", name, i+1)
		}
		for _, dep := range step.Dependencies {
			if !seen[dep] {
				return nil, fmt.Errorf("creating chain %q: step %q depends on %q which does not appear earlier in the chain", name, step.Command, dep)
			}
		}
		seen[step.Command] = true
	}

	chain := &Chain{
		ID:        uuid.NewString(),
		Name:      name,
		Steps:     steps,
		CreatedAt: timeNow().UTC().Format(timeFormat),
	}
	if err := b.docs.writeDoc(b.docs.ChainPath(chain.ID), chain); err != nil {
		return nil, fmt.Errorf("persisting chain %q: %w", name, err)
	}
	return chain, nil
}

// LoadChain reads a persisted chain by id.
func (b *Broker) LoadChain(chainID string) (*Chain, error) {
	var chain Chain
	if err := b.docs.readDoc(fmt.Sprintf("%s/%s.json", chainsDir, chainID), &chain); err != nil {
		return nil, err
	}
	if chain.ID == "" {
		return nil, fmt.Errorf("chain %s not found", chainID)
	}
	return &chain, nil
}

// ExecuteChain walks the chain in order. A step whose dependencies are
// not all completed is refused, aborting the chain. Each completed
// step's context is merged into the shared state passed to later
// steps. Any failure aborts the remaining steps.
func (b *Broker) ExecuteChain(chain *Chain, exec StepExecutor) *ChainResult {
	result := &ChainResult{ChainID: chain.ID, Steps: []StepResult{}}
	status := map[string]string{}
	shared := map[string]any{}

	for _, step := range chain.Steps {
		for _, dep := range step.Dependencies {
			if status[dep] != stepCompleted {
				result.Error = fmt.Sprintf("Dependency %s not completed", dep)
				return result
			}
		}

		sr, err := exec(step, shared)
		if err != nil {
			result.Steps = append(result.Steps, StepResult{
				Command: step.Command,
				Status:  stepFailed,
				Error:   err.Error(),
			})
			result.Error = fmt.Sprintf("step %s failed: %v", step.Command, err)
			return result
		}
		if sr == nil {
			sr = &StepResult{Command: step.Command, Status: stepCompleted}
		}
		if sr.Command == "" {
			sr.Command = step.Command
		}
		if sr.Status == "" {
			sr.Status = stepCompleted
		}
		result.Steps = append(result.Steps, *sr)
		status[step.Command] = sr.Status
		if sr.Status != stepCompleted {
			result.Error = fmt.Sprintf("step %s did not complete", step.Command)
			return result
		}
		for k, v := range sr.Context {
			shared[k] = v
		}
	}

	result.Success = true
	return result
}
