// Package agents implements the multi-agent conversation:
// PM -> Architect -> Coder -> Reviewer in a round-robin group chat.
package agents

import (
	"fmt"

	"agentpipe/internal/prompts"
)

// Agent is one participant in the group chat.
type Agent struct {
	// Name appears in run log speaker headers.
	Name string

	// System is the agent's system prompt.
	System string
}

// UserName is the speaker name for the opening feature request.
const UserName = "User"

// Roster builds the fixed four-agent roster, loading system prompts from the
// store so projects can override them.
func Roster(store *prompts.Store) ([]Agent, error) {
	specs := []struct {
		name   string
		prompt string
	}{
		{"PM", prompts.ManagerPrompt},
		{"Architect", prompts.ArchitectPrompt},
		{"Coder", prompts.CoderPrompt},
		{"Reviewer", prompts.ReviewerPrompt},
	}

	roster := make([]Agent, 0, len(specs))
	for _, spec := range specs {
		system, err := store.Load(spec.prompt)
		if err != nil {
			return nil, fmt.Errorf("load prompt for %s: %w", spec.name, err)
		}
		roster = append(roster, Agent{Name: spec.name, System: system})
	}
	return roster, nil
}
