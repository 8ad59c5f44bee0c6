package flow

import (
	"github.com/PipeOpsHQ/agent-kickoff/types"
	"github.com/PipeOpsHQ/agent-kickoff/workflow"
)

// DefaultName is the flow served by GET /kickoff.
const DefaultName = "simple"

// Simple returns the built-in hello-world flow.
func Simple() *Definition {
	return &Definition{
		Name:        DefaultName,
		Description: "Asks the model to say Hello World with its name and token usage.",
		Model:       workflow.DefaultModel,
		Messages:    []types.Message{{Role: types.RoleUser, Content: workflow.DefaultPrompt}},
	}
}

// RegisterBuiltins registers the built-in flows. Names already registered
// are skipped, so flows loaded from a file take priority.
func RegisterBuiltins() {
	_ = Register(Simple())
}
