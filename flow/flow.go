// Package flow provides a registry of named single-step completion flows.
// A flow fixes the model and the messages sent to it; the workflow package
// executes it.
package flow

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/PipeOpsHQ/agent-kickoff/llm"
	"github.com/PipeOpsHQ/agent-kickoff/types"
	"github.com/PipeOpsHQ/agent-kickoff/workflow"
)

// ErrNotFound is returned when a flow name is not registered.
var ErrNotFound = errors.New("flow not found")

// Definition describes a named flow.
type Definition struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Model       string          `json:"model,omitempty" yaml:"model,omitempty"`
	Messages    []types.Message `json:"messages" yaml:"messages"`
}

// Validate checks that the definition can be run.
func (d *Definition) Validate() error {
	if d == nil {
		return fmt.Errorf("flow definition is nil")
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("flow name is required")
	}
	if len(d.Messages) == 0 {
		return fmt.Errorf("flow %q: at least one message is required", d.Name)
	}
	for i, m := range d.Messages {
		switch m.Role {
		case types.RoleSystem, types.RoleUser, types.RoleAssistant:
		default:
			return fmt.Errorf("flow %q: message %d has unsupported role %q", d.Name, i, m.Role)
		}
		if m.Content == "" {
			return fmt.Errorf("flow %q: message %d has empty content", d.Name, i)
		}
	}
	return nil
}

// NewRunner builds a workflow runner bound to this flow's model and messages.
// Extra options are applied after the flow's own, so callers can override
// the timeout, sink or id generator.
func (d *Definition) NewRunner(p llm.Provider, opts ...workflow.Option) (*workflow.Runner, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	base := []workflow.Option{
		workflow.WithName(d.Name),
		workflow.WithModel(d.Model),
		workflow.WithMessages(d.Messages...),
	}
	return workflow.New(p, append(base, opts...)...)
}

var (
	mu    sync.RWMutex
	flows = map[string]*Definition{}
)

// Register adds a flow definition to the global registry.
func Register(f *Definition) error {
	if err := f.Validate(); err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := flows[f.Name]; exists {
		return fmt.Errorf("flow %q already registered", f.Name)
	}
	flows[f.Name] = f
	return nil
}

// MustRegister registers a flow and panics on error.
func MustRegister(f *Definition) {
	if err := Register(f); err != nil {
		panic(err)
	}
}

// Get returns a flow definition by name.
func Get(name string) (*Definition, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := flows[name]
	return f, ok
}

// Lookup is Get with an error wrapping ErrNotFound.
func Lookup(name string) (*Definition, error) {
	f, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return f, nil
}

// Names returns all registered flow names sorted alphabetically.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(flows))
	for name := range flows {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// All returns all registered flow definitions sorted by name.
func All() []*Definition {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]*Definition, 0, len(flows))
	for _, f := range flows {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reset clears the registry. Intended for tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	flows = map[string]*Definition{}
}
