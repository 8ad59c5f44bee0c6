package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/PipeOpsHQ/agent-kickoff/types"
)

// Provider is any backend that, given a model name and an ordered list of
// role/content messages, returns generated choices.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req types.CompletionRequest) (types.Completion, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc struct {
	ProviderName string
	Fn           func(ctx context.Context, req types.CompletionRequest) (types.Completion, error)
}

func (p ProviderFunc) Name() string {
	if p.ProviderName == "" {
		return "func"
	}
	return p.ProviderName
}

func (p ProviderFunc) Complete(ctx context.Context, req types.CompletionRequest) (types.Completion, error) {
	if p.Fn == nil {
		return types.Completion{}, fmt.Errorf("provider func is nil")
	}
	return p.Fn(ctx, req)
}

// SplitModel splits a routed model string such as "gemini/gemini-1.5-flash"
// into its provider prefix and bare model name. A string without a slash
// yields an empty provider.
func SplitModel(model string) (provider string, name string) {
	model = strings.TrimSpace(model)
	prefix, rest, ok := strings.Cut(model, "/")
	if !ok || prefix == "" || rest == "" {
		return "", model
	}
	return strings.ToLower(prefix), rest
}
