package factory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PipeOpsHQ/agent-kickoff/llm"
	anthropicprov "github.com/PipeOpsHQ/agent-kickoff/providers/anthropic"
	geminiprov "github.com/PipeOpsHQ/agent-kickoff/providers/gemini"
	openaiprov "github.com/PipeOpsHQ/agent-kickoff/providers/openai"
	"github.com/PipeOpsHQ/agent-kickoff/types"
)

// Settings carries provider credentials and endpoints.
type Settings struct {
	DefaultProvider    string
	GeminiAPIKey       string
	GeminiBaseURL      string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	AnthropicAPIKey    string
	AnthropicBaseURL   string
	AnthropicMaxTokens int // zero keeps the client default
}

// New builds the named provider from settings.
func New(ctx context.Context, name string, s Settings) (llm.Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "gemini":
		if s.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for provider gemini")
		}
		opts := []geminiprov.Option{}
		if s.GeminiBaseURL != "" {
			opts = append(opts, geminiprov.WithBaseURL(s.GeminiBaseURL))
		}
		return geminiprov.New(ctx, s.GeminiAPIKey, opts...)

	case "openai":
		if s.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for provider openai")
		}
		opts := []openaiprov.Option{}
		if s.OpenAIBaseURL != "" {
			opts = append(opts, openaiprov.WithBaseURL(s.OpenAIBaseURL))
		}
		return openaiprov.New(s.OpenAIAPIKey, opts...)

	case "anthropic":
		if s.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for provider anthropic")
		}
		opts := []anthropicprov.Option{anthropicprov.WithMaxTokens(s.AnthropicMaxTokens)}
		if s.AnthropicBaseURL != "" {
			opts = append(opts, anthropicprov.WithBaseURL(s.AnthropicBaseURL))
		}
		return anthropicprov.New(s.AnthropicAPIKey, opts...)
	}

	return nil, fmt.Errorf("unsupported provider %q (use gemini, openai, or anthropic)", name)
}

// Router is a Provider that dispatches on the "provider/model" prefix of the
// requested model, building each backend once on first use. Models without a
// prefix go to the default provider.
type Router struct {
	settings Settings

	mu        sync.Mutex
	providers map[string]llm.Provider
}

func NewRouter(s Settings) *Router {
	if strings.TrimSpace(s.DefaultProvider) == "" {
		s.DefaultProvider = "gemini"
	}
	return &Router{settings: s, providers: map[string]llm.Provider{}}
}

func (r *Router) Name() string { return "router" }

// Register installs a prebuilt provider under name, replacing any cached one.
func (r *Router) Register(name string, p llm.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[strings.ToLower(strings.TrimSpace(name))] = p
}

// Resolve returns the backend and bare model name for a routed model string.
func (r *Router) Resolve(ctx context.Context, model string) (llm.Provider, string, error) {
	name, bare := llm.SplitModel(model)
	if name == "" {
		name = strings.ToLower(strings.TrimSpace(r.settings.DefaultProvider))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		return p, bare, nil
	}
	p, err := New(ctx, name, r.settings)
	if err != nil {
		return nil, "", err
	}
	r.providers[name] = p
	return p, bare, nil
}

func (r *Router) Complete(ctx context.Context, req types.CompletionRequest) (types.Completion, error) {
	p, model, err := r.Resolve(ctx, req.Model)
	if err != nil {
		return types.Completion{}, err
	}
	req.Model = model
	return p.Complete(ctx, req)
}
