package factory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PipeOpsHQ/agent-kickoff/llm"
	"github.com/PipeOpsHQ/agent-kickoff/types"
)

func TestNew_BuildsNamedProvider(t *testing.T) {
	s := Settings{
		GeminiAPIKey:    "test-gemini-key",
		OpenAIAPIKey:    "test-openai-key",
		AnthropicAPIKey: "test-anthropic-key",
	}
	for _, name := range []string{"gemini", "openai", "anthropic", " OpenAI "} {
		p, err := New(context.Background(), name, s)
		if err != nil {
			t.Fatalf("New(%q) returned error: %v", name, err)
		}
		if want := strings.ToLower(strings.TrimSpace(name)); p.Name() != want {
			t.Fatalf("New(%q) built %q", name, p.Name())
		}
	}
}

func TestNew_MissingKey(t *testing.T) {
	for _, name := range []string{"gemini", "openai", "anthropic"} {
		if _, err := New(context.Background(), name, Settings{}); err == nil {
			t.Fatalf("expected missing key error for %s", name)
		}
	}
}

func TestNew_UnsupportedProvider(t *testing.T) {
	if _, err := New(context.Background(), "unknown-provider", Settings{}); err == nil {
		t.Fatalf("expected unsupported provider error")
	}
}

func TestNew_AnthropicMaxTokens(t *testing.T) {
	tests := []struct {
		name      string
		maxTokens int
		want      float64
	}{
		{"configured", 256, 256},
		{"default", 0, 1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got float64
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var body map[string]any
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					t.Errorf("failed to decode request: %v", err)
				}
				got, _ = body["max_tokens"].(float64)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
			}))
			defer ts.Close()

			p, err := New(context.Background(), "anthropic", Settings{
				AnthropicAPIKey:    "k",
				AnthropicBaseURL:   ts.URL,
				AnthropicMaxTokens: tt.maxTokens,
			})
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if _, err := p.Complete(context.Background(), types.CompletionRequest{
				Messages: []types.Message{{Role: types.RoleUser, Content: "hi"}},
			}); err != nil {
				t.Fatalf("Complete failed: %v", err)
			}
			if got != tt.want {
				t.Fatalf("max_tokens = %v, want %v", got, tt.want)
			}
		})
	}
}

type recordingProvider struct {
	name   string
	models []string
}

func (p *recordingProvider) Name() string { return p.name }

func (p *recordingProvider) Complete(ctx context.Context, req types.CompletionRequest) (types.Completion, error) {
	_ = ctx
	p.models = append(p.models, req.Model)
	return types.Completion{Choices: []types.Choice{{Message: types.Message{Content: p.name}}}}, nil
}

func TestRouter_DispatchesOnPrefix(t *testing.T) {
	gem := &recordingProvider{name: "gemini"}
	oai := &recordingProvider{name: "openai"}
	r := NewRouter(Settings{DefaultProvider: "openai"})
	r.Register("gemini", gem)
	r.Register("openai", oai)

	var _ llm.Provider = r

	tests := []struct {
		model     string
		wantOwner string
	}{
		{"gemini/gemini-1.5-flash", "gemini"},
		{"gpt-4o-mini", "openai"},
		{"OpenAI/gpt-4o", "openai"},
	}
	for _, tt := range tests {
		got, err := r.Complete(context.Background(), types.CompletionRequest{Model: tt.model})
		if err != nil {
			t.Fatalf("Complete(%q) failed: %v", tt.model, err)
		}
		if got.Choices[0].Message.Content != tt.wantOwner {
			t.Fatalf("Complete(%q) routed to %q, want %q", tt.model, got.Choices[0].Message.Content, tt.wantOwner)
		}
	}

	if len(gem.models) != 1 || gem.models[0] != "gemini-1.5-flash" {
		t.Fatalf("gemini saw unexpected models: %v", gem.models)
	}
	if len(oai.models) != 2 || oai.models[0] != "gpt-4o-mini" || oai.models[1] != "gpt-4o" {
		t.Fatalf("openai saw unexpected models: %v", oai.models)
	}
}

func TestRouter_ResolveCachesProviders(t *testing.T) {
	r := NewRouter(Settings{OpenAIAPIKey: "k"})
	p1, model, err := r.Resolve(context.Background(), "openai/gpt-4o")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if model != "gpt-4o" {
		t.Fatalf("unexpected bare model %q", model)
	}
	p2, _, err := r.Resolve(context.Background(), "openai/gpt-4o-mini")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if p1 != p2 {
		t.Fatalf("expected cached provider instance")
	}
}

func TestRouter_UnknownPrefix(t *testing.T) {
	r := NewRouter(Settings{})
	if _, err := r.Complete(context.Background(), types.CompletionRequest{Model: "mystery/model"}); err == nil {
		t.Fatalf("expected error for unknown provider prefix")
	}
}
