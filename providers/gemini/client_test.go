package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"

	"github.com/PipeOpsHQ/agent-kickoff/types"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(context.Background(), "  "); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestClientComplete_RoundTrip(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": "Hello "}, {"text": "World"}]}
			}],
			"usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 3, "totalTokenCount": 15}
		}`))
	}))
	defer ts.Close()

	client, err := New(context.Background(), "test-key",
		WithBaseURL(ts.URL+"/"),
		WithHTTPClient(ts.Client()),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	got, err := client.Complete(context.Background(), types.CompletionRequest{
		Model:    "gemini-1.5-flash",
		Messages: []types.Message{{Role: types.RoleUser, Content: "Say Hello World"}},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if !strings.HasSuffix(gotPath, "/models/gemini-1.5-flash:generateContent") {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if _, ok := gotBody["contents"]; !ok {
		t.Fatalf("request body has no contents: %#v", gotBody)
	}

	want := types.Completion{
		Model: "gemini-1.5-flash",
		Choices: []types.Choice{{
			Index:   0,
			Message: types.Message{Role: types.RoleAssistant, Content: "Hello World"},
		}},
		Usage: &types.Usage{InputTokens: 12, OutputTokens: 3, TotalTokens: 15},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("completion mismatch (-want +got):\n%s", diff)
	}
}

func TestClientComplete_HTTPErrorIsReturned(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"code": 500, "message": "boom", "status": "INTERNAL"}}`))
	}))
	defer ts.Close()

	client, err := New(context.Background(), "test-key", WithBaseURL(ts.URL+"/"), WithHTTPClient(ts.Client()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := client.Complete(context.Background(), types.CompletionRequest{
		Messages: []types.Message{{Role: types.RoleUser, Content: "hi"}},
	}); err == nil {
		t.Fatalf("expected error for upstream failure")
	}
}

func TestParseGeminiResponse(t *testing.T) {
	t.Run("nil response has no choices", func(t *testing.T) {
		got := parseGeminiResponse(nil)
		if len(got.Choices) != 0 {
			t.Fatalf("expected no choices, got %#v", got.Choices)
		}
	})

	t.Run("thought parts are dropped and text kept verbatim", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "thinking...", Thought: true},
					{Text: "  spaced answer  "},
				}},
			}},
		}
		got := parseGeminiResponse(resp)
		if len(got.Choices) != 1 {
			t.Fatalf("expected one choice, got %d", len(got.Choices))
		}
		if got.Choices[0].Message.Content != "  spaced answer  " {
			t.Fatalf("unexpected content %q", got.Choices[0].Message.Content)
		}
		if got.Usage != nil {
			t.Fatalf("expected nil usage, got %#v", got.Usage)
		}
	})
}

func TestToGeminiContents_SplitsSystem(t *testing.T) {
	contents, system := toGeminiContents([]types.Message{
		{Role: types.RoleSystem, Content: "be brief"},
		{Role: types.RoleUser, Content: "hi"},
		{Role: types.RoleAssistant, Content: "hello"},
	})
	if system != "be brief" {
		t.Fatalf("unexpected system instruction %q", system)
	}
	if len(contents) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(contents))
	}
	if contents[0].Role != string(genai.RoleUser) || contents[1].Role != string(genai.RoleModel) {
		t.Fatalf("unexpected roles: %q, %q", contents[0].Role, contents[1].Role)
	}
}
