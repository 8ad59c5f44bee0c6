package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/PipeOpsHQ/agent-kickoff/types"
)

const defaultModel = "gemini-1.5-flash"

type Client struct {
	client     *genai.Client
	model      string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithBaseURL points the client at a non-default Gemini API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSpace(baseURL) }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	c := &Client{model: defaultModel}
	for _, opt := range opts {
		opt(c)
	}

	cfg := &genai.ClientConfig{
		APIKey:     strings.TrimSpace(apiKey),
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	gc, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	c.client = gc
	return c, nil
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) Complete(ctx context.Context, req types.CompletionRequest) (types.Completion, error) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	contents, system := toGeminiContents(req.Messages)
	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return types.Completion{}, fmt.Errorf("gemini generation failed: %w", err)
	}
	if resp != nil && len(resp.Candidates) == 0 && resp.PromptFeedback != nil {
		if reason := strings.TrimSpace(resp.PromptFeedback.BlockReasonMessage); reason != "" {
			return types.Completion{}, fmt.Errorf("gemini returned no candidates: %s", reason)
		}
	}
	out := parseGeminiResponse(resp)
	out.Model = model
	return out, nil
}

// parseGeminiResponse maps each candidate to a choice. Thought parts are
// dropped; visible text parts are concatenated as-is.
func parseGeminiResponse(resp *genai.GenerateContentResponse) types.Completion {
	out := types.Completion{Choices: []types.Choice{}}
	if resp == nil {
		return out
	}
	for i, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var text strings.Builder
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text.WriteString(part.Text)
		}
		out.Choices = append(out.Choices, types.Choice{
			Index:   i,
			Message: types.Message{Role: types.RoleAssistant, Content: text.String()},
		})
	}
	if resp.UsageMetadata != nil {
		out.Usage = &types.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out
}

func toGeminiContents(messages []types.Message) ([]*genai.Content, string) {
	contents := make([]*genai.Content, 0, len(messages))
	var system []string
	for _, m := range messages {
		switch m.Role {
		case types.RoleSystem:
			system = append(system, m.Content)
		case types.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, strings.Join(system, "\n\n")
}
