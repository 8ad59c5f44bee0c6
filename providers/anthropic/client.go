package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PipeOpsHQ/agent-kickoff/types"
)

const (
	defaultModel      = "claude-3-5-sonnet-latest"
	anthropicVersion  = "2023-06-01"
	defaultMaxTokens  = 1024
	defaultAPIBaseURL = "https://api.anthropic.com"
)

type Client struct {
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func New(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	c := &Client{
		apiKey:    strings.TrimSpace(apiKey),
		model:     defaultModel,
		baseURL:   defaultAPIBaseURL,
		maxTokens: defaultMaxTokens,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return "anthropic" }

// Complete sends the conversation to the Messages API. System messages are
// lifted into the top-level system field; the text blocks of the reply form
// a single choice.
func (c *Client) Complete(ctx context.Context, req types.CompletionRequest) (types.Completion, error) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	payload := messagesRequest{
		Model:     model,
		MaxTokens: c.maxTokens,
		Messages:  make([]message, 0, len(req.Messages)),
	}
	var system []string
	for _, m := range req.Messages {
		switch m.Role {
		case types.RoleSystem:
			system = append(system, m.Content)
		case types.RoleAssistant:
			payload.Messages = append(payload.Messages, message{Role: "assistant", Content: []contentBlock{{Type: "text", Text: m.Content}}})
		default:
			payload.Messages = append(payload.Messages, message{Role: "user", Content: []contentBlock{{Type: "text", Text: m.Content}}})
		}
	}
	payload.System = strings.Join(system, "\n\n")

	raw, err := json.Marshal(payload)
	if err != nil {
		return types.Completion{}, fmt.Errorf("failed to marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(raw))
	if err != nil {
		return types.Completion{}, fmt.Errorf("failed to create anthropic request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return types.Completion{}, fmt.Errorf("anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Completion{}, fmt.Errorf("failed to read anthropic response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return types.Completion{}, fmt.Errorf("anthropic API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var apiResp messagesResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return types.Completion{}, fmt.Errorf("failed to decode anthropic response: %w", err)
	}

	out := types.Completion{Model: apiResp.Model, Choices: []types.Choice{}}
	if out.Model == "" {
		out.Model = model
	}
	var text strings.Builder
	hasText := false
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
			hasText = true
		}
	}
	if hasText {
		out.Choices = append(out.Choices, types.Choice{
			Message: types.Message{Role: types.RoleAssistant, Content: text.String()},
		})
	}
	if apiResp.Usage.InputTokens > 0 || apiResp.Usage.OutputTokens > 0 {
		out.Usage = &types.Usage{
			InputTokens:  apiResp.Usage.InputTokens,
			OutputTokens: apiResp.Usage.OutputTokens,
			TotalTokens:  apiResp.Usage.InputTokens + apiResp.Usage.OutputTokens,
		}
	}
	return out, nil
}

type messagesRequest struct {
	Model     string    `json:"model"`
	System    string    `json:"system,omitempty"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type messagesResponse struct {
	Model   string         `json:"model"`
	Content []contentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
