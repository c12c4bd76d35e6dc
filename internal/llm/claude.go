package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

const anthropicVersion = "2023-06-01"

// Claude talks to the Anthropic messages API.
type Claude struct {
	apiKey    string
	model     string
	maxTokens int
	baseURL   string
	client    *http.Client
}

// NewClaude builds a Claude provider; apiKey is required.
func NewClaude(apiKey, model, baseURL string, maxTokens int, timeout time.Duration) (*Claude, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("claude: ANTHROPIC_API_KEY not set")
	}
	return &Claude{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *Claude) Name() string { return "claude" }

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *Claude) Generate(ctx context.Context, prompt, system string) (string, error) {
	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}
	var resp anthropicResponse
	if err := postJSON(ctx, c.client, c.Name(), c.baseURL+"/v1/messages", headers, reqBody, &resp); err != nil {
		return "", err
	}
	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", &Error{Provider: c.Name(), Err: ErrEmptyResponse}
	}
	return out.String(), nil
}
