package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// OpenAI talks to a chat-completions compatible endpoint.
type OpenAI struct {
	apiKey    string
	model     string
	maxTokens int
	baseURL   string
	client    *http.Client
}

// NewOpenAI builds an OpenAI provider; apiKey is required.
func NewOpenAI(apiKey, model, baseURL string, maxTokens int, timeout time.Duration) (*OpenAI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: OPENAI_API_KEY not set")
	}
	return &OpenAI{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		baseURL:   strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/v1"),
		client:    &http.Client{Timeout: timeout},
	}, nil
}

func (o *OpenAI) Name() string { return "openai" }

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) Generate(ctx context.Context, prompt, system string) (string, error) {
	var messages []chatMessage
	if strings.TrimSpace(system) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})
	reqBody := chatRequest{Model: o.model, Messages: messages, MaxTokens: o.maxTokens}
	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}
	var resp chatResponse
	if err := postJSON(ctx, o.client, o.Name(), o.baseURL+"/v1/chat/completions", headers, reqBody, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &Error{Provider: o.Name(), Err: ErrEmptyResponse}
	}
	return resp.Choices[0].Message.Content, nil
}
