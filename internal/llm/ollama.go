package llm

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Ollama talks to a local Ollama server.
type Ollama struct {
	model   string
	baseURL string
	client  *http.Client
}

func NewOllama(baseURL, model string, timeout time.Duration) *Ollama {
	return &Ollama{
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (o *Ollama) Name() string { return "ollama" }

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func (o *Ollama) Generate(ctx context.Context, prompt, system string) (string, error) {
	reqBody := ollamaRequest{Model: o.model, Prompt: prompt, System: system, Stream: false}
	var resp ollamaResponse
	if err := postJSON(ctx, o.client, o.Name(), o.baseURL+"/api/generate", nil, reqBody, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}
