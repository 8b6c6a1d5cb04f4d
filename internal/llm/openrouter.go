package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	openRouterAPI          = "https://openrouter.ai/api/v1/chat/completions"
	defaultOpenRouterModel = "google/gemini-2.0-flash-exp:free"
)

// OpenRouter calls an OpenAI-compatible chat completions endpoint in JSON mode.
type OpenRouter struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewOpenRouter creates a new OpenRouter client.
func NewOpenRouter(apiKey, model string, timeout time.Duration) *OpenRouter {
	return &OpenRouter{
		apiKey:   apiKey,
		model:    model,
		endpoint: openRouterAPI,
		client:   &http.Client{Timeout: clampTimeout(timeout)},
	}
}

// WithEndpoint points the client at a different completions URL.
func (o *OpenRouter) WithEndpoint(url string) *OpenRouter {
	o.endpoint = url
	return o
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatReply struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends the prompt as a single user message and asks for a JSON object back.
func (o *OpenRouter) Complete(ctx context.Context, prompt string) (*Response, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+o.apiKey)
	header.Set("HTTP-Referer", "https://seed-soil.app")
	header.Set("X-Title", "Seed & Soil")

	var reply chatReply
	err := postJSON(ctx, o.client, "openrouter", o.endpoint, header, chatRequest{
		Model:          o.model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		ResponseFormat: map[string]string{"type": "json_object"},
	}, &reply)
	if err != nil {
		return nil, err
	}
	if len(reply.Choices) == 0 {
		return nil, fmt.Errorf("openrouter api: response has no choices")
	}

	return &Response{
		Content:    reply.Choices[0].Message.Content,
		Provider:   "openrouter",
		TokensUsed: reply.Usage.TotalTokens,
	}, nil
}
