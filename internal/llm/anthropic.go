package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicAPI     = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
)

// Anthropic calls the Anthropic Messages API directly.
type Anthropic struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewAnthropic creates a new Anthropic API client.
func NewAnthropic(apiKey, model string, timeout time.Duration) *Anthropic {
	return &Anthropic{
		apiKey:   apiKey,
		model:    model,
		endpoint: anthropicAPI,
		client:   &http.Client{Timeout: clampTimeout(timeout)},
	}
}

type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type messagesReply struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete sends a prompt to the Messages API. Seeds are short, so the
// output budget stays small.
func (a *Anthropic) Complete(ctx context.Context, prompt string) (*Response, error) {
	header := http.Header{}
	header.Set("x-api-key", a.apiKey)
	header.Set("anthropic-version", anthropicVersion)

	var reply messagesReply
	err := postJSON(ctx, a.client, "anthropic", a.endpoint, header, messagesRequest{
		Model:       a.model,
		MaxTokens:   1024,
		Temperature: 0.3,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	}, &reply)
	if err != nil {
		return nil, err
	}

	var parts []string
	for _, c := range reply.Content {
		if c.Type == "" || c.Type == "text" {
			parts = append(parts, c.Text)
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("anthropic api: empty content")
	}

	return &Response{
		Content:    strings.Join(parts, ""),
		Provider:   "anthropic",
		TokensUsed: reply.Usage.InputTokens + reply.Usage.OutputTokens,
	}, nil
}
