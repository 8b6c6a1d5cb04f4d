package llm

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Ollama calls a local Ollama instance.
type Ollama struct {
	url    string
	model  string
	client *http.Client
}

// NewOllama creates a new Ollama client.
func NewOllama(url, model string, timeout time.Duration) *Ollama {
	return &Ollama{
		url:    strings.TrimRight(url, "/"),
		model:  model,
		client: &http.Client{Timeout: clampTimeout(timeout)},
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format"`
	Options map[string]any `json:"options"`
}

type generateReply struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Complete calls the generate endpoint in JSON format mode.
func (o *Ollama) Complete(ctx context.Context, prompt string) (*Response, error) {
	var reply generateReply
	err := postJSON(ctx, o.client, "ollama", o.url+"/api/generate", nil, generateRequest{
		Model:  o.model,
		Prompt: prompt,
		Format: "json",
		Options: map[string]any{
			"temperature": 0.3,
			"num_predict": 1024,
		},
	}, &reply)
	if err != nil {
		return nil, err
	}
	return &Response{
		Content:    reply.Response,
		Provider:   "ollama",
		TokensUsed: reply.PromptEvalCount + reply.EvalCount,
	}, nil
}
