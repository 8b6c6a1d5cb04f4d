package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/lazypower/seedsoil/internal/config"
)

// Client is the interface for LLM providers.
type Client interface {
	Complete(ctx context.Context, prompt string) (*Response, error)
}

// Response holds the result of an LLM completion.
type Response struct {
	Content    string
	Provider   string
	TokensUsed int
}

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s api status %d: %s", e.Provider, e.Code, e.Body)
}

// Default models per provider, used when the config leaves the model empty.
const (
	defaultClaudeCLIModel = "haiku"
	defaultAnthropicModel = "claude-haiku-4-5-20251001"
	defaultOllamaURL      = "http://localhost:11434"
	defaultOllamaModel    = "llama3.2"
)

// NewClient builds the distillation client named by cfg.Provider.
func NewClient(cfg config.LLMConfig) (Client, error) {
	timeout := cfg.LLMTimeout()
	switch cfg.Provider {
	case "openrouter":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openrouter provider requires OPENROUTER_API_KEY or llm.api_key")
		}
		return NewOpenRouter(cfg.APIKey, or(cfg.Model, defaultOpenRouterModel), timeout), nil
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY or llm.anthropic_key")
		}
		return NewAnthropic(cfg.AnthropicKey, or(cfg.Model, defaultAnthropicModel), timeout), nil
	case "claude-cli":
		return NewClaudeCLI(or(cfg.Model, defaultClaudeCLIModel), timeout), nil
	case "ollama":
		return NewOllama(or(cfg.OllamaURL, defaultOllamaURL), or(cfg.OllamaModel, defaultOllamaModel), timeout), nil
	case "":
		return nil, fmt.Errorf("no LLM provider configured")
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func clampTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 120 * time.Second
	}
	return d
}
