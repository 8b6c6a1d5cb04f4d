package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lazypower/seedsoil/internal/llm"
	"github.com/lazypower/seedsoil/internal/store"
)

var (
	// ErrMalformedSummary marks a summarizer answer that is not a valid seed.
	ErrMalformedSummary = errors.New("malformed summary")
	// ErrMalformedSynthesis marks a synthesizer answer without a gaps list.
	ErrMalformedSynthesis = errors.New("malformed synthesis")
)

// Summarizer reduces captured text to a seed.
type Summarizer interface {
	Summarize(ctx context.Context, raw string) (*store.Seed, error)
}

// Synthesizer finds gaps across the essences of the active, distilled seeds.
type Synthesizer interface {
	Synthesize(ctx context.Context, essences []string) ([]string, error)
}

// Distiller implements Summarizer and Synthesizer over an LLM client.
type Distiller struct {
	LLM llm.Client
}

// NewDistiller creates a Distiller.
func NewDistiller(client llm.Client) *Distiller {
	return &Distiller{LLM: client}
}

// summaryPayload uses pointers so absent fields can be told apart from empty ones.
type summaryPayload struct {
	Essence *string   `json:"essence"`
	Nuggets *[]string `json:"nuggets"`
	Action  *string   `json:"action"`
}

type gapsPayload struct {
	Gaps *[]string `json:"gaps"`
}

// Summarize sends raw text to the LLM and decodes the answer into a seed.
// Transport failures are returned as is; anything undecodable wraps
// ErrMalformedSummary.
func (d *Distiller) Summarize(ctx context.Context, raw string) (*store.Seed, error) {
	resp, err := d.LLM.Complete(ctx, llm.DistillPrompt(raw))
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	return parseSummary(resp.Content)
}

// Synthesize sends the newline-joined essences to the LLM and returns the gaps.
func (d *Distiller) Synthesize(ctx context.Context, essences []string) ([]string, error) {
	resp, err := d.LLM.Complete(ctx, llm.SynthesisPrompt(strings.Join(essences, "\n")))
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	return parseSynthesis(resp.Content)
}

func parseSummary(content string) (*store.Seed, error) {
	obj, err := extractJSONObject(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSummary, err)
	}
	var p summaryPayload
	if err := json.Unmarshal([]byte(obj), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSummary, err)
	}
	seed, err := validateSummary(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSummary, err)
	}
	return seed, nil
}

func parseSynthesis(content string) ([]string, error) {
	obj, err := extractJSONObject(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSynthesis, err)
	}
	var p gapsPayload
	if err := json.Unmarshal([]byte(obj), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSynthesis, err)
	}
	gaps, err := validateGaps(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSynthesis, err)
	}
	return gaps, nil
}

// extractJSONObject pulls a JSON object out of an LLM response.
// The response might contain markdown code fences or other wrapper text.
func extractJSONObject(content string) (string, error) {
	content = strings.TrimSpace(content)

	// Strip markdown code fences if present
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) > 2 {
			content = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return content[start : end+1], nil
}
