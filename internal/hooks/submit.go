package hooks

import (
	"strings"

	"github.com/lazypower/seedsoil/internal/llm"
)

// captureTriggers mark a prompt the user wants kept.
var captureTriggers = []string{
	"remember this", "don't forget", "note to self",
	"today i learned", "the trick is",
	"lesson learned", "key insight",
}

// isInternalPrompt reports whether prompt came from seedsoil's own LLM
// calls. Only a leading sentinel counts.
func isInternalPrompt(prompt string) bool {
	return strings.HasPrefix(prompt, llm.InternalSentinel)
}

func hasTrigger(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, t := range captureTriggers {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// handleSubmit captures prompts that carry a trigger phrase.
func (h *Handler) handleSubmit(input *HookInput) error {
	if isInternalPrompt(input.Prompt) || !hasTrigger(input.Prompt) {
		return nil
	}
	_, err := h.Client.Capture(input.Prompt)
	return err
}
