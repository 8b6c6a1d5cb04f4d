package hooks

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lazypower/seedsoil/internal/store"
)

// SessionStartOutput is what the agent reads from stdout after the start hook.
type SessionStartOutput struct {
	HookSpecificOutput startContext `json:"hookSpecificOutput"`
}

type startContext struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext"`
}

// WriteSessionStartOutput injects context into the new session. An empty
// context is still written so the agent sees a well-formed reply.
func WriteSessionStartOutput(w io.Writer, context string) error {
	return json.NewEncoder(w).Encode(SessionStartOutput{
		HookSpecificOutput: startContext{HookEventName: "SessionStart", AdditionalContext: context},
	})
}

// handleStart reminds the agent of the seeds due for review.
func (h *Handler) handleStart(input *HookInput) error {
	items, err := h.Client.Review()
	if err != nil {
		WriteSessionStartOutput(h.Out, "")
		return err
	}
	return WriteSessionStartOutput(h.Out, reviewContext(items))
}

func reviewContext(items []store.Item) string {
	var b strings.Builder
	for _, it := range items {
		if it.Seed == nil {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("<seeds>\nThe user is growing these ideas. Work them in when relevant.\n")
		}
		fmt.Fprintf(&b, "- %s (try: %s)\n", it.Seed.Essence, it.Seed.Action)
	}
	if b.Len() == 0 {
		return ""
	}
	b.WriteString("</seeds>")
	return b.String()
}
