package hooks

import (
	"errors"
	"fmt"
	"os"

	"github.com/lazypower/seedsoil/internal/transcript"
)

// minTranscriptTurns skips sessions too short to be worth distilling.
const minTranscriptTurns = 4

// handleEnd captures the condensed session transcript as one seed.
func (h *Handler) handleEnd(input *HookInput) error {
	if input.TranscriptPath == "" {
		return nil
	}
	f, err := os.Open(input.TranscriptPath)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	turns, err := transcript.Parse(f)
	if err != nil {
		return err
	}
	userTurns := 0
	for _, t := range turns {
		if t.Role == "user" {
			if isInternalPrompt(t.Text) {
				return nil
			}
			userTurns++
		}
	}
	if len(turns) < minTranscriptTurns || userTurns == 0 {
		return nil
	}

	text := transcript.Condense(turns)
	if text == "" {
		return errors.New("empty transcript")
	}
	_, err = h.Client.Capture(text)
	return err
}
