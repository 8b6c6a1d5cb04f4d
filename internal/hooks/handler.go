package hooks

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
)

// Handler answers hook events.
type Handler struct {
	Client *Client
	Out    io.Writer
}

// Handle decodes a HookInput from stdin and dispatches on event. Hooks must
// never break the agent, so failures are logged and swallowed; the returned
// error is only for callers that want it.
func (h *Handler) Handle(event string, stdin io.Reader) error {
	var input HookInput
	if err := json.NewDecoder(stdin).Decode(&input); err != nil && err != io.EOF {
		log.Printf("hook %s: decode stdin: %v", event, err)
		if event == "start" {
			return WriteSessionStartOutput(h.Out, "")
		}
		return fmt.Errorf("decode stdin: %w", err)
	}

	if !h.Client.Healthy() {
		if event == "start" {
			return WriteSessionStartOutput(h.Out, "")
		}
		return nil
	}

	var err error
	switch event {
	case "start":
		err = h.handleStart(&input)
	case "submit":
		err = h.handleSubmit(&input)
	case "end":
		err = h.handleEnd(&input)
	default:
		err = fmt.Errorf("unknown hook event: %s", event)
	}
	if err != nil {
		log.Printf("hook %s: %v", event, err)
	}
	return err
}
