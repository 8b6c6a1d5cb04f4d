package hooks

// HookInput is the JSON an agent sends on stdin to a hook command.
// Different events populate different fields.
type HookInput struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	CWD            string `json:"cwd"`
	HookEventName  string `json:"hook_event_name"`

	// UserPromptSubmit
	Prompt string `json:"prompt,omitempty"`

	// SessionEnd
	Reason string `json:"reason,omitempty"`
}
