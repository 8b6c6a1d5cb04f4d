// Package transcript reads chat conversations exported as JSON Lines and
// condenses them into text worth capturing.
package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrNoTurns is returned when a transcript holds no readable messages.
var ErrNoTurns = errors.New("transcript has no messages")

// Turn is one message in a conversation.
type Turn struct {
	Role string // "user" or "assistant"
	Text string
}

// line covers both export shapes: agent logs that nest the message under
// "message", and flat chat exports with role and content at the top level.
type line struct {
	Type    string          `json:"type"`
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Message *struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type block struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var reminderRe = regexp.MustCompile(`<system-reminder>[\s\S]*?</system-reminder>`)

// minTurnChars drops acknowledgements like "ok".
const minTurnChars = 5

// Parse reads one JSON object per line. Malformed lines, tool traffic and
// system messages are skipped.
func Parse(r io.Reader) ([]Turn, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var turns []Turn
	for sc.Scan() {
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		if t, ok := parseLine(raw); ok {
			turns = append(turns, t)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}
	return turns, nil
}

func parseLine(raw []byte) (Turn, bool) {
	var l line
	if err := json.Unmarshal(raw, &l); err != nil {
		return Turn{}, false
	}

	role, content := l.Role, l.Content
	if l.Message != nil {
		role, content = l.Message.Role, l.Message.Content
	}
	if role == "" {
		role = l.Type
	}
	if role != "user" && role != "assistant" {
		return Turn{}, false
	}

	text := reminderRe.ReplaceAllString(contentText(content), "")
	text = strings.TrimSpace(text)
	if len([]rune(text)) < minTurnChars || strings.HasPrefix(text, "{") {
		return Turn{}, false
	}
	return Turn{Role: role, Text: text}, true
}

// contentText accepts a plain string or a list of typed blocks, keeping
// only text blocks.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []block
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

const (
	edgeReplyChars = 1000
	midReplyChars  = 200
)

// Condense keeps every user message in full. The first and last assistant
// replies are cut at 1000 characters and the ones between at 200.
func Condense(turns []Turn) string {
	last := -1
	first := -1
	for i, t := range turns {
		if t.Role == "assistant" {
			if first < 0 {
				first = i
			}
			last = i
		}
	}

	var b strings.Builder
	for i, t := range turns {
		switch t.Role {
		case "user":
			b.WriteString("Me: ")
			b.WriteString(t.Text)
		case "assistant":
			limit := midReplyChars
			if i == first || i == last {
				limit = edgeReplyChars
			}
			b.WriteString("Reply: ")
			b.WriteString(clip(t.Text, limit))
		}
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Text parses and condenses a transcript file's contents.
func Text(data []byte) (string, error) {
	turns, err := Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	if len(turns) == 0 {
		return "", ErrNoTurns
	}
	return Condense(turns), nil
}
