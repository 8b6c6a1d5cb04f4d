package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ClaudeCLI runs `claude -p` as a subprocess, one process per prompt.
type ClaudeCLI struct {
	bin     string
	model   string
	timeout time.Duration
}

// NewClaudeCLI creates a Claude CLI client.
func NewClaudeCLI(model string, timeout time.Duration) *ClaudeCLI {
	return &ClaudeCLI{
		bin:     "claude",
		model:   model,
		timeout: clampTimeout(timeout),
	}
}

func (c *ClaudeCLI) args() []string {
	args := []string{"-p", "--max-turns", "1"}
	if c.model != "" {
		args = append(args, "--model", c.model)
	}
	return args
}

// Complete pipes the prompt to the CLI on stdin and returns its stdout.
func (c *ClaudeCLI) Complete(ctx context.Context, prompt string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.bin, c.args()...)
	cmd.Stdin = strings.NewReader(prompt)
	cmd.Env = filterEnv(os.Environ())

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("claude cli: timed out after %s", c.timeout)
		}
		return nil, fmt.Errorf("claude cli: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return nil, errors.New("claude cli: empty output")
	}
	return &Response{Content: out, Provider: "claude-cli"}, nil
}

// filterEnv drops CLAUDE_* variables so the child session does not attach
// to the parent's.
func filterEnv(env []string) []string {
	out := make([]string, 0, len(env))
	for _, e := range env {
		if !strings.HasPrefix(e, "CLAUDE_") {
			out = append(out, e)
		}
	}
	return out
}
