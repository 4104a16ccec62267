package generation

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultClaudeModel is the model passed to the claude CLI.
const DefaultClaudeModel = "haiku"

// ClaudeBackend generates text by invoking the claude CLI in print mode.
type ClaudeBackend struct {
	command string
	model   string
}

// NewClaudeBackend creates a backend that runs the claude CLI with model.
func NewClaudeBackend(model string) *ClaudeBackend {
	if model == "" {
		model = DefaultClaudeModel
	}
	return &ClaudeBackend{command: "claude", model: model}
}

// Generate calls the claude CLI with the given prompt.
// Cancelling ctx kills the process.
func (b *ClaudeBackend) Generate(ctx context.Context, prompt string) (string, error) {
	cmd := exec.CommandContext(ctx, b.command, "--model", b.model, "-p", prompt)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", &Error{Backend: b.Name(), Err: ctx.Err()}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &Error{Backend: b.Name(), Err: fmt.Errorf("claude CLI error: %s", strings.TrimSpace(string(exitErr.Stderr)))}
		}
		return "", &Error{Backend: b.Name(), Err: fmt.Errorf("claude CLI error: %w", err)}
	}

	text := strings.TrimSpace(string(output))
	if text == "" {
		return "", &Error{Backend: b.Name(), Err: ErrEmptyResponse}
	}
	return text, nil
}

// Name returns the backend and model name.
func (b *ClaudeBackend) Name() string {
	return "claude/" + b.model
}
